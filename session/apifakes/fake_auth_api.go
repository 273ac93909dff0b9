package apifakes

import (
	"context"
	"sync"

	"github.com/storefrontapp/authkit/authapi"
	"github.com/storefrontapp/authkit/session"
)

var _ session.AuthAPI = (*FakeAuthAPI)(nil)

// FakeAuthAPI is a configurable session.AuthAPI for tests. Each operation
// returns its preset result (or calls its stub when one is set) and counts
// its calls.
type FakeAuthAPI struct {
	LoginResult   authapi.Result[authapi.TokenResponse]
	SignupResult  authapi.Result[authapi.Profile]
	ProfileResult authapi.Result[authapi.Profile]
	RefreshResult authapi.Result[authapi.TokenResponse]

	LoginStub   func(ctx context.Context, email, password string) authapi.Result[authapi.TokenResponse]
	SignupStub  func(ctx context.Context, name, email, password string) authapi.Result[authapi.Profile]
	ProfileStub func(ctx context.Context, accessToken string) authapi.Result[authapi.Profile]
	RefreshStub func(ctx context.Context, refreshToken string) authapi.Result[authapi.TokenResponse]

	loginCalls   int
	signupCalls  int
	profileCalls int
	refreshCalls int
	lock         sync.Mutex
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{}
}

func (f *FakeAuthAPI) Login(ctx context.Context, email, password string) authapi.Result[authapi.TokenResponse] {
	f.lock.Lock()
	f.loginCalls++
	stub := f.LoginStub
	f.lock.Unlock()

	if stub != nil {
		return stub(ctx, email, password)
	}
	return f.LoginResult
}

func (f *FakeAuthAPI) Signup(ctx context.Context, name, email, password string) authapi.Result[authapi.Profile] {
	f.lock.Lock()
	f.signupCalls++
	stub := f.SignupStub
	f.lock.Unlock()

	if stub != nil {
		return stub(ctx, name, email, password)
	}
	return f.SignupResult
}

func (f *FakeAuthAPI) GetUserProfile(ctx context.Context, accessToken string) authapi.Result[authapi.Profile] {
	f.lock.Lock()
	f.profileCalls++
	stub := f.ProfileStub
	f.lock.Unlock()

	if stub != nil {
		return stub(ctx, accessToken)
	}
	return f.ProfileResult
}

func (f *FakeAuthAPI) RefreshToken(ctx context.Context, refreshToken string) authapi.Result[authapi.TokenResponse] {
	f.lock.Lock()
	f.refreshCalls++
	stub := f.RefreshStub
	f.lock.Unlock()

	if stub != nil {
		return stub(ctx, refreshToken)
	}
	return f.RefreshResult
}

func (f *FakeAuthAPI) LoginCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.loginCalls
}

func (f *FakeAuthAPI) SignupCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.signupCalls
}

func (f *FakeAuthAPI) ProfileCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.profileCalls
}

func (f *FakeAuthAPI) RefreshCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refreshCalls
}
