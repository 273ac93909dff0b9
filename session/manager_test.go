package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/storefrontapp/authkit/authapi"
	"github.com/storefrontapp/authkit/i18n"
	kiterrors "github.com/storefrontapp/authkit/internal/errors"
	"github.com/storefrontapp/authkit/internal/utils"
	"github.com/storefrontapp/authkit/session"
	"github.com/storefrontapp/authkit/session/apifakes"
	"github.com/storefrontapp/authkit/storage"
	"github.com/storefrontapp/authkit/storage/storefakes"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "c@x.com"
	testPassword = "secret1"
)

var enMsgs = i18n.Lookup(i18n.LanguageEnglish).Validation

// testFixture holds the manager and its fake collaborators.
type testFixture struct {
	api     *apifakes.FakeAuthAPI
	store   *storefakes.FakeStore
	manager *session.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	api := apifakes.NewFakeAuthAPI()
	store := storefakes.NewFakeStore()

	manager, err := session.NewManager(api, store, zerolog.Nop())
	require.NoError(t, err)

	return &testFixture{
		api:     api,
		store:   store,
		manager: manager,
	}
}

func (f *testFixture) storedString(t *testing.T, key string) (string, bool) {
	t.Helper()
	var v string
	ok, err := f.store.Get(key, &v)
	require.NoError(t, err)
	return v, ok
}

func (f *testFixture) storedUser(t *testing.T) (session.User, bool) {
	t.Helper()
	var u session.User
	ok, err := f.store.Get(storage.KeyUser, &u)
	require.NoError(t, err)
	return u, ok
}

func tokenResult(access, refresh string) authapi.Result[authapi.TokenResponse] {
	data := authapi.TokenResponse{AccessToken: access}
	if refresh != "" {
		data.RefreshToken = utils.Ptr(refresh)
	}
	return authapi.Result[authapi.TokenResponse]{Success: true, Data: data}
}

func profileResult(p authapi.Profile) authapi.Result[authapi.Profile] {
	return authapi.Result[authapi.Profile]{Success: true, Data: p}
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	_, err := session.NewManager(nil, storefakes.NewFakeStore(), zerolog.Nop())
	require.Error(t, err)

	_, err = session.NewManager(apifakes.NewFakeAuthAPI(), nil, zerolog.Nop())
	require.Error(t, err)
}

func TestInitialize_CachedPath(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))
	require.NoError(t, f.store.Set(storage.KeyUser, session.User{ID: 1, Name: "A", Email: "a@x.com"}))

	f.manager.Initialize(context.Background())

	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.Equal(t, &session.User{ID: 1, Name: "A", Email: "a@x.com"}, f.manager.CurrentUser())
	require.Zero(t, f.api.ProfileCalls(), "cached profile must not trigger a network call")
	require.False(t, f.manager.IsLoading())
}

func TestInitialize_RehydrationPath(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))
	f.api.ProfileResult = profileResult(authapi.Profile{ID: 1, Name: "B", Email: "b@x.com"})

	f.manager.Initialize(context.Background())

	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.Equal(t, 1, f.api.ProfileCalls())

	stored, ok := f.storedUser(t)
	require.True(t, ok, "rehydrated user must be persisted")
	require.Equal(t, session.User{ID: 1, Name: "B", Email: "b@x.com"}, stored)
}

func TestInitialize_InvalidTokenPath(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "bad"))
	require.NoError(t, f.store.Set(storage.KeyRefreshToken, "ref"))
	f.api.ProfileResult = authapi.Result[authapi.Profile]{Error: "Authentication failed. Please log in again."}

	f.manager.Initialize(context.Background())

	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.False(t, f.store.Contains(storage.KeyAuthToken))
	require.False(t, f.store.Contains(storage.KeyRefreshToken))
}

func TestInitialize_NoToken(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.Initialize(context.Background())

	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.Zero(t, f.api.ProfileCalls())
}

func TestInitialize_LoadingObservableDuringRestore(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))

	var loadingDuringFetch bool
	f.api.ProfileStub = func(ctx context.Context, accessToken string) authapi.Result[authapi.Profile] {
		loadingDuringFetch = f.manager.IsLoading()
		return profileResult(authapi.Profile{ID: 1, Name: "B", Email: "b@x.com"})
	}

	require.Equal(t, session.StateUninitialized, f.manager.State())
	f.manager.Initialize(context.Background())

	require.True(t, loadingDuringFetch, "loading must be observable during restore")
	require.False(t, f.manager.IsLoading())
}

func TestInitialize_PanicResolvesToUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))
	f.api.ProfileStub = func(ctx context.Context, accessToken string) authapi.Result[authapi.Profile] {
		panic("backend client blew up")
	}

	f.manager.Initialize(context.Background())

	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.False(t, f.manager.IsLoading())
}

func TestInitialize_RunsOnlyOnce(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))
	f.api.ProfileResult = profileResult(authapi.Profile{ID: 1, Name: "B", Email: "b@x.com"})

	f.manager.Initialize(context.Background())
	f.manager.Initialize(context.Background())

	require.Equal(t, 1, f.api.ProfileCalls())
}

func TestLogin_SuccessRoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.LoginResult = tokenResult("tok", "ref")
	f.api.ProfileResult = profileResult(authapi.Profile{ID: 1, Name: "C", Email: testEmail})

	result := f.manager.Login(context.Background(), testEmail, testPassword)

	require.True(t, result.Success)
	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.Equal(t, &session.User{ID: 1, Name: "C", Email: testEmail}, f.manager.CurrentUser())

	accessToken, ok := f.storedString(t, storage.KeyAuthToken)
	require.True(t, ok)
	require.Equal(t, "tok", accessToken)

	refreshToken, ok := f.storedString(t, storage.KeyRefreshToken)
	require.True(t, ok)
	require.Equal(t, "ref", refreshToken)

	stored, ok := f.storedUser(t)
	require.True(t, ok)
	require.Equal(t, session.User{ID: 1, Name: "C", Email: testEmail}, stored)
}

func TestLogin_ValidationFailureSkipsNetwork(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	result := f.manager.Login(context.Background(), "", "")

	require.False(t, result.Success)
	require.Equal(t, enMsgs.EmailRequired, result.Error, "first error in declaration order")
	require.Zero(t, f.api.LoginCalls())
}

func TestLogin_MissingAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	// The API reports success but the payload carries no access token.
	f.api.LoginResult = authapi.Result[authapi.TokenResponse]{Success: true}

	result := f.manager.Login(context.Background(), testEmail, testPassword)

	require.False(t, result.Success)
	require.Equal(t, enMsgs.LoginError, result.Error)
	require.Zero(t, f.store.Len(), "no storage writes on contract violation")
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
}

func TestLogin_UpstreamErrorSurfaced(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.LoginResult = authapi.Result[authapi.TokenResponse]{Error: "Unauthorized"}
	result := f.manager.Login(context.Background(), testEmail, testPassword)
	require.False(t, result.Success)
	require.Equal(t, "Unauthorized", result.Error)

	f.api.LoginResult = authapi.Result[authapi.TokenResponse]{}
	result = f.manager.Login(context.Background(), testEmail, testPassword)
	require.Equal(t, enMsgs.IncorrectCredentials, result.Error)
}

func TestLogin_SuccessDespiteFailedProfileHydration(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.LoginResult = tokenResult("tok", "")
	f.api.ProfileResult = authapi.Result[authapi.Profile]{Error: "Failed to fetch profile. Please try again."}

	result := f.manager.Login(context.Background(), testEmail, testPassword)

	// The credential exchange succeeded, so the caller sees success even
	// though the session stays unpopulated.
	require.True(t, result.Success)
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.Nil(t, f.manager.CurrentUser())

	accessToken, ok := f.storedString(t, storage.KeyAuthToken)
	require.True(t, ok)
	require.Equal(t, "tok", accessToken)
	require.False(t, f.store.Contains(storage.KeyUser))
}

func TestLogin_OmittedRefreshTokenNotPersisted(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.LoginResult = tokenResult("tok", "")
	f.api.ProfileResult = profileResult(authapi.Profile{ID: 1, Name: "C", Email: testEmail})

	result := f.manager.Login(context.Background(), testEmail, testPassword)

	require.True(t, result.Success)
	require.True(t, f.store.Contains(storage.KeyAuthToken))
	require.False(t, f.store.Contains(storage.KeyRefreshToken))
}

func TestLogin_PanicRecoveredToLocalizedFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.LoginStub = func(ctx context.Context, email, password string) authapi.Result[authapi.TokenResponse] {
		panic("transport layer bug")
	}

	result := f.manager.Login(context.Background(), testEmail, testPassword)

	require.False(t, result.Success)
	require.Equal(t, enMsgs.LoginError, result.Error)
}

func TestLogin_LanguageSensitiveValidation(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAppLanguage, i18n.LanguageMalay))
	f.manager.Initialize(context.Background())

	result := f.manager.Login(context.Background(), "", "")

	require.Equal(t, i18n.Lookup(i18n.LanguageMalay).Validation.EmailRequired, result.Error)
	require.NotEqual(t, enMsgs.EmailRequired, result.Error)
}

func TestSignup_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.SignupResult = profileResult(authapi.Profile{ID: 7, Name: "Jane", Email: "jane@x.com", Avatar: "http://img"})
	f.api.LoginResult = tokenResult("tok", "ref")
	f.api.ProfileResult = profileResult(authapi.Profile{ID: 7, Name: "Different", Email: "jane@x.com"})

	result := f.manager.Signup(context.Background(), " Jane ", " jane@x.com ", testPassword)

	require.True(t, result.Success)
	require.Equal(t, session.StateAuthenticated, f.manager.State())

	// The session user comes from the signup response with the default
	// role, not from the login profile.
	want := session.User{ID: 7, Name: "Jane", Email: "jane@x.com", Avatar: "http://img", Role: session.DefaultRole}
	require.Equal(t, &want, f.manager.CurrentUser())

	stored, ok := f.storedUser(t)
	require.True(t, ok)
	require.Equal(t, want, stored)

	accessToken, ok := f.storedString(t, storage.KeyAuthToken)
	require.True(t, ok)
	require.Equal(t, "tok", accessToken)
}

func TestSignup_DefaultsFromTrimmedInputs(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	// Server echoes nothing useful back.
	f.api.SignupResult = profileResult(authapi.Profile{ID: 8})
	f.api.LoginResult = authapi.Result[authapi.TokenResponse]{Error: "Unauthorized"}

	result := f.manager.Signup(context.Background(), "  Jane  ", "  jane@x.com  ", testPassword)

	require.True(t, result.Success)
	user := f.manager.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, "Jane", user.Name)
	require.Equal(t, "jane@x.com", user.Email)
	require.Equal(t, session.DefaultRole, user.Role)
}

func TestSignup_BestEffortLoginFailureStillSucceeds(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.SignupResult = profileResult(authapi.Profile{ID: 9, Name: "Jo", Email: "jo@x.com"})
	f.api.LoginResult = authapi.Result[authapi.TokenResponse]{Error: "Unauthorized"}

	result := f.manager.Signup(context.Background(), "Jo", "jo@x.com", testPassword)

	require.True(t, result.Success)
	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.False(t, f.store.Contains(storage.KeyAuthToken))
	require.True(t, f.store.Contains(storage.KeyUser))
}

func TestSignup_ValidationFailureSkipsNetwork(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	result := f.manager.Signup(context.Background(), "", "jane@x.com", testPassword)

	require.False(t, result.Success)
	require.Equal(t, enMsgs.NameRequired, result.Error)
	require.Zero(t, f.api.SignupCalls())
}

func TestSignup_FailureFallbackOrder(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	f.api.SignupResult = authapi.Result[authapi.Profile]{Error: "Email is already in use"}
	result := f.manager.Signup(context.Background(), "Jane", "jane@x.com", testPassword)
	require.Equal(t, "Email is already in use", result.Error)

	f.api.SignupResult = authapi.Result[authapi.Profile]{}
	result = f.manager.Signup(context.Background(), "Jane", "jane@x.com", testPassword)
	require.Equal(t, enMsgs.UserExists, result.Error)
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))
	require.NoError(t, f.store.Set(storage.KeyRefreshToken, "r"))
	require.NoError(t, f.store.Set(storage.KeyUser, session.User{ID: 1, Name: "A", Email: "a@x.com"}))
	f.manager.Initialize(context.Background())
	require.True(t, f.manager.IsAuthenticated())

	f.manager.Logout()

	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.Nil(t, f.manager.CurrentUser())
	require.False(t, f.store.Contains(storage.KeyUser))
	require.False(t, f.store.Contains(storage.KeyAuthToken))
	require.False(t, f.store.Contains(storage.KeyRefreshToken))
}

func TestLogout_BestEffortWhenRemovalFails(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, "t"))
	require.NoError(t, f.store.Set(storage.KeyRefreshToken, "r"))
	require.NoError(t, f.store.Set(storage.KeyUser, session.User{ID: 1, Name: "A", Email: "a@x.com"}))
	f.manager.Initialize(context.Background())

	f.store.FailRemove(storage.KeyAuthToken, kiterrors.ErrStoreUnavailable)

	f.manager.Logout()

	// The failing key stays behind but the session is cleared and the
	// other removals were still attempted.
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.False(t, f.store.Contains(storage.KeyUser))
	require.False(t, f.store.Contains(storage.KeyRefreshToken))
}

func mintExpiredJWT(t *testing.T) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestRefreshSession_ExchangesExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, mintExpiredJWT(t)))
	require.NoError(t, f.store.Set(storage.KeyRefreshToken, "ref"))
	require.NoError(t, f.store.Set(storage.KeyUser, session.User{ID: 1, Name: "A", Email: "a@x.com"}))
	f.manager.Initialize(context.Background())

	f.api.RefreshResult = tokenResult("fresh-tok", "fresh-ref")

	result := f.manager.RefreshSession(context.Background())

	require.True(t, result.Success)
	require.Equal(t, 1, f.api.RefreshCalls())

	accessToken, ok := f.storedString(t, storage.KeyAuthToken)
	require.True(t, ok)
	require.Equal(t, "fresh-tok", accessToken)

	refreshToken, ok := f.storedString(t, storage.KeyRefreshToken)
	require.True(t, ok)
	require.Equal(t, "fresh-ref", refreshToken)
}

func TestRefreshSession_FreshTokenIsANoOp(t *testing.T) {
	f := setupTestFixture(t)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, raw))
	require.NoError(t, f.store.Set(storage.KeyUser, session.User{ID: 1, Name: "A", Email: "a@x.com"}))
	f.manager.Initialize(context.Background())

	result := f.manager.RefreshSession(context.Background())

	require.True(t, result.Success)
	require.Zero(t, f.api.RefreshCalls())
}

func TestRefreshSession_FailedExchangeClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Set(storage.KeyAuthToken, mintExpiredJWT(t)))
	require.NoError(t, f.store.Set(storage.KeyRefreshToken, "revoked"))
	require.NoError(t, f.store.Set(storage.KeyUser, session.User{ID: 1, Name: "A", Email: "a@x.com"}))
	f.manager.Initialize(context.Background())
	require.True(t, f.manager.IsAuthenticated())

	f.api.RefreshResult = authapi.Result[authapi.TokenResponse]{Error: "Token refresh failed. Please log in again."}

	result := f.manager.RefreshSession(context.Background())

	require.False(t, result.Success)
	require.Equal(t, "Token refresh failed. Please log in again.", result.Error)
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.False(t, f.store.Contains(storage.KeyAuthToken))
	require.False(t, f.store.Contains(storage.KeyRefreshToken))
	require.False(t, f.store.Contains(storage.KeyUser))
}

func TestRefreshSession_NoStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Initialize(context.Background())

	result := f.manager.RefreshSession(context.Background())

	require.False(t, result.Success)
	require.Zero(t, f.api.RefreshCalls())
}
