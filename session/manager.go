// Package session owns the current-user state and its token lifecycle: it
// restores a persisted session at startup, orchestrates login, signup and
// logout, and decides when stored credentials are stale and must be
// discarded.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/storefrontapp/authkit/authapi"
	"github.com/storefrontapp/authkit/i18n"
	"github.com/storefrontapp/authkit/internal/utils"
	"github.com/storefrontapp/authkit/storage"
	"github.com/storefrontapp/authkit/token"
	"github.com/storefrontapp/authkit/validation"
)

// State is the session lifecycle state. After startup completes the state
// never transitions back to Loading.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// AuthAPI is the surface the Manager needs from the auth API client.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) authapi.Result[authapi.TokenResponse]
	Signup(ctx context.Context, name, email, password string) authapi.Result[authapi.Profile]
	GetUserProfile(ctx context.Context, accessToken string) authapi.Result[authapi.Profile]
	RefreshToken(ctx context.Context, refreshToken string) authapi.Result[authapi.TokenResponse]
}

var _ AuthAPI = (*authapi.Client)(nil)

// Result is the uniform outcome of every public Manager operation. Nothing
// throws past this boundary; failures resolve into a localized Error string.
type Result struct {
	Success bool
	Error   string
}

// Manager is the session state machine. Mutating operations (Initialize,
// Login, Signup, Logout, RefreshSession) are serialized by a mutex so
// overlapping calls cannot interleave partial storage writes.
type Manager struct {
	api       AuthAPI
	store     storage.Store
	languages *i18n.Selector
	logger    zerolog.Logger

	opLock    sync.Mutex
	stateLock sync.RWMutex
	state     State
	user      *User

	initOnce sync.Once
}

// NewManager creates a session Manager over the given API client and store.
func NewManager(api AuthAPI, store storage.Store, logger zerolog.Logger) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	return &Manager{
		api:       api,
		store:     store,
		languages: i18n.NewSelector(store),
		logger:    logger,
		state:     StateUninitialized,
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.state
}

// IsLoading reports whether startup restore is still in progress. Consumers
// must wait for it to turn false before trusting IsAuthenticated.
func (m *Manager) IsLoading() bool {
	return m.State() == StateLoading
}

// IsAuthenticated reports whether a session is established.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// CurrentUser returns a copy of the current user, or nil when no session is
// established.
func (m *Manager) CurrentUser() *User {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) setState(state State, user *User) {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()
	m.state = state
	m.user = user
}

// Initialize runs the startup restore exactly once per Manager lifetime.
// Subsequent calls are no-ops.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		m.restore(ctx)
	})
}

// restore reads the persisted credential pair and user snapshot and resolves
// the session into Authenticated or Unauthenticated. An access token without
// a user snapshot must resolve within this pass: either the profile fetch
// succeeds and the session is established, or the credentials are erased.
func (m *Manager) restore(ctx context.Context) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.setState(StateLoading, nil)
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("error loading user")
		}
		// Never leave the process in Loading, and never assume
		// authentication on error.
		if m.State() == StateLoading {
			m.setState(StateUnauthenticated, nil)
		}
	}()

	var storedToken string
	hasToken, err := m.store.Get(storage.KeyAuthToken, &storedToken)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read stored token")
		return
	}

	var storedUser User
	hasUser, err := m.store.Get(storage.KeyUser, &storedUser)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to read stored user")
		hasUser = false
	}

	switch {
	case hasToken && storedToken != "" && hasUser:
		// Trust the cached profile, no network call.
		u := storedUser
		m.setState(StateAuthenticated, &u)

	case hasToken && storedToken != "":
		profileRes := m.api.GetUserProfile(ctx, storedToken)
		if profileRes.Success {
			u := userFromProfile(profileRes.Data)
			if err := m.store.Set(storage.KeyUser, u); err != nil {
				m.logger.Error().Err(err).Msg("failed to persist restored user")
			}
			m.setState(StateAuthenticated, &u)
			return
		}
		// Stale credential: erase both tokens rather than leave a token
		// without a session.
		m.removeKeys(storage.KeyAuthToken, storage.KeyRefreshToken)
		m.setState(StateUnauthenticated, nil)

	default:
		m.setState(StateUnauthenticated, nil)
	}
}

// Login validates the credentials locally, exchanges them for tokens and
// hydrates the profile. Success is reported once the credential exchange
// succeeds, even when profile hydration fails and the session stays as it
// was; hydration then completes on a later attempt.
func (m *Manager) Login(ctx context.Context, email, password string) (result Result) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	t := m.languages.Messages()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("login error")
			result = Result{Error: t.Validation.LoginError}
		}
	}()

	v := validation.ValidateLoginForm(validation.LoginForm{
		Email:    email,
		Password: password,
	}, m.languages.Language())
	if !v.IsValid {
		return Result{Error: v.FirstError()}
	}

	loginRes := m.api.Login(ctx, email, password)
	if !loginRes.Success {
		return Result{Error: firstNonEmpty(loginRes.Error, t.Validation.IncorrectCredentials)}
	}

	accessToken := loginRes.Data.AccessToken
	if accessToken == "" {
		// Protocol-contract violation by the server; nothing is persisted.
		return Result{Error: t.Validation.LoginError}
	}

	if err := m.store.Set(storage.KeyAuthToken, accessToken); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist access token")
	}
	if refreshToken := utils.Value(loginRes.Data.RefreshToken); refreshToken != "" {
		if err := m.store.Set(storage.KeyRefreshToken, refreshToken); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist refresh token")
		}
	}

	profileRes := m.api.GetUserProfile(ctx, accessToken)
	if profileRes.Success {
		u := userFromProfile(profileRes.Data)
		if err := m.store.Set(storage.KeyUser, u); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist user")
		}
		m.setState(StateAuthenticated, &u)
	}

	return Result{Success: true}
}

// Signup validates the inputs, creates the account, then performs a
// best-effort credential exchange with the just-chosen password. The session
// user comes from the signup response, not from the login profile.
func (m *Manager) Signup(ctx context.Context, name, email, password string) (result Result) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	t := m.languages.Messages()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("signup error")
			result = Result{Error: t.Validation.SignupError}
		}
	}()

	v := validation.ValidateSignupForm(validation.SignupForm{
		Name:     name,
		Email:    email,
		Password: password,
	}, m.languages.Language())
	if !v.IsValid {
		return Result{Error: v.FirstError()}
	}

	signupRes := m.api.Signup(ctx, name, email, password)
	if !signupRes.Success {
		return Result{Error: firstNonEmpty(
			signupRes.Error,
			t.Validation.UserExists,
			t.Validation.SignupError,
		)}
	}

	u := User{
		ID:     signupRes.Data.ID,
		Name:   firstNonEmpty(signupRes.Data.Name, strings.TrimSpace(name)),
		Email:  firstNonEmpty(signupRes.Data.Email, strings.TrimSpace(email)),
		Avatar: signupRes.Data.Avatar,
		Role:   firstNonEmpty(signupRes.Data.Role, DefaultRole),
	}

	loginRes := m.api.Login(ctx, email, password)
	if loginRes.Success && loginRes.Data.AccessToken != "" {
		if err := m.store.Set(storage.KeyAuthToken, loginRes.Data.AccessToken); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist access token")
		}
		if refreshToken := utils.Value(loginRes.Data.RefreshToken); refreshToken != "" {
			if err := m.store.Set(storage.KeyRefreshToken, refreshToken); err != nil {
				m.logger.Error().Err(err).Msg("failed to persist refresh token")
			}
		}
	}

	if err := m.store.Set(storage.KeyUser, u); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist user")
	}
	m.setState(StateAuthenticated, &u)

	return Result{Success: true}
}

// Logout clears the in-memory session and removes the persisted credential
// pair and user snapshot. It is best-effort: every removal is attempted and
// failures are logged, never re-raised.
func (m *Manager) Logout() {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	m.setState(StateUnauthenticated, nil)
	m.removeKeys(storage.KeyUser, storage.KeyAuthToken, storage.KeyRefreshToken)
}

// RefreshSession exchanges the stored refresh token for a new credential pair
// when the stored access token has expired. A failed exchange of an expired
// token erases the credentials and the session; leaving either would break
// the pairing between them.
func (m *Manager) RefreshSession(ctx context.Context) (result Result) {
	m.opLock.Lock()
	defer m.opLock.Unlock()

	t := m.languages.Messages()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("refresh error")
			result = Result{Error: t.Validation.LoginError}
		}
	}()

	var accessToken string
	hasToken, err := m.store.Get(storage.KeyAuthToken, &accessToken)
	if err != nil || !hasToken || accessToken == "" {
		return Result{Error: t.Validation.LoginError}
	}

	if !token.IsExpired(accessToken, token.DefaultLeeway) {
		return Result{Success: true}
	}

	var refreshToken string
	hasRefresh, err := m.store.Get(storage.KeyRefreshToken, &refreshToken)
	if err != nil || !hasRefresh || refreshToken == "" {
		m.logger.Warn().Msg("access token expired with no refresh token")
		m.removeKeys(storage.KeyAuthToken, storage.KeyUser)
		m.setState(StateUnauthenticated, nil)
		return Result{Error: t.Validation.LoginError}
	}

	refreshRes := m.api.RefreshToken(ctx, refreshToken)
	if !refreshRes.Success {
		m.removeKeys(storage.KeyAuthToken, storage.KeyRefreshToken, storage.KeyUser)
		m.setState(StateUnauthenticated, nil)
		return Result{Error: firstNonEmpty(refreshRes.Error, t.Validation.LoginError)}
	}

	if err := m.store.Set(storage.KeyAuthToken, refreshRes.Data.AccessToken); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist refreshed access token")
	}
	if newRefresh := utils.Value(refreshRes.Data.RefreshToken); newRefresh != "" {
		if err := m.store.Set(storage.KeyRefreshToken, newRefresh); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist rotated refresh token")
		}
	}

	return Result{Success: true}
}

func (m *Manager) removeKeys(keys ...string) {
	for _, key := range keys {
		if err := m.store.Remove(key); err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("failed to remove stored key")
		}
	}
}
