// Package demoserver is an in-memory auth backend implementing the wire
// contract the client kit speaks: password login, signup, bearer-token
// profile lookup and refresh-token exchange. It backs the CLI demo and the
// integration tests.
package demoserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	accessTokenExpiry  = time.Hour
	refreshTokenExpiry = 7 * 24 * time.Hour
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Server is the demo auth backend.
type Server struct {
	router        *mux.Router
	accounts      *accountRepo
	signingKey    []byte
	logger        zerolog.Logger
	refreshTokens map[string]int // refresh token -> account ID
	lock          sync.Mutex
}

// New creates a Server signing tokens with signingKey.
func New(signingKey []byte, logger zerolog.Logger) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		accounts:      newAccountRepo(),
		signingKey:    signingKey,
		logger:        logger,
		refreshTokens: make(map[string]int),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	s.router.HandleFunc("/users/", s.handleSignup).Methods(http.MethodPost)
	s.router.HandleFunc("/auth/profile", s.handleProfile).Methods(http.MethodGet)
	s.router.HandleFunc("/auth/refresh-token", s.handleRefreshToken).Methods(http.MethodPost)
}

// Seed registers an account directly, for demos and tests.
func (s *Server) Seed(name, email, password, avatar, role string) (*Account, error) {
	return s.accounts.Create(name, email, password, avatar, role)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, ok := s.accounts.GetByEmail(req.Email)
	if !ok || !CheckPasswordHash(req.Password, account.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accessToken, err := s.mintAccessToken(account)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to mint access token")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	refreshToken := s.issueRefreshToken(account.ID)

	writeJSON(w, http.StatusCreated, map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Avatar   string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	account, err := s.accounts.Create(req.Name, req.Email, req.Password, req.Avatar, "customer")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	accountID, err := s.verifyAccessToken(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	account, ok := s.accounts.GetByID(accountID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.lock.Lock()
	accountID, ok := s.refreshTokens[req.RefreshToken]
	if ok {
		delete(s.refreshTokens, req.RefreshToken)
	}
	s.lock.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	account, found := s.accounts.GetByID(accountID)
	if !found {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	accessToken, err := s.mintAccessToken(account)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to mint access token")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	refreshToken := s.issueRefreshToken(account.ID)

	writeJSON(w, http.StatusCreated, map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (s *Server) mintAccessToken(account *Account) (string, error) {
	now := NowTimeFunc()
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(accessTokenExpiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *Server) verifyAccessToken(raw string) (int, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return int(sub), nil
}

func (s *Server) issueRefreshToken(accountID int) string {
	refreshToken := uuid.New().String()
	s.lock.Lock()
	s.refreshTokens[refreshToken] = accountID
	s.lock.Unlock()
	return refreshToken
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"message":    message,
		"statusCode": status,
	})
}
