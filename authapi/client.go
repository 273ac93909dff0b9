// Package authapi is the typed client for the auth backend. Every operation
// returns a uniform Result envelope; no typed error crosses this boundary.
package authapi

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/storefrontapp/authkit/httpclient"
)

// Backend endpoints.
const (
	endpointLogin        = "/auth/login"
	endpointSignup       = "/users/"
	endpointProfile      = "/auth/profile"
	endpointRefreshToken = "/auth/refresh-token"
)

// DefaultAvatarURL is the placeholder avatar sent with every signup.
const DefaultAvatarURL = "https://api.lorem.space/image/face?w=640&h=480"

// Fixed fallback messages for failures the server offers no message for.
const (
	msgInvalidResponse = "Invalid response from server"
	msgLoginFailed     = "Login failed. Please check your credentials."
	msgSignupFailed    = "Signup failed. Please try again."
	msgInvalidUserData = "Invalid user data. Please check your information."
	msgAuthFailed      = "Authentication failed. Please log in again."
	msgProfileFailed   = "Failed to fetch profile. Please try again."
	msgRefreshAuth     = "Token refresh failed. Please log in again."
	msgRefreshFailed   = "Token refresh failed. Please try again."
)

// Result is the uniform envelope returned by every operation. Failure paths
// always resolve into this shape instead of an error value.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
}

func success[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func failure[T any](message string) Result[T] {
	return Result[T]{Error: message}
}

// TokenResponse is the credential pair issued by login and refresh. Servers
// may omit the refresh token.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
}

// Profile is the user payload returned by signup and the profile endpoint.
type Profile struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Client executes the four auth operations over the HTTP client.
type Client struct {
	http      *httpclient.Client
	logger    zerolog.Logger
	avatarURL string
}

// Option configures a Client.
type Option func(*Client)

// WithAvatarURL overrides the placeholder avatar sent on signup.
func WithAvatarURL(url string) Option {
	return func(c *Client) {
		c.avatarURL = url
	}
}

// New creates a Client on top of the given HTTP client.
func New(http *httpclient.Client, logger zerolog.Logger, options ...Option) *Client {
	c := &Client{
		http:      http,
		logger:    logger,
		avatarURL: DefaultAvatarURL,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a token pair. A 2xx response without an
// access token is a protocol-contract violation and is reported as a failure.
func (c *Client) Login(ctx context.Context, email, password string) Result[TokenResponse] {
	c.logger.Info().Str("email", email).Msg("attempting login")

	resp, err := c.http.Post(ctx, endpointLogin, map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("email", email).Msg("login failed")
		return failure[TokenResponse](messageOrFallback(err, msgLoginFailed))
	}

	var tokens TokenResponse
	if decodeErr := resp.Decode(&tokens); decodeErr != nil || tokens.AccessToken == "" {
		c.logger.Warn().Msg("login succeeded but no access token received")
		return failure[TokenResponse](msgInvalidResponse)
	}

	c.logger.Info().
		Str("email", email).
		Bool("has_refresh_token", tokens.RefreshToken != nil).
		Msg("login successful")
	return success(tokens)
}

// Signup creates a new account with the fixed placeholder avatar and returns
// the created-user payload verbatim.
func (c *Client) Signup(ctx context.Context, name, email, password string) Result[Profile] {
	c.logger.Info().Str("email", email).Str("name", name).Msg("attempting signup")

	resp, err := c.http.Post(ctx, endpointSignup, map[string]string{
		"name":     strings.TrimSpace(name),
		"email":    strings.TrimSpace(email),
		"password": password,
		"avatar":   c.avatarURL,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("email", email).Msg("signup failed")
		if httpclient.IsKind(err, httpclient.KindValidation) {
			// Covers "user already exists" style messages from the server.
			return failure[Profile](messageOrFallback(err, msgInvalidUserData))
		}
		return failure[Profile](messageOrFallback(err, msgSignupFailed))
	}

	var created Profile
	if decodeErr := resp.Decode(&created); decodeErr != nil {
		c.logger.Warn().Err(decodeErr).Msg("signup response did not decode")
	}

	c.logger.Info().Str("email", email).Int("user_id", created.ID).Msg("signup successful")
	return success(created)
}

// GetUserProfile fetches the profile behind the access token.
func (c *Client) GetUserProfile(ctx context.Context, accessToken string) Result[Profile] {
	c.logger.Debug().Msg("fetching user profile")

	resp, err := c.http.Get(ctx, endpointProfile, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to fetch profile")
		if httpclient.IsKind(err, httpclient.KindAuthentication) {
			return failure[Profile](msgAuthFailed)
		}
		return failure[Profile](messageOrFallback(err, msgProfileFailed))
	}

	var profile Profile
	if decodeErr := resp.Decode(&profile); decodeErr != nil {
		c.logger.Warn().Err(decodeErr).Msg("profile response did not decode")
	}

	c.logger.Info().Int("user_id", profile.ID).Str("email", profile.Email).Msg("profile fetched")
	return success(profile)
}

// RefreshToken exchanges a refresh token for a new credential pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) Result[TokenResponse] {
	c.logger.Debug().Msg("refreshing access token")

	resp, err := c.http.Post(ctx, endpointRefreshToken, map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("token refresh failed")
		if httpclient.IsKind(err, httpclient.KindAuthentication) {
			return failure[TokenResponse](msgRefreshAuth)
		}
		return failure[TokenResponse](messageOrFallback(err, msgRefreshFailed))
	}

	var tokens TokenResponse
	if decodeErr := resp.Decode(&tokens); decodeErr != nil || tokens.AccessToken == "" {
		c.logger.Warn().Msg("token refresh succeeded but no access token received")
		return failure[TokenResponse](msgInvalidResponse)
	}

	c.logger.Info().Bool("has_refresh_token", tokens.RefreshToken != nil).Msg("token refreshed")
	return success(tokens)
}

// messageOrFallback surfaces the typed error's message, or fallback when the
// failure carries none.
func messageOrFallback(err error, fallback string) string {
	var apiErr *httpclient.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
