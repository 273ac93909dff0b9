// Package token inspects access tokens for lifecycle decisions. Tokens are
// parsed without signature verification; only the server can truly accept or
// reject them, this package just decides when a refresh is worth attempting.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	kiterrors "github.com/storefrontapp/authkit/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// DefaultLeeway is subtracted from the expiry so a token is treated as
// expired slightly before the server would reject it.
const DefaultLeeway = 30 * time.Second

// ExpiryOf returns the exp claim of a JWT access token. Tokens that do not
// parse as JWTs, or carry no exp claim, return ErrInvalidToken.
func ExpiryOf(raw string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, kiterrors.Wrapf(kiterrors.ErrInvalidToken, "parse %v", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, kiterrors.ErrInvalidToken
	}
	return exp.Time, nil
}

// IsExpired reports whether a JWT access token has expired (within leeway).
// Tokens that cannot be inspected are treated as non-expiring and left to the
// server to reject.
func IsExpired(raw string, leeway time.Duration) bool {
	exp, err := ExpiryOf(raw)
	if err != nil {
		return false
	}
	return NowTimeFunc().After(exp.Add(-leeway))
}
