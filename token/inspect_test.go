package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	kiterrors "github.com/storefrontapp/authkit/internal/errors"
	"github.com/storefrontapp/authkit/token"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestExpiryOf(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := mintToken(t, exp)

	got, err := token.ExpiryOf(raw)
	require.NoError(t, err)
	require.True(t, got.Equal(exp))
}

func TestExpiryOf_NotAJWT(t *testing.T) {
	_, err := token.ExpiryOf("opaque-token-value")
	require.True(t, kiterrors.Is(err, kiterrors.ErrInvalidToken))
}

func TestExpiryOf_NoExpClaim(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).
		SignedString([]byte("test-key"))
	require.NoError(t, err)

	_, err = token.ExpiryOf(raw)
	require.Error(t, err)
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })

	fresh := mintToken(t, now.Add(time.Hour))
	require.False(t, token.IsExpired(fresh, token.DefaultLeeway))

	stale := mintToken(t, now.Add(-time.Minute))
	require.True(t, token.IsExpired(stale, token.DefaultLeeway))

	// Inside the leeway window the token already counts as expired.
	almost := mintToken(t, now.Add(10*time.Second))
	require.True(t, token.IsExpired(almost, token.DefaultLeeway))
}

func TestIsExpired_NonJWTNeverExpires(t *testing.T) {
	require.False(t, token.IsExpired("opaque-token-value", token.DefaultLeeway))
}
