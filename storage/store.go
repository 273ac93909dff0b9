// Package storage defines the persisted key-value contract used by the
// session manager and the language selector, plus a file-backed
// implementation suitable for local on-device style persistence.
package storage

// Keys owned by the session manager. The language selector owns
// KeyAppLanguage; the namespaces are disjoint so no write conflicts exist.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyAppLanguage  = "app_language"
)

// Store is the persisted key-value contract. Values may be primitives or
// structured objects; implementations serialize them transparently.
// Operations are synchronous and expected to be non-blocking.
type Store interface {
	// Set stores a value under key, replacing any previous value.
	Set(key string, value any) error
	// Get decodes the value stored under key into out. It returns false
	// when the key is absent, leaving out untouched.
	Get(key string, out any) (bool, error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Contains reports whether key is present.
	Contains(key string) bool
}
