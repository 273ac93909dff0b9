package httpclient

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind classifies an API error. It is a tagged union over the failure classes
// the auth backend can produce, rather than a class hierarchy.
type Kind int

const (
	// KindGeneric covers non-2xx statuses with no more specific class.
	KindGeneric Kind = iota
	// KindNetwork means no response was obtained at all.
	KindNetwork
	// KindValidation maps from HTTP 400.
	KindValidation
	// KindAuthentication maps from HTTP 401.
	KindAuthentication
	// KindNotFound maps from HTTP 404.
	KindNotFound
	// KindServer maps from HTTP 500, 502 and 503.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "api"
	}
}

// Error is the typed failure raised by the HTTP client. It carries a
// human-readable message, the HTTP status (0 for network failures), the raw
// response payload for diagnostics, and the transport cause when one exists.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Payload    []byte
	cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// errorFromResponse builds the typed error for a non-2xx status. The message
// is taken from the body's "message" or "error" field when present.
func errorFromResponse(statusCode int, body []byte) *Error {
	message := "Request failed"
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			message = parsed.Message
		} else if parsed.Error != "" {
			message = parsed.Error
		}
	}

	kind := KindGeneric
	switch statusCode {
	case http.StatusBadRequest:
		kind = KindValidation
	case http.StatusUnauthorized:
		kind = KindAuthentication
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		kind = KindServer
	}

	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Payload:    body,
	}
}

// networkError wraps a transport-level failure, keeping the original error as
// context.
func networkError(cause error) *Error {
	message := "Network error. Please check your connection."
	if cause != nil && cause.Error() != "" {
		message = cause.Error()
	}
	return &Error{
		Kind:    KindNetwork,
		Message: message,
		cause:   cause,
	}
}
