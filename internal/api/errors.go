package api

import "errors"

// Kind classifies request failures so callers can branch on them without
// string matching.
type Kind string

const (
	// KindAuth: missing token or HTTP 401. Fatal, never retried; the
	// session has been cleared and the user must log in again.
	KindAuth Kind = "auth"
	// KindRateLimit: HTTP 429 after the retry budget was exhausted.
	KindRateLimit Kind = "rate_limit"
	// KindValidation: any other non-2xx that carried a JSON error message.
	KindValidation Kind = "validation"
	// KindTransport: network failure, malformed body, or a non-2xx with no
	// usable error message.
	KindTransport Kind = "transport"
)

type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsAuthError reports whether err is an authentication failure that should
// surface a re-login prompt.
func IsAuthError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

func IsRateLimitError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindRateLimit
}

func authError(message string) *Error {
	return &Error{Kind: KindAuth, Status: 401, Message: message}
}
