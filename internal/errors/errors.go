package errors

import "fmt"

// ErrorCode classifies a filmdex error.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"       // 401
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrNoCachedData      ErrorCode = "NO_CACHED_DATA"     // 404, legitimate empty state, not a failure
	ErrRateLimited       ErrorCode = "RATE_LIMITED"       // 429
	ErrRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE" // 502
	ErrNoConnection      ErrorCode = "NO_CONNECTION"      // 503
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// Error is a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for rejected catalog credentials.
// Never masked by cache fallback: it indicates a configuration problem.
func NewUnauthorized() *Error {
	return &Error{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: "catalog rejected the API credentials",
	}
}

// NewNotFound creates a 404 error for an id or query the remote catalog
// reports as absent and that has no cached entry.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNoCachedData creates an error for the offline empty state: nothing
// in the cache for the key and no network to fetch it. Distinct from
// NewNoConnection so callers can show an informational empty state
// instead of an error dialog.
func NewNoCachedData(key string) *Error {
	return &Error{
		Code:    ErrNoCachedData,
		Status:  404,
		Message: fmt.Sprintf("no cached data for %q", key),
		Details: map[string]any{"key": key},
	}
}

// NewRateLimited creates a 429 error. Never masked by cache fallback.
func NewRateLimited() *Error {
	return &Error{
		Code:    ErrRateLimited,
		Status:  429,
		Message: "catalog rate limit exceeded",
	}
}

// NewRemoteUnavailable creates a 502 error for a reachable network with a
// failed request: timeout, 5xx, or a malformed response.
func NewRemoteUnavailable(err error) *Error {
	msg := "remote catalog unavailable"
	if err != nil {
		msg = fmt.Sprintf("remote catalog unavailable: %v", err)
	}
	return &Error{
		Code:    ErrRemoteUnavailable,
		Status:  502,
		Message: msg,
	}
}

// NewNoConnection creates a 503 error for no network and no usable cache.
func NewNoConnection() *Error {
	return &Error{
		Code:    ErrNoConnection,
		Status:  503,
		Message: "no network connection",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	if fErr, ok := err.(*Error); ok {
		return fErr.Code == code
	}
	return false
}

// Recoverable reports whether a fetch failure may be satisfied from the
// cache instead. Only connection loss and remote unavailability have a
// fallback path; auth and quota problems must surface immediately.
func Recoverable(err error) bool {
	return Is(err, ErrNoConnection) || Is(err, ErrRemoteUnavailable)
}
