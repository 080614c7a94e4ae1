// Package errs holds the live-class error taxonomy. Callers wrap a sentinel with
// fmt.Errorf("%w: ...") and handlers map it to an HTTP status with HTTPStatus.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrAuthorization    = errors.New("authorization error")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrProviderConfig   = errors.New("provider config error")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

var kinds = []struct {
	err    error
	kind   string
	status int
}{
	{ErrValidation, "validation_error", http.StatusBadRequest},
	{ErrProviderConfig, "provider_config_error", http.StatusUnprocessableEntity},
	{ErrUnauthenticated, "unauthenticated", http.StatusUnauthorized},
	{ErrAuthorization, "authorization_error", http.StatusForbidden},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrInvalidState, "invalid_state", http.StatusConflict},
	{ErrCapacityExceeded, "capacity_exceeded", http.StatusConflict},
}

// HTTPStatus maps err to the status code reported to the caller.
// Anything outside the taxonomy is an internal error.
func HTTPStatus(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// Kind returns the machine-readable error kind for err.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal_error"
}

// IsDomain reports whether err belongs to the taxonomy.
func IsDomain(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}
