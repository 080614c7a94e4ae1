package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("%w: bad title", ErrValidation), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("%w: missing stream url", ErrProviderConfig), http.StatusUnprocessableEntity, "provider_config_error"},
		{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("%w: not the instructor", ErrAuthorization), http.StatusForbidden, "authorization_error"},
		{fmt.Errorf("%w: session abc", ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: session ended", ErrInvalidState), http.StatusConflict, "invalid_state"},
		{ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
		require.Equal(t, tc.kind, Kind(tc.err), tc.err.Error())
	}
}

func TestHTTPStatus_Joined(t *testing.T) {
	err := errors.Join(fmt.Errorf("%w: title required", ErrValidation), fmt.Errorf("%w: bad duration", ErrValidation))
	require.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	require.True(t, IsDomain(err))
	require.False(t, IsDomain(errors.New("boom")))
}
