package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"live-class/errs"
)

func TestJWTResolver_RoundTrip(t *testing.T) {
	r := NewJWTResolver("secret", "identity")

	token, err := r.Sign(Identity{UserID: "u-1", Role: "student"}, time.Hour)
	require.NoError(t, err)

	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "u-1", id.UserID)
	require.Equal(t, "student", id.Role)
	require.True(t, id.Authenticated())
}

func TestJWTResolver_Rejects(t *testing.T) {
	r := NewJWTResolver("secret", "identity")
	other := NewJWTResolver("other-secret", "identity")
	wrongIssuer := NewJWTResolver("secret", "someone-else")

	forged, err := other.Sign(Identity{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	expired, err := r.Sign(Identity{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Sign(Identity{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := r.Sign(Identity{}, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"forged":     forged,
		"expired":    expired,
		"issuer":     foreign,
		"no subject": noSubject,
	} {
		_, err := r.Resolve(context.Background(), token)
		require.True(t, errors.Is(err, errs.ErrUnauthenticated), name)
	}
}

func TestIdentity_Anonymous(t *testing.T) {
	require.False(t, Identity{}.Authenticated())
}
