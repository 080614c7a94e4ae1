package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"live-class/auth"
	"live-class/config"
)

func TestToken(t *testing.T) {
	cfg := &config.Config{
		App:  config.App{Environment: "develop"},
		Auth: config.Auth{JWTSecret: "dev-secret", Issuer: "auth-service"},
	}
	root := Root(cfg)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"token", "student-b", "--role", "student"})
	require.NoError(t, root.Execute())

	id, err := auth.NewJWTResolver("dev-secret", "auth-service").Resolve(context.Background(), strings.TrimSpace(out.String()))
	require.NoError(t, err)
	require.Equal(t, "student-b", id.UserID)
	require.Equal(t, "student", id.Role)
}

func TestToken_RefusedInProduction(t *testing.T) {
	cfg := &config.Config{App: config.App{Environment: "production"}}
	root := Root(cfg)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token", "student-b"})
	require.Error(t, root.Execute())
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	root := Root(&config.Config{})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate"})
	require.Error(t, root.Execute())
}
