package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"live-class/auth"
	"live-class/config"
	"live-class/constant"
)

// token mints a bearer token signed with auth.jwt_secret for local testing.
func token(config *config.Config) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "issue a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.App.Environment == constant.EnvironmentProduction.String() {
				return errors.New("tokens are issued by the identity service in production")
			}
			resolver := auth.NewJWTResolver(config.Auth.JWTSecret, config.Auth.Issuer)
			signed, err := resolver.Sign(auth.Identity{UserID: args[0], Role: role}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}
	cmd.Flags().StringVar(&role, "role", "student", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
