package cmd

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"live-class/config"
	"live-class/repository"
	server2 "live-class/server"
)

func migrate(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.DB == nil {
				return errors.New("postgresql_host is not configured")
			}
			repo, err := repository.NewRepo(config.DB, server2.GormLogLevel(config))
			if err != nil {
				return err
			}
			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("schema migrated")
			return nil
		},
	}
}
