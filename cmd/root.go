package cmd

import (
	"github.com/spf13/cobra"
	"live-class/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "live-class",
		Short: "live class session service",
	}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(migrate(config))
	rootCmd.AddCommand(token(config))
	return rootCmd
}
