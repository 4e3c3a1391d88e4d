// Package app provides the entry point for the gatekit command-line
// application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatekit/gatekit/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "gatekit",
	DisableAutoGenTag: true,
	Short:             "gatekit is an authentication gateway for OAuth2 bearer tokens",
	Long: `gatekit terminates authentication for HTTP services. It validates OAuth2
bearer tokens from Google and Facebook, either locally against cached signing
keys or remotely through the provider's introspection endpoints, and answers
each request with an allow or reject decision.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates the root command for the gatekit CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
