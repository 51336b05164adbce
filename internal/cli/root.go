package cli

import (
	"context"

	"talentloop/internal/config"
	"talentloop/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "talentloop",
	Short: "Candidate client for the talentloop hiring platform",
	Long: `talentloop is a command-line client for the hiring platform. It runs the
voice interview session, the pre-interview system check and the job
application flow, shows interview results, and can serve a local rehearsal
interviewer so the whole flow works without the hosted backend.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(systemCheckCmd)
	rootCmd.AddCommand(resultCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(applicationsCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(rehearseCmd)
	rootCmd.AddCommand(versionCmd)
}
