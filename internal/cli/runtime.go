package cli

import (
	"context"
	"fmt"
	"time"

	"talentloop/internal/common"
	"talentloop/internal/config"
	"talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/observability"
	"talentloop/internal/results"
	"talentloop/internal/transport"

	"github.com/spf13/cobra"
)

// env bundles the collaborators most commands need
type env struct {
	cfg    *config.Config
	logger *errors.Logger
	om     *observability.ObservabilityManager
	store  handoff.Store
	client *transport.Client
}

// newRuntime wires observability, the handoff store and the API client. The
// bearer token falls back to the one saved by the last login.
func newRuntime(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	obsConfig.Command = cmd.CommandPath()
	om, err := observability.NewObservabilityManager(obsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	store, err := handoff.Open(ctx, cfg.Handoff, logger)
	if err != nil {
		shutdownObservability(om, logger)
		return nil, err
	}

	client := transport.NewFromConfig(cfg.API, logger, om)
	if client.Token() == "" {
		if h, err := store.Load(ctx); err == nil && h.AuthToken != "" {
			client.SetToken(h.AuthToken)
		}
	}

	return &env{cfg: cfg, logger: logger, om: om, store: store, client: client}, nil
}

// Close releases the handoff store and flushes telemetry
func (rt *env) Close() {
	rt.logger.Debug("Platform client circuit breaker", "stats", rt.client.BreakerStats())
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("Failed to close handoff store", "error", err)
	}
	shutdownObservability(rt.om, rt.logger)
}

func shutdownObservability(om *observability.ObservabilityManager, logger *errors.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shutdown observability")
	}
}

// outputFlags registers --format and --output on cmd
func outputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, markdown or yaml")
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.SupportedFormats(cfg.App.SupportedFormats, results.NewRegistry()), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default format and validates the result
func resolveFormat(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats, results.NewRegistry())
}

// runAPICommand prints the result of op through the shared formatter registry
func runAPICommand[Output any](cmd *cobra.Command, rt *env, cc common.CommandConfig, operation string, op common.APIOperationFunc[Output]) error {
	return common.RunAPICommand(cmd.Context(), rt.logger, cc, results.NewRegistry(), cmd.OutOrStdout(), operation, op)
}
