package cli

import (
	"context"
	"fmt"
	"strings"

	"talentloop/internal/ai"
	"talentloop/internal/common"
	"talentloop/internal/config"
	"talentloop/internal/rehearsal"

	"github.com/spf13/cobra"
)

var rehearseCmd = &cobra.Command{
	Use:   "rehearse",
	Short: "Serve a local interviewer for practice runs",
	Long: `Start a local server that implements the interview endpoints, so the
interview can be practised without the hosted backend. Point api.baseURL at
it and run "talentloop interview" in another terminal.

The interviewer is Gemini when rehearsal.ai.provider is "gemini" and an API
key is set, and a scripted question bank otherwise.

Available endpoints:
- POST /api/v1/interview/start
- POST /api/v1/interview/answer
- POST /api/v1/interview/stop
- GET /api/v1/resumes/{id}
- GET /health
- GET /stats`,
	RunE: runRehearse,
}

var rehearseResumes []string

func init() {
	rehearseCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	rehearseCmd.Flags().String("host", "", "Host to bind to (default from config)")
	rehearseCmd.Flags().String("provider", "", "Interviewer: gemini or scripted (overrides config)")
	rehearseCmd.Flags().Int("max-questions", 0, "Questions per session (overrides config)")
	rehearseCmd.Flags().StringArrayVar(&rehearseResumes, "resume", nil, "Register a plain-text resume as id=path (repeatable)")
}

func runRehearse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	applyRehearseFlags(cmd)

	resumes, err := parseResumeFlags(rehearseResumes)
	if err != nil {
		return err
	}

	return withRuntime(cmd, func(rt *env) error {
		interviewer, err := ai.NewInterviewer(ctx, cfg.Rehearsal.AI, logger, rt.om.GetMetrics())
		if err != nil {
			return fmt.Errorf("failed to create interviewer: %w", err)
		}
		defer func() { _ = interviewer.Close() }()

		server := rehearsal.NewServer(rehearsal.ConfigFrom(cfg.Rehearsal, Version), interviewer, logger, rt.om.GetMetrics())

		for id, path := range resumes {
			if err := common.CheckResumeFile(path, logger); err != nil {
				return err
			}
			if err := server.Resumes.RegisterFile(id, path); err != nil {
				return err
			}
			logger.Info("Registered rehearsal resume", "id", id, "path", path)
		}

		watcher, err := startKeyWatcher(ctx, rt, server)
		if err != nil {
			return err
		}
		if watcher != nil {
			defer watcher.Stop()
		}

		return server.Start(ctx, rt.om)
	})
}

// startKeyWatcher polls Vault for rotated rehearsal API keys when polling is configured
func startKeyWatcher(ctx context.Context, rt *env, server *rehearsal.Server) (*rehearsal.KeyWatcher, error) {
	vc := rt.cfg.Vault
	if !vc.Enabled || vc.PollInterval <= 0 || vc.Secrets.RehearsalKeys == "" {
		return nil, nil
	}

	client, err := config.NewVaultClient(vc, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client for key rotation: %w", err)
	}

	watcher := rehearsal.NewKeyWatcher(client, vc.Secrets.RehearsalKeys, vc.PollInterval, server.SetAPIKeys, rt.logger)
	if err := watcher.Start(ctx); err != nil {
		return nil, err
	}
	server.KeyWatcher = watcher
	return watcher, nil
}

// applyRehearseFlags copies explicitly set flags over the loaded config
func applyRehearseFlags(cmd *cobra.Command) {
	cfg := getConfigFromContext(cmd.Context())
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Rehearsal.Port, _ = flags.GetString("port")
	}
	if flags.Changed("host") {
		cfg.Rehearsal.Host, _ = flags.GetString("host")
	}
	if flags.Changed("provider") {
		cfg.Rehearsal.AI.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("max-questions") {
		cfg.Rehearsal.MaxQuestions, _ = flags.GetInt("max-questions")
	}
}

// parseResumeFlags turns id=path pairs into a map
func parseResumeFlags(values []string) (map[string]string, error) {
	resumes := make(map[string]string, len(values))
	for _, v := range values {
		id, path, ok := strings.Cut(v, "=")
		id, path = strings.TrimSpace(id), strings.TrimSpace(path)
		if !ok || id == "" || path == "" {
			return nil, fmt.Errorf("invalid --resume %q, expected id=path", v)
		}
		if _, dup := resumes[id]; dup {
			return nil, fmt.Errorf("duplicate resume id %q", id)
		}
		resumes[id] = path
	}
	return resumes, nil
}
