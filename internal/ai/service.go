package ai

import (
	"context"
	"fmt"

	"talentloop/internal/config"
	"talentloop/internal/errors"
	"talentloop/internal/observability"
)

// NewInterviewer selects the interviewer named by cfg.Provider. A Gemini
// provider without an API key falls back to the scripted interviewer.
func NewInterviewer(ctx context.Context, cfg config.AIConfig, logger *errors.Logger, metrics *observability.Metrics) (Interviewer, error) {
	logger.Debug("Initializing rehearsal interviewer",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	switch cfg.Provider {
	case "gemini":
		if cfg.APIKey == "" {
			logger.Warn("No Gemini API key configured, using the scripted interviewer")
			return NewScriptedInterviewer(metrics), nil
		}
		interviewer, err := NewGeminiInterviewer(ctx, cfg, logger, metrics)
		if err != nil {
			return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
				"Failed to create AI provider", err)
		}
		return interviewer, nil
	case "scripted", "":
		return NewScriptedInterviewer(metrics), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}
