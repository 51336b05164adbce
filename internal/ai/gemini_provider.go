package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"talentloop/internal/breaker"
	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/observability"
	"talentloop/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiInterviewer implements Interviewer on Google Gemini
type GeminiInterviewer struct {
	client          *genai.Client
	config          config.AIConfig
	prompts         PromptConfig
	questionBreaker *breaker.Breaker[*genai.GenerateContentResponse]
	summaryBreaker  *breaker.Breaker[*genai.GenerateContentResponse]
	logger          *appErrors.Logger
	metrics         *observability.Metrics
	baseDelay       time.Duration
}

var _ Interviewer = (*GeminiInterviewer)(nil)

// NewGeminiInterviewer creates a Gemini-backed interviewer
func NewGeminiInterviewer(ctx context.Context, cfg config.AIConfig, logger *appErrors.Logger, metrics *observability.Metrics) (*GeminiInterviewer, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured", nil)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiInterviewer{
		client:          client,
		config:          cfg,
		prompts:         promptConfigFrom(cfg.Prompts),
		questionBreaker: newModelBreaker("NextQuestion", cfg.CircuitBreaker, logger),
		summaryBreaker:  newModelBreaker("Summarize", cfg.CircuitBreaker, logger),
		logger:          logger,
		metrics:         metrics,
		baseDelay:       time.Second,
	}, nil
}

// Name implements Interviewer
func (g *GeminiInterviewer) Name() string {
	return "gemini:" + g.config.Model
}

type questionOutput struct {
	Question string `json:"question"`
}

// NextQuestion implements Interviewer
func (g *GeminiInterviewer) NextQuestion(ctx context.Context, session SessionContext) (string, error) {
	out, err := executeAIOperation[questionOutput](
		g,
		ctx,
		g.questionBreaker,
		"next_question",
		g.prompts.BuildQuestionPrompt(session),
		resolvePrompt(g.prompts.SystemPrompts.NextQuestion, DefaultSystemPrompts.NextQuestion),
		g.buildQuestionSchema(),
		attribute.Int("session.question_number", session.QuestionNumber()),
		attribute.Int("input.resume_length", len(session.ResumeText)),
	)
	if err != nil {
		return "", err
	}

	question := strings.TrimSpace(out.Question)
	if question == "" {
		return "", appErrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Model returned an empty question", nil)
	}
	return question, nil
}

// Summarize implements Interviewer
func (g *GeminiInterviewer) Summarize(ctx context.Context, session SessionContext) (types.Summary, error) {
	return executeAIOperation[types.Summary](
		g,
		ctx,
		g.summaryBreaker,
		"summarize",
		g.prompts.BuildSummaryPrompt(session),
		resolvePrompt(g.prompts.SystemPrompts.Summarize, DefaultSystemPrompts.Summarize),
		g.buildSummarySchema(),
		attribute.Int("session.answers", len(session.Exchanges)),
	)
}

// newModelBreaker gives each interviewer operation its own breaker so a
// failing summary model cannot block question generation
func newModelBreaker(operation string, cfg config.CircuitBreakerConfig, logger *appErrors.Logger) *breaker.Breaker[*genai.GenerateContentResponse] {
	return breaker.New[*genai.GenerateContentResponse]("AI-"+operation, cfg, logger)
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiInterviewer) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"next_question":   g.questionBreaker.Stats(),
		"summarize":       g.summaryBreaker.Stats(),
		"overall_healthy": g.questionBreaker.Healthy() && g.summaryBreaker.Healthy(),
	}
}

// Close implements Interviewer
func (g *GeminiInterviewer) Close() error {
	return nil
}

// executeWithRetry executes a model call with retry logic and exponential backoff
func (g *GeminiInterviewer) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", g.config.MaxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff(g.baseDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", g.config.MaxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, g.config.MaxRetries, lastErr)
}

// backoff doubles base per attempt, adds up to 10% jitter and caps at 30s
func backoff(base time.Duration, attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * base
	jitter := time.Duration(0)
	if maxJitter := int64(float64(delay) * 0.1); maxJitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(maxJitter)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(delay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// executeAIOperation runs one model call with tracing, circuit breaker, retry and parsing
func executeAIOperation[Out any](
	g *GeminiInterviewer,
	ctx context.Context,
	cb *breaker.Breaker[*genai.GenerateContentResponse],
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, error) {
	var output Out
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}
	tracer := otel.Tracer("talentloop.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	start := time.Now()
	result, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		g.metrics.RecordAIOperation(ctx, operationName, time.Since(start), err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "Failed to generate content for "+operationName, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		g.metrics.RecordAIOperation(ctx, operationName, time.Since(start), err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, appErrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse AI response for "+operationName, err)
	}

	if usage := result.UsageMetadata; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", int64(usage.PromptTokenCount)),
			attribute.Int64("ai.tokens.output", int64(usage.CandidatesTokenCount)),
			attribute.Int64("ai.tokens.total", int64(usage.TotalTokenCount)),
		)
	}

	g.metrics.RecordAIOperation(ctx, operationName, time.Since(start), nil)
	span.SetAttributes(attribute.Bool("success", true))
	return output, nil
}

// buildQuestionSchema creates the schema for next-question requests
func (g *GeminiInterviewer) buildQuestionSchema() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question": {Type: genai.TypeString},
			},
			Required: []string{"question"},
		},
	}
	g.applyTemperature(cfg)
	return cfg
}

// buildSummarySchema creates the schema for evaluation requests
func (g *GeminiInterviewer) buildSummarySchema() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"overall_score": {Type: genai.TypeNumber},
				"skill_wise_scores": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"communication":           {Type: genai.TypeNumber},
						"role_specific_knowledge": {Type: genai.TypeNumber},
						"confidence":              {Type: genai.TypeNumber},
					},
					Required: []string{"communication", "role_specific_knowledge", "confidence"},
				},
				"strengths": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"improvement_areas": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"final_recommendation":   {Type: genai.TypeString},
				"expected_response_time": {Type: genai.TypeString},
			},
			Required: []string{"overall_score", "skill_wise_scores", "strengths", "improvement_areas"},
		},
	}
	g.applyTemperature(cfg)
	return cfg
}

func (g *GeminiInterviewer) applyTemperature(cfg *genai.GenerateContentConfig) {
	if g.config.Temperature > 0 {
		t := g.config.Temperature
		cfg.Temperature = &t
	}
}
