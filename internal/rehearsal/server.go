// Package rehearsal serves the interview endpoints locally so candidates can
// practise against a scripted or model-driven interviewer.
package rehearsal

import (
	"sync"
	"time"

	"talentloop/internal/ai"
	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Server holds the rehearsal server state
type Server struct {
	Host    string
	Port    string
	Version string

	// API Authentication
	keysMu         sync.RWMutex
	APIKeys        map[string]bool
	AllowedOrigins []string
	KeyWatcher     *KeyWatcher

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64
	MaxQuestions   int

	RateLimit   *config.RateLimitConfig
	RateLimiter *ClientLimiter

	Interviewer ai.Interviewer
	Sessions    *SessionStore
	Resumes     *ResumeRegistry

	Logger  *appErrors.Logger
	Metrics *observability.Metrics
	tracer  trace.Tracer
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	MaxQuestions   int
	RateLimit      *config.RateLimitConfig
}

// ConfigFrom maps the rehearsal section of the application config
func ConfigFrom(cfg config.RehearsalConfig, version string) ServerConfig {
	rl := cfg.RateLimit
	return ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		APIKeys:        cfg.APIKeys,
		AllowedOrigins: cfg.AllowedOrigins,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		MaxQuestions:   cfg.MaxQuestions,
		RateLimit:      &rl,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(cfg ServerConfig, interviewer ai.Interviewer, logger *appErrors.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}

	var rateLimiter *ClientLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewClientLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	maxQuestions := cfg.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		APIKeys:        apiKeySet(cfg.APIKeys),
		AllowedOrigins: origins,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		MaxQuestions:   maxQuestions,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Interviewer:    interviewer,
		Sessions:       NewSessionStore(),
		Resumes:        NewResumeRegistry(),
		Logger:         logger,
		Metrics:        metrics,
		tracer:         otel.Tracer("talentloop.rehearsal"),
	}
}

// DefaultMaxQuestions is used when no question limit is configured
const DefaultMaxQuestions = 5

// SetAPIKeys replaces the accepted API keys. Empty entries are ignored.
func (s *Server) SetAPIKeys(keys []string) {
	set := apiKeySet(keys)
	s.keysMu.Lock()
	s.APIKeys = set
	s.keysMu.Unlock()
}

// checkAPIKey reports whether authentication is on and whether key is accepted
func (s *Server) checkAPIKey(key string) (required, ok bool) {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys) > 0, s.APIKeys[key]
}

func (s *Server) apiKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys)
}

func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			set[key] = true
		}
	}
	return set
}
