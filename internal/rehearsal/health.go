package rehearsal

import (
	"net/http"
)

type breakerReporter interface {
	GetCircuitBreakerStats() map[string]any
}

// healthHandler reports the interviewer and its circuit breakers
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "healthy",
		"service":  "talentloop-rehearsal",
		"version":  s.Version,
		"sessions": s.Sessions.Len(),
	}
	if s.Interviewer != nil {
		response["interviewer"] = s.Interviewer.Name()
	}
	if s.KeyWatcher != nil {
		response["vault_key_watcher"] = s.KeyWatcher.Status()
	}

	status := http.StatusOK
	if reporter, ok := s.Interviewer.(breakerReporter); ok {
		stats := reporter.GetCircuitBreakerStats()
		response["circuit_breakers"] = stats
		if healthy, ok := stats["overall_healthy"].(bool); ok && !healthy {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "talentloop-rehearsal",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_questions":          s.MaxQuestions,
			"active_sessions":        s.Sessions.Len(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.Stats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
		}
	}

	writeJSON(w, http.StatusOK, response)
}
