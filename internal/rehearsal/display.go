package rehearsal

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo(addr string) {
	fmt.Printf("Rehearsal server listening on http://%s (interviewer: %s, %d questions)\n",
		addr, s.Interviewer.Name(), s.MaxQuestions)
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                  - Health check")
	fmt.Println("  GET  /stats                   - Server statistics")
	fmt.Println("  POST /api/v1/interview/start  - Open a session and ask the first question")
	fmt.Println("  POST /api/v1/interview/answer - Submit an answer")
	fmt.Println("  POST /api/v1/interview/stop   - End a session and score it")
	fmt.Println("  GET  /api/v1/resumes/{id}     - Fetch a registered resume")
	if n := s.Resumes.Len(); n > 0 {
		fmt.Printf("Registered resumes: %d\n", n)
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if n := s.apiKeyCount(); n > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", n)
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
