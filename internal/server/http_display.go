package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health              - Health check")
	fmt.Println("  GET    /stats               - Server statistics")
	fmt.Println("  GET    /roles               - Role presets")
	fmt.Println("  POST   /analyze             - Rate a resume against skills (requires API key)")
	fmt.Println("  POST   /analyze/batch       - Rate several resumes (requires API key)")
	fmt.Println("  POST   /compare             - Compare two resumes (requires API key)")
	fmt.Println("  POST   /skills/extract      - Extract skills from a job description (requires API key)")
	fmt.Println("  POST   /ats                 - ATS compatibility report (requires API key)")
	fmt.Println("  POST   /rewrite             - Rewrite a resume for a role (requires API key)")
	fmt.Println("  POST   /sessions            - Analyze a resume and open a Q&A session (requires API key)")
	fmt.Println("  GET    /sessions/{id}       - Show the session analysis (requires API key)")
	fmt.Println("  POST   /sessions/{id}/ask   - Ask about the session resume (requires API key)")
	fmt.Println("  POST   /sessions/{id}/rewrite - Rewrite the session resume for a role (requires API key)")
	fmt.Println("  DELETE /sessions/{id}       - Close a session (requires API key)")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to protected endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
