package server

import (
	"context"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/analysis"
	"skillmatch/internal/config"
	skillmatchErrors "skillmatch/internal/errors"
	"skillmatch/internal/extract"
	"skillmatch/internal/observability"
	"skillmatch/internal/roles"
	"skillmatch/internal/types"
)

// DocumentPayload carries a resume either as plain text or as a base64
// encoded file whose format is taken from the extension of Name
type DocumentPayload struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// SkillSource selects the skills to rate. Skills win over Role, and Role
// wins over JobDescription.
type SkillSource struct {
	Skills         []string `json:"skills,omitempty"`
	Role           string   `json:"role,omitempty"`
	JobDescription string   `json:"jobDescription,omitempty"`
}

// AnalyzeRequest represents the request body for the analyze and sessions endpoints
type AnalyzeRequest struct {
	Resume DocumentPayload `json:"resume"`
	SkillSource
}

// BatchRequest represents the request body for the batch analysis endpoint
type BatchRequest struct {
	Resumes []DocumentPayload `json:"resumes"`
	SkillSource
}

// CompareRequest represents the request body for the compare endpoint
type CompareRequest struct {
	ResumeA DocumentPayload `json:"resumeA"`
	ResumeB DocumentPayload `json:"resumeB"`
	SkillSource
}

// ExtractSkillsRequest represents the request body for the skills endpoint
type ExtractSkillsRequest struct {
	JobDescription string `json:"jobDescription"`
}

// ATSRequest represents the request body for the ATS endpoint
type ATSRequest struct {
	Resume DocumentPayload `json:"resume"`
}

// RewriteRequest represents the request body for the rewrite endpoint
type RewriteRequest struct {
	Resume DocumentPayload `json:"resume"`
	Role   string          `json:"role"`
	Skills []string        `json:"skills,omitempty"`
}

// SessionRewriteRequest rewrites the resume held by a session. Without skills
// the skills rated by the session are used.
type SessionRewriteRequest struct {
	Role   string   `json:"role"`
	Skills []string `json:"skills,omitempty"`
}

// AskRequest represents the request body for a session question
type AskRequest struct {
	Question string `json:"question"`
}

// SessionResponse is returned when a session is created or looked up
type SessionResponse struct {
	SessionID    string                 `json:"sessionId"`
	Result       *types.AnalysisResult  `json:"result"`
	Improvements *types.ImprovementPlan `json:"improvements,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ModelProbe reports the state of one generation client
type ModelProbe interface {
	Operation() string
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// CacheProbe reports whether the response cache is reachable
type CacheProbe interface {
	Ping(ctx context.Context) error
}

// Dependencies are the components the handlers call
type Dependencies struct {
	Analyzer      *analysis.Analyzer
	Roles         *roles.Catalog
	Models        []ModelProbe
	Cache         CacheProbe
	Observability *observability.Manager
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Analyzer      *analysis.Analyzer
	Roles         *roles.Catalog
	Models        []ModelProbe
	Cache         CacheProbe
	Observability *observability.Manager
	Sessions      *SessionStore

	extractor *extract.Extractor

	// Logger
	Logger *skillmatchErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	SessionTTL     time.Duration
	MaxSessions    int
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *skillmatchErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	om := deps.Observability
	if om == nil {
		om, _ = observability.NewManager(config.ObservabilityConfig{}, cfg.Version, logger)
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	catalog := deps.Roles
	if catalog == nil {
		catalog, _ = roles.NewCatalog("", logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Analyzer:       deps.Analyzer,
		Roles:          catalog,
		Models:         deps.Models,
		Cache:          deps.Cache,
		Observability:  om,
		Sessions:       NewSessionStore(cfg.SessionTTL, cfg.MaxSessions, om.Metrics(), logger),
		extractor:      extract.New(logger, cfg.MaxRequestSize),
		Logger:         logger,
	}
}
