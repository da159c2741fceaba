package ai

import (
	"context"
	"time"
)

// Request is a single prompt sent to a provider
type Request struct {
	Prompt string
	System string
}

// AIProvider interface for different generation backends
// Generate returns token usage when the backend reports it - callers can ignore it if not needed
type AIProvider interface {
	Generate(ctx context.Context, req Request) (Response, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Name() string
	Close() error
}

// ResponseCache stores generated text keyed by an opaque string
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// modelCheckTimeout bounds a model availability probe
const modelCheckTimeout = 10 * time.Second
