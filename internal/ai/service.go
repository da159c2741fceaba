package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CallObserver receives the outcome of every generation call
type CallObserver interface {
	RecordGeneration(ctx context.Context, operation, provider string, duration time.Duration, usage *TokenUsage, cached bool, err error)
}

// Client invokes one generation operation: it owns the provider, the
// circuit breaker, the prompt templates and the optional response cache.
type Client struct {
	Provider       AIProvider // Exported for access from server package
	operation      string
	config         *config.OperationAIConfig
	circuitBreaker *AICircuitBreaker
	cache          ResponseCache
	observer       CallObserver
	logger         *errors.Logger
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithCache stores successful responses in cache
func WithCache(cache ResponseCache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithObserver reports every call to observer
func WithObserver(observer CallObserver) ClientOption {
	return func(c *Client) { c.observer = observer }
}

// WithProvider replaces the provider built from configuration
func WithProvider(provider AIProvider) ClientOption {
	return func(c *Client) { c.Provider = provider }
}

// NewClient creates a generation client with configuration for a specific operation.
// A hosted provider without a credential is rejected before any network call.
func NewClient(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger, opts ...ClientOption) (*Client, error) {
	logger.Debug("Initializing AI client",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	c := &Client{
		operation:      operationType,
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Provider != nil {
		return c, nil
	}

	if config.IsHostedProvider(cfg.Provider) && cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("API key required for hosted provider %s", cfg.Provider), nil).
			WithContext("operation", operationType)
	}

	var provider AIProvider
	var err error
	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	case config.ProviderOpenAI:
		provider, err = NewOpenAIProvider(cfg, operationType, logger)
	case config.ProviderOllama:
		provider, err = NewOllamaProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	c.Provider = provider
	return c, nil
}

// Operation returns the operation this client serves
func (c *Client) Operation() string {
	return c.operation
}

// Template returns the resolved user prompt template of the operation
func (c *Client) Template() string {
	return UserPromptFor(c.operation, c.config.Prompts)
}

// Invoke sends prompt to the provider and returns the normalized text
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("skillmatch.ai")
	ctx, span := tracer.Start(ctx, "ai."+c.operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", c.Provider.Name()),
		attribute.String("ai.model", c.config.Model),
		attribute.String("ai.operation", c.operation),
		attribute.Int("input.prompt_length", len(prompt)),
	)

	start := time.Now()
	key := c.cacheKey(prompt)
	if text, ok := c.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.observe(ctx, time.Since(start), nil, true, nil)
		return text, nil
	}

	system := SystemPromptFor(c.operation, c.config.Prompts)
	var usage *TokenUsage
	resp, err := c.circuitBreaker.Execute(func() (Response, error) {
		r, u, err := c.Provider.Generate(ctx, Request{Prompt: prompt, System: system})
		usage = u
		return r, err
	})

	var text string
	if err == nil {
		text, err = ResponseText(resp)
	}
	c.observe(ctx, time.Since(start), usage, false, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		code := errors.ErrCodeGenerationFailed
		if ctx.Err() == context.DeadlineExceeded {
			code = errors.ErrCodeGenerationTimeout
		}
		return "", errors.NewGenerationError(code, "Failed to generate content for "+c.operation, err).
			WithContext("provider", c.Provider.Name())
	}

	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	c.store(ctx, key, text)
	return text, nil
}

// cacheKey is sha256 over provider, model, system prompt and prompt
func (c *Client) cacheKey(prompt string) string {
	h := sha256.New()
	for _, part := range []string{c.Provider.Name(), c.config.Model, SystemPromptFor(c.operation, c.config.Prompts), prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) cached(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	text, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Response cache read failed", "operation", c.operation, "error", err.Error())
		return "", false
	}
	return text, ok
}

func (c *Client) store(ctx context.Context, key, text string) {
	if c.cache == nil || text == "" {
		return
	}
	if err := c.cache.Set(ctx, key, text); err != nil {
		c.logger.Warn("Response cache write failed", "operation", c.operation, "error", err.Error())
	}
}

func (c *Client) observe(ctx context.Context, d time.Duration, usage *TokenUsage, cached bool, err error) {
	if c.observer == nil {
		return
	}
	c.observer.RecordGeneration(ctx, c.operation, c.Provider.Name(), d, usage, cached, err)
}

// GetModelInfo returns information about the AI model for health checks
func (c *Client) GetModelInfo(ctx context.Context) *ModelInfo {
	return c.Provider.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (c *Client) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"operation":      c.operation,
		"provider":       c.Provider.Name(),
		"ai_operations":  c.circuitBreaker.GetStats(),
		"overallHealthy": c.circuitBreaker.IsHealthy(),
	}
}

// Close releases the provider
func (c *Client) Close() error {
	return c.Provider.Close()
}

// Service groups one client per generation operation
type Service struct {
	Rate    *Client
	Extract *Client
	Rewrite *Client
	Answer  *Client
}

// NewService builds a client for every operation of cfg
func NewService(cfg *config.Config, logger *errors.Logger, opts ...ClientOption) (*Service, error) {
	if err := cfg.ValidateGeneration(); err != nil {
		return nil, err
	}

	clients := make(map[string]*Client, len(config.Operations))
	for _, op := range config.Operations {
		opCfg := cfg.GetOperationConfig(op)
		client, err := NewClient(&opCfg, op, logger, opts...)
		if err != nil {
			return nil, err
		}
		clients[op] = client
	}

	return &Service{
		Rate:    clients[config.OperationRate],
		Extract: clients[config.OperationExtract],
		Rewrite: clients[config.OperationRewrite],
		Answer:  clients[config.OperationAnswer],
	}, nil
}

// Clients returns the clients in operation order
func (s *Service) Clients() []*Client {
	return []*Client{s.Rate, s.Extract, s.Rewrite, s.Answer}
}

// Close releases every provider
func (s *Service) Close() error {
	var firstErr error
	for _, c := range s.Clients() {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
