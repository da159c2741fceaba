package ai

import (
	"context"
	"fmt"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	"google.golang.org/genai"
)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client       *genai.Client
	config       *config.OperationAIConfig
	retry        retrier
	modelBreaker *ModelCircuitBreaker
	logger       *errors.Logger
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.NewGenerationError(errors.ErrCodeGenerationFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		retry:        newRetrier(*cfg.MaxRetries, logger),
		modelBreaker: NewModelCircuitBreaker(operationType, cfg, logger),
		logger:       logger,
	}, nil
}

// Name implements AIProvider
func (g *GeminiProvider) Name() string {
	return config.ProviderGemini
}

// Generate implements AIProvider for a single text prompt
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (Response, *TokenUsage, error) {
	genaiConfig := &genai.GenerateContentConfig{}
	// Apply temperature configuration if set
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}
	if *g.config.UseSystemPrompts && req.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	var usage *TokenUsage
	resp, err := executeWithRetry(ctx, g.retry, "gemini.generate", func() (Response, error) {
		result, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(req.Prompt), genaiConfig)
		if err != nil {
			return nil, err
		}
		usage = extractTokenUsage(result)
		return toStructured(result)
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, usage, nil
}

// toStructured converts the first candidate of a Gemini response
func toStructured(result *genai.GenerateContentResponse) (Response, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("gemini response has no candidates")
	}

	out := Structured{Content: result.Text(), Role: string(genai.RoleModel)}
	candidate := result.Candidates[0]
	if candidate != nil {
		out.FinishReason = string(candidate.FinishReason)
		if candidate.Content != nil && candidate.Content.Role != "" {
			out.Role = candidate.Content.Role
		}
	}
	return out, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := g.modelBreaker.ExecuteModel(func() (*ModelInfo, error) {
		model, err := g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
		if err != nil {
			return nil, err
		}
		return &ModelInfo{
			Name:        g.config.Model,
			Provider:    config.ProviderGemini,
			DisplayName: model.DisplayName,
			Version:     model.Version,
			Available:   true,
		}, nil
	})
	if err != nil {
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", config.ProviderGemini,
			"error", err.Error())
		return &ModelInfo{
			Name:     g.config.Model,
			Provider: config.ProviderGemini,
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", info.DisplayName,
		"version", info.Version)
	return info
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in single-shot usage
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
