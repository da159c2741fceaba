package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"
)

// OllamaProvider implements AIProvider against a local Ollama server
type OllamaProvider struct {
	httpClient   *http.Client
	baseURL      string
	config       *config.OperationAIConfig
	retry        retrier
	modelBreaker *ModelCircuitBreaker
	logger       *errors.Logger
}

var _ AIProvider = (*OllamaProvider)(nil)

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

type ollamaShowResponse struct {
	Details struct {
		Family            string `json:"family"`
		ParameterSize     string `json:"parameter_size"`
		QuantizationLevel string `json:"quantization_level"`
	} `json:"details"`
}

// NewOllamaProvider creates an Ollama provider for a specific operation
func NewOllamaProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*OllamaProvider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Ollama base URL is required", nil)
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	return &OllamaProvider{
		httpClient:   &http.Client{Timeout: *cfg.Timeout},
		baseURL:      baseURL,
		config:       cfg,
		retry:        newRetrier(*cfg.MaxRetries, logger),
		modelBreaker: NewModelCircuitBreaker(operationType, cfg, logger),
		logger:       logger,
	}, nil
}

// Name implements AIProvider
func (p *OllamaProvider) Name() string {
	return config.ProviderOllama
}

// Generate implements AIProvider. Ollama answers with bare text.
func (p *OllamaProvider) Generate(ctx context.Context, req Request) (Response, *TokenUsage, error) {
	body := ollamaGenerateRequest{
		Model:   p.config.Model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: map[string]any{"temperature": *p.config.Temperature},
	}
	if *p.config.UseSystemPrompts {
		body.System = req.System
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	var usage *TokenUsage
	resp, err := executeWithRetry(ctx, p.retry, "ollama.generate", func() (Response, error) {
		raw, err := p.post(ctx, "/api/generate", payload)
		if err != nil {
			return nil, err
		}
		var parsed ollamaGenerateResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("ollama response parse: %w", err)
		}
		if parsed.Error != "" {
			return nil, fmt.Errorf("ollama error: %s", parsed.Error)
		}
		usage = &TokenUsage{
			InputTokens:  parsed.PromptEvalCount,
			OutputTokens: parsed.EvalCount,
			TotalTokens:  parsed.PromptEvalCount + parsed.EvalCount,
		}
		return PlainText(parsed.Response), nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, usage, nil
}

func (p *OllamaProvider) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	return raw, nil
}

// GetModelInfo asks the server whether the model is pulled
func (p *OllamaProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := p.modelBreaker.ExecuteModel(func() (*ModelInfo, error) {
		payload, _ := json.Marshal(map[string]string{"model": p.config.Model})
		raw, err := p.post(checkCtx, "/api/show", payload)
		if err != nil {
			return nil, err
		}
		var show ollamaShowResponse
		if err := json.Unmarshal(raw, &show); err != nil {
			return nil, fmt.Errorf("ollama show parse: %w", err)
		}
		return &ModelInfo{
			Name:        p.config.Model,
			Provider:    config.ProviderOllama,
			DisplayName: show.Details.Family,
			Version:     show.Details.ParameterSize,
			Available:   true,
		}, nil
	})
	if err != nil {
		p.logger.Warn("Model availability check failed",
			"model", p.config.Model,
			"provider", config.ProviderOllama,
			"error", err.Error())
		return &ModelInfo{
			Name:     p.config.Model,
			Provider: config.ProviderOllama,
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}
	return info
}

// Close implements AIProvider
func (p *OllamaProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
