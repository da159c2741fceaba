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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements AIProvider over the OpenAI chat completions API.
// BaseURL may point at any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	httpClient   *http.Client
	baseURL      string
	config       *config.OperationAIConfig
	retry        retrier
	modelBreaker *ModelCircuitBreaker
	logger       *errors.Logger
}

var _ AIProvider = (*OpenAIProvider)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type modelResponse struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// NewOpenAIProvider creates an OpenAI provider for a specific operation
func NewOpenAIProvider(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "OpenAI API key is required", nil)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIProvider{
		httpClient:   &http.Client{Timeout: *cfg.Timeout},
		baseURL:      baseURL,
		config:       cfg,
		retry:        newRetrier(*cfg.MaxRetries, logger),
		modelBreaker: NewModelCircuitBreaker(operationType, cfg, logger),
		logger:       logger,
	}, nil
}

// Name implements AIProvider
func (o *OpenAIProvider) Name() string {
	return config.ProviderOpenAI
}

// Generate implements AIProvider
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, *TokenUsage, error) {
	messages := make([]chatMessage, 0, 2)
	if *o.config.UseSystemPrompts && req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       o.config.Model,
		Messages:    messages,
		Temperature: o.config.Temperature,
	})
	if err != nil {
		return nil, nil, err
	}

	var usage *TokenUsage
	resp, err := executeWithRetry(ctx, o.retry, "openai.chat", func() (Response, error) {
		parsed, err := o.chat(ctx, payload)
		if err != nil {
			return nil, err
		}
		if parsed.Usage != nil {
			usage = &TokenUsage{
				InputTokens:  parsed.Usage.PromptTokens,
				OutputTokens: parsed.Usage.CompletionTokens,
				TotalTokens:  parsed.Usage.TotalTokens,
			}
		}
		choice := parsed.Choices[0]
		return Structured{
			Content:      choice.Message.Content,
			Role:         choice.Message.Role,
			FinishReason: choice.FinishReason,
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, usage, nil
}

func (o *OpenAIProvider) chat(ctx context.Context, payload []byte) (*chatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := o.do(req)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai response missing choices")
	}
	return &parsed, nil
}

// do sends req and returns the body of a 2xx response
func (o *OpenAIProvider) do(req *http.Request) ([]byte, error) {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Provider: "openai", StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

// GetModelInfo checks that the configured model is served by the endpoint
func (o *OpenAIProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := o.modelBreaker.ExecuteModel(func() (*ModelInfo, error) {
		req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, o.baseURL+"/models/"+o.config.Model, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

		body, err := o.do(req)
		if err != nil {
			return nil, err
		}
		var model modelResponse
		if err := json.Unmarshal(body, &model); err != nil {
			return nil, fmt.Errorf("openai model parse: %w", err)
		}
		return &ModelInfo{
			Name:        o.config.Model,
			Provider:    config.ProviderOpenAI,
			DisplayName: model.ID,
			Version:     model.OwnedBy,
			Available:   true,
		}, nil
	})
	if err != nil {
		o.logger.Warn("Model availability check failed",
			"model", o.config.Model,
			"provider", config.ProviderOpenAI,
			"error", err.Error())
		return &ModelInfo{
			Name:     o.config.Model,
			Provider: config.ProviderOpenAI,
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}
	return info
}

// Close implements AIProvider
func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
