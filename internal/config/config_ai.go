package config

import (
	"fmt"
	"os"
	"strings"

	"skillmatch/internal/errors"
)

// Generation providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// DefaultModel returns the model used when none is configured for provider
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderOllama:
		return "llama3.2"
	default:
		return ""
	}
}

// IsHostedProvider reports whether provider needs credentials
func IsHostedProvider(provider string) bool {
	return provider == ProviderOpenAI || provider == ProviderGemini
}

// providerKeyEnv names the legacy environment variable holding a provider credential
func providerKeyEnv(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// ActiveProvider returns the provider selected by the hosted/local switch
func (c *Config) ActiveProvider() string {
	if c.AI.UseHosted {
		return c.AI.HostedProvider
	}
	return c.AI.LocalProvider
}

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.ActiveProvider()
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Model == "" {
		opCfg.Model = DefaultModel(opCfg.Provider)
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.BaseURL == "" && opCfg.Provider == ProviderOllama {
		opCfg.BaseURL = os.Getenv("OLLAMA_HOST")
		if opCfg.BaseURL == "" {
			opCfg.BaseURL = defaultOllamaURL
		}
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.APIKey == "" {
		if env := providerKeyEnv(opCfg.Provider); env != "" {
			opCfg.APIKey = os.Getenv(env)
		}
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// operationBlock returns a pointer to the stored configuration of op
func (c *Config) operationBlock(op string) (*OperationAIConfig, error) {
	switch op {
	case OperationRate:
		return &c.AI.Rate, nil
	case OperationExtract:
		return &c.AI.Extract, nil
	case OperationRewrite:
		return &c.AI.Rewrite, nil
	case OperationAnswer:
		return &c.AI.Answer, nil
	default:
		return nil, fmt.Errorf("unknown operation: %s", op)
	}
}

// GetOperationConfig returns the AI configuration for op with fallback to the
// global configuration. Unknown operations resolve to the global settings.
func (c *Config) GetOperationConfig(op string) OperationAIConfig {
	var cfg OperationAIConfig
	if block, err := c.operationBlock(op); err == nil {
		cfg = *block
	}
	c.applyOperationDefaults(&cfg)
	return cfg
}

// ValidateGeneration fails when a hosted provider is selected without a
// credential. Commands that call a model run it before doing any work.
func (c *Config) ValidateGeneration() error {
	var missing []string
	for _, op := range Operations {
		cfg := c.GetOperationConfig(op)
		switch cfg.Provider {
		case ProviderOpenAI, ProviderGemini, ProviderOllama:
		default:
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("unsupported provider %q for operation %s", cfg.Provider, op), nil)
		}
		if IsHostedProvider(cfg.Provider) && cfg.APIKey == "" {
			missing = append(missing, op)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	provider := c.GetOperationConfig(missing[0]).Provider
	return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
		fmt.Sprintf("no API key for hosted provider %s (operations: %s); set ai.apiKey, SKILLMATCH_AI_APIKEY or %s",
			provider, strings.Join(missing, ", "), providerKeyEnv(provider)), nil).
		WithContext("provider", provider)
}
