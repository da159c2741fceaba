package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	// Note: generation key fallbacks are handled in GetOperationConfig to avoid duplication

	c.applyServerAPIKeyFallbacks()
	c.applyEmbeddingDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("SKILLMATCH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyEmbeddingDefaults fills in the model and endpoint of the embedding backend
func (c *Config) applyEmbeddingDefaults() {
	switch c.Embedding.Provider {
	case "ollama":
		if c.Embedding.Model == "" {
			c.Embedding.Model = "all-minilm"
		}
		if c.Embedding.BaseURL == "" {
			c.Embedding.BaseURL = os.Getenv("OLLAMA_HOST")
		}
		if c.Embedding.BaseURL == "" {
			c.Embedding.BaseURL = defaultOllamaURL
		}
	case "gemini":
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-004"
		}
		if c.Embedding.APIKey == "" && c.AI.HostedProvider == ProviderGemini {
			c.Embedding.APIKey = c.AI.APIKey
		}
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"SKILLMATCH_AI_APIKEY",
		"SKILLMATCH_AI_USEHOSTED",
		"SKILLMATCH_AI_MODEL",
		"SKILLMATCH_SERVER_PORT",
		"SKILLMATCH_SERVER_HOST",
		"SKILLMATCH_APP_LOGLEVEL",
		"SKILLMATCH_VAULT_ENABLED",
		"SKILLMATCH_CACHE_ENABLED",
		"USE_GPT", // Legacy support
		"OPENAI_API_KEY",
		"GEMINI_API_KEY",
		"OLLAMA_HOST",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			// Mask sensitive values
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Hosted Backend: %t", c.AI.UseHosted)
	log.Printf("[CONFIG] Active Provider: %s", c.ActiveProvider())
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Embedding Provider: %s (%s)", c.Embedding.Provider, c.Embedding.Model)
	log.Printf("[CONFIG] Analysis: cutoff=%d workers=%d topK=%d", c.Analysis.Cutoff, c.Analysis.Workers, c.Analysis.TopK)
	log.Printf("[CONFIG] Cache Enabled: %t", c.Cache.Enabled)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	for _, op := range Operations {
		cfg := c.GetOperationConfig(op)
		log.Printf("[CONFIG] %s - Provider: %s, Model: %s", op, cfg.Provider, cfg.Model)
	}

	log.Println("[CONFIG] =====================================")
}
