package config

import (
	"fmt"
	"os"
	"strings"

	"skillmatch/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets are the KVv2 paths read at startup. Empty paths are skipped.
type VaultSecrets struct {
	// APIKeys holds the server API keys as one comma separated string under "keys"
	APIKeys string `mapstructure:"apiKeys"`
	// GenerationKey holds the hosted model credential under "api_key"
	GenerationKey string `mapstructure:"generationKey"`
}

// secretReader reads KVv2 secrets
type secretReader struct {
	client *api.Client
	logger *errors.Logger
}

// newSecretReader connects to Vault with the configured token and checks
// that the server answers
func newSecretReader(cfg VaultConfig, logger *errors.Logger) (*secretReader, error) {
	vaultCfg := api.DefaultConfig()
	if cfg.Address != "" {
		vaultCfg.Address = cfg.Address
	}
	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", vaultCfg.Address, err)
	}
	logger.Info("Connected to Vault",
		"address", vaultCfg.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &secretReader{client: client, logger: logger}, nil
}

// resolveVaultToken returns the configured token, or the trimmed content of
// the token file
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// read returns the data map of the KVv2 secret at path
func (r *secretReader) read(path string) (map[string]any, error) {
	secret, err := r.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return kvData(secret, path)
}

// kvData unwraps the "data" envelope of a KVv2 read
func kvData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

// stringValue returns the string stored under key in the secret at path
func (r *secretReader) stringValue(path, key string) (string, error) {
	data, err := r.read(path)
	if err != nil {
		return "", err
	}
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	r.logger.Debug("Secret read from Vault", "path", path, "key", key, "value", maskSecret(s))
	return s, nil
}

func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case s != "":
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets overrides the server API keys and the generation
// credential with the values stored in Vault
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	paths := cfg.Vault.Secrets
	logger.Info("Loading secrets from Vault",
		"api_keys_path", paths.APIKeys,
		"generation_key_path", paths.GenerationKey)

	reader, err := newSecretReader(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	if paths.APIKeys != "" {
		raw, err := reader.stringValue(paths.APIKeys, "keys")
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if keys := splitAndTrim(raw); len(keys) > 0 {
			cfg.Server.APIKeys = keys
			logger.Info("API keys loaded from Vault", "count", len(keys))
		} else {
			logger.Warn("No API keys found in Vault", "path", paths.APIKeys)
		}
	}

	if paths.GenerationKey != "" {
		key, err := reader.stringValue(paths.GenerationKey, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load generation API key from vault: %w", err)
		}
		if key != "" {
			applyGenerationKeyToConfig(cfg, key)
			logger.Info("Generation API key loaded from Vault")
		} else {
			logger.Warn("Empty generation API key found in Vault", "path", paths.GenerationKey)
		}
	}

	return nil
}

// applyGenerationKeyToConfig applies the key globally and to every operation
// that does not carry its own
func applyGenerationKeyToConfig(cfg *Config, key string) {
	cfg.AI.APIKey = key
	for _, op := range Operations {
		block, _ := cfg.operationBlock(op)
		if block.APIKey == "" {
			block.APIKey = key
		}
	}
}
