package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skillmatch/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vaultTestLogger = errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

// newFakeVault serves the health endpoint and KVv2 reads of secrets. Each
// entry is the full "data" object of the response, so tests control whether
// metadata is present.
func newFakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{"initialized": true, "sealed": false, "version": "1.15.0"})
			return
		}
		body, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": body})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func vaultConfig(addr string, secrets VaultSecrets) *Config {
	return &Config{Vault: VaultConfig{Enabled: true, Address: addr, Token: "test-token", Secrets: secrets}}
}

func TestApplyVaultSecrets(t *testing.T) {
	srv := newFakeVault(t, map[string]map[string]any{
		"secret/data/skillmatch/api-keys": {
			"data":     map[string]any{"keys": "key-one, key-two,"},
			"metadata": map[string]any{"version": 3},
		},
		"secret/data/skillmatch/generation": {
			"data":     map[string]any{"api_key": "sk-from-vault"},
			"metadata": map[string]any{"version": 1},
		},
	})

	cfg := vaultConfig(srv.URL, VaultSecrets{
		APIKeys:       "secret/data/skillmatch/api-keys",
		GenerationKey: "secret/data/skillmatch/generation",
	})
	require.NoError(t, ApplyVaultSecrets(cfg, vaultTestLogger))

	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
	assert.Equal(t, "sk-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "sk-from-vault", cfg.AI.Rate.APIKey)
	assert.Equal(t, "sk-from-vault", cfg.AI.Answer.APIKey)
}

func TestApplyVaultSecretsWithoutMetadata(t *testing.T) {
	srv := newFakeVault(t, map[string]map[string]any{
		"secret/data/generation": {"data": map[string]any{"api_key": "sk-no-metadata"}},
	})

	cfg := vaultConfig(srv.URL, VaultSecrets{GenerationKey: "secret/data/generation"})
	require.NoError(t, ApplyVaultSecrets(cfg, vaultTestLogger))
	assert.Equal(t, "sk-no-metadata", cfg.AI.APIKey)
}

func TestApplyVaultSecretsErrors(t *testing.T) {
	srv := newFakeVault(t, map[string]map[string]any{
		"secret/data/not-a-string": {"data": map[string]any{"api_key": 42}},
		"secret/data/no-key":       {"data": map[string]any{"other": "x"}},
		"secret/data/kv1":          {"api_key": "flat"},
	})

	tests := []struct {
		name    string
		secrets VaultSecrets
		wantErr string
	}{
		{name: "missing secret", secrets: VaultSecrets{GenerationKey: "secret/data/missing"}, wantErr: "failed to load generation API key"},
		{name: "non string value", secrets: VaultSecrets{GenerationKey: "secret/data/not-a-string"}, wantErr: "is not a string"},
		{name: "missing key", secrets: VaultSecrets{APIKeys: "secret/data/no-key"}, wantErr: "failed to load API keys"},
		{name: "not KVv2", secrets: VaultSecrets{GenerationKey: "secret/data/kv1"}, wantErr: "not in KVv2 format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := vaultConfig(srv.URL, tt.secrets)
			err := ApplyVaultSecrets(cfg, vaultTestLogger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, cfg.AI.APIKey)
		})
	}
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, ApplyVaultSecrets(cfg, vaultTestLogger))
	assert.Empty(t, cfg.Server.APIKeys)
}

func TestApplyGenerationKeyKeepsOperationKeys(t *testing.T) {
	cfg := &Config{AI: AIConfig{Rewrite: OperationAIConfig{APIKey: "existing-rewrite-key"}}}
	applyGenerationKeyToConfig(cfg, "test-generation-key")

	assert.Equal(t, "test-generation-key", cfg.AI.APIKey)
	assert.Equal(t, "existing-rewrite-key", cfg.AI.Rewrite.APIKey)
	assert.Equal(t, "test-generation-key", cfg.AI.Rate.APIKey)
	assert.Equal(t, "test-generation-key", cfg.AI.Extract.APIKey)
}

func TestKVData(t *testing.T) {
	data, err := kvData(&api.Secret{Data: map[string]any{"data": map[string]any{"k": "v"}}}, "secret/test")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, data)

	_, err = kvData(&api.Secret{Data: map[string]any{"data": "flat"}}, "secret/test")
	assert.Error(t, err)
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))
	blankFile := filepath.Join(dir, "blank")
	require.NoError(t, os.WriteFile(blankFile, []byte("   \n"), 0600))

	tests := []struct {
		name    string
		cfg     VaultConfig
		want    string
		wantErr string
	}{
		{name: "token from config", cfg: VaultConfig{Token: "direct-token", TokenFile: tokenFile}, want: "direct-token"},
		{name: "token from file", cfg: VaultConfig{TokenFile: tokenFile}, want: "file-token"},
		{name: "missing token file", cfg: VaultConfig{TokenFile: filepath.Join(dir, "nope")}, wantErr: "failed to read vault token file"},
		{name: "blank token file", cfg: VaultConfig{TokenFile: blankFile}, wantErr: "vault token is required"},
		{name: "no token", cfg: VaultConfig{}, wantErr: "vault token is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveVaultToken(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk-a****wxyz", maskSecret("sk-abcdefghwxyz"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
