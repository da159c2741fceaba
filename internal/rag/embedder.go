package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"unicode"

	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	"google.golang.org/genai"
)

// Embedding providers
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderHash   = "hash"
)

// Embedder turns texts into vectors. Implementations must return one vector per
// input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// NewEmbedder creates the embedder selected by cfg
func NewEmbedder(cfg config.EmbeddingConfig, logger *errors.Logger) (Embedder, error) {
	logger.Debug("Initializing embedder",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"base_url", cfg.BaseURL)

	switch cfg.Provider {
	case ProviderHash:
		return NewHashEmbedder(cfg.Dimensions), nil
	case ProviderOllama:
		return NewOllamaEmbedder(cfg)
	case ProviderGemini:
		return NewGeminiEmbedder(cfg)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported embedding provider: %s", cfg.Provider), nil)
	}
}

// HashEmbedder is a deterministic bag-of-words embedder using the hashing
// trick. It needs no model server and is used for offline runs and tests.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder with dims dimensions
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

// Name implements Embedder
func (h *HashEmbedder) Name() string { return ProviderHash }

// Embed implements Embedder
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	for _, tok := range tokens {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		v[sum%uint64(h.dims)] += sign
	}
	normalize(v)
	return v
}

func normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server
type OllamaEmbedder struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewOllamaEmbedder creates an Ollama embedder
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*OllamaEmbedder, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Ollama embedding base URL is required", nil)
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &OllamaEmbedder{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		model:      cfg.Model,
	}, nil
}

// Name implements Embedder
func (o *OllamaEmbedder) Name() string { return ProviderOllama }

// Embed implements Embedder
func (o *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingFailed, "Ollama embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingFailed, "Failed to read Ollama embedding response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("Ollama embedding returned HTTP %d", resp.StatusCode), fmt.Errorf("%s", body))
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeEmbeddingFailed, "Invalid Ollama embedding response", err)
	}
	if parsed.Error != "" {
		return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingFailed, parsed.Error, nil)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, errors.NewParseError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("Expected %d embeddings, got %d", len(texts), len(parsed.Embeddings)), nil)
	}
	return parsed.Embeddings, nil
}

// GeminiEmbedder embeds texts with the Gemini embedding models
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a Gemini embedder
func NewGeminiEmbedder(cfg config.EmbeddingConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"API key required for the gemini embedding provider (embedding.apiKey or GEMINI_API_KEY)", nil)
	}
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingFailed, "Failed to create Gemini client", err)
	}
	return &GeminiEmbedder{client: client, model: cfg.Model}, nil
}

// Name implements Embedder
func (g *GeminiEmbedder) Name() string { return ProviderGemini }

// Embed implements Embedder
func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeEmbeddingFailed, "Gemini embedding request failed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.NewParseError(errors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("Expected %d embeddings, got %d", len(texts), len(resp.Embeddings)), nil)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
