package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
// Generation API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (SKILLMATCH_AI_APIKEY, then OPENAI_API_KEY / GEMINI_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Roles         RolesConfig         `mapstructure:"roles"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds generation backend configuration
type AIConfig struct {
	// UseHosted selects the hosted backend instead of the local one.
	// The legacy USE_GPT environment variable maps here.
	UseHosted      bool   `mapstructure:"useHosted"`
	HostedProvider string `mapstructure:"hostedProvider"`
	LocalProvider  string `mapstructure:"localProvider"`

	// Global/fallback values for every operation
	Model            string        `mapstructure:"model"`
	BaseURL          string        `mapstructure:"baseURL"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`

	// Operation-specific configurations
	Rate    OperationAIConfig `mapstructure:"rate"`
	Extract OperationAIConfig `mapstructure:"extract"`
	Rewrite OperationAIConfig `mapstructure:"rewrite"`
	Answer  OperationAIConfig `mapstructure:"answer"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds generation configuration for one operation.
// Pointer fields are nil until defaults from AIConfig are applied.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	Prompts          PromptConfig         `mapstructure:"prompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds the customizable prompts of one operation
type PromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`

	// Content read from SystemFile/UserFile
	LoadedSystem string `mapstructure:"-"`
	LoadedUser   string `mapstructure:"-"`
}

// EmbeddingConfig selects the embedding backend used by the semantic index
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"` // "ollama", "gemini" or "hash"
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"baseURL"`
	APIKey     string        `mapstructure:"apiKey"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Dimensions int           `mapstructure:"dimensions"` // hash embedder only
}

// AnalysisConfig holds skill rating engine settings
type AnalysisConfig struct {
	Cutoff       int           `mapstructure:"cutoff"`
	Workers      int           `mapstructure:"workers"`
	BulkWorkers  int           `mapstructure:"bulkWorkers"`
	TaskTimeout  time.Duration `mapstructure:"taskTimeout"`
	TopK         int           `mapstructure:"topK"`
	ChunkSize    int           `mapstructure:"chunkSize"`
	ChunkOverlap int           `mapstructure:"chunkOverlap"`
	IncludeATS   bool          `mapstructure:"includeATS"`
}

// CacheConfig configures the optional Redis cache of generation responses
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"keyPrefix"`
}

// RolesConfig points to an optional YAML role catalog
type RolesConfig struct {
	File          string        `mapstructure:"file"`
	Watch         bool          `mapstructure:"watch"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	// Q&A sessions idle longer than this are discarded
	SessionTTL time.Duration `mapstructure:"sessionTTL"`
	// MaxSessions caps the live Q&A sessions, 0 means unlimited
	MaxSessions int `mapstructure:"maxSessions"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	EnvFile          string   `mapstructure:"envFile"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	Generation     GenerationMetricsConfig     `mapstructure:"generation"`
	Analysis       AnalysisMetricsConfig       `mapstructure:"analysis"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// GenerationMetricsConfig holds generation call metrics configuration
type GenerationMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackCacheHits  bool `mapstructure:"trackCacheHits"`
}

// AnalysisMetricsConfig holds skill analysis metrics configuration
type AnalysisMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackScores       bool `mapstructure:"trackScores"`
	TrackFailedSkills bool `mapstructure:"trackFailedSkills"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
	TrackSessions   bool `mapstructure:"trackSessions"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from a .env file, environment variables and a config file
func LoadConfig() (*Config, error) {
	return LoadConfigWithViper(viper.New())
}

// LoadConfigWithViper loads configuration using the provided viper instance
func LoadConfigWithViper(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	loadEnvFile(os.Getenv("SKILLMATCH_APP_ENVFILE"))

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("SKILLMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)
	log.Println("[CONFIG] Configured environment variable handling with prefix 'SKILLMATCH'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/skillmatch/")
	v.AddConfigPath("$HOME/.skillmatch")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// loadEnvFile loads variables from a dotenv file without overriding the environment.
// A missing file is not an error.
func loadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("[CONFIG] Failed to load env file %s: %v", path, err)
		return
	}
	log.Printf("[CONFIG] Loaded environment from %s", path)
}

// bindLegacyEnv maps the unprefixed variables the tool has always honoured
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("ai.useHosted", "SKILLMATCH_AI_USEHOSTED", "USE_GPT")
	_ = v.BindEnv("ai.apiKey", "SKILLMATCH_AI_APIKEY")
	_ = v.BindEnv("embedding.apiKey", "SKILLMATCH_EMBEDDING_APIKEY", "GEMINI_API_KEY")
}

// Validate checks if the configuration is valid. Generation credentials are
// checked separately by ValidateGeneration so that commands which never call
// a model keep working without one.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server max sessions cannot be negative")
	}

	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis workers must be at least 1")
	}
	if c.Analysis.BulkWorkers < 1 {
		return fmt.Errorf("analysis bulk workers must be at least 1")
	}
	if c.Analysis.TopK < 1 {
		return fmt.Errorf("analysis topK must be at least 1")
	}
	if c.Analysis.Cutoff < 0 || c.Analysis.Cutoff > 100 {
		return fmt.Errorf("analysis cutoff must be between 0 and 100")
	}
	if c.Analysis.ChunkSize <= 0 || c.Analysis.ChunkOverlap < 0 || c.Analysis.ChunkOverlap >= c.Analysis.ChunkSize {
		return fmt.Errorf("invalid chunking: size=%d overlap=%d", c.Analysis.ChunkSize, c.Analysis.ChunkOverlap)
	}

	switch c.Embedding.Provider {
	case "ollama", "gemini", "hash":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}
