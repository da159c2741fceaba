package config

import (
	"time"

	"github.com/spf13/viper"
)

// Generation operations with their own configuration block
const (
	OperationRate    = "rate"
	OperationExtract = "extract"
	OperationRewrite = "rewrite"
	OperationAnswer  = "answer"
)

// Operations lists every generation operation
var Operations = []string{OperationRate, OperationExtract, OperationRewrite, OperationAnswer}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.useHosted", false)
	v.SetDefault("ai.hostedProvider", "openai")
	v.SetDefault("ai.localProvider", "ollama")
	v.SetDefault("ai.model", "") // provider default when empty
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.useSystemPrompts", true)

	// Rating runs once per skill, so it fails fast
	v.SetDefault("ai.rate.maxRetries", 2)

	// Extraction should be stable across runs
	v.SetDefault("ai.extract.temperature", 0.2)

	// Rewriting produces the longest output
	v.SetDefault("ai.rewrite.timeout", 120*time.Second)

	for _, op := range Operations {
		prefix := "ai." + op + ".circuitBreaker."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"maxRequests", 3)
		v.SetDefault(prefix+"interval", 60*time.Second)
		v.SetDefault(prefix+"timeout", 60*time.Second)
		v.SetDefault(prefix+"minRequests", 3)
		v.SetDefault(prefix+"failureThreshold", 0.6)
	}

	// Embedding Configuration
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.baseURL", "")
	v.SetDefault("embedding.apiKey", "")
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.dimensions", 256)

	// Analysis Configuration
	v.SetDefault("analysis.cutoff", 80)
	v.SetDefault("analysis.workers", 5)
	v.SetDefault("analysis.bulkWorkers", 2)
	v.SetDefault("analysis.taskTimeout", 90*time.Second)
	v.SetDefault("analysis.topK", 3)
	v.SetDefault("analysis.chunkSize", 1000)
	v.SetDefault("analysis.chunkOverlap", 200)
	v.SetDefault("analysis.includeATS", true)

	// Cache Configuration
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.keyPrefix", "skillmatch:gen:")

	// Role catalog
	v.SetDefault("roles.file", "")
	v.SetDefault("roles.watch", false)
	v.SetDefault("roles.debounceDelay", time.Second)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Minute) // rating many skills takes a while
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.sessionTTL", 30*time.Minute)
	v.SetDefault("server.maxSessions", 1000)
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB, resumes are often PDFs
	v.SetDefault("app.envFile", "")

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.generationKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "skillmatch")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.generation.enabled", true)
	v.SetDefault("observability.customMetrics.generation.trackDuration", true)
	v.SetDefault("observability.customMetrics.generation.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.generation.trackCacheHits", true)
	v.SetDefault("observability.customMetrics.analysis.enabled", true)
	v.SetDefault("observability.customMetrics.analysis.trackScores", true)
	v.SetDefault("observability.customMetrics.analysis.trackFailedSkills", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackSessions", true)

	// Console Configuration
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health Check Configuration
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
