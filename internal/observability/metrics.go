package observability

import (
	"context"
	"fmt"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/analysis"
	"skillmatch/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the custom instruments. The zero value records nothing.
type Metrics struct {
	cfg config.CustomMetricsConfig

	// Generation metrics
	GenerationDuration metric.Float64Histogram
	GenerationRequests metric.Int64Counter
	GenerationErrors   metric.Int64Counter
	GenerationTokens   metric.Int64Histogram
	CacheHits          metric.Int64Counter

	// Analysis metrics
	RatingsProduced metric.Int64Counter
	RatingFailures  metric.Int64Counter
	RatingDuration  metric.Float64Histogram
	SkillScores     metric.Int64Histogram
	OverallScores   metric.Int64Histogram
	Analyses        metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits  metric.Int64Counter
	ActiveSessions metric.Int64UpDownCounter
}

var (
	_ ai.CallObserver   = (*Metrics)(nil)
	_ analysis.Recorder = (*Metrics)(nil)
)

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, cfg config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{cfg: cfg}

	if err := m.createGenerationMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createAnalysisMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createInfrastructureMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createGenerationMetrics(meter metric.Meter) error {
	var err error

	m.GenerationDuration, err = meter.Float64Histogram(
		"skillmatch_generation_duration_seconds",
		metric.WithDescription("Time spent in generation calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create generation duration metric: %w", err)
	}

	m.GenerationRequests, err = meter.Int64Counter(
		"skillmatch_generation_requests_total",
		metric.WithDescription("Total number of generation calls"),
	)
	if err != nil {
		return fmt.Errorf("failed to create generation request metric: %w", err)
	}

	m.GenerationErrors, err = meter.Int64Counter(
		"skillmatch_generation_errors_total",
		metric.WithDescription("Total number of failed generation calls"),
	)
	if err != nil {
		return fmt.Errorf("failed to create generation error metric: %w", err)
	}

	m.GenerationTokens, err = meter.Int64Histogram(
		"skillmatch_generation_tokens",
		metric.WithDescription("Token usage per generation call (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create generation token metric: %w", err)
	}

	m.CacheHits, err = meter.Int64Counter(
		"skillmatch_generation_cache_hits_total",
		metric.WithDescription("Generation calls answered from the response cache"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache hit metric: %w", err)
	}

	return nil
}

func (m *Metrics) createAnalysisMetrics(meter metric.Meter) error {
	var err error

	m.RatingsProduced, err = meter.Int64Counter(
		"skillmatch_ratings_total",
		metric.WithDescription("Total number of skill ratings produced"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ratings metric: %w", err)
	}

	m.RatingFailures, err = meter.Int64Counter(
		"skillmatch_rating_failures_total",
		metric.WithDescription("Skill ratings forced to zero by a failed task"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rating failure metric: %w", err)
	}

	m.RatingDuration, err = meter.Float64Histogram(
		"skillmatch_rating_duration_seconds",
		metric.WithDescription("Time spent rating one skill"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rating duration metric: %w", err)
	}

	m.SkillScores, err = meter.Int64Histogram(
		"skillmatch_skill_score",
		metric.WithDescription("Distribution of per-skill scores (0-10)"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	)
	if err != nil {
		return fmt.Errorf("failed to create skill score metric: %w", err)
	}

	m.OverallScores, err = meter.Int64Histogram(
		"skillmatch_overall_score",
		metric.WithDescription("Distribution of overall analysis scores (0-100)"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create overall score metric: %w", err)
	}

	m.Analyses, err = meter.Int64Counter(
		"skillmatch_analyses_total",
		metric.WithDescription("Total number of completed analyses"),
	)
	if err != nil {
		return fmt.Errorf("failed to create analyses metric: %w", err)
	}

	return nil
}

func (m *Metrics) createInfrastructureMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"skillmatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limited requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit metric: %w", err)
	}

	m.ActiveSessions, err = meter.Int64UpDownCounter(
		"skillmatch_active_sessions",
		metric.WithDescription("Q&A sessions currently held in memory"),
	)
	if err != nil {
		return fmt.Errorf("failed to create session metric: %w", err)
	}

	return nil
}

// RecordGeneration implements ai.CallObserver
func (m *Metrics) RecordGeneration(ctx context.Context, operation, provider string, duration time.Duration, usage *ai.TokenUsage, cached bool, err error) {
	if m.GenerationRequests == nil || !m.cfg.Generation.Enabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	)

	m.GenerationRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.GenerationErrors.Add(ctx, 1, attrs)
	}
	if cached {
		if m.cfg.Generation.TrackCacheHits {
			m.CacheHits.Add(ctx, 1, attrs)
		}
		return
	}
	if m.cfg.Generation.TrackDuration {
		m.GenerationDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if usage != nil && m.cfg.Generation.TrackTokenUsage {
		m.recordTokens(ctx, operation, provider, usage)
	}
}

func (m *Metrics) recordTokens(ctx context.Context, operation, provider string, usage *ai.TokenUsage) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		m.GenerationTokens.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("provider", provider),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordRating implements analysis.Recorder
func (m *Metrics) RecordRating(ctx context.Context, rating analysis.SkillOutcome) {
	if m.RatingsProduced == nil || !m.cfg.Analysis.Enabled {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("failed", rating.Failed))
	m.RatingsProduced.Add(ctx, 1, attrs)
	m.RatingDuration.Record(ctx, rating.Duration.Seconds(), attrs)
	if rating.Failed && m.cfg.Analysis.TrackFailedSkills {
		m.RatingFailures.Add(ctx, 1)
	}
	if !rating.Failed && m.cfg.Analysis.TrackScores {
		m.SkillScores.Record(ctx, int64(rating.Score))
	}
}

// RecordAnalysis implements analysis.Recorder
func (m *Metrics) RecordAnalysis(ctx context.Context, overallScore, skills, failed int, selected bool) {
	if m.Analyses == nil || !m.cfg.Analysis.Enabled {
		return
	}

	m.Analyses.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("selected", selected),
		attribute.Bool("partial", failed > 0),
	))
	if m.cfg.Analysis.TrackScores && skills > 0 {
		m.OverallScores.Record(ctx, int64(overallScore))
	}
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, by string) {
	if m.RateLimitHits == nil || !m.cfg.Infrastructure.Enabled || !m.cfg.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("by", by)))
}

// SessionOpened and SessionClosed track the Q&A session store size
func (m *Metrics) SessionOpened(ctx context.Context) {
	m.addSessions(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	m.addSessions(ctx, -1)
}

func (m *Metrics) addSessions(ctx context.Context, delta int64) {
	if m.ActiveSessions == nil || !m.cfg.Infrastructure.Enabled || !m.cfg.Infrastructure.TrackSessions {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}
