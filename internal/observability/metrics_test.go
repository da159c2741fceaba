package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/analysis"
	"skillmatch/internal/config"
	"skillmatch/internal/errors"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func allMetrics() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		Generation:     config.GenerationMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true, TrackCacheHits: true},
		Analysis:       config.AnalysisMetricsConfig{Enabled: true, TrackScores: true, TrackFailedSkills: true},
		Infrastructure: config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true, TrackSessions: true},
	}
}

func newTestMetrics(t *testing.T, cfg config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), cfg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

// sums collects the total of every counter and the count of every histogram
func sums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[md.Name] += dp.Value
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					out[md.Name] += int64(dp.Count)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out[md.Name] += int64(dp.Count)
				}
			}
		}
	}
	return out
}

func TestRecordGeneration(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())
	ctx := context.Background()
	usage := &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}

	m.RecordGeneration(ctx, "rate", "ollama", 200*time.Millisecond, usage, false, nil)
	m.RecordGeneration(ctx, "rate", "ollama", time.Millisecond, nil, true, nil)
	m.RecordGeneration(ctx, "extract", "openai", time.Second, nil, false, fmt.Errorf("boom"))

	got := sums(t, reader)
	want := map[string]int64{
		"skillmatch_generation_requests_total":   3,
		"skillmatch_generation_errors_total":     1,
		"skillmatch_generation_cache_hits_total": 1,
		"skillmatch_generation_duration_seconds": 2,
		"skillmatch_generation_tokens":           3,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestRecordRatingAndAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())
	ctx := context.Background()

	m.RecordRating(ctx, analysis.SkillOutcome{Skill: "Go", Score: 9, Duration: time.Second})
	m.RecordRating(ctx, analysis.SkillOutcome{Skill: "Rust", Failed: true})
	m.RecordAnalysis(ctx, 45, 2, 1, false)

	got := sums(t, reader)
	want := map[string]int64{
		"skillmatch_ratings_total":           2,
		"skillmatch_rating_failures_total":   1,
		"skillmatch_rating_duration_seconds": 2,
		"skillmatch_skill_score":             1,
		"skillmatch_analyses_total":          1,
		"skillmatch_overall_score":           1,
	}
	for name, v := range want {
		if got[name] != v {
			t.Errorf("%s = %d, want %d", name, got[name], v)
		}
	}
}

func TestInfrastructureMetrics(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())
	ctx := context.Background()

	m.RecordRateLimitHit(ctx, "ip")
	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)

	got := sums(t, reader)
	if got["skillmatch_rate_limit_hits_total"] != 1 {
		t.Errorf("rate limit hits = %d, want 1", got["skillmatch_rate_limit_hits_total"])
	}
	if got["skillmatch_active_sessions"] != 1 {
		t.Errorf("active sessions = %d, want 1", got["skillmatch_active_sessions"])
	}
}

func TestDisabledCategoriesRecordNothing(t *testing.T) {
	m, reader := newTestMetrics(t, config.CustomMetricsConfig{})
	ctx := context.Background()

	m.RecordGeneration(ctx, "rate", "ollama", time.Second, nil, false, nil)
	m.RecordRating(ctx, analysis.SkillOutcome{Skill: "Go", Score: 9})
	m.RecordAnalysis(ctx, 90, 1, 0, true)
	m.RecordRateLimitHit(ctx, "ip")
	m.SessionOpened(ctx)

	for name, v := range sums(t, reader) {
		if v != 0 {
			t.Errorf("%s = %d, want nothing recorded", name, v)
		}
	}
}

func TestZeroMetricsIsSafe(t *testing.T) {
	var m Metrics
	ctx := context.Background()
	m.RecordGeneration(ctx, "rate", "ollama", time.Second, nil, false, nil)
	m.RecordRating(ctx, analysis.SkillOutcome{})
	m.RecordAnalysis(ctx, 0, 0, 0, false)
	m.RecordRateLimitHit(ctx, "ip")
	m.SessionClosed(ctx)
}

func TestDisabledManager(t *testing.T) {
	logger := errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
	mgr, err := NewManager(config.ObservabilityConfig{Enabled: false}, "test", logger)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if mgr.Metrics() == nil {
		t.Fatal("Metrics() returned nil")
	}
	if err := mgr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestManagerWithManualReader(t *testing.T) {
	logger := errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
	cfg := config.ObservabilityConfig{
		Enabled:       true,
		ServiceName:   "skillmatch-test",
		SampleRate:    1,
		Tracing:       config.TracingConfig{Enabled: true, SampleRate: 1},
		CustomMetrics: allMetrics(),
	}
	mgr, err := NewManager(cfg, "v0", logger)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer func() { _ = mgr.Shutdown(context.Background()) }()

	mgr.Metrics().RecordAnalysis(context.Background(), 80, 3, 0, true)
	if mgr.HTTPMiddleware() == nil {
		t.Error("HTTPMiddleware() returned nil")
	}
}
