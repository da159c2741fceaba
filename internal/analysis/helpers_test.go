package analysis

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/config"
	"skillmatch/internal/errors"
	"skillmatch/internal/rag"
)

var testLogger = errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

type stubGenerator struct {
	template string
	fn       func(ctx context.Context, prompt string) (string, error)
	calls    atomic.Int32
	prompts  chan string
}

func (s *stubGenerator) Invoke(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	if s.prompts != nil {
		s.prompts <- prompt
	}
	return s.fn(ctx, prompt)
}

func (s *stubGenerator) Template() string {
	return s.template
}

func fixed(response string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return response, nil }
}

var skillInPrompt = regexp.MustCompile(`proficiency in (.+?) from 0`)

// promptSkill returns the skill a rating prompt asks about
func promptSkill(prompt string) string {
	if m := skillInPrompt.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return ""
}

// bySkill answers rating prompts from a per-skill table
func bySkill(answers map[string]string) func(context.Context, string) (string, error) {
	return func(_ context.Context, prompt string) (string, error) {
		return answers[promptSkill(prompt)], nil
	}
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		Cutoff:       80,
		Workers:      5,
		BulkWorkers:  2,
		TaskTimeout:  2 * time.Second,
		TopK:         3,
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

type testGenerators struct {
	rate, extract, rewrite, answer *stubGenerator
}

func newGenerators() *testGenerators {
	return &testGenerators{
		rate:    &stubGenerator{template: ai.DefaultUserPrompts[config.OperationRate], fn: fixed("5. Some evidence.")},
		extract: &stubGenerator{template: ai.DefaultUserPrompts[config.OperationExtract], fn: fixed(`["Go"]`)},
		rewrite: &stubGenerator{template: ai.DefaultUserPrompts[config.OperationRewrite], fn: fixed("rewritten")},
		answer:  &stubGenerator{template: ai.DefaultUserPrompts[config.OperationAnswer], fn: fixed("answer")},
	}
}

func (g *testGenerators) analyzer(cfg config.AnalysisConfig, opts ...Option) *Analyzer {
	return NewAnalyzer(Generators{
		Rate:    g.rate,
		Extract: g.extract,
		Rewrite: g.rewrite,
		Answer:  g.answer,
	}, rag.NewHashEmbedder(256), cfg, testLogger, opts...)
}
