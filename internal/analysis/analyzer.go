package analysis

import (
	"context"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/config"
	"skillmatch/internal/errors"
	"skillmatch/internal/rag"
	"skillmatch/internal/types"
)

// Generator is one generation operation: Template returns its user prompt
// template and Invoke sends a finished prompt.
type Generator interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Template() string
}

// Generators holds the generator of every operation the engine calls
type Generators struct {
	Rate    Generator
	Extract Generator
	Rewrite Generator
	Answer  Generator
}

// GeneratorsFrom adapts an ai.Service
func GeneratorsFrom(svc *ai.Service) Generators {
	return Generators{
		Rate:    svc.Rate,
		Extract: svc.Extract,
		Rewrite: svc.Rewrite,
		Answer:  svc.Answer,
	}
}

// Recorder receives analysis measurements
type Recorder interface {
	RecordRating(ctx context.Context, rating SkillOutcome)
	RecordAnalysis(ctx context.Context, overallScore, skills, failed int, selected bool)
}

// SkillOutcome describes one finished rating task
type SkillOutcome struct {
	Skill    string
	Score    int
	Failed   bool
	Duration time.Duration
}

// Analyzer is the skill scoring engine. It holds no per-resume state and is
// safe for concurrent use; per-resume state lives in a Session.
type Analyzer struct {
	gen      Generators
	embedder rag.Embedder
	cfg      config.AnalysisConfig
	recorder Recorder
	logger   *errors.Logger
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithRecorder reports ratings and analyses to r
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// NewAnalyzer creates an analyzer. Zero or negative settings in cfg fall back
// to the defaults of the engine.
func NewAnalyzer(gen Generators, embedder rag.Embedder, cfg config.AnalysisConfig, logger *errors.Logger, opts ...Option) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.BulkWorkers <= 0 {
		cfg.BulkWorkers = 2
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 90 * time.Second
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = rag.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = rag.DefaultChunkOverlap
	}

	a := &Analyzer{
		gen:      gen,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Cutoff returns the configured selection cutoff
func (a *Analyzer) Cutoff() int {
	return a.cfg.Cutoff
}

func (a *Analyzer) recordRating(ctx context.Context, o SkillOutcome) {
	if a.recorder != nil {
		a.recorder.RecordRating(ctx, o)
	}
}

func (a *Analyzer) recordAnalysis(ctx context.Context, result *types.AnalysisResult) {
	if a.recorder != nil {
		a.recorder.RecordAnalysis(ctx, result.OverallScore, len(result.Ratings), result.FailedCount(), result.Selected)
	}
}
