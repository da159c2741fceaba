package analysis

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/rag"
	"skillmatch/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("skillmatch.analysis")

// RateSkills rates resumeText against every skill and aggregates the ratings.
//
// The whole resume is indexed as a single unit and shared read-only by all
// tasks. Tasks run on a pool of analysis.workers goroutines; a failing task
// yields a zero-score rating and never cancels its siblings. Ratings keep the
// order of the normalized skills.
func (a *Analyzer) RateSkills(ctx context.Context, resumeText string, skills []string, cutoff int) (*types.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.rate_skills")
	defer span.End()

	skills = NormalizeSkills(skills)
	span.SetAttributes(
		attribute.Int("skills.count", len(skills)),
		attribute.Int("analysis.cutoff", cutoff),
		attribute.Int("analysis.workers", a.cfg.Workers),
	)
	if len(skills) == 0 {
		return Aggregate(nil, cutoff), nil
	}

	idx, err := rag.BuildIndex(ctx, a.embedder, []string{resumeText})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index build failed")
		return nil, err
	}

	ratings := make([]types.SkillRating, len(skills))
	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i, skill := range skills {
		g.Go(func() error {
			ratings[i] = a.rateSkill(ctx, idx, skill)
			return nil
		})
	}
	_ = g.Wait()

	result := Aggregate(ratings, cutoff)
	span.SetAttributes(
		attribute.Int("analysis.overall_score", result.OverallScore),
		attribute.Int("analysis.failed", result.FailedCount()),
		attribute.Bool("analysis.selected", result.Selected),
	)
	a.logger.Debug("Skill rating completed",
		"analysis_id", result.ID,
		"skills", len(skills),
		"overall_score", result.OverallScore,
		"failed", result.FailedCount())
	a.recordAnalysis(ctx, result)
	return result, nil
}

// rateSkill runs one rating task. It never returns an error: failures,
// timeouts and panics become a failed rating.
func (a *Analyzer) rateSkill(ctx context.Context, idx *rag.Index, skill string) (rating types.SkillRating) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TaskTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "analysis.rate_skill")
	defer span.End()
	span.SetAttributes(attribute.String("skill", skill))

	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Rating task panicked", "skill", skill, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			rating = FailedRating(skill, fmt.Errorf("panic: %v", r))
		}
		if rating.Failed() {
			span.SetStatus(codes.Error, rating.Error)
		}
		span.SetAttributes(attribute.Int("skill.score", rating.Score))
		a.recordRating(ctx, SkillOutcome{
			Skill:    skill,
			Score:    rating.Score,
			Failed:   rating.Failed(),
			Duration: time.Since(start),
		})
	}()

	query := RatingQuery(a.gen.Rate.Template(), skill)
	chunks, err := idx.Retrieve(ctx, query, a.cfg.TopK)
	if err != nil {
		a.logger.Warn("Context retrieval failed", "skill", skill, "error", err.Error())
		return FailedRating(skill, err)
	}

	response, err := a.gen.Rate.Invoke(ctx, ContextPrompt(ai.ContextPromptTemplate, chunks, query))
	if err != nil {
		a.logger.Warn("Skill rating failed", "skill", skill, "error", err.Error())
		return FailedRating(skill, err)
	}
	return NewRating(skill, response)
}

// RatingQuery fills the rating question template with skill
func RatingQuery(template, skill string) string {
	return fmt.Sprintf(template, skill)
}

// ContextPrompt fills the retrieval prompt template with the retrieved chunks
// and the question
func ContextPrompt(template string, chunks []string, question string) string {
	return fmt.Sprintf(template, rag.JoinContext(chunks), question)
}
