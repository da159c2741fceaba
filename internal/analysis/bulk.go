package analysis

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/ats"
	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"golang.org/x/sync/errgroup"
)

// AnalyzeOne rates one resume against skills with the configured cutoff and,
// when analysis.includeATS is set, attaches the ATS report.
func (a *Analyzer) AnalyzeOne(ctx context.Context, resume types.ResumeDocument, skills []string) (*types.AnalysisResult, error) {
	skills = NormalizeSkills(skills)
	if len(skills) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeNoSkills, "At least one skill is required", nil)
	}
	if strings.TrimSpace(resume.Text) == "" {
		return nil, errors.NewExtractionError(errors.ErrCodeEmptyDocument,
			fmt.Sprintf("No text could be extracted from %s", displayName(resume)), nil)
	}

	result, err := a.RateSkills(ctx, resume.Text, skills, a.cfg.Cutoff)
	if err != nil {
		return nil, err
	}
	if a.cfg.IncludeATS {
		report := ats.Score(resume.Text)
		result.ATS = &report
	}
	return result, nil
}

// AnalyzeMany analyzes resumes on a pool of analysis.bulkWorkers goroutines.
// A failing resume is reported in its item and does not stop the others.
// Items keep the order of resumes.
func (a *Analyzer) AnalyzeMany(ctx context.Context, resumes []types.ResumeDocument, skills []string) (*types.BulkResult, error) {
	skills = NormalizeSkills(skills)
	if len(skills) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeNoSkills, "At least one skill is required", nil)
	}

	ctx, span := tracer.Start(ctx, "analysis.analyze_many")
	defer span.End()

	items := make([]types.BulkItem, len(resumes))
	var g errgroup.Group
	g.SetLimit(a.cfg.BulkWorkers)
	for i, resume := range resumes {
		g.Go(func() error {
			item := types.BulkItem{Name: displayName(resume)}
			result, err := a.AnalyzeOne(ctx, resume, skills)
			if err != nil {
				a.logger.Warn("Resume analysis failed", "resume", item.Name, "error", err.Error())
				item.Error = err.Error()
			} else {
				item.Result = result
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	return &types.BulkResult{Skills: skills, Items: items}, nil
}

// Compare analyzes two resumes against the same skills and summarizes how
// they differ. Either analysis failing fails the comparison.
func (a *Analyzer) Compare(ctx context.Context, resumeA, resumeB types.ResumeDocument, skills []string) (*types.Comparison, error) {
	skills = NormalizeSkills(skills)
	if len(skills) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeNoSkills, "At least one skill is required", nil)
	}

	ctx, span := tracer.Start(ctx, "analysis.compare")
	defer span.End()

	var resultA, resultB *types.AnalysisResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resultA, err = a.AnalyzeOne(gctx, resumeA, skills)
		return err
	})
	g.Go(func() error {
		var err error
		resultB, err = a.AnalyzeOne(gctx, resumeB, skills)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &types.Comparison{
		ResultA: resultA,
		ResultB: resultB,
		Summary: Summarize(nameOr(resumeA, "Resume A"), resultA, nameOr(resumeB, "Resume B"), resultB),
	}, nil
}

// Summarize compares two analyses over the same skills
func Summarize(nameA string, a *types.AnalysisResult, nameB string, b *types.AnalysisResult) types.ComparisonSummary {
	s := types.ComparisonSummary{
		NameA:           nameA,
		NameB:           nameB,
		ScoreA:          a.OverallScore,
		ScoreB:          b.OverallScore,
		Delta:           a.OverallScore - b.OverallScore,
		AdvantagesA:     []string{},
		AdvantagesB:     []string{},
		SharedStrengths: []string{},
		SelectedA:       a.Selected,
		SelectedB:       b.Selected,
	}

	switch {
	case s.Delta > 0:
		s.Winner = nameA
	case s.Delta < 0:
		s.Winner = nameB
	default:
		s.Winner = "tie"
	}

	strengthsB := make(map[string]bool, len(b.Strengths))
	for _, skill := range b.Strengths {
		strengthsB[skill] = true
	}
	for _, skill := range a.Strengths {
		if strengthsB[skill] {
			s.SharedStrengths = append(s.SharedStrengths, skill)
		}
	}

	for _, ra := range a.Ratings {
		rb, ok := b.Rating(ra.Skill)
		if !ok {
			continue
		}
		switch {
		case ra.Score > rb.Score:
			s.AdvantagesA = append(s.AdvantagesA, ra.Skill)
		case rb.Score > ra.Score:
			s.AdvantagesB = append(s.AdvantagesB, ra.Skill)
		}
	}

	if s.Winner == "tie" {
		s.Text = fmt.Sprintf("%s and %s are tied at %d%%.", nameA, nameB, s.ScoreA)
	} else {
		diff := s.Delta
		if diff < 0 {
			diff = -diff
		}
		s.Text = fmt.Sprintf("%s leads by %d points (%d%% vs %d%%).", s.Winner, diff, max(s.ScoreA, s.ScoreB), min(s.ScoreA, s.ScoreB))
	}
	return s
}

func displayName(r types.ResumeDocument) string {
	return nameOr(r, "resume")
}

func nameOr(r types.ResumeDocument, fallback string) string {
	if r.Name != "" {
		return r.Name
	}
	return fallback
}
