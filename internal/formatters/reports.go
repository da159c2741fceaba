package formatters

import (
	"fmt"
	"strings"

	"skillmatch/internal/analysis"
	"skillmatch/internal/types"
)

// AnalysisFormatter renders a single skill analysis
type AnalysisFormatter struct {
	Markdown bool
}

func (f *AnalysisFormatter) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.title("Skill Analysis")
	writeAnalysis(d, &result)
	writeImprovements(d, analysis.Improvements(&result))
	return d.String(), nil
}

func (f *AnalysisFormatter) SupportedType() string {
	return "AnalysisResult"
}

func decision(selected bool) string {
	if selected {
		return "Selected"
	}
	return "Not selected"
}

func writeAnalysis(d *document, result *types.AnalysisResult) {
	d.field("Overall Score", fmt.Sprintf("%d/100", result.OverallScore))
	d.field("Cutoff", result.Cutoff)
	d.field("Decision", decision(result.Selected))
	if n := result.FailedCount(); n > 0 {
		d.field("Failed Ratings", n)
	}
	d.blank()

	d.section("Skill Ratings")
	lines := make([]string, 0, len(result.Ratings))
	for _, r := range result.Ratings {
		line := fmt.Sprintf("%s (%d/10)", d.strong(r.Skill), r.Score)
		if r.Reasoning != "" {
			line += ": " + r.Reasoning
		}
		lines = append(lines, line)
	}
	d.bullets(lines, "No skills rated.")

	d.section("Strengths")
	d.bullets(result.Strengths, "None")
	d.section("Missing Skills")
	d.bullets(result.MissingSkills, "None")

	if result.ATS != nil {
		d.section("ATS Compatibility")
		writeATS(d, result.ATS)
	}
}

func writeImprovements(d *document, plan types.ImprovementPlan) {
	d.section("Improvement Suggestions")
	d.para("Skills to develop:")
	d.bullets(skillScores(d, plan.SkillsToDevelop), "None")
	d.para("Strengths to emphasize:")
	d.bullets(skillScores(d, plan.StrengthsToEmphasize), "None")
	d.para(plan.Summary + ":")
	d.bullets(plan.Tips, "None")
}

func skillScores(d *document, scores []types.SkillScore) []string {
	lines := make([]string, 0, len(scores))
	for _, s := range scores {
		lines = append(lines, fmt.Sprintf("%s (%d/10)", d.strong(s.Skill), s.Score))
	}
	return lines
}

// BulkFormatter renders a batch of analyses in input order
type BulkFormatter struct {
	Markdown bool
}

func (f *BulkFormatter) Format(data any) (string, error) {
	bulk, ok := data.(types.BulkResult)
	if !ok {
		return "", fmt.Errorf("expected BulkResult, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.title("Bulk Analysis")
	d.field("Skills", strings.Join(bulk.Skills, ", "))
	d.field("Resumes", len(bulk.Items))
	d.blank()

	for _, item := range bulk.Items {
		d.section(item.Name)
		if item.Result == nil {
			d.field("Error", item.Error)
			d.blank()
			continue
		}
		d.field("Overall Score", fmt.Sprintf("%d/100", item.Result.OverallScore))
		d.field("Decision", decision(item.Result.Selected))
		d.field("Strengths", joinOrNone(item.Result.Strengths))
		d.field("Missing Skills", joinOrNone(item.Result.MissingSkills))
		d.blank()
	}
	return d.String(), nil
}

func (f *BulkFormatter) SupportedType() string {
	return "BulkResult"
}

// ComparisonFormatter renders a side-by-side comparison of two resumes
type ComparisonFormatter struct {
	Markdown bool
}

func (f *ComparisonFormatter) Format(data any) (string, error) {
	cmp, ok := data.(types.Comparison)
	if !ok {
		return "", fmt.Errorf("expected Comparison, got %T", data)
	}
	s := cmp.Summary

	d := newDocument(f.Markdown)
	d.title("Resume Comparison")
	d.para(s.Text)
	d.field(s.NameA, fmt.Sprintf("%d/100 (%s)", s.ScoreA, decision(s.SelectedA)))
	d.field(s.NameB, fmt.Sprintf("%d/100 (%s)", s.ScoreB, decision(s.SelectedB)))
	d.field("Winner", s.Winner)
	d.blank()

	d.section("Advantages of " + s.NameA)
	d.bullets(s.AdvantagesA, "None")
	d.section("Advantages of " + s.NameB)
	d.bullets(s.AdvantagesB, "None")
	d.section("Shared Strengths")
	d.bullets(s.SharedStrengths, "None")

	if cmp.ResultA != nil && cmp.ResultB != nil {
		d.section("Per-Skill Scores")
		lines := make([]string, 0, len(cmp.ResultA.Ratings))
		for _, a := range cmp.ResultA.Ratings {
			b, _ := cmp.ResultB.Rating(a.Skill)
			lines = append(lines, fmt.Sprintf("%s: %d vs %d", d.strong(a.Skill), a.Score, b.Score))
		}
		d.bullets(lines, "")
	}
	return d.String(), nil
}

func (f *ComparisonFormatter) SupportedType() string {
	return "Comparison"
}

// ATSFormatter renders an ATS compatibility report
type ATSFormatter struct {
	Markdown bool
}

func (f *ATSFormatter) Format(data any) (string, error) {
	report, ok := data.(types.ATSReport)
	if !ok {
		return "", fmt.Errorf("expected ATSReport, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.title("ATS Compatibility")
	writeATS(d, &report)
	return d.String(), nil
}

func (f *ATSFormatter) SupportedType() string {
	return "ATSReport"
}

func writeATS(d *document, report *types.ATSReport) {
	d.field("Score", fmt.Sprintf("%d/100", report.Score))
	d.field("Grade", report.Grade)
	d.blank()

	lines := make([]string, 0, len(report.Breakdown))
	for _, c := range report.Breakdown {
		lines = append(lines, fmt.Sprintf("%s: %.1f/%.0f (%s)", d.strong(c.Name), c.Score, c.Max, c.Details))
	}
	d.bullets(lines, "")

	if len(report.Recommendations) > 0 {
		d.section("Recommendations")
		d.numbered(report.Recommendations)
	}
}

// SkillListFormatter renders skills extracted from a job description
type SkillListFormatter struct {
	Markdown bool
}

func (f *SkillListFormatter) Format(data any) (string, error) {
	list, ok := data.(types.SkillList)
	if !ok {
		return "", fmt.Errorf("expected SkillList, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.title("Required Skills")
	d.bullets(list.Skills, "No skills found.")
	return d.String(), nil
}

func (f *SkillListFormatter) SupportedType() string {
	return "SkillList"
}

// RewriteFormatter renders a rewritten resume
type RewriteFormatter struct {
	Markdown bool
}

func (f *RewriteFormatter) Format(data any) (string, error) {
	out, ok := data.(types.RewriteOutput)
	if !ok {
		return "", fmt.Errorf("expected RewriteOutput, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.title("Improved Resume")
	if out.TargetRole != "" {
		d.field("Target Role", out.TargetRole)
	}
	if len(out.Skills) > 0 {
		d.field("Highlighted Skills", strings.Join(out.Skills, ", "))
	}
	d.blank()
	d.para(out.Resume)
	return d.String(), nil
}

func (f *RewriteFormatter) SupportedType() string {
	return "RewriteOutput"
}

// AnswerFormatter renders a question and its answer
type AnswerFormatter struct {
	Markdown bool
}

func (f *AnswerFormatter) Format(data any) (string, error) {
	answer, ok := data.(types.Answer)
	if !ok {
		return "", fmt.Errorf("expected Answer, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.field("Question", answer.Question)
	d.blank()
	d.para(answer.Answer)
	return d.String(), nil
}

func (f *AnswerFormatter) SupportedType() string {
	return "Answer"
}

// RolesFormatter renders the role catalog
type RolesFormatter struct {
	Markdown bool
}

func (f *RolesFormatter) Format(data any) (string, error) {
	roles, ok := data.([]types.Role)
	if !ok {
		return "", fmt.Errorf("expected []Role, got %T", data)
	}

	d := newDocument(f.Markdown)
	d.title("Roles")
	for _, r := range roles {
		d.section(r.Name)
		d.para(strings.Join(r.Skills, ", "))
	}
	return d.String(), nil
}

func (f *RolesFormatter) SupportedType() string {
	return "Roles"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
