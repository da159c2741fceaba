package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"skillmatch/internal/types"
)

func sampleResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		ID: "a1",
		Ratings: []types.SkillRating{
			{Skill: "Go", Score: 9, Reasoning: "Five years of Go."},
			{Skill: "Rust", Score: 0, Reasoning: "Error rating skill: timeout", Error: "timeout"},
		},
		OverallScore:  45,
		Strengths:     []string{"Go"},
		MissingSkills: []string{"Rust"},
		Cutoff:        75,
	}
}

func TestFormatAnalysisText(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{
		"=== SKILL ANALYSIS ===",
		"Overall Score: 45/100",
		"Decision: Not selected",
		"Failed Ratings: 1",
		"- Go (9/10): Five years of Go.",
		"Missing Skills:\n- Rust",
		"Skills to develop:\n\n- Rust (0/10)",
		"Strengths to emphasize:\n\n- Go (9/10)",
		"Your resume needs significant improvement:\n\n- Add more relevant technical skills",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAnalysisMarkdownWithATS(t *testing.T) {
	result := sampleResult()
	result.ATS = &types.ATSReport{
		Score: 72,
		Grade: "B",
		Breakdown: []types.ATSCategory{
			{Name: "Contact Information", Score: 15, Max: 15, Details: "email, phone"},
		},
		Recommendations: []string{"Add a skills section"},
	}

	out, err := GlobalRegistry.Format(*result, "markdown")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{
		"# Skill Analysis",
		"**Overall Score:** 45/100",
		"- **Go** (9/10): Five years of Go.",
		"## ATS Compatibility",
		"- **Contact Information**: 15.0/15 (email, phone)",
		"1. Add a skills section",
		"## Improvement Suggestions",
		"- **Rust** (0/10)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSONForAnyType(t *testing.T) {
	out, err := GlobalRegistry.Format(map[string]int{"ok": 1}, "json")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["ok"] != 1 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestFormatUnknownCombination(t *testing.T) {
	if _, err := GlobalRegistry.Format(map[string]int{}, "text"); err == nil {
		t.Error("expected error for a type without a text formatter")
	}
	if _, err := GlobalRegistry.Format(sampleResult(), "xml"); err == nil {
		t.Error("expected error for an unknown format")
	}
}

func TestFormatBulkAndComparison(t *testing.T) {
	bulk := types.BulkResult{
		Skills: []string{"Go", "Rust"},
		Items: []types.BulkItem{
			{Name: "a.pdf", Result: sampleResult()},
			{Name: "b.pdf", Error: "EMPTY_DOCUMENT: No text could be extracted from b.pdf"},
		},
	}
	out, err := GlobalRegistry.Format(bulk, "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "a.pdf:\nOverall Score: 45/100") || !strings.Contains(out, "Error: EMPTY_DOCUMENT") {
		t.Errorf("unexpected bulk output:\n%s", out)
	}

	b := sampleResult()
	b.Ratings = []types.SkillRating{{Skill: "Go", Score: 4}, {Skill: "Rust", Score: 8}}
	cmp := types.Comparison{
		ResultA: sampleResult(),
		ResultB: b,
		Summary: types.ComparisonSummary{NameA: "a.pdf", NameB: "b.pdf", Winner: "tie", Text: "a.pdf and b.pdf are tied at 45%."},
	}
	out, err = GlobalRegistry.Format(&cmp, "markdown")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "- **Go**: 9 vs 4") || !strings.Contains(out, "- **Rust**: 0 vs 8") {
		t.Errorf("unexpected comparison output:\n%s", out)
	}
}

func TestFormatRolesAndSkills(t *testing.T) {
	roles := []types.Role{{Name: "SRE", Skills: []string{"Linux", "Go"}}}
	out, err := GlobalRegistry.Format(roles, "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "SRE:\nLinux, Go") {
		t.Errorf("unexpected roles output:\n%s", out)
	}

	out, err = GlobalRegistry.Format(types.SkillList{}, "markdown")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "No skills found.") {
		t.Errorf("unexpected skills output:\n%s", out)
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := GlobalRegistry.GetSupportedFormats()
	want := []string{"json", "markdown", "text"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("GetSupportedFormats() = %v, want %v", got, want)
	}
}
