package analysis

import (
	"testing"

	"skillmatch/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestImprovementsTiers(t *testing.T) {
	tests := []struct {
		score   int
		summary string
		tips    int
	}{
		{0, "Your resume needs significant improvement", 4},
		{59, "Your resume needs significant improvement", 4},
		{60, "Your resume is good but can be better", 4},
		{79, "Your resume is good but can be better", 4},
		{80, "Your resume is strong", 3},
		{100, "Your resume is strong", 3},
	}

	for _, tt := range tests {
		plan := Improvements(&types.AnalysisResult{OverallScore: tt.score})
		assert.Equal(t, tt.summary, plan.Summary, "score %d", tt.score)
		assert.Len(t, plan.Tips, tt.tips, "score %d", tt.score)
	}
}

func TestImprovementsListsSkillsWithScores(t *testing.T) {
	result := Aggregate([]types.SkillRating{
		{Skill: "Go", Score: 9},
		{Skill: "Rust", Score: 2},
		{Skill: "SQL", Score: 6},
		{Skill: "Kafka", Score: 0, Error: "timeout"},
	}, 80)

	plan := Improvements(result)
	assert.Equal(t, []types.SkillScore{{Skill: "Rust", Score: 2}, {Skill: "Kafka", Score: 0}}, plan.SkillsToDevelop)
	assert.Equal(t, []types.SkillScore{{Skill: "Go", Score: 9}}, plan.StrengthsToEmphasize)
	assert.Equal(t, "Your resume needs significant improvement", plan.Summary)
}

func TestImprovementsTipsAreCopies(t *testing.T) {
	plan := Improvements(&types.AnalysisResult{OverallScore: 90})
	plan.Tips[0] = "changed"
	assert.Equal(t, "Minor refinements in weak areas", Improvements(&types.AnalysisResult{OverallScore: 90}).Tips[0])
}
