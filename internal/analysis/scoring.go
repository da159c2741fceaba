package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"skillmatch/internal/types"

	"github.com/google/uuid"
)

// Rating thresholds
const (
	MaxSkillScore     = 10
	StrengthThreshold = 7 // score >= 7 is a strength
	MissingThreshold  = 5 // score <= 5 is a missing skill
)

var scorePattern = regexp.MustCompile(`\d{1,2}`)

// ParseScore returns the first run of one or two digits in a model answer,
// clamped to 10. An answer without digits scores 0.
func ParseScore(response string) int {
	m := scorePattern.FindString(response)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return min(n, MaxSkillScore)
}

// ParseReasoning returns the trimmed text after the first '.' of a model
// answer. Without a '.', the whole trimmed answer is the reasoning.
func ParseReasoning(response string) string {
	if _, after, found := strings.Cut(response, "."); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(response)
}

// NewRating parses a model answer into a rating of skill
func NewRating(skill, response string) types.SkillRating {
	return types.SkillRating{
		Skill:     skill,
		Score:     ParseScore(response),
		Reasoning: ParseReasoning(response),
	}
}

// FailedRating is the zero-score rating recorded when a rating task fails
func FailedRating(skill string, err error) types.SkillRating {
	msg := err.Error()
	return types.SkillRating{
		Skill:     skill,
		Score:     0,
		Reasoning: "Error rating skill: " + msg,
		Error:     msg,
	}
}

// Aggregate builds the analysis result of ratings, which must already be in
// input order. The overall score is floor(100 * sum / (10 * n)); no ratings
// give an empty, unselected result.
func Aggregate(ratings []types.SkillRating, cutoff int) *types.AnalysisResult {
	result := &types.AnalysisResult{
		ID:            uuid.NewString(),
		Ratings:       ratings,
		Strengths:     []string{},
		MissingSkills: []string{},
		Cutoff:        cutoff,
	}
	if len(ratings) == 0 {
		result.Ratings = []types.SkillRating{}
		return result
	}

	total := 0
	for _, r := range ratings {
		total += r.Score
		switch {
		case r.Score >= StrengthThreshold:
			result.Strengths = append(result.Strengths, r.Skill)
		case r.Score <= MissingThreshold:
			result.MissingSkills = append(result.MissingSkills, r.Skill)
		}
	}

	result.OverallScore = total * 100 / (MaxSkillScore * len(ratings))
	result.Selected = result.OverallScore >= cutoff
	return result
}

// NormalizeSkills trims skills, drops empty entries and removes
// case-insensitive duplicates, keeping the first occurrence.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SplitSkillList splits a comma separated skill string
func SplitSkillList(csv string) []string {
	return NormalizeSkills(strings.Split(csv, ","))
}
