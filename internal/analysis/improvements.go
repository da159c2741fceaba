package analysis

import "skillmatch/internal/types"

// Score tiers of the general tips
const (
	needsWorkBelow = 60
	goodBelow      = 80
)

var (
	needsWorkTips = []string{
		"Add more relevant technical skills",
		"Include quantifiable achievements",
		"Expand on project experience",
		"Use industry-standard keywords",
	}
	goodTips = []string{
		"Strengthen weak skill areas",
		"Add more specific examples",
		"Optimize for ATS systems",
		"Highlight leadership experience",
	}
	strongTips = []string{
		"Minor refinements in weak areas",
		"Keep content current and relevant",
		"Tailor for specific roles",
	}
)

// Improvements derives the improvement plan of result. It calls no model.
func Improvements(result *types.AnalysisResult) types.ImprovementPlan {
	plan := types.ImprovementPlan{
		SkillsToDevelop:      scoresOf(result, result.MissingSkills),
		StrengthsToEmphasize: scoresOf(result, result.Strengths),
	}

	switch {
	case result.OverallScore < needsWorkBelow:
		plan.Summary = "Your resume needs significant improvement"
		plan.Tips = needsWorkTips
	case result.OverallScore < goodBelow:
		plan.Summary = "Your resume is good but can be better"
		plan.Tips = goodTips
	default:
		plan.Summary = "Your resume is strong"
		plan.Tips = strongTips
	}
	plan.Tips = append([]string(nil), plan.Tips...)
	return plan
}

func scoresOf(result *types.AnalysisResult, skills []string) []types.SkillScore {
	out := make([]types.SkillScore, 0, len(skills))
	for _, skill := range skills {
		r, _ := result.Rating(skill)
		out = append(out, types.SkillScore{Skill: skill, Score: r.Score})
	}
	return out
}
