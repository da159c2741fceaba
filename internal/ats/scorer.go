// Package ats implements a rule-based resume compatibility score that mimics
// what applicant tracking systems look for. It makes no external calls.
package ats

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"skillmatch/internal/types"
)

// Category names, in breakdown order
const (
	CategorySections     = "Standard Sections"
	CategoryContact      = "Contact Information"
	CategoryAchievements = "Quantifiable Achievements"
	CategoryActionVerbs  = "Action Verbs"
	CategoryLength       = "Resume Length"
	CategoryFormatting   = "Formatting"
	CategoryDates        = "Timeline/Dates"
)

const maxScore = 100

var (
	standardSections = []string{"experience", "education", "skills", "projects"}

	actionVerbs = []string{
		"developed", "managed", "led", "created", "implemented", "designed",
		"built", "achieved", "improved", "increased", "reduced", "optimized",
		"analyzed", "coordinated", "executed", "delivered",
	}

	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phonePattern       = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	achievementPattern = regexp.MustCompile(`(?i)\b\d+%|\b\d+\+|\b\d+x|\$\d+|\d+\s*(million|billion|thousand|k|m)`)
	glyphPattern       = regexp.MustCompile(`[★☆●○■□▪▫◆◇]`)
	datePattern        = regexp.MustCompile(`(?i)\b(19|20)\d{2}\b|\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+(19|20)\d{2}\b`)
)

// recommendation thresholds, keyed by category
var recommendations = []struct {
	category  string
	threshold float64
	text      string
}{
	{CategorySections, 15, "Add missing standard sections (Experience, Education, Skills, Projects)"},
	{CategoryContact, 10, "Include complete contact information (email and phone)"},
	{CategoryAchievements, 10, "Add more quantifiable achievements with numbers and metrics"},
	{CategoryActionVerbs, 10, "Use stronger action verbs to describe your experience"},
	{CategoryDates, 5, "Include dates for all positions and education"},
}

// Score computes the ATS report for resume text. The result depends on the
// text alone, so identical input always yields an identical report.
func Score(text string) types.ATSReport {
	breakdown := []types.ATSCategory{
		scoreSections(text),
		scoreContact(text),
		scoreAchievements(text),
		scoreActionVerbs(text),
		scoreLength(text),
		scoreFormatting(text),
		scoreDates(text),
	}

	total := 0.0
	for _, c := range breakdown {
		total += c.Score
	}
	final := min(int(math.Trunc(total)), maxScore)

	report := types.ATSReport{
		Score:           final,
		Grade:           Grade(final),
		Breakdown:       breakdown,
		Recommendations: []string{},
	}
	for _, rec := range recommendations {
		if c, ok := report.Category(rec.category); ok && c.Score < rec.threshold {
			report.Recommendations = append(report.Recommendations, rec.text)
		}
	}
	return report
}

// Grade converts an ATS score to a letter grade
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A+ (Excellent)"
	case score >= 80:
		return "A (Very Good)"
	case score >= 70:
		return "B (Good)"
	case score >= 60:
		return "C (Fair)"
	default:
		return "D (Needs Improvement)"
	}
}

func scoreSections(text string) types.ATSCategory {
	lower := strings.ToLower(text)
	found := countContained(lower, standardSections)
	return types.ATSCategory{
		Name:    CategorySections,
		Score:   float64(found) / float64(len(standardSections)) * 20,
		Max:     20,
		Details: fmt.Sprintf("Found %d/%d standard sections", found, len(standardSections)),
	}
}

func scoreContact(text string) types.ATSCategory {
	score := 0.0
	var items []string
	if emailPattern.MatchString(text) {
		score += 7.5
		items = append(items, "Email")
	}
	if phonePattern.MatchString(text) {
		score += 7.5
		items = append(items, "Phone")
	}

	details := "None"
	if len(items) > 0 {
		details = strings.Join(items, ", ")
	}
	return types.ATSCategory{
		Name:    CategoryContact,
		Score:   score,
		Max:     15,
		Details: "Found: " + details,
	}
}

func scoreAchievements(text string) types.ATSCategory {
	matches := len(achievementPattern.FindAllStringIndex(text, -1))
	return types.ATSCategory{
		Name:    CategoryAchievements,
		Score:   float64(min(matches*2, 20)),
		Max:     20,
		Details: fmt.Sprintf("Found %d quantified achievements", matches),
	}
}

func scoreActionVerbs(text string) types.ATSCategory {
	found := countContained(strings.ToLower(text), actionVerbs)
	return types.ATSCategory{
		Name:    CategoryActionVerbs,
		Score:   math.Min(float64(found)/float64(len(actionVerbs))*15, 15),
		Max:     15,
		Details: fmt.Sprintf("Used %d/%d strong action verbs", found, len(actionVerbs)),
	}
}

func scoreLength(text string) types.ATSCategory {
	words := len(strings.Fields(text))

	var score float64
	var msg string
	switch {
	case words >= 300 && words <= 800:
		score, msg = 10, "Optimal length"
	case words < 300:
		score, msg = 5, "Too short"
	default:
		score, msg = 7, "Slightly long"
	}

	return types.ATSCategory{
		Name:    CategoryLength,
		Score:   score,
		Max:     10,
		Details: fmt.Sprintf("%d words - %s", words, msg),
	}
}

func scoreFormatting(text string) types.ATSCategory {
	score := 10.0
	var issues []string

	if len(glyphPattern.FindAllStringIndex(text, -1)) > 5 {
		score -= 3
		issues = append(issues, "Too many special characters")
	}
	if isAllCaps(text) {
		score -= 3
		issues = append(issues, "All caps detected")
	}
	if strings.Contains(text, "\n\n\n") {
		score -= 2
		issues = append(issues, "Inconsistent spacing")
	}

	details := "Clean"
	if len(issues) > 0 {
		details = strings.Join(issues, ", ")
	}
	return types.ATSCategory{
		Name:    CategoryFormatting,
		Score:   math.Max(score, 0),
		Max:     10,
		Details: details,
	}
}

func scoreDates(text string) types.ATSCategory {
	matches := len(datePattern.FindAllStringIndex(text, -1))
	return types.ATSCategory{
		Name:    CategoryDates,
		Score:   float64(min(matches*2, 10)),
		Max:     10,
		Details: fmt.Sprintf("Found %d date references", matches),
	}
}

func countContained(lower string, needles []string) int {
	n := 0
	for _, needle := range needles {
		if strings.Contains(lower, needle) {
			n++
		}
	}
	return n
}

// isAllCaps is true when the text has at least one cased letter and no
// lowercase ones.
func isAllCaps(text string) bool {
	return strings.ToUpper(text) == text && strings.ToLower(text) != text
}
