package types

// ResumeDocument is the plain text of one candidate resume
type ResumeDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SkillRating is the model's 0-10 judgement of one skill
type SkillRating struct {
	Skill     string `json:"skill"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
	// Error is set when the rating task failed and Score was forced to 0
	Error string `json:"error,omitempty"`
}

// Failed reports whether the rating was produced by a failed task
func (r SkillRating) Failed() bool {
	return r.Error != ""
}

// AnalysisResult aggregates all skill ratings of one analysis
type AnalysisResult struct {
	ID            string        `json:"id"`
	Ratings       []SkillRating `json:"ratings"`
	OverallScore  int           `json:"overallScore"`
	Strengths     []string      `json:"strengths"`
	MissingSkills []string      `json:"missingSkills"`
	Selected      bool          `json:"selected"`
	Cutoff        int           `json:"cutoff"`
	ATS           *ATSReport    `json:"ats,omitempty"`
}

// Rating returns the rating for skill, if present
func (a *AnalysisResult) Rating(skill string) (SkillRating, bool) {
	for _, r := range a.Ratings {
		if r.Skill == skill {
			return r, true
		}
	}
	return SkillRating{}, false
}

// FailedCount returns how many ratings came from failed tasks
func (a *AnalysisResult) FailedCount() int {
	n := 0
	for _, r := range a.Ratings {
		if r.Failed() {
			n++
		}
	}
	return n
}

// SkillScore pairs a skill with its 0-10 rating
type SkillScore struct {
	Skill string `json:"skill"`
	Score int    `json:"score"`
}

// ImprovementPlan is the advice derived from an analysis: the weak skills to
// develop, the strong ones to feature and general tips for the score tier
type ImprovementPlan struct {
	SkillsToDevelop      []SkillScore `json:"skillsToDevelop"`
	StrengthsToEmphasize []SkillScore `json:"strengthsToEmphasize"`
	Summary              string       `json:"summary"`
	Tips                 []string     `json:"tips"`
}

// ATSCategory is one weighted category of the ATS heuristic
type ATSCategory struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Max     float64 `json:"max"`
	Details string  `json:"details"`
}

// ATSReport is the structural compatibility score of a resume
type ATSReport struct {
	Score           int           `json:"score"`
	Grade           string        `json:"grade"`
	Breakdown       []ATSCategory `json:"breakdown"`
	Recommendations []string      `json:"recommendations"`
}

// Category returns the breakdown entry with the given name
func (r *ATSReport) Category(name string) (ATSCategory, bool) {
	for _, c := range r.Breakdown {
		if c.Name == name {
			return c, true
		}
	}
	return ATSCategory{}, false
}

// BulkItem is the outcome of analyzing one resume in a batch
type BulkItem struct {
	Name   string          `json:"name"`
	Result *AnalysisResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BulkResult holds the ordered outcomes of a batch analysis
type BulkResult struct {
	Skills []string   `json:"skills"`
	Items  []BulkItem `json:"items"`
}

// ComparisonSummary describes how two analyses relate
type ComparisonSummary struct {
	NameA           string   `json:"nameA"`
	NameB           string   `json:"nameB"`
	ScoreA          int      `json:"scoreA"`
	ScoreB          int      `json:"scoreB"`
	Delta           int      `json:"delta"`
	Winner          string   `json:"winner"`
	AdvantagesA     []string `json:"advantagesA"`
	AdvantagesB     []string `json:"advantagesB"`
	SharedStrengths []string `json:"sharedStrengths"`
	SelectedA       bool     `json:"selectedA"`
	SelectedB       bool     `json:"selectedB"`
	Text            string   `json:"text"`
}

// Comparison is the result of analyzing two resumes against the same skills
type Comparison struct {
	ResultA *AnalysisResult   `json:"resultA"`
	ResultB *AnalysisResult   `json:"resultB"`
	Summary ComparisonSummary `json:"summary"`
}

// SkillList is the outcome of extracting skills from a job description
type SkillList struct {
	Skills []string `json:"skills"`
}

// RewriteOutput is the rewritten resume text
type RewriteOutput struct {
	TargetRole string   `json:"targetRole"`
	Skills     []string `json:"skills"`
	Resume     string   `json:"resume"`
}

// Answer is a Q&A response grounded on the resume
type Answer struct {
	SessionID string `json:"sessionId,omitempty"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

// Role is a named preset of required skills
type Role struct {
	Name   string   `json:"name" yaml:"name"`
	Skills []string `json:"skills" yaml:"skills"`
}
