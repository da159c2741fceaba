package analysis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateSkillsPythonScenario(t *testing.T) {
	g := newGenerators()
	g.rate.fn = fixed("9. Strong Python evidence shown via explicit systems experience.")
	a := g.analyzer(testConfig())

	resume := "Python developer with 5 years experience. Built systems serving 1M+ users, improved latency by 40%."
	result, err := a.RateSkills(context.Background(), resume, []string{"Python"}, 80)
	require.NoError(t, err)

	require.Len(t, result.Ratings, 1)
	rating := result.Ratings[0]
	assert.Equal(t, "Python", rating.Skill)
	assert.Equal(t, 9, rating.Score)
	assert.Equal(t, "Strong Python evidence shown via explicit systems experience.", rating.Reasoning)
	assert.Equal(t, []string{"Python"}, result.Strengths)
	assert.Empty(t, result.MissingSkills)
	assert.Equal(t, 90, result.OverallScore)
	assert.True(t, result.Selected)
	assert.NotEmpty(t, result.ID)
}

func TestRateSkillsPromptCarriesContextAndQuery(t *testing.T) {
	g := newGenerators()
	g.rate.prompts = make(chan string, 1)
	a := g.analyzer(testConfig())

	resume := "Kubernetes operator for three years."
	_, err := a.RateSkills(context.Background(), resume, []string{"Kubernetes"}, 80)
	require.NoError(t, err)

	prompt := <-g.rate.prompts
	want := "Based on the following context, answer the question.\n\n" +
		"Context:\n" + resume + "\n\n" +
		"Question: Rate resume proficiency in Kubernetes from 0 to 10. Start with the number, then one sentence justification.\n\n" +
		"Answer:"
	assert.Equal(t, want, prompt)
}

func TestRateSkillsIgnoresCustomAnswerPrompt(t *testing.T) {
	g := newGenerators()
	g.answer.template = "Only answer in French. %s"
	g.rate.prompts = make(chan string, 1)
	a := g.analyzer(testConfig())

	result, err := a.RateSkills(context.Background(), "Go developer.", []string{"Go"}, 80)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Ratings[0].Score)

	prompt := <-g.rate.prompts
	assert.True(t, strings.HasPrefix(prompt, "Based on the following context, answer the question."), prompt)
	assert.NotContains(t, prompt, "French")
	assert.NotContains(t, prompt, "%!")
}

func TestRateSkillsEmptySkillList(t *testing.T) {
	g := newGenerators()
	a := g.analyzer(testConfig())

	for _, cutoff := range []int{0, 80} {
		result, err := a.RateSkills(context.Background(), "any resume", nil, cutoff)
		require.NoError(t, err)
		assert.Equal(t, 0, result.OverallScore)
		assert.Empty(t, result.Ratings)
		assert.Empty(t, result.Strengths)
		assert.Empty(t, result.MissingSkills)
		assert.False(t, result.Selected)
	}
	assert.Equal(t, int32(0), g.rate.calls.Load())
}

func TestRateSkillsResponseWithoutDigitsIsKept(t *testing.T) {
	g := newGenerators()
	g.rate.fn = bySkill(map[string]string{
		"Go":   "8. Solid.",
		"Rust": "No evidence of Rust in the resume",
	})
	a := g.analyzer(testConfig())

	result, err := a.RateSkills(context.Background(), "Go services", []string{"Go", "Rust"}, 80)
	require.NoError(t, err)

	require.Len(t, result.Ratings, 2)
	rust, ok := result.Rating("Rust")
	require.True(t, ok)
	assert.Equal(t, 0, rust.Score)
	assert.Equal(t, "No evidence of Rust in the resume", rust.Reasoning)
	assert.False(t, rust.Failed())
	assert.Equal(t, 40, result.OverallScore)
}

func TestRateSkillsIsolatesFailures(t *testing.T) {
	g := newGenerators()
	g.rate.fn = func(_ context.Context, prompt string) (string, error) {
		if promptSkill(prompt) == "Docker" {
			return "", errors.NewGenerationError(errors.ErrCodeGenerationFailed, "backend unavailable", nil)
		}
		return "8. Good evidence.", nil
	}
	a := g.analyzer(testConfig())

	skills := []string{"Go", "SQL", "Docker", "AWS", "Linux"}
	result, err := a.RateSkills(context.Background(), "resume", skills, 80)
	require.NoError(t, err)

	require.Len(t, result.Ratings, 5)
	for i, r := range result.Ratings {
		assert.Equal(t, skills[i], r.Skill)
		if r.Skill == "Docker" {
			assert.Equal(t, 0, r.Score)
			assert.True(t, r.Failed())
			assert.True(t, strings.HasPrefix(r.Reasoning, "Error rating skill: "))
			assert.Contains(t, r.Error, "backend unavailable")
			continue
		}
		assert.Equal(t, 8, r.Score)
		assert.False(t, r.Failed())
	}
	assert.Equal(t, 1, result.FailedCount())
	assert.Equal(t, 64, result.OverallScore)
	assert.Equal(t, []string{"Docker"}, result.MissingSkills)
}

func TestRateSkillsRecoversPanics(t *testing.T) {
	g := newGenerators()
	g.rate.fn = func(_ context.Context, prompt string) (string, error) {
		if promptSkill(prompt) == "SQL" {
			panic("boom")
		}
		return "7. Fine.", nil
	}
	a := g.analyzer(testConfig())

	result, err := a.RateSkills(context.Background(), "resume", []string{"Go", "SQL"}, 80)
	require.NoError(t, err)

	sql, _ := result.Rating("SQL")
	assert.True(t, sql.Failed())
	assert.Contains(t, sql.Error, "panic: boom")
	goRating, _ := result.Rating("Go")
	assert.Equal(t, 7, goRating.Score)
}

func TestRateSkillsTaskTimeout(t *testing.T) {
	g := newGenerators()
	g.rate.fn = func(ctx context.Context, prompt string) (string, error) {
		if promptSkill(prompt) == "Slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "6. Ok.", nil
	}
	cfg := testConfig()
	cfg.TaskTimeout = 50 * time.Millisecond
	a := g.analyzer(cfg)

	result, err := a.RateSkills(context.Background(), "resume", []string{"Fast", "Slow"}, 80)
	require.NoError(t, err)

	slow, _ := result.Rating("Slow")
	assert.True(t, slow.Failed())
	assert.Contains(t, slow.Error, context.DeadlineExceeded.Error())
	fast, _ := result.Rating("Fast")
	assert.Equal(t, 6, fast.Score)
}

func TestRateSkillsPreservesOrderAndBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	g := newGenerators()
	g.rate.fn = func(_ context.Context, prompt string) (string, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Duration(rand.IntN(10)) * time.Millisecond)
		skill := promptSkill(prompt)
		return fmt.Sprintf("%d. Rated.", len(skill)%11), nil
	}
	cfg := testConfig()
	cfg.Workers = 3
	a := g.analyzer(cfg)

	var skills []string
	for i := 0; i < 20; i++ {
		skills = append(skills, fmt.Sprintf("skill-%02d", i))
	}

	result, err := a.RateSkills(context.Background(), "resume", skills, 80)
	require.NoError(t, err)

	require.Len(t, result.Ratings, len(skills))
	for i, r := range result.Ratings {
		assert.Equal(t, skills[i], r.Skill)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(20), g.rate.calls.Load())
}

func TestRateSkillsNormalizesInput(t *testing.T) {
	g := newGenerators()
	a := g.analyzer(testConfig())

	result, err := a.RateSkills(context.Background(), "resume", []string{" Go ", "go", "", "SQL"}, 80)
	require.NoError(t, err)

	var got []string
	for _, r := range result.Ratings {
		got = append(got, r.Skill)
	}
	assert.Equal(t, []string{"Go", "SQL"}, got)
}

type recorder struct {
	mu       sync.Mutex
	ratings  []SkillOutcome
	analyses int
}

func (r *recorder) RecordRating(_ context.Context, o SkillOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings = append(r.ratings, o)
}

func (r *recorder) RecordAnalysis(context.Context, int, int, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses++
}

func TestRateSkillsReportsToRecorder(t *testing.T) {
	rec := &recorder{}
	g := newGenerators()
	a := g.analyzer(testConfig(), WithRecorder(rec))

	_, err := a.RateSkills(context.Background(), "resume", []string{"Go", "SQL", "AWS"}, 80)
	require.NoError(t, err)

	assert.Len(t, rec.ratings, 3)
	assert.Equal(t, 1, rec.analyses)
}

func TestAnalyzeOneAttachesATS(t *testing.T) {
	g := newGenerators()
	cfg := testConfig()
	cfg.IncludeATS = true
	a := g.analyzer(cfg)

	result, err := a.AnalyzeOne(context.Background(),
		types.ResumeDocument{Name: "a.txt", Text: "Experience\nEducation\nSkills\nled a team in 2021"}, []string{"Go"})
	require.NoError(t, err)
	require.NotNil(t, result.ATS)
	assert.NotEmpty(t, result.ATS.Grade)
}

func TestAnalyzeOneRejectsEmptyInput(t *testing.T) {
	a := newGenerators().analyzer(testConfig())

	_, err := a.AnalyzeOne(context.Background(), types.ResumeDocument{Text: "resume"}, nil)
	assert.Equal(t, errors.ErrCodeNoSkills, errors.CodeOf(err))

	_, err = a.AnalyzeOne(context.Background(), types.ResumeDocument{Text: "  "}, []string{"Go"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeExtraction))
}
