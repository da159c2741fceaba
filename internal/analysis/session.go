package analysis

import (
	"context"
	"strings"
	"sync"
	"time"

	"skillmatch/internal/errors"
	"skillmatch/internal/rag"
	"skillmatch/internal/types"

	"github.com/google/uuid"
)

// NoResumeMessage answers questions asked before any resume was analyzed
const NoResumeMessage = "Please analyze a resume first."

// Session holds the state of one resume across an analysis and its follow-up
// questions and rewrites. Each Analyze replaces the whole state.
type Session struct {
	ID        string
	CreatedAt time.Time

	analyzer *Analyzer

	mu       sync.RWMutex
	resume   types.ResumeDocument
	skills   []string
	index    *rag.Index
	result   *types.AnalysisResult
	lastUsed time.Time
}

// NewSession creates an empty session bound to the analyzer
func (a *Analyzer) NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		analyzer:  a,
		lastUsed:  now,
	}
}

// Analyze indexes resume for questions, resolves the required skills and rates
// them. A non-empty jobDescription replaces skills with the skills extracted
// from it. The question index is kept even when skill resolution fails.
func (s *Session) Analyze(ctx context.Context, resume types.ResumeDocument, skills []string, jobDescription string) (*types.AnalysisResult, error) {
	a := s.analyzer
	if strings.TrimSpace(resume.Text) == "" {
		return nil, errors.NewExtractionError(errors.ErrCodeEmptyDocument,
			"No text could be extracted from "+displayName(resume), nil)
	}

	idx, err := rag.BuildIndex(ctx, a.embedder, rag.Split(resume.Text, a.cfg.ChunkSize, a.cfg.ChunkOverlap))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.resume = resume
	s.index = idx
	s.skills = nil
	s.result = nil
	s.lastUsed = time.Now()
	s.mu.Unlock()

	if strings.TrimSpace(jobDescription) != "" {
		skills, err = a.ExtractSkills(ctx, jobDescription)
		if err != nil {
			return nil, err
		}
	}
	skills = NormalizeSkills(skills)
	if len(skills) == 0 {
		return nil, errors.NewParseError(errors.ErrCodeNoSkills, "Could not determine requirements", nil)
	}

	result, err := a.AnalyzeOne(ctx, resume, skills)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.skills = skills
	s.result = result
	s.lastUsed = time.Now()
	s.mu.Unlock()
	return result, nil
}

// Ask answers question from the chunks of the analyzed resume most similar
// to it. Before any analysis the answer is NoResumeMessage.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.mu.Lock()
	idx := s.index
	s.lastUsed = time.Now()
	s.mu.Unlock()

	if idx == nil {
		return NoResumeMessage, nil
	}
	if strings.TrimSpace(question) == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Question is empty", nil)
	}

	ctx, span := tracer.Start(ctx, "analysis.ask")
	defer span.End()

	a := s.analyzer
	chunks, err := idx.Retrieve(ctx, question, a.cfg.TopK)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	answer, err := a.gen.Answer.Invoke(ctx, ContextPrompt(a.gen.Answer.Template(), chunks, question))
	if err != nil {
		span.RecordError(err)
		return "", asGenerationError(err, "Failed to answer the question")
	}
	return answer, nil
}

// Rewrite rewrites the analyzed resume for role. skillsCSV is a comma
// separated keyword list; when it is empty the skills of the last analysis
// are used.
func (s *Session) Rewrite(ctx context.Context, role, skillsCSV string) (string, error) {
	s.mu.Lock()
	resume := s.resume
	sessionSkills := s.skills
	s.lastUsed = time.Now()
	s.mu.Unlock()

	if strings.TrimSpace(resume.Text) == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, NoResumeMessage, nil)
	}

	skills := SplitSkillList(skillsCSV)
	if len(skills) == 0 {
		skills = sessionSkills
	}
	return s.analyzer.Rewrite(ctx, resume.Text, role, skills)
}

// Result returns the last analysis result, or nil
func (s *Session) Result() *types.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Skills returns the skills of the last analysis
func (s *Session) Skills() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.skills...)
}

// LastUsed returns when the session was last touched
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// Close drops the resume, the index and the result
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = types.ResumeDocument{}
	s.skills = nil
	s.index = nil
	s.result = nil
}
