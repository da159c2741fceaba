package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"skillmatch/internal/analysis"
	"skillmatch/internal/ats"
	"skillmatch/internal/common"
	"skillmatch/internal/errors"
	"skillmatch/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("skillmatch.api")

// failRequest records err on the span and writes the matching error response
func (s *Server) failRequest(w http.ResponseWriter, span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", errorTypeOf(err)))
	writeAppError(w, err)
}

// document turns a payload into a resume. Files are extracted by extension.
func (s *Server) document(p DocumentPayload, fallbackName string) (types.ResumeDocument, error) {
	doc := types.ResumeDocument{Name: p.Name, Text: p.Text}
	if doc.Name == "" {
		doc.Name = fallbackName
	}
	if len(p.Data) > 0 {
		text, err := s.extractor.Extract(doc.Name, p.Data)
		if err != nil {
			return doc, err
		}
		doc.Text = text
	}
	if strings.TrimSpace(doc.Text) == "" {
		return doc, errors.NewExtractionError(errors.ErrCodeEmptyDocument,
			fmt.Sprintf("No text could be extracted from %s", doc.Name), nil)
	}
	return doc, nil
}

// resolveSkills picks explicit skills, then a role preset, then the skills
// extracted from the job description
func (s *Server) resolveSkills(ctx context.Context, src SkillSource) ([]string, error) {
	if len(src.Skills) > 0 {
		skills := analysis.NormalizeSkills(src.Skills)
		if len(skills) == 0 {
			return nil, errors.NewValidationError(errors.ErrCodeNoSkills, "skill list is empty", nil)
		}
		return skills, nil
	}

	skills, err := common.ResolveSkills(s.Roles, "", src.Role, strings.TrimSpace(src.JobDescription) != "")
	if err != nil || skills != nil {
		return skills, err
	}
	return s.Analyzer.ExtractSkills(ctx, src.JobDescription)
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.analyze")
	defer span.End()

	var req AnalyzeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}

	resume, err := s.document(req.Resume, "resume")
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	skills, err := s.resolveSkills(ctx, req.SkillSource)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("request.resume_length", len(resume.Text)),
		attribute.Int("request.skills", len(skills)),
	)

	result, err := s.Analyzer.AnalyzeOne(ctx, resume, skills)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	span.SetAttributes(
		attribute.Int("analysis.overall_score", result.OverallScore),
		attribute.Bool("analysis.selected", result.Selected),
	)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.analyze_batch")
	defer span.End()

	var req BatchRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	if len(req.Resumes) == 0 {
		s.failRequest(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resumes field is required", nil))
		return
	}

	// Unreadable documents stay in the batch with empty text and are
	// reported in their item
	resumes := make([]types.ResumeDocument, len(req.Resumes))
	for i, p := range req.Resumes {
		doc, err := s.document(p, fmt.Sprintf("resume-%d", i+1))
		if err != nil && !errors.IsType(err, errors.ErrorTypeExtraction) {
			s.failRequest(w, span, err)
			return
		}
		if err != nil {
			s.Logger.Warn("Batch document unreadable", "resume", doc.Name, "error", err.Error())
			doc.Text = ""
		}
		resumes[i] = doc
	}

	skills, err := s.resolveSkills(ctx, req.SkillSource)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("request.resumes", len(resumes)),
		attribute.Int("request.skills", len(skills)),
	)

	result, err := s.Analyzer.AnalyzeMany(ctx, resumes, skills)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) compareHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.compare")
	defer span.End()

	var req CompareRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}

	resumeA, err := s.document(req.ResumeA, "Resume A")
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	resumeB, err := s.document(req.ResumeB, "Resume B")
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	skills, err := s.resolveSkills(ctx, req.SkillSource)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	result, err := s.Analyzer.Compare(ctx, resumeA, resumeB, skills)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("compare.winner", result.Summary.Winner))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) extractSkillsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.extract_skills")
	defer span.End()

	var req ExtractSkillsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		s.failRequest(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, "jobDescription field is required", nil))
		return
	}
	span.SetAttributes(attribute.Int("request.job_length", len(req.JobDescription)))

	skills, err := s.Analyzer.ExtractSkills(ctx, req.JobDescription)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SkillList{Skills: skills})
}

func (s *Server) atsHandler(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "api.ats")
	defer span.End()

	var req ATSRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	resume, err := s.document(req.Resume, "resume")
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	report := ats.Score(resume.Text)
	span.SetAttributes(
		attribute.Int("ats.score", report.Score),
		attribute.String("ats.grade", report.Grade),
	)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) rewriteHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.rewrite")
	defer span.End()

	var req RewriteRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		s.failRequest(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, "role field is required", nil))
		return
	}
	resume, err := s.document(req.Resume, "resume")
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	skills := analysis.NormalizeSkills(req.Skills)
	if len(skills) == 0 {
		skills, _ = s.Roles.Skills(req.Role)
	}

	text, err := s.Analyzer.Rewrite(ctx, resume.Text, req.Role, skills)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, types.RewriteOutput{TargetRole: req.Role, Skills: skills, Resume: text})
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.create_session")
	defer span.End()

	var req AnalyzeRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	resume, err := s.document(req.Resume, "resume")
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	// The job description is handed to the session, which extracts from it
	// itself when no skills or role are given
	var skills []string
	if len(req.Skills) > 0 || req.Role != "" {
		skills, err = s.resolveSkills(ctx, SkillSource{Skills: req.Skills, Role: req.Role})
		if err != nil {
			s.failRequest(w, span, err)
			return
		}
	}
	jobDescription := ""
	if skills == nil {
		jobDescription = req.JobDescription
	}
	if skills == nil && strings.TrimSpace(jobDescription) == "" {
		s.failRequest(w, span, errors.NewValidationError(errors.ErrCodeNoSkills,
			"provide skills, a role or a job description", nil))
		return
	}

	session := s.Analyzer.NewSession()
	result, err := session.Analyze(ctx, resume, skills, jobDescription)
	if err != nil {
		session.Close()
		s.failRequest(w, span, err)
		return
	}

	if err := s.Sessions.Add(ctx, session); err != nil {
		session.Close()
		s.failRequest(w, span, err)
		return
	}
	span.SetAttributes(attribute.String("session.id", session.ID))
	writeJSON(w, http.StatusCreated, newSessionResponse(session.ID, result))
}

func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.ask")
	defer span.End()

	id := r.PathValue("id")
	session, err := s.Sessions.Get(id)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	var req AskRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}

	answer, err := session.Ask(ctx, req.Question)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Answer{SessionID: id, Question: req.Question, Answer: answer})
}

func newSessionResponse(id string, result *types.AnalysisResult) SessionResponse {
	resp := SessionResponse{SessionID: id, Result: result}
	if result != nil {
		plan := analysis.Improvements(result)
		resp.Improvements = &plan
	}
	return resp
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "api.get_session")
	defer span.End()

	id := r.PathValue("id")
	session, err := s.Sessions.Get(id)
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(id, session.Result()))
}

func (s *Server) sessionRewriteHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.session_rewrite")
	defer span.End()

	session, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		s.failRequest(w, span, err)
		return
	}

	var req SessionRewriteRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.failRequest(w, span, err)
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		s.failRequest(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, "role field is required", nil))
		return
	}

	skills := analysis.NormalizeSkills(req.Skills)
	text, err := session.Rewrite(ctx, req.Role, strings.Join(skills, ","))
	if err != nil {
		s.failRequest(w, span, err)
		return
	}
	if len(skills) == 0 {
		skills = session.Skills()
	}
	writeJSON(w, http.StatusOK, types.RewriteOutput{TargetRole: req.Role, Skills: skills, Resume: text})
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "api.delete_session")
	defer span.End()

	if err := s.Sessions.Delete(ctx, r.PathValue("id")); err != nil {
		s.failRequest(w, span, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rolesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": s.Roles.List()})
}
