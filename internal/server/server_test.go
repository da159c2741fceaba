package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillmatch/internal/ai"
	"skillmatch/internal/analysis"
	"skillmatch/internal/config"
	"skillmatch/internal/errors"
	"skillmatch/internal/rag"
	"skillmatch/internal/types"
)

const testResume = `Jane Doe
jane@example.com | +1 555 0100

EXPERIENCE
Senior Engineer, Acme (2019 - 2024)
- Built Go services handling 2M requests per day
- Led migration to PostgreSQL, reducing latency by 40%

EDUCATION
BSc Computer Science (2015 - 2019)

SKILLS
Go, SQL, Kubernetes`

type stubGenerator struct {
	template string
	fn       func(ctx context.Context, prompt string) (string, error)
}

func (s *stubGenerator) Invoke(ctx context.Context, prompt string) (string, error) {
	return s.fn(ctx, prompt)
}

func (s *stubGenerator) Template() string {
	return s.template
}

func fixed(response string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return response, nil }
}

type stubProbe struct {
	operation string
	available bool
}

func (p stubProbe) Operation() string { return p.operation }

func (p stubProbe) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "stub", Provider: "stub", Available: p.available}
}

func (p stubProbe) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"operation": p.operation, "overallHealthy": true}
}

type stubCache struct{ err error }

func (c stubCache) Ping(context.Context) error { return c.err }

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

type testEnv struct {
	server  *Server
	extract *stubGenerator
}

func newTestServer(t *testing.T, cfg ServerConfig, deps Dependencies) *testEnv {
	t.Helper()
	extract := &stubGenerator{template: ai.DefaultUserPrompts[config.OperationExtract], fn: fixed(`["Go", "SQL"]`)}
	gen := analysis.Generators{
		Rate:    &stubGenerator{template: ai.DefaultUserPrompts[config.OperationRate], fn: fixed("8. Strong evidence in the resume.")},
		Extract: extract,
		Rewrite: &stubGenerator{template: ai.DefaultUserPrompts[config.OperationRewrite], fn: fixed("  Improved resume  ")},
		Answer:  &stubGenerator{template: ai.DefaultUserPrompts[config.OperationAnswer], fn: fixed("Five years of Go.")},
	}
	deps.Analyzer = analysis.NewAnalyzer(gen, rag.NewHashEmbedder(256), config.AnalysisConfig{
		Cutoff:      75,
		Workers:     3,
		BulkWorkers: 2,
		TaskTimeout: 2 * time.Second,
	}, testLogger())

	s := NewServer(&config.Config{}, cfg, deps, testLogger())
	t.Cleanup(s.cleanup)
	return &testEnv{server: s, extract: extract}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{
		Resume:      DocumentPayload{Text: testResume},
		SkillSource: SkillSource{Skills: []string{"Go", "SQL", "go"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	result := decode[types.AnalysisResult](t, rec)
	if len(result.Ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(result.Ratings))
	}
	if result.OverallScore != 80 || !result.Selected {
		t.Errorf("expected selected score 80, got %d (selected=%v)", result.OverallScore, result.Selected)
	}
	if result.Ratings[0].Reasoning != "Strong evidence in the resume." {
		t.Errorf("unexpected reasoning %q", result.Ratings[0].Reasoning)
	}
}

func TestAnalyzeSkillSources(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})
	backend, _ := env.server.Roles.Skills("Backend Engineer")

	tests := []struct {
		name     string
		source   SkillSource
		expected int
	}{
		{"role preset", SkillSource{Role: "backend engineer"}, len(backend)},
		{"job description", SkillSource{JobDescription: "We need Go and SQL."}, 2},
		{"skills win over role", SkillSource{Skills: []string{"Rust"}, Role: "Backend Engineer"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{
				Resume:      DocumentPayload{Text: testResume},
				SkillSource: tt.source,
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			result := decode[types.AnalysisResult](t, rec)
			if len(result.Ratings) != tt.expected {
				t.Errorf("expected %d ratings, got %d", tt.expected, len(result.Ratings))
			}
		})
	}
}

func TestAnalyzeErrors(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "no skill source",
			body:   AnalyzeRequest{Resume: DocumentPayload{Text: testResume}},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeNoSkills,
		},
		{
			name:   "unknown role",
			body:   AnalyzeRequest{Resume: DocumentPayload{Text: testResume}, SkillSource: SkillSource{Role: "Astronaut"}},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeUnknownRole,
		},
		{
			name:   "empty resume",
			body:   AnalyzeRequest{Resume: DocumentPayload{Text: "  "}, SkillSource: SkillSource{Skills: []string{"Go"}}},
			status: http.StatusUnprocessableEntity,
			code:   errors.ErrCodeEmptyDocument,
		},
		{
			name:   "unsupported file",
			body:   AnalyzeRequest{Resume: DocumentPayload{Name: "photo.png", Data: []byte{0x89, 'P', 'N', 'G'}}, SkillSource: SkillSource{Skills: []string{"Go"}}},
			status: http.StatusUnsupportedMediaType,
			code:   errors.ErrCodeUnsupportedFormat,
		},
		{
			name:   "malformed json",
			body:   json.RawMessage(`{"resume": `),
			status: http.StatusBadRequest,
			code:   errors.ErrCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if raw, ok := tt.body.(json.RawMessage); ok {
				req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(raw))
				req.Header.Set("Content-Type", "application/json")
				rec = httptest.NewRecorder()
				env.server.Handler().ServeHTTP(rec, req)
			} else {
				rec = env.do(t, http.MethodPost, "/analyze", tt.body)
			}

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
		})
	}
}

func TestAnalyzeFileUpload(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{
		Resume:      DocumentPayload{Name: "cv.txt", Data: []byte(testResume)},
		SkillSource: SkillSource{Skills: []string{"Go"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestContentTypeRequired(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/skills/extract", bytes.NewReader([]byte(`{"jobDescription":"Go"}`)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodGet, "/analyze", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestServer(t, ServerConfig{APIKeys: []string{"secret-key-123"}}, Dependencies{})
	body := ExtractSkillsRequest{JobDescription: "Go developer"}

	tests := []struct {
		name    string
		headers []string
		status  int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
		{"header key", []string{"X-API-Key", "secret-key-123"}, http.StatusOK},
		{"bearer token", []string{"Authorization", "Bearer secret-key-123"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/skills/extract", body, tt.headers...)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	// Health stays public
	if rec := env.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("expected public health check, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestServer(t, ServerConfig{RateLimit: &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 1,
		BurstCapacity:  1,
		ByIP:           true,
		Window:         time.Minute,
	}}, Dependencies{})
	body := ExtractSkillsRequest{JobDescription: "Go developer"}

	if rec := env.do(t, http.MethodPost, "/skills/extract", body); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/skills/extract", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	// A different client has its own bucket
	if rec := env.do(t, http.MethodPost, "/skills/extract", body, "X-Forwarded-For", "203.0.113.9"); rec.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", rec.Code)
	}
}

func TestRequestSizeLimit(t *testing.T) {
	env := newTestServer(t, ServerConfig{MaxRequestSize: 64}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/analyze", AnalyzeRequest{
		Resume:      DocumentPayload{Text: testResume},
		SkillSource: SkillSource{Skills: []string{"Go"}},
	})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/analyze/batch", BatchRequest{
		Resumes: []DocumentPayload{
			{Name: "jane.txt", Text: testResume},
			{Name: "blank.txt", Text: ""},
			{Name: "scan.png", Data: []byte{1, 2, 3}},
		},
		SkillSource: SkillSource{Skills: []string{"Go", "SQL"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	result := decode[types.BulkResult](t, rec)
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	if result.Items[0].Name != "jane.txt" || result.Items[0].Result == nil {
		t.Errorf("expected first item analyzed, got %+v", result.Items[0])
	}
	for _, item := range result.Items[1:] {
		if item.Result != nil || item.Error == "" {
			t.Errorf("expected %s to carry an error, got %+v", item.Name, item)
		}
	}

	rec = env.do(t, http.MethodPost, "/analyze/batch", BatchRequest{SkillSource: SkillSource{Skills: []string{"Go"}}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", rec.Code)
	}
}

func TestCompareEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/compare", CompareRequest{
		ResumeA:     DocumentPayload{Name: "Jane", Text: testResume},
		ResumeB:     DocumentPayload{Name: "John", Text: testResume},
		SkillSource: SkillSource{Skills: []string{"Go"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cmp := decode[types.Comparison](t, rec)
	if cmp.Summary.NameA != "Jane" || cmp.Summary.NameB != "John" {
		t.Errorf("unexpected names %q and %q", cmp.Summary.NameA, cmp.Summary.NameB)
	}
	if cmp.Summary.Delta != 0 {
		t.Errorf("expected equal scores, got delta %d", cmp.Summary.Delta)
	}
}

func TestExtractSkillsEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/skills/extract", ExtractSkillsRequest{JobDescription: "Go and SQL"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decode[types.SkillList](t, rec)
	if fmt.Sprint(list.Skills) != "[Go SQL]" {
		t.Errorf("unexpected skills %v", list.Skills)
	}

	rec = env.do(t, http.MethodPost, "/skills/extract", ExtractSkillsRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty job description, got %d", rec.Code)
	}

	env.extract.fn = func(context.Context, string) (string, error) { return "", fmt.Errorf("backend down") }
	rec = env.do(t, http.MethodPost, "/skills/extract", ExtractSkillsRequest{JobDescription: "Go"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 on generation failure, got %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Code != errors.ErrCodeGenerationFailed {
		t.Errorf("expected %s, got %s", errors.ErrCodeGenerationFailed, resp.Code)
	}

	env.extract.fn = fixed("I could not find any.")
	rec = env.do(t, http.MethodPost, "/skills/extract", ExtractSkillsRequest{JobDescription: "Go"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 when no skills are found, got %d", rec.Code)
	}
}

func TestATSEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/ats", ATSRequest{Resume: DocumentPayload{Text: testResume}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	report := decode[types.ATSReport](t, rec)
	if len(report.Breakdown) != 7 || report.Grade == "" {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestRewriteEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})
	backend, _ := env.server.Roles.Skills("Backend Engineer")

	rec := env.do(t, http.MethodPost, "/rewrite", RewriteRequest{
		Resume: DocumentPayload{Text: testResume},
		Role:   "Backend Engineer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	out := decode[types.RewriteOutput](t, rec)
	if out.Resume != "Improved resume" {
		t.Errorf("expected trimmed rewrite, got %q", out.Resume)
	}
	if len(out.Skills) != len(backend) {
		t.Errorf("expected role skills, got %v", out.Skills)
	}

	rec = env.do(t, http.MethodPost, "/rewrite", RewriteRequest{Resume: DocumentPayload{Text: testResume}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without role, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/sessions", AnalyzeRequest{
		Resume:      DocumentPayload{Text: testResume},
		SkillSource: SkillSource{JobDescription: "Looking for Go and SQL"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[SessionResponse](t, rec)
	if created.SessionID == "" || created.Result == nil || len(created.Result.Ratings) != 2 {
		t.Fatalf("unexpected session response %+v", created)
	}
	if env.server.Sessions.Len() != 1 {
		t.Fatalf("expected 1 stored session, got %d", env.server.Sessions.Len())
	}

	askPath := "/sessions/" + created.SessionID + "/ask"
	rec = env.do(t, http.MethodPost, askPath, AskRequest{Question: "How much Go experience?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	answer := decode[types.Answer](t, rec)
	if answer.Answer != "Five years of Go." || answer.SessionID != created.SessionID {
		t.Errorf("unexpected answer %+v", answer)
	}

	rec = env.do(t, http.MethodDelete, "/sessions/"+created.SessionID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, askPath, AskRequest{Question: "Still there?"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/sessions/"+created.SessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestSessionRewrite(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/sessions", AnalyzeRequest{
		Resume:      DocumentPayload{Text: testResume},
		SkillSource: SkillSource{Skills: []string{"Go", "SQL"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	id := decode[SessionResponse](t, rec).SessionID

	rec = env.do(t, http.MethodGet, "/sessions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[SessionResponse](t, rec)
	if got.Result == nil || got.Result.OverallScore != 80 {
		t.Errorf("unexpected session result %+v", got.Result)
	}
	if got.Improvements == nil || got.Improvements.Summary != "Your resume is strong" {
		t.Errorf("unexpected improvements %+v", got.Improvements)
	}

	tests := []struct {
		name       string
		path       string
		body       SessionRewriteRequest
		status     int
		wantSkills []string
	}{
		{name: "session skills", path: "/sessions/" + id + "/rewrite", body: SessionRewriteRequest{Role: "Backend Engineer"}, status: http.StatusOK, wantSkills: []string{"Go", "SQL"}},
		{name: "explicit skills", path: "/sessions/" + id + "/rewrite", body: SessionRewriteRequest{Role: "Backend Engineer", Skills: []string{"gRPC", " ", "grpc"}}, status: http.StatusOK, wantSkills: []string{"gRPC"}},
		{name: "missing role", path: "/sessions/" + id + "/rewrite", body: SessionRewriteRequest{}, status: http.StatusBadRequest},
		{name: "unknown session", path: "/sessions/nope/rewrite", body: SessionRewriteRequest{Role: "Backend Engineer"}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			out := decode[types.RewriteOutput](t, rec)
			if out.Resume != "Improved resume" || out.TargetRole != "Backend Engineer" {
				t.Errorf("unexpected rewrite %+v", out)
			}
			if fmt.Sprint(out.Skills) != fmt.Sprint(tt.wantSkills) {
				t.Errorf("expected skills %v, got %v", tt.wantSkills, out.Skills)
			}
		})
	}
}

func TestSessionLimit(t *testing.T) {
	env := newTestServer(t, ServerConfig{MaxSessions: 1}, Dependencies{})
	open := func() *httptest.ResponseRecorder {
		return env.do(t, http.MethodPost, "/sessions", AnalyzeRequest{
			Resume:      DocumentPayload{Text: testResume},
			SkillSource: SkillSource{Skills: []string{"Go"}},
		})
	}

	rec := open()
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	id := decode[SessionResponse](t, rec).SessionID

	rec = open()
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 over the limit, got %d", rec.Code)
	}
	if code := decode[ErrorResponse](t, rec).Code; code != errors.ErrCodeSessionLimit {
		t.Errorf("expected %s, got %s", errors.ErrCodeSessionLimit, code)
	}
	if env.server.Sessions.Len() != 1 {
		t.Errorf("expected 1 stored session, got %d", env.server.Sessions.Len())
	}

	if rec = env.do(t, http.MethodDelete, "/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec = open(); rec.Code != http.StatusCreated {
		t.Errorf("expected 201 after closing a session, got %d", rec.Code)
	}
}

func TestSessionStoreLimit(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})
	metrics := &countingMetrics{}
	store := NewSessionStore(time.Hour, 2, metrics, testLogger())
	defer store.Close()

	for i := 0; i < 2; i++ {
		if err := store.Add(context.Background(), env.server.Analyzer.NewSession()); err != nil {
			t.Fatalf("Add() #%d error = %v", i, err)
		}
	}
	err := store.Add(context.Background(), env.server.Analyzer.NewSession())
	if errors.CodeOf(err) != errors.ErrCodeSessionLimit {
		t.Fatalf("expected %s, got %v", errors.ErrCodeSessionLimit, err)
	}
	if store.Len() != 2 || metrics.opened != 2 {
		t.Errorf("expected 2 sessions and 2 opens, got %d and %d", store.Len(), metrics.opened)
	}
}

func TestCreateSessionRequiresSkillSource(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodPost, "/sessions", AnalyzeRequest{Resume: DocumentPayload{Text: testResume}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if env.server.Sessions.Len() != 0 {
		t.Errorf("expected no stored session")
	}
}

func TestRolesEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})

	rec := env.do(t, http.MethodGet, "/roles", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[map[string][]types.Role](t, rec)
	if len(resp["roles"]) != 8 {
		t.Errorf("expected 8 roles, got %d", len(resp["roles"]))
	}
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		deps   Dependencies
		status int
	}{
		{
			name:   "healthy",
			deps:   Dependencies{Models: []ModelProbe{stubProbe{"rate", true}, stubProbe{"answer", true}}, Cache: stubCache{}},
			status: http.StatusOK,
		},
		{
			name:   "model unavailable",
			deps:   Dependencies{Models: []ModelProbe{stubProbe{"rate", false}}},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "cache down",
			deps:   Dependencies{Models: []ModelProbe{stubProbe{"rate", true}}, Cache: stubCache{err: fmt.Errorf("connection refused")}},
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestServer(t, ServerConfig{Version: "test"}, tt.deps)
			rec := env.do(t, http.MethodGet, "/health", nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			resp := decode[map[string]any](t, rec)
			if resp["version"] != "test" {
				t.Errorf("expected version in response, got %v", resp["version"])
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestServer(t, ServerConfig{MaxRequestSize: 1024}, Dependencies{})

	rec := env.do(t, http.MethodGet, "/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	rl, ok := resp["rate_limiting"].(map[string]any)
	if !ok || rl["enabled"] != false {
		t.Errorf("expected rate limiting disabled, got %v", resp["rate_limiting"])
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{errors.NewValidationError(errors.ErrCodeSessionNotFound, "gone", nil), http.StatusNotFound},
		{errors.NewExtractionError(errors.ErrCodeEmptyDocument, "empty", nil), http.StatusUnprocessableEntity},
		{errors.NewExtractionError(errors.ErrCodeUnsupportedFormat, "png", nil), http.StatusUnsupportedMediaType},
		{errors.NewParseError(errors.ErrCodeNoSkills, "none", nil), http.StatusUnprocessableEntity},
		{errors.NewGenerationError(errors.ErrCodeGenerationFailed, "down", nil), http.StatusBadGateway},
		{errors.NewGenerationError(errors.ErrCodeGenerationTimeout, "slow", nil), http.StatusGatewayTimeout},
		{errors.NewConfigError(errors.ErrCodeMissingAPIKey, "key", nil), http.StatusInternalServerError},
		{errors.NewInternalError(errors.ErrCodeSessionLimit, "full", nil), http.StatusServiceUnavailable},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", errors.NewValidationError(errors.ErrCodeNoSkills, "none", nil)), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.status {
				t.Errorf("expected %d, got %d", tt.status, got)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded first valid", map[string]string{"X-Forwarded-For": "garbage, 198.51.100.7, 10.0.0.1"}, "192.0.2.1:1234", "198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.8"}, "192.0.2.1:1234", "198.51.100.8"},
		{"invalid real ip", map[string]string{"X-Real-IP": "nope"}, "192.0.2.1:1234", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute, 5, testLogger())
	defer rl.Close()

	rl.Allow("ip:a")
	rl.Allow("ip:b")
	if got := rl.GetStats()["active_limiters"]; got != 2 {
		t.Fatalf("expected 2 limiters, got %v", got)
	}

	rl.cleanup(time.Now().Add(time.Hour), time.Minute)
	if got := rl.GetStats()["active_limiters"]; got != 0 {
		t.Errorf("expected limiters evicted, got %v", got)
	}
	rl.Close()
}

type countingMetrics struct{ opened, closed int }

func (m *countingMetrics) SessionOpened(context.Context) { m.opened++ }
func (m *countingMetrics) SessionClosed(context.Context) { m.closed++ }

func TestSessionStoreExpiry(t *testing.T) {
	env := newTestServer(t, ServerConfig{}, Dependencies{})
	metrics := &countingMetrics{}
	store := NewSessionStore(time.Hour, 0, metrics, testLogger())
	defer store.Close()

	session := env.server.Analyzer.NewSession()
	if err := store.Add(context.Background(), session); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if n := store.expire(time.Now()); n != 0 {
		t.Fatalf("expected fresh session to survive, expired %d", n)
	}
	if n := store.expire(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Fatalf("expected idle session to expire, expired %d", n)
	}
	if _, err := store.Get(session.ID); errors.CodeOf(err) != errors.ErrCodeSessionNotFound {
		t.Errorf("expected session not found, got %v", err)
	}
	if metrics.opened != 1 || metrics.closed != 1 {
		t.Errorf("expected 1 open and 1 close, got %d and %d", metrics.opened, metrics.closed)
	}
}
