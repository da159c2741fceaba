package analysis

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Rewrite asks the model for an ATS-optimized version of resume targeting role,
// prioritizing skills. The answer is returned trimmed and otherwise untouched.
func (a *Analyzer) Rewrite(ctx context.Context, resume, role string, skills []string) (string, error) {
	ctx, span := tracer.Start(ctx, "analysis.rewrite")
	defer span.End()
	span.SetAttributes(
		attribute.String("rewrite.role", role),
		attribute.Int("skills.count", len(skills)),
		attribute.Int("input.resume_length", len(resume)),
	)

	if strings.TrimSpace(resume) == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Resume text is empty", nil)
	}

	prompt := fmt.Sprintf(a.gen.Rewrite.Template(), role, strings.Join(skills, ", "), resume)
	out, err := a.gen.Rewrite.Invoke(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", asGenerationError(err, "Failed to rewrite the resume")
	}
	return strings.TrimSpace(out), nil
}
