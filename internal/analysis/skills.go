package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"skillmatch/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var bracketPattern = regexp.MustCompile(`(?s)\[(.*?)\]`)

// ExtractSkills asks the model for the skills of a job description. An empty
// outcome is a parse error with code NO_SKILLS_EXTRACTED, never an empty list.
func (a *Analyzer) ExtractSkills(ctx context.Context, jobDescription string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "analysis.extract_skills")
	defer span.End()
	span.SetAttributes(attribute.Int("input.jd_length", len(jobDescription)))

	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Job description is empty", nil)
	}

	response, err := a.gen.Extract.Invoke(ctx, fmt.Sprintf(a.gen.Extract.Template(), jobDescription))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, asGenerationError(err, "Failed to extract skills from the job description")
	}

	skills := NormalizeSkills(ParseSkillList(response))
	if len(skills) == 0 {
		a.logger.Warn("No skills found in model response", "response_length", len(response))
		span.SetStatus(codes.Error, "no skills extracted")
		return nil, errors.NewParseError(errors.ErrCodeNoSkills,
			"Could not determine requirements from the job description", nil)
	}

	span.SetAttributes(attribute.Int("skills.count", len(skills)))
	return skills, nil
}

// ParseSkillList reads a skill list from a model answer. The first bracketed
// list literal wins; when there is none or it does not parse, lines starting
// with "- " or "* " are collected instead.
func ParseSkillList(response string) []string {
	if m := bracketPattern.FindString(response); m != "" {
		if items, err := parseStringList(m); err == nil && len(items) > 0 {
			return items
		}
	}
	return parseBulletLines(response)
}

func parseBulletLines(response string) []string {
	var items []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
			continue
		}
		if item := strings.TrimSpace(line[2:]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// asGenerationError keeps application errors as they are and wraps anything
// else as a generation failure
func asGenerationError(err error, message string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errors.NewGenerationError(errors.ErrCodeGenerationFailed, message, err)
}
