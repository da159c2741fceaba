package common

import (
	"fmt"
	"slices"

	"skillmatch/internal/analysis"
	"skillmatch/internal/errors"
	"skillmatch/internal/roles"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ResolveSkills picks the skills to rate: an explicit comma-separated list
// wins over a role preset. When neither is given the skills must come from a
// job description, otherwise the request is rejected.
func ResolveSkills(catalog *roles.Catalog, skillsCSV, role string, hasJobDescription bool) ([]string, error) {
	if skillsCSV != "" {
		skills := analysis.SplitSkillList(skillsCSV)
		if len(skills) == 0 {
			return nil, errors.NewValidationError(errors.ErrCodeNoSkills, "skill list is empty", nil)
		}
		return skills, nil
	}

	if role != "" {
		return catalog.Resolve(role)
	}

	if hasJobDescription {
		return nil, nil
	}
	return nil, errors.NewValidationError(errors.ErrCodeNoSkills,
		"provide skills, a role or a job description", nil)
}
