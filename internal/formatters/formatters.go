package formatters

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"skillmatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, markdown := range []bool{false, true} {
		format := "text"
		if markdown {
			format = "markdown"
		}
		registry.RegisterFormatter(format, "AnalysisResult", &AnalysisFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "BulkResult", &BulkFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "Comparison", &ComparisonFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "ATSReport", &ATSFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "SkillList", &SkillListFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "RewriteOutput", &RewriteFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "Answer", &AnswerFormatter{Markdown: markdown})
		registry.RegisterFormatter(format, "Roles", &RolesFormatter{Markdown: markdown})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	data = deref(data)
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

// deref turns non-nil pointers into values so both forms share a formatter
func deref(data any) any {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return v.Elem().Interface()
	}
	return data
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult:
		return "AnalysisResult"
	case types.BulkResult:
		return "BulkResult"
	case types.Comparison:
		return "Comparison"
	case types.ATSReport:
		return "ATSReport"
	case types.SkillList:
		return "SkillList"
	case types.RewriteOutput:
		return "RewriteOutput"
	case types.Answer:
		return "Answer"
	case []types.Role:
		return "Roles"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
