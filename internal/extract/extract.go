package extract

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"skillmatch/internal/errors"
	"skillmatch/internal/utils"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Extractor turns resume and job description files into plain text. Read
// failures and unsupported formats are logged and yield "".
type Extractor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// New creates an extractor rejecting files above maxFileSize bytes (0 = no limit)
func New(logger *errors.Logger, maxFileSize int64) *Extractor {
	return &Extractor{logger: logger, maxFileSize: maxFileSize}
}

// FromFile extracts the text of the file at path
func (e *Extractor) FromFile(path string) string {
	if err := utils.ValidateInputFile(path, e.maxFileSize); err != nil {
		e.logger.Warn("Cannot read input file", "file", path, "error", err.Error())
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("Cannot read input file", "file", path, "error", err.Error())
		return ""
	}
	return e.FromBytes(path, data)
}

// FromBytes extracts the text of data, dispatching on the extension of name
func (e *Extractor) FromBytes(name string, data []byte) string {
	text, err := e.Extract(name, data)
	if err != nil {
		e.logger.Warn("Text extraction failed", "file", name, "error", err.Error())
		return ""
	}
	return text
}

// Extract is FromBytes with the failure reported as an ExtractionError
func (e *Extractor) Extract(name string, data []byte) (string, error) {
	if e.maxFileSize > 0 && int64(len(data)) > e.maxFileSize {
		return "", errors.NewExtractionError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("%s exceeds the %s size limit", name, utils.FormatFileSize(e.maxFileSize)), nil)
	}

	ext := utils.GetFileExtension(name)
	var (
		text string
		err  error
	)
	switch {
	case slices.Contains(utils.PDFExtensions, ext):
		text, err = extractPDF(data)
	case slices.Contains(utils.DOCXExtensions, ext):
		text, err = extractDOCX(data)
	case utils.IsTextFile(name):
		text, err = extractText(data)
	default:
		return "", errors.NewExtractionError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported file type %q", ext), nil).WithContext("file", name)
	}
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to extract text from %s", name), err)
	}
	return text, nil
}

func extractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}

// extractPDF concatenates the plain text of every page
func extractPDF(data []byte) (text string, err error) {
	// the PDF reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxBreak        = regexp.MustCompile(`<w:(br|cr)[^>]*/>`)
	docxTab          = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// extractDOCX reads word/document.xml and strips the markup, keeping one
// line per paragraph
func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	content := doc.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content)), nil
}
