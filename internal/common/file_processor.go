package common

import (
	"fmt"
	"os"
	"path/filepath"

	"skillmatch/internal/errors"
	"skillmatch/internal/extract"
	"skillmatch/internal/types"
	"skillmatch/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	extractor   *extract.Extractor
	maxFileSize int64
}

// NewFileProcessor creates a new file processor rejecting inputs above maxFileSize bytes
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{
		logger:      logger,
		extractor:   extract.New(logger, maxFileSize),
		maxFileSize: maxFileSize,
	}
}

// ReadDocument validates a resume file and extracts its text. A readable file
// that yields no text is returned with an empty Text so that the analysis
// reports it by name.
func (fp *FileProcessor) ReadDocument(filename string) (types.ResumeDocument, error) {
	if err := utils.ValidateInputFile(filename, fp.maxFileSize); err != nil {
		code := errors.ErrCodeFileNotReadable
		if !fileExists(filename) {
			code = errors.ErrCodeFileNotFound
		}
		return types.ResumeDocument{}, errors.NewIOError(code,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	if !utils.IsResumeFile(filename) && fp.logger != nil {
		fp.logger.Warn("Unsupported file type, no text will be extracted", "filename", filename)
	}

	return types.ResumeDocument{
		Name: filepath.Base(filename),
		Text: fp.extractor.FromFile(filename),
	}, nil
}

// ReadDocuments reads every file in order
func (fp *FileProcessor) ReadDocuments(filenames ...string) ([]types.ResumeDocument, error) {
	docs := make([]types.ResumeDocument, len(filenames))
	for i, filename := range filenames {
		doc, err := fp.ReadDocument(filename)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}

// ReadText reads a job description or similar input and fails when it has no text
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	doc, err := fp.ReadDocument(filename)
	if err != nil {
		return "", err
	}
	if doc.Text == "" {
		return "", errors.NewExtractionError(errors.ErrCodeEmptyDocument,
			fmt.Sprintf("No text could be extracted from %s", doc.Name), nil)
	}
	return doc.Text, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
