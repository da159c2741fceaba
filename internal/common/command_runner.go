package common

import (
	"context"
	"io"
	"time"

	"skillmatch/internal/errors"
	"skillmatch/internal/types"
)

// DocumentOperationFunc runs one operation over the documents read from the command arguments
type DocumentOperationFunc[Output any] func(context.Context, []types.ResumeDocument) (Output, error)

// RunDocumentCommand encapsulates the common logic of file-based CLI commands:
// read and extract the input files, run the operation and format the result.
func RunDocumentCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	out io.Writer,
	paths []string,
	operation DocumentOperationFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)
	outputHandler := NewOutputHandler(logger, out)

	docs, err := fileProcessor.ReadDocuments(paths...)
	if err != nil {
		return err
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	logger.Info("Running command", "documents", names, "format", cmdConfig.OutputFormat)

	start := time.Now()
	result, err := operation(ctx, docs)
	if err != nil {
		return err
	}
	logger.Debug("Command finished", "duration", time.Since(start))

	return outputHandler.HandleOutput(result, cmdConfig)
}
