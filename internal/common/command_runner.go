package common

import (
	"context"
	"fmt"

	"resumatch/internal/errors"
)

// CreateInputFunc builds the operation input from the documents read.
type CreateInputFunc[Input any] func(docs []Document) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is a generic function signature for a document operation.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// Runner carries what every file-based command needs.
type Runner struct {
	Logger      *errors.Logger
	MaxFileSize int64
	Output      *OutputHandler
	// Concurrency bounds parallel document reads; 0 or 1 reads in order
	Concurrency int
	// Required is how many leading documents must read cleanly. Later ones
	// that fail carry Document.Err. 0 means all of them.
	Required int
}

// RunDocumentCommand encapsulates the common logic for file-based CLI
// commands: read the documents, run the operation, write the output.
func RunDocumentCommand[Input, Output any](
	ctx context.Context,
	runner Runner,
	cmdConfig CommandConfig,
	files []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) (Output, error) {
	var zero Output

	fileProcessor := NewFileProcessor(runner.Logger, runner.MaxFileSize)
	outputHandler := runner.Output
	if outputHandler == nil {
		outputHandler = NewOutputHandler(runner.Logger)
	}

	required := runner.Required
	if required <= 0 {
		required = len(files)
	}
	docs, err := fileProcessor.ReadDocumentSet(ctx, runner.Concurrency, required, files...)
	if err != nil {
		return zero, err
	}

	input, err := createInput(docs)
	if err != nil {
		return zero, fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return zero, err
	}

	return result, outputHandler.HandleOutput(result, cmdConfig)
}
