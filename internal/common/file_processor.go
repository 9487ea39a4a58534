package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"resumatch/internal/errors"
	"resumatch/internal/ingestion"
	"resumatch/internal/utils"
)

// Document is a local file reduced to its plain text
type Document struct {
	Name string
	Text string
	// Err is set on a document that could not be read but was tolerated
	Err error
}

// FileProcessor handles common file operations
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor instance. A maxFileSize of
// zero disables the size check.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads raw content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	var reader io.Reader = file
	if fp.maxFileSize > 0 {
		reader = io.LimitReader(file, fp.maxFileSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if fp.maxFileSize > 0 && int64(len(content)) > fp.maxFileSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds the %s limit", filename, utils.FormatFileSize(fp.maxFileSize)), nil)
	}

	return content, nil
}

// ReadDocument reads a file and extracts its text by document type
func (fp *FileProcessor) ReadDocument(filename string) (Document, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return Document{}, errors.NewValidationError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return Document{}, err
	}

	// Files without a known extension are read as plain text
	name := filename
	if !ingestion.IsSupported(name) {
		if fp.logger != nil {
			fp.logger.Warn("Unknown document type, reading as plain text", "filename", filename)
		}
		name += ".txt"
	}

	text, err := ingestion.ExtractText(name, content)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: filepath.Base(filename), Text: text}, nil
}

// ReadDocumentsConcurrently reads filenames with at most limit reads in
// flight. Documents keep the order of filenames; the first error wins.
func (fp *FileProcessor) ReadDocumentsConcurrently(ctx context.Context, limit int, filenames ...string) ([]Document, error) {
	return fp.ReadDocumentSet(ctx, limit, len(filenames), filenames...)
}

// ReadDocumentSet reads filenames like ReadDocumentsConcurrently, but only
// the first required documents must read cleanly. A later document that
// fails is returned with its name and Err set.
func (fp *FileProcessor) ReadDocumentSet(ctx context.Context, limit, required int, filenames ...string) ([]Document, error) {
	docs := make([]Document, len(filenames))
	read := func(i int) error {
		doc, err := fp.ReadDocument(filenames[i])
		if err != nil {
			if i < required {
				return err
			}
			if fp.logger != nil {
				fp.logger.Warn("Document could not be read", "filename", filenames[i], "error", err)
			}
			doc = Document{Name: filepath.Base(filenames[i]), Err: err}
		}
		docs[i] = doc
		return nil
	}

	if limit <= 1 {
		for i := range filenames {
			if err := read(i); err != nil {
				return nil, err
			}
		}
		return docs, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range filenames {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			return read(i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := fp.ValidateOutputFile(filename); err != nil {
		return err
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
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
