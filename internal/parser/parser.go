package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/vosbek/docxp/internal/core/domain"
)

// Parser is the capability contract one language implementation provides.
//
// Parse extracts entities from a source file. Malformed content yields a
// *ParseError (recoverable: the caller logs and skips the file); constructs
// the parser does not recognize are omitted, never errored. A file failing
// the shared preconditions yields an empty slice and a nil error.
//
// ExtractDependencies is best-effort and returns an empty slice rather than
// failing when dependency syntax is ambiguous.
type Parser interface {
	Parse(path string) ([]domain.Entity, error)
	ExtractDependencies(path string) ([]string, error)
	Language() string
}

// ParseError marks malformed input for a declared language. It is recovered
// locally by ingestion: the file is skipped and the batch continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a recoverable parse failure.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// readValidated enforces the shared preconditions every parser gets for
// free: the file must exist, be a regular file, be non-empty, and be
// readable. Failing files are reported with ok=false and a debug signal so
// the ingestion pass continues.
func readValidated(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		slog.Debug("source_file_skipped", "path", path, "reason", "not a regular file")
		return nil, false
	}
	if info.Size() == 0 {
		slog.Debug("source_file_skipped", "path", path, "reason", "empty file")
		return nil, false
	}
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("source_file_skipped", "path", path, "reason", "unreadable", "error", err)
		return nil, false
	}
	return content, true
}
