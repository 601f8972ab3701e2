package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRepositoryNotFound  = errors.New("repository not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTemporary           = errors.New("temporary failure")
	ErrUnsupportedLanguage = errors.New("language not supported")
	ErrInvalidFusionParams = errors.New("invalid fusion parameters")
	ErrSignalUnavailable   = errors.New("retrieval signal unavailable")
)

var (
	errEmptyEntityName = errors.New("entity name is empty")
	errEmptyEntityPath = errors.New("entity file path is empty")
	errBadEntityLine   = errors.New("entity line number must be >= 1")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
