package qdrant

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vosbek/docxp/internal/core/domain"
)

// httpStatusError carries a non-2xx Qdrant response so callers can branch on
// the status code.
type httpStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qdrant %s: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s: %s: %s", e.Operation, e.Status, e.Body)
}

func asStatusError(err error, target **httpStatusError) bool {
	return errors.As(err, target)
}

// pointIDNamespace seeds deterministic point ids so re-upserting the same
// entity overwrites instead of duplicating.
var pointIDNamespace = uuid.MustParse("7a1f3a62-9f14-4f3e-8f0a-2f6f4f0b9c11")

func deterministicPointID(scope domain.SearchScope, e domain.Entity) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(entityID(scope, e))).String()
}
