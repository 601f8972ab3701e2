package ports

import (
	"context"

	"github.com/vosbek/docxp/internal/core/domain"
)

// RepositoryRegistrar is the inbound contract for registering a source tree
// for ingestion.
type RepositoryRegistrar interface {
	Register(ctx context.Context, name, sourcePath, commit string) (*domain.Repository, error)
}

// RepositoryReader is the inbound read model for repository metadata/state.
type RepositoryReader interface {
	GetByID(ctx context.Context, id string) (*domain.Repository, error)
}

// RepositoryIndexer is the inbound contract for asynchronous index builds.
type RepositoryIndexer interface {
	IndexByID(ctx context.Context, repoID string) error
}

// CodeSearcher is the inbound contract for hybrid search over one scope.
type CodeSearcher interface {
	Search(ctx context.Context, query string, scope domain.SearchScope, topN int) ([]domain.FusedResult, error)
}
