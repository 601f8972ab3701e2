package ports

import (
	"context"

	"github.com/vosbek/docxp/internal/core/domain"
)

// RepositoryStore persists registered repositories and ingestion state.
type RepositoryStore interface {
	Create(ctx context.Context, repo *domain.Repository) error
	GetByID(ctx context.Context, id string) (*domain.Repository, error)
	UpdateStatus(ctx context.Context, id string, status domain.RepositoryStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report domain.IngestReport) error
}

// MessageQueue publishes/consumes repository lifecycle events. Ingested
// events are consumed by one worker each; indexed events fan out to every
// subscriber so each serving process can drop stale cached results.
type MessageQueue interface {
	PublishRepositoryIngested(ctx context.Context, repoID string) error
	SubscribeRepositoryIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishRepositoryIndexed(ctx context.Context, repoID string) error
	SubscribeRepositoryIndexed(ctx context.Context, handler func(context.Context, string) error) error
}

// SourceTree lists the candidate source files under a repository root.
// Paths are relative to the root; the walker applies the shared skip rules
// (VCS metadata, dependency directories, oversized files).
type SourceTree interface {
	ListSourceFiles(ctx context.Context, root string) ([]string, error)
}

// Embedder builds vectors for entity snippets and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LexicalSearcher is the query-only view of the lexical index. The index
// files have a single owning process; everything else queries through this
// view. Search results are rank-ordered 1..n with deterministic internal
// tie-breaks.
type LexicalSearcher interface {
	Search(ctx context.Context, scope domain.SearchScope, queryText string, limit int) ([]domain.IndexHit, error)
}

// LexicalIndex is the full term-match surface, held only by the owning
// process.
type LexicalIndex interface {
	LexicalSearcher
	IndexEntities(ctx context.Context, scope domain.SearchScope, entities []domain.Entity) error
	DeleteScope(ctx context.Context, scope domain.SearchScope) error
}

// VectorIndex is the nearest-neighbor ranked search surface over entity
// embeddings, scoped identically to the lexical index.
type VectorIndex interface {
	IndexEntities(ctx context.Context, scope domain.SearchScope, entities []domain.Entity, vectors [][]float32) error
	Search(ctx context.Context, scope domain.SearchScope, queryVector []float32, limit int) ([]domain.IndexHit, error)
	DeleteScope(ctx context.Context, scope domain.SearchScope) error
}

// DependencyGraph records import/reference edges extracted from entities so
// downstream consumers can traverse them.
type DependencyGraph interface {
	ReplaceScope(ctx context.Context, scope domain.SearchScope) error
	RecordDependencies(ctx context.Context, scope domain.SearchScope, entities []domain.Entity) error
}
