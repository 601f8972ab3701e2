package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vosbek/docxp/internal/core/domain"
	"github.com/vosbek/docxp/internal/core/ports"
	"github.com/vosbek/docxp/internal/parser"
)

// IndexRepositoryUseCase runs one ingestion pass: walk the source tree,
// parse files into entities, embed their snippets, and index them under both
// retrieval signals. Per-file failures are counted and skipped; the pass
// itself fails only on infrastructure errors.
type IndexRepositoryUseCase struct {
	store    ports.RepositoryStore
	tree     ports.SourceTree
	registry *parser.Registry
	embedder ports.Embedder
	lexical  ports.LexicalIndex
	vector   ports.VectorIndex
	graph    ports.DependencyGraph
	queue    ports.MessageQueue

	parallelism    int
	embedBatchSize int
}

func NewIndexRepositoryUseCase(
	store ports.RepositoryStore,
	tree ports.SourceTree,
	registry *parser.Registry,
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	graph ports.DependencyGraph,
	queue ports.MessageQueue,
	parallelism int,
	embedBatchSize int,
) *IndexRepositoryUseCase {
	if parallelism <= 0 {
		parallelism = 4
	}
	if embedBatchSize <= 0 {
		embedBatchSize = 32
	}
	return &IndexRepositoryUseCase{
		store:          store,
		tree:           tree,
		registry:       registry,
		embedder:       embedder,
		lexical:        lexical,
		vector:         vector,
		graph:          graph,
		queue:          queue,
		parallelism:    parallelism,
		embedBatchSize: embedBatchSize,
	}
}

func (uc *IndexRepositoryUseCase) IndexByID(ctx context.Context, repoID string) error {
	if err := uc.store.UpdateStatus(ctx, repoID, domain.StatusIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	report, err := uc.runPipeline(ctx, repoID)
	if err != nil {
		if failErr := uc.store.UpdateStatus(ctx, repoID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.store.SaveReport(ctx, repoID, report); err != nil {
		return fmt.Errorf("save ingest report: %w", err)
	}
	if err := uc.store.UpdateStatus(ctx, repoID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	// Serving processes drop cached results on this event. A lost event only
	// extends staleness to the cache TTL, so it never fails the pass.
	if err := uc.queue.PublishRepositoryIndexed(ctx, repoID); err != nil {
		slog.Warn("indexed_event_publish_failed", "repo_id", repoID, "error", err)
	}
	return nil
}

func (uc *IndexRepositoryUseCase) runPipeline(ctx context.Context, repoID string) (domain.IngestReport, error) {
	repo, err := uc.store.GetByID(ctx, repoID)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("fetch repository by id: %w", err)
	}
	scope := repo.Scope()

	files, err := uc.tree.ListSourceFiles(ctx, repo.SourcePath)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("walk source tree: %w", err)
	}

	entities, report := uc.parseFiles(ctx, repo, files)

	// Old entities for this scope are superseded wholesale, never patched.
	if err := uc.lexical.DeleteScope(ctx, scope); err != nil {
		return report, fmt.Errorf("clear lexical scope: %w", err)
	}
	if err := uc.vector.DeleteScope(ctx, scope); err != nil {
		return report, fmt.Errorf("clear vector scope: %w", err)
	}
	if err := uc.graph.ReplaceScope(ctx, scope); err != nil {
		return report, fmt.Errorf("clear dependency graph scope: %w", err)
	}

	if len(entities) == 0 {
		return report, nil
	}

	vectors, err := uc.embedEntities(ctx, entities)
	if err != nil {
		return report, fmt.Errorf("embed entities: %w", err)
	}

	if err := uc.lexical.IndexEntities(ctx, scope, entities); err != nil {
		return report, fmt.Errorf("index entities lexically: %w", err)
	}
	if err := uc.vector.IndexEntities(ctx, scope, entities, vectors); err != nil {
		return report, fmt.Errorf("index entities in vector backend: %w", err)
	}
	if err := uc.graph.RecordDependencies(ctx, scope, entities); err != nil {
		return report, fmt.Errorf("record dependency edges: %w", err)
	}

	return report, nil
}

type fileOutcome struct {
	entities []domain.Entity
	parsed   bool
	failed   bool
}

// parseFiles parses every supported file, each independently: no shared
// mutable state between parsers, outcomes aggregated only after each parse
// completes.
func (uc *IndexRepositoryUseCase) parseFiles(
	ctx context.Context,
	repo *domain.Repository,
	files []string,
) ([]domain.Entity, domain.IngestReport) {
	outcomes := make([]fileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.parallelism)
	for i, relPath := range files {
		i, relPath := i, relPath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			outcomes[i] = uc.parseOne(repo, relPath)
			return nil
		})
	}
	// Workers never return errors; per-file failures are outcomes.
	_ = g.Wait()

	report := domain.IngestReport{FilesSeen: len(files)}
	var entities []domain.Entity
	for _, outcome := range outcomes {
		switch {
		case outcome.failed:
			report.FilesFailed++
		case outcome.parsed:
			report.FilesParsed++
			entities = append(entities, outcome.entities...)
		default:
			report.FilesSkipped++
		}
	}
	report.EntityCount = len(entities)
	return entities, report
}

func (uc *IndexRepositoryUseCase) parseOne(repo *domain.Repository, relPath string) fileOutcome {
	p, ok := uc.registry.Resolve(relPath)
	if !ok {
		slog.Debug("file_skipped", "repo_id", repo.ID, "path", relPath, "reason", "no parser for extension")
		return fileOutcome{}
	}

	absPath := filepath.Join(repo.SourcePath, relPath)
	entities, err := p.Parse(absPath)
	if err != nil {
		// Recoverable by contract: malformed input skips the file only.
		slog.Debug("file_parse_failed", "repo_id", repo.ID, "path", relPath, "error", err)
		return fileOutcome{failed: true}
	}
	if len(entities) == 0 {
		return fileOutcome{}
	}

	deps, err := p.ExtractDependencies(absPath)
	if err != nil {
		deps = nil
	}

	kept := entities[:0]
	for _, e := range entities {
		e.FilePath = relPath
		e.Dependencies = deps
		if err := e.Validate(); err != nil {
			slog.Debug("entity_dropped", "repo_id", repo.ID, "path", relPath, "error", err)
			continue
		}
		kept = append(kept, e)
	}
	return fileOutcome{entities: kept, parsed: true}
}

func (uc *IndexRepositoryUseCase) embedEntities(
	ctx context.Context,
	entities []domain.Entity,
) ([][]float32, error) {
	vectors := make([][]float32, 0, len(entities))
	for start := 0; start < len(entities); start += uc.embedBatchSize {
		end := start + uc.embedBatchSize
		if end > len(entities) {
			end = len(entities)
		}

		texts := make([]string, 0, end-start)
		for _, e := range entities[start:end] {
			texts = append(texts, embeddingText(e))
		}

		batch, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"embed entities",
				fmt.Errorf("vectors/texts mismatch: %d/%d", len(batch), len(texts)),
			)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embeddingText combines the identifying fields so the vector captures both
// the name and its surrounding code.
func embeddingText(e domain.Entity) string {
	parts := []string{e.Name}
	if e.Docstring != "" {
		parts = append(parts, e.Docstring)
	}
	if e.Snippet != "" {
		parts = append(parts, e.Snippet)
	}
	return strings.Join(parts, "\n")
}
