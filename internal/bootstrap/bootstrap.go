package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vosbek/docxp/internal/config"
	"github.com/vosbek/docxp/internal/core/ports"
	"github.com/vosbek/docxp/internal/core/usecase"
	"github.com/vosbek/docxp/internal/infrastructure/embedding/ollama"
	"github.com/vosbek/docxp/internal/infrastructure/graph/neo4j"
	bleveindex "github.com/vosbek/docxp/internal/infrastructure/index/bleve"
	"github.com/vosbek/docxp/internal/infrastructure/index/lexicalhttp"
	"github.com/vosbek/docxp/internal/infrastructure/index/qdrant"
	"github.com/vosbek/docxp/internal/infrastructure/queue/nats"
	"github.com/vosbek/docxp/internal/infrastructure/repository/postgres"
	"github.com/vosbek/docxp/internal/infrastructure/resilience"
	"github.com/vosbek/docxp/internal/infrastructure/source/localfs"
	"github.com/vosbek/docxp/internal/parser"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Store    ports.RepositoryStore
	Registry *parser.Registry
	// Lexical is populated only by NewWorker, the single owner of the
	// on-disk index files.
	Lexical ports.LexicalIndex

	RegisterUC *usecase.RegisterRepositoryUseCase
	IndexUC    *usecase.IndexRepositoryUseCase
	SearchUC   *usecase.SearchUseCase

	closeFn func()
}

type coreDeps struct {
	db       *sql.DB
	store    *postgres.RepositoryStore
	executor *resilience.Executor
	queue    *nats.Queue
}

func newCoreDeps(ctx context.Context, cfg config.Config) (coreDeps, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return coreDeps{}, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewRepositoryStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return coreDeps{}, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, cfg.NATSIndexedSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return coreDeps{}, fmt.Errorf("init message queue: %w", err)
	}

	return coreDeps{db: db, store: store, executor: executor, queue: queue}, nil
}

// NewAPI wires the request-serving process: registration, repository reads,
// and hybrid search. The lexical signal is queried over HTTP from the worker
// that owns the index files.
func NewAPI(ctx context.Context, cfg config.Config) (*App, error) {
	core, err := newCoreDeps(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder := ollama.NewEmbedder(
		ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel),
		core.executor,
		cfg.OllamaEmbedRatePerSec,
	)

	lexical := lexicalhttp.NewClient(cfg.LexicalSearchURL)
	vector := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	registerUC := usecase.NewRegisterRepositoryUseCase(core.store, core.queue)

	searchUC, err := usecase.NewSearchUseCase(
		embedder, lexical, vector,
		usecase.FusionParams{
			K:             cfg.FusionRRFK,
			LexicalWeight: cfg.FusionLexicalWeight,
			VectorWeight:  cfg.FusionVectorWeight,
			TopN:          cfg.SearchTopN,
		},
		time.Duration(cfg.SearchTimeoutSecs)*time.Second,
	)
	if err != nil {
		core.queue.Close()
		_ = core.db.Close()
		return nil, fmt.Errorf("init search: %w", err)
	}

	return &App{
		Config: cfg,
		Queue:  core.queue,
		Store:  core.store,

		RegisterUC: registerUC,
		SearchUC:   searchUC,

		closeFn: func() {
			core.queue.Close()
			_ = core.db.Close()
		},
	}, nil
}

// NewWorker wires the indexing process. It is the single owner of the
// on-disk lexical index and serves the internal query endpoint the API
// reads from.
func NewWorker(ctx context.Context, cfg config.Config) (*App, error) {
	core, err := newCoreDeps(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder := ollama.NewEmbedder(
		ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel),
		core.executor,
		cfg.OllamaEmbedRatePerSec,
	)

	lexical, err := bleveindex.Open(cfg.BleveIndexPath)
	if err != nil {
		core.queue.Close()
		_ = core.db.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	vector := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	graph, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		core.queue.Close()
		_ = lexical.Close()
		_ = core.db.Close()
		return nil, fmt.Errorf("init dependency graph: %w", err)
	}

	tree := localfs.New(cfg.MaxFileSizeBytes)
	registry := parser.DefaultRegistry()

	indexUC := usecase.NewIndexRepositoryUseCase(
		core.store, tree, registry, embedder, lexical, vector, graph, core.queue,
		cfg.WorkerParallelism, cfg.OllamaEmbedBatchSize,
	)

	return &App{
		Config:   cfg,
		Queue:    core.queue,
		Store:    core.store,
		Registry: registry,
		Lexical:  lexical,

		IndexUC: indexUC,

		closeFn: func() {
			core.queue.Close()
			_ = lexical.Close()
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = graph.Close(closeCtx)
			_ = core.db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
