package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vosbek/docxp/internal/bootstrap"
	"github.com/vosbek/docxp/internal/config"
	"github.com/vosbek/docxp/internal/core/ports"
	"github.com/vosbek/docxp/internal/infrastructure/index/lexicalhttp"
	"github.com/vosbek/docxp/internal/observability/logging"
	"github.com/vosbek/docxp/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	opsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: opsHandler(workerMetrics, app.Lexical),
	}
	go func() {
		slog.Info("worker_ops_listening", "port", cfg.WorkerMetricsPort)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRepositoryIngested(ctx, func(handlerCtx context.Context, repoID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		if repo, err := app.Store.GetByID(indexCtx, repoID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(repo.CreatedAt))
		}

		workerMetrics.StartIndexing()
		start := time.Now()
		indexErr := app.IndexUC.IndexByID(indexCtx, repoID)
		workerMetrics.FinishIndexing("worker", time.Since(start), indexErr)

		if indexErr == nil {
			if repo, err := app.Store.GetByID(indexCtx, repoID); err == nil {
				workerMetrics.RecordIngestReport("worker", repo.Report)
			}
		}
		return indexErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

// opsHandler serves metrics, health, and the internal lexical query endpoint.
// This process owns the lexical index files, so the API queries through here.
func opsHandler(m *metrics.WorkerMetrics, lexical ports.LexicalSearcher) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle(lexicalhttp.SearchPath, lexicalhttp.NewHandler(lexical))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
