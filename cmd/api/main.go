package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/vosbek/docxp/internal/adapters/http"
	"github.com/vosbek/docxp/internal/bootstrap"
	"github.com/vosbek/docxp/internal/config"
	"github.com/vosbek/docxp/internal/observability/logging"
	"github.com/vosbek/docxp/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewAPI(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Re-indexed repositories invalidate cached search results in every API
	// instance; the event fans out rather than being load-balanced.
	go func() {
		err := app.Queue.SubscribeRepositoryIndexed(ctx, func(_ context.Context, repoID string) error {
			slog.Info("search_cache_invalidated", "repo_id", repoID)
			app.SearchUC.InvalidateCache()
			return nil
		})
		if err != nil {
			slog.Error("indexed_subscribe_failed", "error", err)
		}
	}()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.RegisterUC, app.Store, app.SearchUC, httpMetrics, "api").Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
