package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vosbek/docxp/internal/infrastructure/resilience"
)

// Queue carries repository lifecycle events between the API and the indexing
// workers. Messages hold the repository id; all state lives in the store.
// Ingested events are work items consumed by one worker each; indexed events
// fan out to every serving process so each can drop stale cached results.
type Queue struct {
	conn           *nats.Conn
	ingestSubject  string
	indexedSubject string
	executor       *resilience.Executor
}

func New(url, ingestSubject, indexedSubject string) (*Queue, error) {
	return NewWithOptions(url, ingestSubject, indexedSubject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func NewWithOptions(url, ingestSubject, indexedSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docxp"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		ingestSubject:  ingestSubject,
		indexedSubject: indexedSubject,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishRepositoryIngested(ctx context.Context, repoID string) error {
	return q.publish(ctx, q.ingestSubject, "nats.publish_ingested", repoID)
}

func (q *Queue) PublishRepositoryIndexed(ctx context.Context, repoID string) error {
	return q.publish(ctx, q.indexedSubject, "nats.publish_indexed", repoID)
}

func (q *Queue) publish(ctx context.Context, subject, operation, repoID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, []byte(repoID)); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeRepositoryIngested joins the indexers queue group so only one
// worker picks up each repository, and blocks until ctx is cancelled.
func (q *Queue) SubscribeRepositoryIngested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.ingestSubject, "indexers", q.messageHandler(ctx, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", q.ingestSubject, err)
	}
	return q.runSubscription(ctx, sub)
}

// SubscribeRepositoryIndexed delivers every indexed event to every
// subscriber; no queue group, since each serving process keeps its own cache.
// Blocks until ctx is cancelled.
func (q *Queue) SubscribeRepositoryIndexed(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.Subscribe(q.indexedSubject, q.messageHandler(ctx, handler))
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", q.indexedSubject, err)
	}
	return q.runSubscription(ctx, sub)
}

func (q *Queue) messageHandler(ctx context.Context, handler func(context.Context, string) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			slog.Error("event_handler_failed", "subject", msg.Subject, "repo_id", string(msg.Data), "error", err)
		}
	}
}

func (q *Queue) runSubscription(ctx context.Context, sub *nats.Subscription) error {
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
