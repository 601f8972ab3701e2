package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vosbek/docxp/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server. Only the embedding surface is used;
// ranking never calls a generation model.
type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
}

func New(baseURL, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Embedder satisfies ports.Embedder. Requests pass through a rate limiter
// and the retry/breaker executor; ingestion batches would otherwise saturate
// the model server.
type Embedder struct {
	client   *Client
	executor *resilience.Executor
	limiter  *rate.Limiter
}

func NewEmbedder(client *Client, executor *resilience.Executor, requestsPerSecond float64) *Embedder {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &Embedder{
		client:   client,
		executor: executor,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.executor.Execute(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed texts", err)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}
