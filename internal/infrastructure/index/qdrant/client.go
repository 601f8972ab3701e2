package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vosbek/docxp/internal/core/domain"
)

// Client is the vector (nearest-neighbor) search surface backed by a Qdrant
// collection over its HTTP API. It satisfies ports.VectorIndex.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) IndexEntities(
	ctx context.Context,
	scope domain.SearchScope,
	entities []domain.Entity,
	vectors [][]float32,
) error {
	if len(entities) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(entities) != len(vectors) {
		return fmt.Errorf("entities/vectors mismatch: %d/%d", len(entities), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(entities))
	for i, e := range entities {
		points = append(points, point{
			ID:     deterministicPointID(scope, e),
			Vector: vectors[i],
			Payload: map[string]any{
				"entity_id": entityID(scope, e),
				"repo_id":   scope.RepoID,
				"commit":    scope.Commit,
				"path":      e.FilePath,
				"start":     e.LineNumber,
				"end":       e.EndLine,
				"name":      e.Name,
				"kind":      string(e.Kind),
				"language":  e.Language,
				"text":      e.Snippet,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) Search(
	ctx context.Context,
	scope domain.SearchScope,
	queryVector []float32,
	limit int,
) ([]domain.IndexHit, error) {
	if limit <= 0 {
		limit = 10
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"filter":       scopeFilter(scope),
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.doJSON(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	// The server orders equal scores arbitrarily; re-sort with an id
	// tie-break so rank assignment stays deterministic across identical
	// queries.
	results := searchResp.Result
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return payloadString(results[a].Payload, "entity_id") < payloadString(results[b].Payload, "entity_id")
	})

	hits := make([]domain.IndexHit, 0, len(results))
	for rank, r := range results {
		hits = append(hits, domain.IndexHit{
			ID:    payloadString(r.Payload, "entity_id"),
			Rank:  rank + 1,
			Score: r.Score,
			Payload: domain.HitPayload{
				RepoID:   payloadString(r.Payload, "repo_id"),
				Commit:   payloadString(r.Payload, "commit"),
				Path:     payloadString(r.Payload, "path"),
				Start:    payloadInt(r.Payload, "start"),
				End:      payloadInt(r.Payload, "end"),
				Name:     payloadString(r.Payload, "name"),
				Kind:     domain.EntityKind(payloadString(r.Payload, "kind")),
				Language: payloadString(r.Payload, "language"),
				Text:     payloadString(r.Payload, "text"),
			},
		})
	}
	return hits, nil
}

// DeleteScope removes every point indexed under the scope.
func (c *Client) DeleteScope(ctx context.Context, scope domain.SearchScope) error {
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	return c.doJSON(ctx, http.MethodPost, url, map[string]any{"filter": scopeFilter(scope)}, nil, "delete scope")
}

func scopeFilter(scope domain.SearchScope) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "repo_id", "match": map[string]any{"value": scope.RepoID}},
			{"key": "commit", "match": map[string]any{"value": scope.Commit}},
		},
	}
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.doJSON(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")
	if err != nil {
		// 409: the collection already exists (depends on server version).
		var statusErr *httpStatusError
		if asStatusError(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			c.markCollectionEnsured(vectorSize)
			return nil
		}
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &httpStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

func entityID(scope domain.SearchScope, e domain.Entity) string {
	return scope.RepoID + ":" + e.FilePath + ":" + strconv.Itoa(e.LineNumber) + ":" + strconv.Itoa(e.EndLine)
}
