// Package lexicalhttp moves lexical queries across process boundaries. The
// on-disk lexical index takes an exclusive file lock, so the worker that
// writes it is its only owner; the API process queries it through this
// client against the endpoint the worker serves.
package lexicalhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vosbek/docxp/internal/core/domain"
)

// SearchPath is the internal query endpoint, mounted on the index owner's
// operational HTTP server.
const SearchPath = "/internal/lexical/search"

type searchRequest struct {
	RepoID string `json:"repo_id"`
	Commit string `json:"commit"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

type searchResponse struct {
	Hits []domain.IndexHit `json:"hits"`
}

// Client queries a remote lexical index. It satisfies ports.LexicalSearcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	scope domain.SearchScope,
	queryText string,
	limit int,
) ([]domain.IndexHit, error) {
	body, err := json.Marshal(searchRequest{
		RepoID: scope.RepoID,
		Commit: scope.Commit,
		Query:  queryText,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal lexical query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SearchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create lexical query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lexical query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("lexical query: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode lexical query response: %w", err)
	}
	return out.Hits, nil
}
