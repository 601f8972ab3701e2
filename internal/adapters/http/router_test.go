package httpadapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vosbek/docxp/internal/core/domain"
)

type stubRegistrar struct {
	repo *domain.Repository
	err  error
}

func (s *stubRegistrar) Register(_ context.Context, name, sourcePath, commit string) (*domain.Repository, error) {
	if s.err != nil {
		return nil, s.err
	}
	repo := *s.repo
	repo.Name = name
	repo.SourcePath = sourcePath
	repo.Commit = commit
	return &repo, nil
}

type stubReader struct {
	repo *domain.Repository
	err  error
}

func (s *stubReader) GetByID(context.Context, string) (*domain.Repository, error) {
	return s.repo, s.err
}

type stubSearcher struct {
	results []domain.FusedResult
	err     error

	gotQuery string
	gotScope domain.SearchScope
	gotTopN  int
}

func (s *stubSearcher) Search(_ context.Context, query string, scope domain.SearchScope, topN int) ([]domain.FusedResult, error) {
	s.gotQuery = query
	s.gotScope = scope
	s.gotTopN = topN
	return s.results, s.err
}

func newTestRouter(registrar *stubRegistrar, reader *stubReader, searcher *stubSearcher) http.Handler {
	if registrar == nil {
		registrar = &stubRegistrar{repo: &domain.Repository{ID: "repo-1"}}
	}
	if reader == nil {
		reader = &stubReader{repo: &domain.Repository{ID: "repo-1"}}
	}
	if searcher == nil {
		searcher = &stubSearcher{}
	}
	return NewRouter(registrar, reader, searcher, nil, "api").Handler()
}

func TestRegisterRepositoryReturnsAccepted(t *testing.T) {
	now := time.Now().UTC()
	registrar := &stubRegistrar{repo: &domain.Repository{
		ID:        "repo-1",
		Status:    domain.StatusRegistered,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	handler := newTestRouter(registrar, nil, nil)

	body := `{"name":"payments","source_path":"/srv/checkouts/payments","commit":"abc123"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/repositories", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"repo-1"`) {
		t.Fatalf("expected repository in response, got %s", rec.Body.String())
	}
}

func TestRegisterRepositoryMapsInvalidInput(t *testing.T) {
	registrar := &stubRegistrar{err: domain.WrapError(domain.ErrInvalidInput, "register repository", fmt.Errorf("name is required"))}
	handler := newTestRouter(registrar, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/repositories", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRepositoryMapsNotFound(t *testing.T) {
	reader := &stubReader{err: domain.WrapError(domain.ErrRepositoryNotFound, "get repository", fmt.Errorf("id missing"))}
	handler := newTestRouter(nil, reader, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/repositories/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSearchPassesScopeAndTopN(t *testing.T) {
	searcher := &stubSearcher{results: []domain.FusedResult{
		{
			ID:         "repo-1:svc/a.py:10:20",
			FusedScore: 0.032,
			Citation:   domain.Citation{Path: "svc/a.py", Start: 10, End: 20, Commit: "abc123"},
			Name:       "handle_request",
		},
	}}
	handler := newTestRouter(nil, nil, searcher)

	body := `{"query":"http router","repo_id":"repo-1","commit":"abc123","top_n":5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if searcher.gotQuery != "http router" {
		t.Errorf("query not forwarded: %q", searcher.gotQuery)
	}
	if searcher.gotScope.RepoID != "repo-1" || searcher.gotScope.Commit != "abc123" {
		t.Errorf("scope not forwarded: %+v", searcher.gotScope)
	}
	if searcher.gotTopN != 5 {
		t.Errorf("top_n not forwarded: %d", searcher.gotTopN)
	}
	if !strings.Contains(rec.Body.String(), "svc/a.py") {
		t.Errorf("citation missing from response: %s", rec.Body.String())
	}
}

func TestSearchMapsSignalUnavailable(t *testing.T) {
	searcher := &stubSearcher{err: domain.WrapError(domain.ErrSignalUnavailable, "search", fmt.Errorf("both signals failed"))}
	handler := newTestRouter(nil, nil, searcher)

	body := `{"query":"x","repo_id":"repo-1","commit":"abc123"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSearchRejectsNonPost(t *testing.T) {
	handler := newTestRouter(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
}
