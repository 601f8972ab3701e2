package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vosbek/docxp/internal/core/ports"
	"github.com/vosbek/docxp/internal/observability/metrics"
)

type Router struct {
	registrar ports.RepositoryRegistrar
	reader    ports.RepositoryReader
	searcher  ports.CodeSearcher
	metrics   *metrics.HTTPServerMetrics
	service   string
}

func NewRouter(
	registrar ports.RepositoryRegistrar,
	reader ports.RepositoryReader,
	searcher ports.CodeSearcher,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		registrar: registrar,
		reader:    reader,
		searcher:  searcher,
		metrics:   httpMetrics,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/repositories", rt.registerRepository)
	mux.HandleFunc("/v1/repositories/", rt.getRepositoryByID)
	mux.HandleFunc("/v1/search", rt.search)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) registerRepository(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Name       string `json:"name"`
		SourcePath string `json:"source_path"`
		Commit     string `json:"commit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	repo, err := rt.registrar.Register(r.Context(), req.Name, req.SourcePath, req.Commit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, repo)
}

func (rt *Router) getRepositoryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/repositories/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "repository id is required"})
		return
	}

	repo, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	results, err := rt.searcher.Search(r.Context(), req.Query, req.scope(), req.TopN)
	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, len(results), time.Since(start), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   req.Query,
		RepoID:  req.RepoID,
		Commit:  req.Commit,
		Results: results,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
