package lexicalhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vosbek/docxp/internal/core/domain"
	"github.com/vosbek/docxp/internal/core/ports"
)

// NewHandler serves lexical queries out of the process that owns the index.
// Mount it at SearchPath.
func NewHandler(index ports.LexicalSearcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.RepoID == "" || req.Commit == "" {
			http.Error(w, "repo_id and commit are required", http.StatusBadRequest)
			return
		}

		scope := domain.SearchScope{RepoID: req.RepoID, Commit: req.Commit}
		hits, err := index.Search(r.Context(), scope, req.Query, req.Limit)
		if err != nil {
			slog.Error("lexical_query_failed", "repo_id", req.RepoID, "error", err)
			http.Error(w, "lexical search failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(searchResponse{Hits: hits}); err != nil {
			slog.Error("lexical_query_encode_failed", "error", err)
		}
	})
}
