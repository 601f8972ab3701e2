package httpadapter

import "github.com/vosbek/docxp/internal/core/domain"

type searchRequest struct {
	Query  string `json:"query"`
	RepoID string `json:"repo_id"`
	Commit string `json:"commit"`
	TopN   int    `json:"top_n"`
}

func (r searchRequest) scope() domain.SearchScope {
	return domain.SearchScope{RepoID: r.RepoID, Commit: r.Commit}
}

type searchResponse struct {
	Query   string               `json:"query"`
	RepoID  string               `json:"repo_id"`
	Commit  string               `json:"commit"`
	Results []domain.FusedResult `json:"results"`
}
