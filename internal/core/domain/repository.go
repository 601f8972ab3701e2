package domain

import "time"

type RepositoryStatus string

const (
	StatusRegistered RepositoryStatus = "registered"
	StatusIndexing   RepositoryStatus = "indexing"
	StatusReady      RepositoryStatus = "ready"
	StatusFailed     RepositoryStatus = "failed"
)

// Repository is a registered source tree pinned to a single revision.
// Re-registering the same source at a new commit produces a new ingestion
// pass whose entities supersede the previous ones.
type Repository struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	SourcePath string           `json:"source_path"`
	Commit     string           `json:"commit"`
	Status     RepositoryStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	Report     IngestReport     `json:"report"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// IngestReport counts the outcome of one ingestion pass. Failures are
// reported, never fatal: a pass with failed files still completes.
type IngestReport struct {
	FilesSeen    int `json:"files_seen"`
	FilesParsed  int `json:"files_parsed"`
	FilesSkipped int `json:"files_skipped"`
	FilesFailed  int `json:"files_failed"`
	EntityCount  int `json:"entity_count"`
}

// Scope returns the search scope this repository's index entries live under.
func (r *Repository) Scope() SearchScope {
	return SearchScope{RepoID: r.ID, Commit: r.Commit}
}
