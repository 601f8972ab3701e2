package domain

// SearchScope pins a query to one repository at one revision. Both index
// backends must filter by the same scope; the fusion engine assumes its two
// input lists were produced under an identical scope.
type SearchScope struct {
	RepoID string `json:"repo_id"`
	Commit string `json:"commit"`
}

// HitPayload carries the citation-bearing metadata stored alongside an
// indexed entity. Fields absent from a backend's stored record stay zero.
type HitPayload struct {
	RepoID   string            `json:"repo_id"`
	Commit   string            `json:"commit"`
	Path     string            `json:"path"`
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Name     string            `json:"name,omitempty"`
	Kind     EntityKind        `json:"kind,omitempty"`
	Language string            `json:"language,omitempty"`
	Text     string            `json:"text,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// IndexHit is a single scored match from one index backend. Rank is the
// 1-based position in that backend's own ordering; Score is the backend's raw
// engine score and is never compared across backends.
type IndexHit struct {
	ID      string     `json:"id"`
	Rank    int        `json:"rank"`
	Score   float64    `json:"score"`
	Payload HitPayload `json:"payload"`
}

// Citation is the minimal provenance tuple that lets a result be traced back
// to source without re-querying an index.
type Citation struct {
	Path   string `json:"path"`
	Start  int    `json:"start,omitempty"`
	End    int    `json:"end,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// FusedResult is a post-fusion record: one deduplicated id with its combined
// score, citation, and the backing payload it was projected from.
type FusedResult struct {
	ID         string     `json:"id"`
	FusedScore float64    `json:"fused_score"`
	Citation   Citation   `json:"citation"`
	Name       string     `json:"name,omitempty"`
	Kind       EntityKind `json:"kind,omitempty"`
	Language   string     `json:"language,omitempty"`
	Text       string     `json:"text,omitempty"`
}

// CitationOf projects the citation tuple out of a payload. Missing fields
// become zero values, never an error.
func CitationOf(p HitPayload) Citation {
	return Citation{
		Path:   p.Path,
		Start:  p.Start,
		End:    p.End,
		Commit: p.Commit,
	}
}
