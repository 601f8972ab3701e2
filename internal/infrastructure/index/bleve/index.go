package bleveindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/vosbek/docxp/internal/core/domain"
)

const (
	fieldContent  = "content"
	fieldName     = "name"
	fieldRepoID   = "repo_id"
	fieldCommit   = "commit"
	fieldPath     = "path"
	fieldStart    = "start"
	fieldEnd      = "end"
	fieldKind     = "kind"
	fieldLanguage = "language"

	indexBatchSize = 100
	// deleteScanSize bounds one supersede scan; scopes larger than this are
	// drained over multiple rounds.
	deleteScanSize = 1000

	nameBoost = 3.0
)

// entityDoc is the record stored per entity in the Bleve index.
type entityDoc struct {
	Content  string `json:"content"`
	Name     string `json:"name"`
	RepoID   string `json:"repo_id"`
	Commit   string `json:"commit"`
	Path     string `json:"path"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Kind     string `json:"kind"`
	Language string `json:"language"`
}

// Index is the lexical (term-match) search surface backed by a Bleve index.
// It satisfies ports.LexicalIndex.
type Index struct {
	idx bleve.Index
}

// Open opens or creates an on-disk index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{idx: idx}, nil
	}
	idx, err = bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// OpenInMemory builds an index with no persistence, used by tests.
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create in-memory lexical index: %w", err)
	}
	return &Index{idx: idx}, nil
}

func (i *Index) Close() error {
	return i.idx.Close()
}

func buildMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	docMapping.AddFieldMappingsAt(fieldContent, contentField)

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true
	docMapping.AddFieldMappingsAt(fieldName, nameField)

	for _, name := range []string{fieldRepoID, fieldCommit, fieldPath, fieldKind, fieldLanguage} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		docMapping.AddFieldMappingsAt(name, field)
	}

	for _, name := range []string{fieldStart, fieldEnd} {
		field := bleve.NewNumericFieldMapping()
		field.Store = true
		field.Index = false
		docMapping.AddFieldMappingsAt(name, field)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

func (i *Index) IndexEntities(ctx context.Context, scope domain.SearchScope, entities []domain.Entity) error {
	batch := i.idx.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := i.idx.Batch(batch); err != nil {
			return fmt.Errorf("commit lexical batch: %w", err)
		}
		batch = i.idx.NewBatch()
		return nil
	}

	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := entityDoc{
			Content:  e.Name + "\n" + e.Docstring + "\n" + e.Snippet,
			Name:     e.Name,
			RepoID:   scope.RepoID,
			Commit:   scope.Commit,
			Path:     e.FilePath,
			Start:    e.LineNumber,
			End:      e.EndLine,
			Kind:     string(e.Kind),
			Language: e.Language,
		}
		if err := batch.Index(entityID(scope, e), doc); err != nil {
			return fmt.Errorf("add entity to lexical batch: %w", err)
		}
		if batch.Size() >= indexBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (i *Index) Search(ctx context.Context, scope domain.SearchScope, queryText string, limit int) ([]domain.IndexHit, error) {
	if limit <= 0 {
		limit = 10
	}

	contentQuery := bleve.NewMatchQuery(queryText)
	contentQuery.SetField(fieldContent)

	nameQuery := bleve.NewMatchQuery(queryText)
	nameQuery.SetField(fieldName)
	nameQuery.SetBoost(nameBoost)

	searchQuery := bleve.NewConjunctionQuery(
		bleve.NewDisjunctionQuery(contentQuery, nameQuery),
		scopeTermQuery(fieldRepoID, scope.RepoID),
		scopeTermQuery(fieldCommit, scope.Commit),
	)

	req := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	req.Fields = []string{fieldPath, fieldStart, fieldEnd, fieldCommit, fieldRepoID, fieldName, fieldKind, fieldLanguage, fieldContent}
	// Equal scores fall back to the document id so rank assignment stays
	// deterministic across identical queries.
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]domain.IndexHit, 0, len(res.Hits))
	for rank, hit := range res.Hits {
		hits = append(hits, domain.IndexHit{
			ID:    hit.ID,
			Rank:  rank + 1,
			Score: hit.Score,
			Payload: domain.HitPayload{
				RepoID:   fieldString(hit.Fields, fieldRepoID),
				Commit:   fieldString(hit.Fields, fieldCommit),
				Path:     fieldString(hit.Fields, fieldPath),
				Start:    fieldInt(hit.Fields, fieldStart),
				End:      fieldInt(hit.Fields, fieldEnd),
				Name:     fieldString(hit.Fields, fieldName),
				Kind:     domain.EntityKind(fieldString(hit.Fields, fieldKind)),
				Language: fieldString(hit.Fields, fieldLanguage),
				Text:     fieldString(hit.Fields, fieldContent),
			},
		})
	}
	return hits, nil
}

// DeleteScope removes every document indexed under the scope, superseding a
// previous ingestion pass.
func (i *Index) DeleteScope(ctx context.Context, scope domain.SearchScope) error {
	scopeQuery := bleve.NewConjunctionQuery(
		scopeTermQuery(fieldRepoID, scope.RepoID),
		scopeTermQuery(fieldCommit, scope.Commit),
	)

	for {
		req := bleve.NewSearchRequestOptions(scopeQuery, deleteScanSize, 0, false)
		res, err := i.idx.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("scan scope for delete: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := i.idx.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := i.idx.Batch(batch); err != nil {
			return fmt.Errorf("delete scope batch: %w", err)
		}
		if len(res.Hits) < deleteScanSize {
			return nil
		}
	}
}

func scopeTermQuery(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

func entityID(scope domain.SearchScope, e domain.Entity) string {
	return scope.RepoID + ":" + e.FilePath + ":" + strconv.Itoa(e.LineNumber) + ":" + strconv.Itoa(e.EndLine)
}

func fieldString(fields map[string]interface{}, name string) string {
	v, _ := fields[name].(string)
	return v
}

func fieldInt(fields map[string]interface{}, name string) int {
	switch v := fields[name].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
