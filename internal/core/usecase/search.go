package usecase

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vosbek/docxp/internal/core/domain"
	"github.com/vosbek/docxp/internal/core/ports"
)

const (
	lexicalOverFetchFactor = 5
	lexicalOverFetchFloor  = 50
	vectorOverFetchFactor  = 10
	vectorOverFetchFloor   = 100

	searchCacheSize = 1000
	searchCacheTTL  = 10 * time.Minute
)

// SearchUseCase orchestrates one hybrid search: both signals are queried
// concurrently under the same scope, a failed or timed-out signal degrades
// to an empty list, and the fusion engine merges whatever arrived.
type SearchUseCase struct {
	embedder ports.Embedder
	lexical  ports.LexicalSearcher
	vector   ports.VectorIndex
	params   FusionParams
	timeout  time.Duration

	cache *lru.Cache[[32]byte, cachedSearch]
}

type cachedSearch struct {
	results   []domain.FusedResult
	expiresAt time.Time
}

func NewSearchUseCase(
	embedder ports.Embedder,
	lexical ports.LexicalSearcher,
	vector ports.VectorIndex,
	params FusionParams,
	timeout time.Duration,
) (*SearchUseCase, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cache, err := lru.New[[32]byte, cachedSearch](searchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create search cache: %w", err)
	}
	return &SearchUseCase{
		embedder: embedder,
		lexical:  lexical,
		vector:   vector,
		params:   params,
		timeout:  timeout,
		cache:    cache,
	}, nil
}

func (uc *SearchUseCase) Search(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	topN int,
) ([]domain.FusedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("query is empty"))
	}
	if scope.RepoID == "" || scope.Commit == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("scope requires repo_id and commit"))
	}

	params := uc.params
	if topN > 0 {
		params.TopN = topN
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := searchCacheKey(query, scope, params.TopN)
	if entry, ok := uc.cache.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return entry.results, nil
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	lexicalCh := make(chan signalResult, 1)
	vectorCh := make(chan signalResult, 1)
	go uc.runLexical(ctx, query, scope, params.TopN, lexicalCh)
	go uc.runVector(ctx, query, scope, params.TopN, vectorCh)

	// Both sends are unconditional on buffered channels, so a signal that
	// exceeds the deadline still delivers its ctx error as that signal's
	// failure instead of failing the whole request.
	var lexicalRes, vectorRes signalResult
	var lexicalDone, vectorDone bool
	for !lexicalDone || !vectorDone {
		select {
		case lexicalRes = <-lexicalCh:
			lexicalDone = true
		case vectorRes = <-vectorCh:
			vectorDone = true
		}
	}

	// One signal may fail; fusion degrades to single-signal ranking. Both
	// failing is a full failure.
	if lexicalRes.err != nil && vectorRes.err != nil {
		return nil, domain.WrapError(domain.ErrSignalUnavailable, "search",
			fmt.Errorf("both signals failed: lexical=%w, vector=%v", lexicalRes.err, vectorRes.err))
	}
	if lexicalRes.err != nil {
		slog.Warn("lexical_signal_degraded", "repo_id", scope.RepoID, "error", lexicalRes.err)
		lexicalRes.hits = nil
	}
	if vectorRes.err != nil {
		slog.Warn("vector_signal_degraded", "repo_id", scope.RepoID, "error", vectorRes.err)
		vectorRes.hits = nil
	}

	fused, err := FuseHits(lexicalRes.hits, vectorRes.hits, params)
	if err != nil {
		return nil, err
	}

	uc.cache.Add(key, cachedSearch{results: fused, expiresAt: time.Now().Add(searchCacheTTL)})
	return fused, nil
}

// InvalidateCache drops cached results after a re-index. The LRU has no
// per-scope filtering, so the whole cache is purged; re-indexing is rare
// enough that this is acceptable.
func (uc *SearchUseCase) InvalidateCache() {
	uc.cache.Purge()
}

type signalResult struct {
	hits []domain.IndexHit
	err  error
}

func (uc *SearchUseCase) runLexical(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	topN int,
	out chan<- signalResult,
) {
	var res signalResult
	res.hits, res.err = uc.lexical.Search(ctx, scope, query, lexicalFetchLimit(topN))
	out <- res
}

func (uc *SearchUseCase) runVector(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	topN int,
	out chan<- signalResult,
) {
	var res signalResult
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		res.err = fmt.Errorf("embed query: %w", err)
	} else {
		res.hits, res.err = uc.vector.Search(ctx, scope, queryVector, vectorFetchLimit(topN))
	}
	out <- res
}

// lexicalFetchLimit over-fetches so filtering and deduplication downstream
// cannot starve the fused top-N.
func lexicalFetchLimit(topN int) int {
	limit := lexicalOverFetchFactor * topN
	if limit < lexicalOverFetchFloor {
		limit = lexicalOverFetchFloor
	}
	return limit
}

// vectorFetchLimit over-fetches harder: the approximate-nearest-neighbor
// backend needs headroom to surface true top matches after filtering.
func vectorFetchLimit(topN int) int {
	limit := vectorOverFetchFactor * topN
	if limit < vectorOverFetchFloor {
		limit = vectorOverFetchFloor
	}
	return limit
}

func searchCacheKey(query string, scope domain.SearchScope, topN int) [32]byte {
	var b strings.Builder
	b.WriteString(query)
	b.WriteString("|")
	b.WriteString(scope.RepoID)
	b.WriteString("|")
	b.WriteString(scope.Commit)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d", topN)
	return sha256.Sum256([]byte(b.String()))
}
