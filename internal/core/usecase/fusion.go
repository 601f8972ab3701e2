package usecase

import (
	"fmt"
	"sort"

	"github.com/vosbek/docxp/internal/core/domain"
)

// FusionParams tunes weighted Reciprocal Rank Fusion. Lexical is weighted
// slightly above vector by default: exact-term matches on code identifiers
// are high-precision.
type FusionParams struct {
	K             int
	LexicalWeight float64
	VectorWeight  float64
	TopN          int
}

func DefaultFusionParams() FusionParams {
	return FusionParams{
		K:             60,
		LexicalWeight: 1.2,
		VectorWeight:  1.0,
		TopN:          10,
	}
}

// Validate rejects parameters fusion must never run with. K near zero would
// produce outsized scores for rank-1 hits; a weight of zero is legal and
// disables that signal without changing the algorithm shape.
func (p FusionParams) Validate() error {
	if p.K < 1 {
		return domain.WrapError(domain.ErrInvalidFusionParams, "validate fusion params",
			fmt.Errorf("k must be a positive integer, got %d", p.K))
	}
	if p.LexicalWeight < 0 {
		return domain.WrapError(domain.ErrInvalidFusionParams, "validate fusion params",
			fmt.Errorf("lexical weight must be non-negative, got %g", p.LexicalWeight))
	}
	if p.VectorWeight < 0 {
		return domain.WrapError(domain.ErrInvalidFusionParams, "validate fusion params",
			fmt.Errorf("vector weight must be non-negative, got %g", p.VectorWeight))
	}
	if p.TopN < 1 {
		return domain.WrapError(domain.ErrInvalidFusionParams, "validate fusion params",
			fmt.Errorf("top_n must be a positive integer, got %d", p.TopN))
	}
	return nil
}

type fusedCandidate struct {
	payload    domain.HitPayload
	hasPayload bool
	score      float64
}

// FuseHits merges the two independently ranked hit lists into one ordered,
// deduplicated list. Both inputs must have been produced under the same
// search scope; fusing across scopes is undefined and prevented upstream.
//
// Each candidate id scores weight/(k+rank) per list it appears in, using the
// 1-based position in that list. Ids present in only one list stay eligible;
// fusion never drops single-signal hits. The backing payload prefers the
// lexical record when both lists carry the id. Ordering is score descending
// with a deterministic id tie-break, truncated to TopN.
//
// FuseHits is a pure function: no I/O, no shared state, and an empty result
// (not an error) when both inputs are empty.
func FuseHits(lexical, vector []domain.IndexHit, params FusionParams) ([]domain.FusedResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	acc := make(map[string]fusedCandidate, len(lexical)+len(vector))

	for rank, hit := range lexical {
		candidate := acc[hit.ID]
		candidate.payload = hit.Payload
		candidate.hasPayload = true
		candidate.score += params.LexicalWeight / float64(params.K+rank+1)
		acc[hit.ID] = candidate
	}
	for rank, hit := range vector {
		candidate := acc[hit.ID]
		if !candidate.hasPayload {
			candidate.payload = hit.Payload
			candidate.hasPayload = true
		}
		candidate.score += params.VectorWeight / float64(params.K+rank+1)
		acc[hit.ID] = candidate
	}

	out := make([]domain.FusedResult, 0, len(acc))
	for id, candidate := range acc {
		out = append(out, domain.FusedResult{
			ID:         id,
			FusedScore: candidate.score,
			Citation:   domain.CitationOf(candidate.payload),
			Name:       candidate.payload.Name,
			Kind:       candidate.payload.Kind,
			Language:   candidate.payload.Language,
			Text:       candidate.payload.Text,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > params.TopN {
		out = out[:params.TopN]
	}
	return out, nil
}
