package ranker

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

// Params are the BM25 tuning knobs. K1 controls term-frequency saturation
// and B the strength of document-length normalisation.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns k1 = 1.5, b = 0.75.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75}
}

// Validate rejects k1 < 0, b outside [0, 1] and non-finite values.
func (p Params) Validate() error {
	if math.IsNaN(p.K1) || math.IsInf(p.K1, 0) || p.K1 < 0 {
		return apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "k1 must be a finite value >= 0, got %v", p.K1)
	}
	if math.IsNaN(p.B) || p.B < 0 || p.B > 1 {
		return apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "b must be within [0, 1], got %v", p.B)
	}
	return nil
}

// BM25 is the Okapi BM25 model. It keeps no per-document vectors; scores are
// computed from the index statistics at query time.
type BM25 struct {
	ix     *index.Index
	params Params
}

// NewBM25 returns a BM25 scorer over ix.
func NewBM25(ix *index.Index, params Params) (*BM25, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("bm25 scorer built", "component", "ranker", "docs", ix.N(), "k1", params.K1, "b", params.B)
	return &BM25{ix: ix, params: params}, nil
}

func (bm *BM25) Name() string {
	return ModelBM25
}

// Params returns the tuning parameters.
func (bm *BM25) Params() Params {
	return bm.params
}

// IDF is ln(1 + (N - df + 0.5) / (df + 0.5)), or 0 for terms outside the
// vocabulary.
func (bm *BM25) IDF(term string) float64 {
	df := bm.ix.DF(term)
	if df == 0 {
		return 0
	}
	n := float64(bm.ix.N())
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// Search implements Scorer. Each distinct query term contributes once per
// document that contains it; absent terms contribute nothing.
func (bm *BM25) Search(query string, topK int) Result {
	terms, _ := queryTerms(bm.ix, query)
	type weighted struct {
		term string
		idf  float64
	}
	active := make([]weighted, 0, len(terms))
	for _, term := range terms {
		if idf := bm.IDF(term); idf != 0 {
			active = append(active, weighted{term: term, idf: idf})
		}
	}

	scores := make([]float64, bm.ix.N())
	if len(active) > 0 {
		for i := range scores {
			var score float64
			for _, w := range active {
				tf := bm.ix.TF(i, w.term)
				if tf == 0 {
					continue
				}
				score += w.idf * bm.termWeight(float64(tf), float64(bm.ix.DocLen(i)))
			}
			scores[i] = score
		}
	}
	return Result{Ranked: rank(scores, topK), Scores: scores}
}

// termWeight is the saturated, length-normalised term frequency
// tf * (k1 + 1) / (tf + k1 * (1 - b + b * docLen / avgDocLen)).
func (bm *BM25) termWeight(tf, docLen float64) float64 {
	k1, b := bm.params.K1, bm.params.B
	numerator := tf * (k1 + 1)
	denominator := tf + k1*(1-b+b*docLen/bm.ix.AvgDocLen())
	return numerator / denominator
}
