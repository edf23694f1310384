// Package ranker scores every document of an index against a free-text
// query. Two models are provided: a TF-IDF vector space model with cosine
// similarity and Okapi BM25. Scorers are immutable after construction and
// allocate a fresh score array per query, so one Scorer may serve concurrent
// searches.
package ranker

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

const (
	ModelVSM  = "vsm"
	ModelBM25 = "bm25"
)

// Result is the outcome of one search. Ranked holds document ordinals,
// best first, truncated to the requested size. Scores holds the score of
// every document, indexed by ordinal.
type Result struct {
	Ranked []int
	Scores []float64
}

// Scorer ranks the documents of the index it was built from.
type Scorer interface {
	// Name is the model key, ModelVSM or ModelBM25.
	Name() string
	// Search scores query against every document and returns the topK best
	// ordinals. topK <= 0 or topK > N returns all N ordinals.
	Search(query string, topK int) Result
}

// Config selects and parameterises a model. K1 and B are ignored by VSM.
type Config struct {
	Model string  `json:"model" yaml:"model"`
	K1    float64 `json:"k1" yaml:"k1"`
	B     float64 `json:"b" yaml:"b"`
}

// Key identifies the scorer Config builds, for caching. Configurations
// producing identical scorers share a key.
func (c Config) Key() string {
	model := strings.ToLower(c.Model)
	if model == ModelBM25 {
		return fmt.Sprintf("%s|k1=%s|b=%s", model,
			strconv.FormatFloat(c.K1, 'g', -1, 64),
			strconv.FormatFloat(c.B, 'g', -1, 64))
	}
	return model
}

// New builds the scorer cfg names over ix.
func New(ix *index.Index, cfg Config) (Scorer, error) {
	switch strings.ToLower(cfg.Model) {
	case ModelVSM:
		return NewVSM(ix), nil
	case ModelBM25:
		return NewBM25(ix, Params{K1: cfg.K1, B: cfg.B})
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownModel, http.StatusBadRequest,
			"model %q (want %q or %q)", cfg.Model, ModelVSM, ModelBM25)
	}
}

// Models lists the supported model keys.
func Models() []string {
	return []string{ModelVSM, ModelBM25}
}

// rank orders ordinals by score, highest first. Equal scores keep ordinal
// order.
func rank(scores []float64, topK int) []int {
	ordinals := make([]int, len(scores))
	for i := range ordinals {
		ordinals[i] = i
	}
	slices.SortStableFunc(ordinals, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	if topK > 0 && topK < len(ordinals) {
		ordinals = ordinals[:topK]
	}
	return ordinals
}

// queryTerms returns the distinct tokens of query in first-occurrence order
// together with their counts.
func queryTerms(ix *index.Index, query string) ([]string, map[string]int) {
	tokens := ix.Normalizer().Normalize(query)
	counts := make(map[string]int, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if counts[token] == 0 {
			terms = append(terms, token)
		}
		counts[token]++
	}
	return terms, counts
}
