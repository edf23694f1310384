package ranker

import (
	"log/slog"
	"math"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/index"
)

// VSM is a vector space model. Each document is a unit-length TF-IDF vector
// over the sorted vocabulary, with sublinear term frequency (1 + ln tf) and
// smoothed IDF ln(N / (df + 1)) + 1. Queries are embedded the same way using
// the collection's IDF and scored by dot product, which equals cosine
// similarity for unit vectors.
type VSM struct {
	ix         *index.Index
	position   map[string]int
	idf        []float64
	docVectors [][]float64
}

// NewVSM computes the document vectors of ix.
func NewVSM(ix *index.Index) *VSM {
	vocabulary := ix.Vocabulary()
	v := &VSM{
		ix:         ix,
		position:   make(map[string]int, len(vocabulary)),
		idf:        make([]float64, len(vocabulary)),
		docVectors: make([][]float64, ix.N()),
	}
	n := float64(ix.N())
	for pos, term := range vocabulary {
		v.position[term] = pos
		v.idf[pos] = math.Log(n/float64(ix.DF(term)+1)) + 1
	}
	for i := range v.docVectors {
		vec := make([]float64, len(vocabulary))
		for term, tf := range ix.TermFreqs(i) {
			pos := v.position[term]
			vec[pos] = tfWeight(tf) * v.idf[pos]
		}
		normalizeDense(vec)
		v.docVectors[i] = vec
	}
	slog.Debug("vsm scorer built", "component", "ranker", "docs", ix.N(), "dimensions", len(vocabulary))
	return v
}

func (v *VSM) Name() string {
	return ModelVSM
}

// Search implements Scorer. Query terms outside the vocabulary are ignored.
func (v *VSM) Search(query string, topK int) Result {
	positions, weights := v.queryVector(query)
	scores := make([]float64, len(v.docVectors))
	if len(positions) > 0 {
		for i, doc := range v.docVectors {
			var dot float64
			for k, pos := range positions {
				dot += weights[k] * doc[pos]
			}
			scores[i] = dot
		}
	}
	return Result{Ranked: rank(scores, topK), Scores: scores}
}

// DocVector returns a copy of the unit vector of document i.
func (v *VSM) DocVector(i int) []float64 {
	return slices.Clone(v.docVectors[i])
}

// Dimensions is the vocabulary size.
func (v *VSM) Dimensions() int {
	return len(v.idf)
}

// IDF returns the smoothed IDF of term and whether the term is in the
// vocabulary.
func (v *VSM) IDF(term string) (float64, bool) {
	pos, ok := v.position[term]
	if !ok {
		return 0, false
	}
	return v.idf[pos], true
}

// queryVector returns the non-zero components of the normalised query
// vector, ordered by vocabulary position.
func (v *VSM) queryVector(query string) ([]int, []float64) {
	_, counts := queryTerms(v.ix, query)
	tfAt := make(map[int]int, len(counts))
	positions := make([]int, 0, len(counts))
	for term, tf := range counts {
		if pos, ok := v.position[term]; ok {
			positions = append(positions, pos)
			tfAt[pos] = tf
		}
	}
	slices.Sort(positions)

	weights := make([]float64, len(positions))
	var sumSquares float64
	for k, pos := range positions {
		w := tfWeight(tfAt[pos]) * v.idf[pos]
		weights[k] = w
		sumSquares += w * w
	}
	if norm := math.Sqrt(sumSquares); norm != 0 {
		for k := range weights {
			weights[k] /= norm
		}
	}
	return positions, weights
}

func tfWeight(tf int) float64 {
	if tf <= 0 {
		return 0
	}
	return 1 + math.Log(float64(tf))
}

// normalizeDense scales vec to unit length in place. The zero vector is left
// unchanged.
func normalizeDense(vec []float64) {
	var sumSquares float64
	for _, x := range vec {
		sumSquares += x * x
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}
