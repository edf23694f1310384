// Package index builds the read-only corpus statistics shared by the
// scorers: per-document term frequencies and lengths, per-term document
// frequencies, collection size and average document length.
package index

import (
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

// Index holds the statistics of one document collection. Documents are
// addressed by ordinal, their position in the slice passed to Build. An
// Index is never mutated after Build returns and is safe for concurrent use.
type Index struct {
	normalizer  *tokenizer.Normalizer
	termFreqs   []map[string]int
	docLens     []int
	docFreqs    map[string]int
	vocabulary  []string
	totalTokens int
	avgDocLen   float64
}

// Build indexes texts with the default normalizer.
func Build(texts []string) (*Index, error) {
	return BuildWith(tokenizer.Default(), texts)
}

// BuildWith indexes texts with normalizer. It returns ErrEmptyCollection
// when texts is empty, because the average document length is undefined.
func BuildWith(normalizer *tokenizer.Normalizer, texts []string) (*Index, error) {
	if len(texts) == 0 {
		return nil, apperrors.New(apperrors.ErrEmptyCollection, http.StatusUnprocessableEntity,
			"cannot build an index without documents")
	}
	if normalizer == nil {
		normalizer = tokenizer.Default()
	}
	ix := &Index{
		normalizer: normalizer,
		termFreqs:  make([]map[string]int, len(texts)),
		docLens:    make([]int, len(texts)),
		docFreqs:   make(map[string]int),
	}
	for i, text := range texts {
		tokens := normalizer.Normalize(text)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for term := range tf {
			ix.docFreqs[term]++
		}
		ix.termFreqs[i] = tf
		ix.docLens[i] = len(tokens)
		ix.totalTokens += len(tokens)
	}
	ix.avgDocLen = float64(ix.totalTokens) / float64(len(texts))
	ix.vocabulary = slices.Sorted(maps.Keys(ix.docFreqs))

	slog.Debug("corpus index built",
		"component", "index",
		"docs", len(texts),
		"terms", len(ix.vocabulary),
		"tokens", ix.totalTokens,
		"avg_doc_len", ix.avgDocLen,
	)
	return ix, nil
}

// Normalizer returns the normalizer the index was built with. Queries must
// be processed with it.
func (ix *Index) Normalizer() *tokenizer.Normalizer {
	return ix.normalizer
}

// N is the number of documents.
func (ix *Index) N() int {
	return len(ix.docLens)
}

// AvgDocLen is the mean token count per document.
func (ix *Index) AvgDocLen() float64 {
	return ix.avgDocLen
}

// TotalTokens is the token count summed over all documents.
func (ix *Index) TotalTokens() int {
	return ix.totalTokens
}

// DocLen is the token count of document i.
func (ix *Index) DocLen(i int) int {
	return ix.docLens[i]
}

// TF is the number of occurrences of term in document i.
func (ix *Index) TF(i int, term string) int {
	return ix.termFreqs[i][term]
}

// TermFreqs iterates the distinct terms of document i with their counts, in
// no particular order.
func (ix *Index) TermFreqs(i int) iter.Seq2[string, int] {
	return maps.All(ix.termFreqs[i])
}

// DistinctTerms is the number of distinct terms in document i.
func (ix *Index) DistinctTerms(i int) int {
	return len(ix.termFreqs[i])
}

// DF is the number of documents containing term; 0 for unknown terms.
func (ix *Index) DF(term string) int {
	return ix.docFreqs[term]
}

// Vocabulary returns the lexicographically sorted terms of the collection.
// The returned slice is a copy.
func (ix *Index) Vocabulary() []string {
	return slices.Clone(ix.vocabulary)
}

// VocabularySize is the number of distinct terms in the collection.
func (ix *Index) VocabularySize() int {
	return len(ix.vocabulary)
}

// String summarises the index for logs.
func (ix *Index) String() string {
	return fmt.Sprintf("index{docs=%d terms=%d avg_len=%.2f}", ix.N(), len(ix.vocabulary), ix.avgDocLen)
}
