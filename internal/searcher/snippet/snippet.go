// Package snippet cuts a short, display-ready window out of a document
// around the first word that matches a query.
package snippet

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/tokenizer"
)

const (
	// Ellipsis marks text cut from a snippet.
	Ellipsis = "..."

	// DefaultMaxLength is the prefix length used when the query has no terms.
	DefaultMaxLength = 150

	leadingContext = 10
	windowWords    = 25
	fallbackWords  = 20
)

// Extractor matches words with the normalizer used for the index.
type Extractor struct {
	normalizer *tokenizer.Normalizer
}

// New returns an Extractor using normalizer, or the default normalizer when
// nil.
func New(normalizer *tokenizer.Normalizer) *Extractor {
	if normalizer == nil {
		normalizer = tokenizer.Default()
	}
	return &Extractor{normalizer: normalizer}
}

// Extract uses the default normalizer.
func Extract(query, text string, maxLength int) string {
	return New(nil).Extract(query, text, maxLength)
}

// Extract returns a window of text for query. Words keep their original
// casing and punctuation.
//
// A query without terms yields the first maxLength characters. When no word
// matches, the first 20 words are returned. Otherwise the window starts 10
// words before the first match and spans 25 words.
func (e *Extractor) Extract(query, text string, maxLength int) string {
	queryTerms := make(map[string]struct{})
	for _, term := range e.normalizer.Normalize(query) {
		queryTerms[term] = struct{}{}
	}
	if len(queryTerms) == 0 {
		return prefix(text, maxLength) + Ellipsis
	}

	words := strings.Fields(text)
	match := -1
	for i, word := range words {
		if e.matches(word, queryTerms) {
			match = i
			break
		}
	}

	if match < 0 {
		n := min(fallbackWords, len(words))
		out := strings.Join(words[:n], " ")
		if len(words) > fallbackWords {
			out += Ellipsis
		}
		return out
	}

	start := max(0, match-leadingContext)
	end := min(start+windowWords, len(words))
	out := strings.Join(words[start:end], " ")
	if start > 0 {
		out = Ellipsis + " " + out
	}
	if end < len(words) {
		out = out + " " + Ellipsis
	}
	return out
}

func (e *Extractor) matches(word string, queryTerms map[string]struct{}) bool {
	for _, token := range e.normalizer.Normalize(word) {
		if _, ok := queryTerms[token]; ok {
			return true
		}
	}
	return false
}

// prefix returns the first n characters of s, counting runes.
func prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
