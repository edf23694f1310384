// Package tokenizer provides text normalisation for the ranking engine.
// It lower-cases input, deletes every character that is not an ASCII letter
// or whitespace, splits on whitespace, removes English stop-words, and stems
// what remains with the classic Porter algorithm.
//
// The same Normalizer must be used to build an index, to process queries and
// to match snippet words, otherwise terms will not line up.
package tokenizer

import (
	"bufio"
	_ "embed"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	snowballeng "github.com/kljensen/snowball/english"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

//go:embed stopwords.txt
var stopWordData string

var stopWords = loadStopWords(stopWordData)

// Stemmer names a suffix-stripping algorithm.
type Stemmer string

const (
	// StemmerPorter is the classic 1980 Porter algorithm. Stored vocabularies
	// and evaluation baselines were produced with it.
	StemmerPorter Stemmer = "porter"
	// StemmerPorter2 is the Snowball English revision of Porter.
	StemmerPorter2 Stemmer = "porter2"
)

// Options configures a Normalizer. The zero value selects StemmerPorter.
type Options struct {
	Stemmer Stemmer
}

// Normalizer turns raw text into normalised tokens. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	stemmer Stemmer
	stem    func(string) string
}

var defaultNormalizer = &Normalizer{stemmer: StemmerPorter, stem: porterStem}

// Default returns the shared Porter normalizer.
func Default() *Normalizer {
	return defaultNormalizer
}

// NewNormalizer returns a Normalizer for opts.
func NewNormalizer(opts Options) (*Normalizer, error) {
	switch opts.Stemmer {
	case "", StemmerPorter:
		return defaultNormalizer, nil
	case StemmerPorter2:
		return &Normalizer{stemmer: StemmerPorter2, stem: porter2Stem}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "unknown stemmer %q", opts.Stemmer)
	}
}

// Stemmer reports the algorithm this normalizer applies.
func (n *Normalizer) Stemmer() Stemmer {
	return n.stemmer
}

// Normalize returns the tokens of text in their original order. Duplicates
// are preserved. Text without ASCII letters yields an empty slice.
func (n *Normalizer) Normalize(text string) []string {
	words := strings.Fields(clean(strings.ToLower(text)))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		tokens = append(tokens, n.stem(word))
	}
	return tokens
}

// Normalize runs text through the default normalizer.
func Normalize(text string) []string {
	return defaultNormalizer.Normalize(text)
}

// clean deletes every rune that is neither a-z nor whitespace. Deleting
// rather than replacing with a space fuses runs such as "state-of-the-art"
// into "stateoftheart".
func clean(lowered string) string {
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func porterStem(word string) string {
	return string(porterstemmer.StemWithoutLowerCasing([]rune(word)))
}

func porter2Stem(word string) string {
	return snowballeng.Stem(word, true)
}

func loadStopWords(data string) map[string]struct{} {
	words := make(map[string]struct{}, 200)
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		panic(fmt.Sprintf("tokenizer: reading embedded stop-words: %v", err))
	}
	return words
}

// IsStopWord reports whether the lower-cased word is in the stop-word list.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
