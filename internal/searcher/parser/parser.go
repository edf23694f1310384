// Package parser turns user-supplied ranking options into ranker
// configurations. The same syntax is accepted by the HTTP API and the
// command-line tools.
//
// A model list is a comma-separated sequence of model entries. A BM25 entry
// may carry parameters separated by colons:
//
//	vsm,bm25,bm25:k1=1.2:b=0.5
package parser

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
)

// Ranking builds a config from separate model, k1 and b strings as they
// arrive in a query string. Empty strings are treated as absent.
func Ranking(model, k1, b string, defaults ranker.Config) (ranker.Config, error) {
	var k1p, bp *float64
	if k1 != "" {
		f, err := parseFloat("k1", k1)
		if err != nil {
			return ranker.Config{}, err
		}
		k1p = &f
	}
	if b != "" {
		f, err := parseFloat("b", b)
		if err != nil {
			return ranker.Config{}, err
		}
		bp = &f
	}
	return Resolve(model, k1p, bp, defaults)
}

// Resolve builds a config from an optional model name and optional BM25
// parameters. An empty model with no parameters selects defaults; with
// parameters it selects BM25. Missing BM25 parameters come from defaults
// when it is a BM25 config, and from ranker.DefaultParams otherwise.
// Parameter ranges are checked when the scorer is built.
func Resolve(model string, k1, b *float64, defaults ranker.Config) (ranker.Config, error) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		if k1 == nil && b == nil {
			return defaults, nil
		}
		model = ranker.ModelBM25
	}

	cfg := ranker.Config{Model: model}
	switch model {
	case ranker.ModelVSM:
		return cfg, nil
	case ranker.ModelBM25:
	default:
		return ranker.Config{}, apperrors.Newf(apperrors.ErrUnknownModel, http.StatusBadRequest,
			"model %q (want %q or %q)", model, ranker.ModelVSM, ranker.ModelBM25)
	}

	p := ranker.DefaultParams()
	if strings.ToLower(defaults.Model) == ranker.ModelBM25 {
		p = ranker.Params{K1: defaults.K1, B: defaults.B}
	}
	cfg.K1, cfg.B = p.K1, p.B
	if k1 != nil {
		cfg.K1 = *k1
	}
	if b != nil {
		cfg.B = *b
	}
	return cfg, nil
}

// Models parses a model list. An empty list yields nil.
func Models(list string, defaults ranker.Config) ([]ranker.Config, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	var configs []ranker.Config
	seen := make(map[string]bool)
	for entry := range strings.SplitSeq(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		var k1, b string
		for _, p := range parts[1:] {
			name, value, ok := strings.Cut(p, "=")
			if !ok {
				return nil, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "malformed parameter %q in %q", p, entry)
			}
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "k1":
				k1 = strings.TrimSpace(value)
			case "b":
				b = strings.TrimSpace(value)
			default:
				return nil, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "unknown parameter %q in %q", name, entry)
			}
		}
		model := strings.TrimSpace(parts[0])
		if model == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "missing model in %q", entry)
		}
		cfg, err := Ranking(model, k1, b, defaults)
		if err != nil {
			return nil, err
		}
		if cfg.Model == ranker.ModelVSM && (k1 != "" || b != "") {
			return nil, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "vsm takes no parameters: %q", entry)
		}
		if seen[cfg.Key()] {
			return nil, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "model %q listed twice", cfg.Key())
		}
		seen[cfg.Key()] = true
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Limit parses a positive result count. An empty string yields 0, meaning
// the caller's default.
func Limit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidParameter, http.StatusBadRequest, "limit must be a positive integer")
	}
	return n, nil
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "%s must be a number, got %q", name, s)
	}
	return f, nil
}
