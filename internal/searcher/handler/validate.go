package handler

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	maxIDs     = 10000
	maxQueries = 5000
	maxCutoff  = 1000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Query     string   `json:"query"`
	Predicted []string `json:"predicted"`
	Relevant  []string `json:"relevant"`
	Model     string   `json:"model"`
	K1        *float64 `json:"k1"`
	B         *float64 `json:"b"`
	Cutoff    int      `json:"cutoff"`
}

// Validate requires relevant ids and exactly one of query or predicted.
func (r *EvaluateRequest) Validate() error {
	errs := &ValidationError{Fields: make(map[string]string)}
	if r.Relevant == nil {
		errs.Fields["relevant"] = "relevant is required"
	} else if len(r.Relevant) > maxIDs {
		errs.Fields["relevant"] = fmt.Sprintf("at most %d ids", maxIDs)
	}
	query := strings.TrimSpace(r.Query)
	switch {
	case query == "" && r.Predicted == nil:
		errs.Fields["query"] = "one of query or predicted is required"
	case query != "" && r.Predicted != nil:
		errs.Fields["predicted"] = "predicted cannot be combined with query"
	case len(r.Predicted) > maxIDs:
		errs.Fields["predicted"] = fmt.Sprintf("at most %d ids", maxIDs)
	}
	if r.Cutoff < 0 || r.Cutoff > maxCutoff {
		errs.Fields["cutoff"] = fmt.Sprintf("cutoff must be within [0, %d]", maxCutoff)
	}
	return errs.orNil()
}

// BenchmarkRequest is the body of POST /api/v1/benchmark.
type BenchmarkRequest struct {
	GroundTruth map[string][]string `json:"ground_truth"`
	Models      string              `json:"models"`
	Cutoff      int                 `json:"cutoff"`
}

// Validate requires at least one judged query.
func (r *BenchmarkRequest) Validate() error {
	errs := &ValidationError{Fields: make(map[string]string)}
	switch {
	case len(r.GroundTruth) == 0:
		errs.Fields["ground_truth"] = "at least one query is required"
	case len(r.GroundTruth) > maxQueries:
		errs.Fields["ground_truth"] = fmt.Sprintf("at most %d queries", maxQueries)
	}
	for query := range r.GroundTruth {
		if strings.TrimSpace(query) == "" {
			errs.Fields["ground_truth"] = "queries must not be empty"
			break
		}
	}
	if r.Cutoff < 0 || r.Cutoff > maxCutoff {
		errs.Fields["cutoff"] = fmt.Sprintf("cutoff must be within [0, %d]", maxCutoff)
	}
	return errs.orNil()
}
