package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventEvaluation EventType = "evaluation"
)

// SearchEvent describes one executed search.
type SearchEvent struct {
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Model     string    `json:"model"`
	ModelKey  string    `json:"model_key"`
	TotalDocs int       `json:"total_docs"`
	Matched   int       `json:"matched"`
	Returned  int       `json:"returned"`
	TopDocID  string    `json:"top_doc_id,omitempty"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
}

// EvaluationEvent summarises one benchmark run.
type EvaluationEvent struct {
	Type       EventType          `json:"type"`
	RunID      string             `json:"run_id"`
	Cutoff     int                `json:"cutoff"`
	Queries    int                `json:"queries"`
	MeanF1     map[string]float64 `json:"mean_f1"`
	Best       string             `json:"best"`
	DurationMs int64              `json:"duration_ms"`
	Timestamp  time.Time          `json:"timestamp"`
}

// decodeEvent returns a *SearchEvent or *EvaluationEvent depending on the
// type field of data.
func decodeEvent(data []byte) (any, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding event type: %w", err)
	}
	switch head.Type {
	case EventSearch:
		var e SearchEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return &e, nil
	case EventEvaluation:
		var e EvaluationEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decoding evaluation event: %w", err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}
