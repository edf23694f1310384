package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/evaluation"
)

func sampleReport(best string) *evaluation.Report {
	vsm := evaluation.Metrics{Precision: 0.5, Recall: 1, F1: 2.0 / 3.0}
	bm := evaluation.Metrics{Precision: 1, Recall: 1, F1: 1}
	return &evaluation.Report{
		Cutoff: 2,
		Models: []string{"vsm", "bm25"},
		Queries: []evaluation.QueryResult{{
			Query:    "flat plate",
			Relevant: []string{"d1"},
			Models: map[string]evaluation.ModelRun{
				"vsm":  {Predicted: []string{"d1", "d4"}, Metrics: vsm},
				"bm25": {Predicted: []string{"d1"}, Metrics: bm},
			},
		}},
		Averages: map[string]evaluation.Metrics{"vsm": vsm, "bm25": bm},
		Best:     best,
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport("bm25"))
	got := buf.String()
	for _, want := range []string{
		"Query: flat plate\n",
		"  VSM: Precision: 0.50, Recall: 1.00, F1-score: 0.67\n",
		"  BM25: Precision: 1.00, Recall: 1.00, F1-score: 1.00\n",
		"Average over 1 queries (top 2):\n",
		"Result: BM25 performs better on average F1-score.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "VSM") > strings.Index(got, "BM25") {
		t.Error("models should print in report order")
	}
}

func TestPrintReportTie(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport(""))
	if !strings.Contains(buf.String(), "Result: tie on average F1-score.") {
		t.Errorf("missing tie line:\n%s", buf.String())
	}
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"vsm":               "VSM",
		"bm25":              "BM25",
		"bm25|k1=1.2|b=0.5": "BM25|k1=1.2|b=0.5",
	}
	for in, want := range tests {
		if got := label(in); got != want {
			t.Errorf("label(%q) = %q, want %q", in, got, want)
		}
	}
}
