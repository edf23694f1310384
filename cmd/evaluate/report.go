package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/evaluation"
)

// printReport writes the per-query table followed by the averages and the
// winning model.
func printReport(w io.Writer, report *evaluation.Report) {
	for _, q := range report.Queries {
		fmt.Fprintf(w, "Query: %s\n", q.Query)
		for _, model := range report.Models {
			run := q.Models[model]
			fmt.Fprintf(w, "  %s: %s\n", label(model), formatMetrics(run.Metrics))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Average over %d queries (top %d):\n", len(report.Queries), report.Cutoff)
	for _, model := range report.Models {
		fmt.Fprintf(w, "  %s: %s\n", label(model), formatMetrics(report.Averages[model]))
	}
	fmt.Fprintln(w)

	if report.Best == "" {
		fmt.Fprintln(w, "Result: tie on average F1-score.")
		return
	}
	fmt.Fprintf(w, "Result: %s performs better on average F1-score.\n", label(report.Best))
}

func formatMetrics(m evaluation.Metrics) string {
	return fmt.Sprintf("Precision: %.2f, Recall: %.2f, F1-score: %.2f", m.Precision, m.Recall, m.F1)
}

// label upper-cases the model part of a scorer key: "bm25|k1=1.2|b=0"
// becomes "BM25|k1=1.2|b=0".
func label(model string) string {
	name, params, found := strings.Cut(model, "|")
	if !found {
		return strings.ToUpper(name)
	}
	return strings.ToUpper(name) + "|" + params
}
