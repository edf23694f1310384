// Command evaluate benchmarks the ranking models against relevance
// judgments and prints per-query and mean precision, recall and F1.
//
// Usage:
//
//	go run ./cmd/evaluate [--config configs/development.yaml] [--models vsm,bm25:k1=1.2:b=0.5] [--json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	documents := flag.String("documents", "", "documents JSON file (overrides config)")
	groundTruth := flag.String("ground-truth", "", "ground truth JSON file (overrides config)")
	models := flag.String("models", "", "comma-separated models, e.g. vsm,bm25:k1=1.2:b=0.5 (default vsm,bm25)")
	cutoff := flag.IntP("cutoff", "k", 0, "ranked-list length evaluated per query (default from config)")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *documents != "" {
		cfg.Corpus.DocumentsPath = *documents
	}
	if *groundTruth != "" {
		cfg.Corpus.GroundTruthPath = *groundTruth
	}
	if cfg.Corpus.GroundTruthPath == "" {
		fmt.Fprintln(os.Stderr, "no ground truth: set corpus.groundTruthPath or --ground-truth")
		os.Exit(2)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Open(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	configs, err := parser.Models(*models, eng.Executor.Defaults().DefaultRanking)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --models: %v\n", err)
		os.Exit(2)
	}

	report, err := eng.Executor.Benchmark(ctx, eng.GroundTruth, configs, *cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "writing report: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReport(os.Stdout, report)
}
