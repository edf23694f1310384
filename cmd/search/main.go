// Command search is an interactive terminal front-end to the ranking
// engine. It asks for a model, then reads queries until "exit"; "engine"
// returns to model selection.
//
// Usage:
//
//	go run ./cmd/search [--config configs/development.yaml] [--engine bm25] [--query "flat plate"]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	documents := flag.String("documents", "", "documents JSON file (overrides config)")
	model := flag.String("engine", "", "model to start with: vsm or bm25 (prompted when empty)")
	query := flag.String("query", "", "run one query and exit")
	limit := flag.IntP("limit", "n", 5, "number of results per query")
	logFile := flag.String("log-file", "", "append results to this text file")
	flag.Parse()

	switch strings.ToLower(*model) {
	case "", ranker.ModelVSM, ranker.ModelBM25:
	default:
		fmt.Fprintf(os.Stderr, "unknown engine %q: want vsm or bm25\n", *model)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *documents != "" {
		cfg.Corpus.DocumentsPath = *documents
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

	s := &session{
		exec:     eng.Executor,
		out:      os.Stdout,
		limit:    *limit,
		model:    strings.ToLower(*model),
		defaults: eng.Executor.Defaults().DefaultRanking,
	}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		s.log = f
	}

	if *query != "" {
		if err := s.once(ctx, *query); err != nil {
			fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := s.run(ctx, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
