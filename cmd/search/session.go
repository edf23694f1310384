package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
)

// Searcher runs one search.
type Searcher interface {
	Execute(ctx context.Context, req executor.Request) (*executor.Response, error)
}

type session struct {
	exec     Searcher
	out      io.Writer
	log      io.Writer
	limit    int
	model    string
	defaults ranker.Config
}

// run alternates between model selection and the query loop until the
// user types "exit" or input ends.
func (s *session) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if s.model == "" {
			fmt.Fprint(s.out, "Choose engine (vsm / bm25): ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			choice := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if choice != ranker.ModelVSM && choice != ranker.ModelBM25 {
				fmt.Fprintln(s.out, "Invalid choice. Please choose 'vsm' or 'bm25'.")
				continue
			}
			s.model = choice
		}

		switchEngine, err := s.queryLoop(ctx, scanner)
		if err != nil {
			return err
		}
		if !switchEngine {
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		}
		s.model = ""
	}
}

// queryLoop reads queries for the current model. It returns true when the
// user asks to switch engine.
func (s *session) queryLoop(ctx context.Context, scanner *bufio.Scanner) (bool, error) {
	for {
		fmt.Fprint(s.out, "\nEnter query ('exit' to quit, 'engine' to switch engine): ")
		if !scanner.Scan() {
			return false, scanner.Err()
		}
		query := scanner.Text()
		switch strings.ToLower(strings.TrimSpace(query)) {
		case "exit":
			return false, nil
		case "engine":
			return true, nil
		}
		if err := s.once(ctx, query); err != nil {
			fmt.Fprintf(s.out, "Search failed: %v\n", err)
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
}

// once runs query and prints the ranked documents.
func (s *session) once(ctx context.Context, query string) error {
	cfg, err := parser.Resolve(s.model, nil, nil, s.defaults)
	if err != nil {
		return err
	}
	resp, err := s.exec.Execute(ctx, executor.Request{Query: query, Ranking: cfg, Limit: s.limit})
	if err != nil {
		return err
	}
	if allZero(resp.Hits) {
		fmt.Fprintln(s.out, "No relevant documents found.")
		return nil
	}

	fmt.Fprintf(s.out, "\nTop %d relevant documents by %s:\n\n", len(resp.Hits), strings.ToUpper(resp.Model))
	for _, hit := range resp.Hits {
		fmt.Fprintf(s.out, "%s\n\n", formatHit(hit))
	}
	if s.log != nil {
		s.appendLog(resp)
	}
	return nil
}

func (s *session) appendLog(resp *executor.Response) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s (Engine: %s)\n", resp.Query, resp.Model)
	for _, hit := range resp.Hits {
		b.WriteString(formatHit(hit))
		b.WriteByte('\n')
	}
	b.WriteString(strings.Repeat("-", 20) + "\n\n")
	if _, err := io.WriteString(s.log, b.String()); err != nil {
		fmt.Fprintf(s.out, "Writing result log failed: %v\n", err)
	}
}

func formatHit(hit executor.Hit) string {
	return fmt.Sprintf("%s (Score: %.4f): %s", hit.DocID, hit.Score, hit.Snippet)
}

func allZero(hits []executor.Hit) bool {
	for _, hit := range hits {
		if hit.Score != 0 {
			return false
		}
	}
	return true
}
