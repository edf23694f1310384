// Command loadtest drives GET /api/v1/search with concurrent workers and
// reports throughput, latency percentiles and the cache hit rate.
//
// Usage:
//
//	go run ./cmd/loadtest [--url http://localhost:8080] [--queries data/ground_truth.json] [--models vsm,bm25]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/corpus"
)

var defaultQueries = []string{
	"boundary layer flow over a flat plate",
	"heat transfer in hypersonic flow",
	"supersonic wing flutter",
	"shock wave boundary layer interaction",
	"laminar to turbulent transition",
	"pressure distribution on slender bodies",
	"viscous drag at high mach numbers",
	"stagnation point heating",
}

// Config describes one run.
type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
	Models      []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.IntP("concurrency", "c", 10, "number of concurrent workers")
	duration := flag.DurationP("duration", "d", 30*time.Second, "test duration")
	limit := flag.IntP("limit", "n", 10, "results per query")
	queriesPath := flag.String("queries", "", "ground truth JSON whose queries are replayed")
	models := flag.String("models", "vsm,bm25", "comma-separated models to rotate through")
	flag.Parse()

	queries := defaultQueries
	if *queriesPath != "" {
		truth, err := corpus.LoadGroundTruthFile(*queriesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load queries: %v\n", err)
			os.Exit(1)
		}
		queries = slices.Sorted(maps.Keys(truth))
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     queries,
		Models:      strings.Split(*models, ","),
	}
	if len(cfg.Queries) == 0 || cfg.Concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "need at least one query and one worker")
		os.Exit(2)
	}

	fmt.Println("=== Ranking Engine Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Printf("Models:      %s\n", strings.Join(cfg.Models, ", "))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	start := time.Now()
	stats := run(ctx, cfg, newClient(cfg.Concurrency))
	stats.Print(os.Stdout, time.Since(start))

	if stats.Total() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// run keeps cfg.Concurrency workers busy until ctx ends. Worker w starts at
// query w and steps through queries and models in lockstep.
func run(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	var wg sync.WaitGroup
	for w := range cfg.Concurrency {
		wg.Go(func() {
			for i := w; ctx.Err() == nil; i++ {
				query := cfg.Queries[i%len(cfg.Queries)]
				model := cfg.Models[i%len(cfg.Models)]
				start := time.Now()
				status, cacheHit, err := search(ctx, client, cfg, query, model)
				if ctx.Err() != nil {
					return
				}
				stats.Record(model, time.Since(start), status, cacheHit, err)
			}
		})
	}
	wg.Wait()
	return stats
}

func search(ctx context.Context, client *http.Client, cfg Config, query, model string) (int, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("model", model)
	params.Set("limit", strconv.Itoa(cfg.Limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, false, fmt.Errorf("decoding response: %w", err)
		}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.CacheHit, nil
}
