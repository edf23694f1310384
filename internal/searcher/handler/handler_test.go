package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searchlog"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/executor"
)

var docs = []corpus.Document{
	{ID: "1", Text: "Boundary layer flow over a flat plate."},
	{ID: "2", Text: "Heat transfer in hypersonic flow."},
	{ID: "3", Text: "Wing flutter at supersonic speeds."},
	{ID: "4", Text: "Flat plate heat transfer measurements."},
}

type fakeLog struct {
	entries []searchlog.Entry
	err     error
	asked   int
}

func (f *fakeLog) Recent(_ context.Context, n int) ([]searchlog.Entry, error) {
	f.asked = n
	return f.entries, f.err
}

func newServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	coll, err := corpus.NewCollection(docs)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Scorers == nil {
		opts.Scorers = cache.NewScorerCache(nil, nil)
	}
	exec, err := executor.New(context.Background(), coll, opts.Scorers, executor.Options{})
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	New(exec, opts).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, v any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestSearch(t *testing.T) {
	srv := newServer(t, Options{})

	var resp executor.Response
	if code := getJSON(t, srv.URL+"/api/v1/search?q=flat+plate+heat&limit=2", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Hits) != 2 || resp.Hits[0].DocID != "4" {
		t.Errorf("hits = %+v", resp.Hits)
	}
	if resp.Model != "bm25" {
		t.Errorf("default model = %q", resp.Model)
	}

	if code := getJSON(t, srv.URL+"/api/v1/search?q=wing&model=vsm&limit=1", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Model != "vsm" || resp.Hits[0].DocID != "3" {
		t.Errorf("vsm search = %+v", resp)
	}

	if code := getJSON(t, srv.URL+"/api/v1/search?q=wing&k1=0.9&b=0.3", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.ModelKey != "bm25|k1=0.9|b=0.3" {
		t.Errorf("ModelKey = %q", resp.ModelKey)
	}
}

func TestSearchBadRequests(t *testing.T) {
	srv := newServer(t, Options{})
	for _, q := range []string{
		"",
		"?q=",
		"?q=wing&limit=0",
		"?q=wing&limit=abc",
		"?q=wing&model=lsi",
		"?q=wing&k1=-1",
		"?q=wing&b=2",
		"?q=wing&k1=fast",
	} {
		var body map[string]string
		if code := getJSON(t, srv.URL+"/api/v1/search"+q, &body); code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, code)
		}
		if body["error"] == "" {
			t.Errorf("%q: missing error message", q)
		}
	}
}

func TestEvaluatePredicted(t *testing.T) {
	srv := newServer(t, Options{})
	var got executor.QueryEvaluation
	code := postJSON(t, srv.URL+"/api/v1/evaluate", `{"predicted":["1","2"],"relevant":["2","3"]}`, &got)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.Precision != 0.5 || got.Recall != 0.5 || got.F1 != 0.5 {
		t.Errorf("metrics = %+v", got.Metrics)
	}
}

func TestEvaluateQuery(t *testing.T) {
	srv := newServer(t, Options{})
	var got executor.QueryEvaluation
	code := postJSON(t, srv.URL+"/api/v1/evaluate", `{"query":"wing flutter","relevant":["3"],"model":"vsm","cutoff":1}`, &got)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.Model != "vsm" || len(got.Predicted) != 1 || got.Predicted[0] != "3" || got.F1 != 1 {
		t.Errorf("evaluation = %+v", got)
	}
}

func TestEvaluateValidation(t *testing.T) {
	srv := newServer(t, Options{})
	tests := []struct {
		body  string
		field string
	}{
		{`{"query":"wing"}`, "relevant"},
		{`{"relevant":["1"]}`, "query"},
		{`{"query":"wing","predicted":["1"],"relevant":["1"]}`, "predicted"},
		{`{"query":"wing","relevant":["1"],"cutoff":-1}`, "cutoff"},
	}
	for _, tt := range tests {
		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if code := postJSON(t, srv.URL+"/api/v1/evaluate", tt.body, &body); code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", tt.body, code)
		}
		if body.Fields[tt.field] == "" {
			t.Errorf("%s: fields = %v, want %q", tt.body, body.Fields, tt.field)
		}
	}

	var body map[string]string
	if code := postJSON(t, srv.URL+"/api/v1/evaluate", `{"query":"wing","relevant":[],"unknown":1}`, &body); code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d", code)
	}
	if code := postJSON(t, srv.URL+"/api/v1/evaluate", `{"query":"wing","relevant":[],"model":"lsi"}`, &body); code != http.StatusBadRequest {
		t.Errorf("unknown model: status = %d", code)
	}
}

func TestBenchmark(t *testing.T) {
	srv := newServer(t, Options{GroundTruth: map[string][]string{
		"wing flutter":    {"3"},
		"flat plate heat": {"4", "1"},
	}})
	var report struct {
		Models []string `json:"models"`
		Cutoff int      `json:"cutoff"`
		Best   string   `json:"best"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/benchmark?cutoff=2", &report); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(report.Models) != 2 || report.Cutoff != 2 {
		t.Errorf("report = %+v", report)
	}

	if code := getJSON(t, srv.URL+"/api/v1/benchmark?models=bm25:k1=1.2,bm25", &report); code != http.StatusOK {
		t.Fatalf("variants: status = %d", code)
	}
	if len(report.Models) != 2 || report.Models[0] != "bm25|k1=1.2|b=0.75" {
		t.Errorf("variant models = %v", report.Models)
	}

	if code := getJSON(t, srv.URL+"/api/v1/benchmark?models=lsi", nil); code != http.StatusBadRequest {
		t.Errorf("bad model list: status = %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/v1/benchmark?cutoff=x", nil); code != http.StatusBadRequest {
		t.Errorf("bad cutoff: status = %d", code)
	}
}

func TestBenchmarkWithoutGroundTruth(t *testing.T) {
	srv := newServer(t, Options{})
	if code := getJSON(t, srv.URL+"/api/v1/benchmark", nil); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}

	var report struct {
		Models []string `json:"models"`
	}
	code := postJSON(t, srv.URL+"/api/v1/benchmark", `{"ground_truth":{"wing":["3"]},"models":"vsm"}`, &report)
	if code != http.StatusOK || len(report.Models) != 1 {
		t.Errorf("custom benchmark: status %d, models %v", code, report.Models)
	}
	if code := postJSON(t, srv.URL+"/api/v1/benchmark", `{"ground_truth":{}}`, nil); code != http.StatusBadRequest {
		t.Errorf("empty ground truth: status = %d", code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	scorers := cache.NewScorerCache(nil, nil)
	srv := newServer(t, Options{Scorers: scorers})
	getJSON(t, srv.URL+"/api/v1/search?q=wing", nil)
	getJSON(t, srv.URL+"/api/v1/search?q=wing", nil)

	var stats struct {
		Scorers cache.ScorerStats `json:"scorers"`
		Results map[string]any    `json:"results"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/cache/stats", &stats); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if stats.Scorers.Hits < 1 || len(stats.Scorers.Scorers) != 1 {
		t.Errorf("scorer stats = %+v", stats.Scorers)
	}
	if stats.Results["status"] != "disabled" {
		t.Errorf("result cache stats = %v", stats.Results)
	}

	if code := postJSON(t, srv.URL+"/api/v1/cache/invalidate", "", nil); code != http.StatusOK {
		t.Fatalf("invalidate status = %d", code)
	}
	if got := scorers.Stats().Scorers; len(got) != 0 {
		t.Errorf("scorers after invalidate = %v", got)
	}
}

func TestRecentSearches(t *testing.T) {
	srv := newServer(t, Options{})
	if code := getJSON(t, srv.URL+"/api/v1/searches/recent", nil); code != http.StatusServiceUnavailable {
		t.Errorf("disabled log: status = %d", code)
	}

	log := &fakeLog{entries: []searchlog.Entry{{ID: 1, Query: "wing"}}}
	srv = newServer(t, Options{SearchLog: log})
	var body struct {
		Searches []searchlog.Entry `json:"searches"`
		Count    int               `json:"count"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/searches/recent?n=5", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Count != 1 || log.asked != 5 {
		t.Errorf("count = %d asked = %d", body.Count, log.asked)
	}
	if code := getJSON(t, srv.URL+"/api/v1/searches/recent?n=0", nil); code != http.StatusBadRequest {
		t.Errorf("n=0: status = %d", code)
	}

	log.err = errors.New("disk I/O error")
	if code := getJSON(t, srv.URL+"/api/v1/searches/recent", nil); code != http.StatusInternalServerError {
		t.Errorf("store failure: status = %d", code)
	}
}

func TestModelsAndCollection(t *testing.T) {
	srv := newServer(t, Options{})
	var models struct {
		Models []string `json:"models"`
		Key    string   `json:"key"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/models", &models); code != http.StatusOK {
		t.Fatal(code)
	}
	if len(models.Models) != 2 || models.Key != "bm25|k1=1.5|b=0.75" {
		t.Errorf("models = %+v", models)
	}

	var coll map[string]any
	if code := getJSON(t, srv.URL+"/api/v1/collection", &coll); code != http.StatusOK {
		t.Fatal(code)
	}
	if coll["documents"] != float64(4) || coll["stemmer"] != "porter" {
		t.Errorf("collection = %v", coll)
	}
}
