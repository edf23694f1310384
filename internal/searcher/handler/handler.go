// Package handler exposes the ranking engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searchlog"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
)

const maxBodyBytes = 1 << 20

// SearchLog lists recorded searches.
type SearchLog interface {
	Recent(ctx context.Context, n int) ([]searchlog.Entry, error)
}

// Options holds the optional collaborators of a Handler.
type Options struct {
	// GroundTruth backs GET /api/v1/benchmark. Nil disables it.
	GroundTruth map[string][]string
	Scorers     *cache.ScorerCache
	Results     *cache.ResultCache[executor.Response]
	SearchLog   SearchLog
}

type Handler struct {
	executor *executor.Executor
	opts     Options
	logger   *slog.Logger
}

func New(exec *executor.Executor, opts Options) *Handler {
	return &Handler{
		executor: exec,
		opts:     opts,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/evaluate", h.Evaluate)
	mux.HandleFunc("GET /api/v1/benchmark", h.Benchmark)
	mux.HandleFunc("POST /api/v1/benchmark", h.BenchmarkCustom)
	mux.HandleFunc("GET /api/v1/models", h.Models)
	mux.HandleFunc("GET /api/v1/collection", h.Collection)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/searches/recent", h.RecentSearches)
}

// Search handles GET /api/v1/search?q=&model=&k1=&b=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit, err := parser.Limit(q.Get("limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cfg, err := parser.Ranking(q.Get("model"), q.Get("k1"), q.Get("b"), h.defaultRanking())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.executor.Execute(r.Context(), executor.Request{Query: query, Ranking: cfg, Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Evaluate handles POST /api/v1/evaluate. The body either lists the
// predicted ids or names a query whose top results are evaluated.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeValidation(w, err)
		return
	}

	if req.Predicted != nil {
		h.writeJSON(w, http.StatusOK, executor.QueryEvaluation{
			Predicted: req.Predicted,
			Relevant:  req.Relevant,
			Metrics:   evaluation.Evaluate(req.Predicted, req.Relevant),
		})
		return
	}

	cfg, err := parser.Resolve(req.Model, req.K1, req.B, h.defaultRanking())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.executor.EvaluateQuery(r.Context(), req.Query, cfg, req.Cutoff, req.Relevant)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Benchmark handles GET /api/v1/benchmark?models=&cutoff= over the
// configured relevance judgments.
func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	if h.opts.GroundTruth == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "no ground truth configured"))
		return
	}
	q := r.URL.Query()
	cutoff, err := parser.Limit(q.Get("cutoff"))
	if err != nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidParameter, http.StatusBadRequest, "cutoff must be a positive integer"))
		return
	}
	h.runBenchmark(w, r, h.opts.GroundTruth, q.Get("models"), cutoff)
}

// BenchmarkCustom handles POST /api/v1/benchmark with caller-supplied
// relevance judgments.
func (h *Handler) BenchmarkCustom(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeValidation(w, err)
		return
	}
	h.runBenchmark(w, r, req.GroundTruth, req.Models, req.Cutoff)
}

func (h *Handler) runBenchmark(w http.ResponseWriter, r *http.Request, truth map[string][]string, models string, cutoff int) {
	configs, err := parser.Models(models, h.defaultRanking())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := h.executor.Benchmark(r.Context(), truth, configs, cutoff)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// Models handles GET /api/v1/models.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	def := h.defaultRanking()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"models":  ranker.Models(),
		"default": def,
		"key":     def.Key(),
	})
}

// Collection handles GET /api/v1/collection.
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	coll := h.executor.Collection()
	out := map[string]any{
		"documents":   coll.Len(),
		"fingerprint": coll.Fingerprint(),
	}
	if h.opts.Scorers != nil {
		ix, err := h.opts.Scorers.Index(r.Context(), coll)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out["vocabulary_size"] = ix.VocabularySize()
		out["total_tokens"] = ix.TotalTokens()
		out["avg_doc_len"] = ix.AvgDocLen()
		out["stemmer"] = ix.Normalizer().Stemmer()
	}
	h.writeJSON(w, http.StatusOK, out)
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{}
	if h.opts.Scorers != nil {
		out["scorers"] = h.opts.Scorers.Stats()
	}
	if h.opts.Results == nil {
		out["results"] = map[string]string{"status": "disabled"}
	} else {
		stats := h.opts.Results.Stats()
		total := stats.Hits + stats.Misses
		var hitRate float64
		if total > 0 {
			hitRate = float64(stats.Hits) / float64(total) * 100
		}
		out["results"] = map[string]any{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"total":    total,
			"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// CacheInvalidate handles POST /api/v1/cache/invalidate. Built scorers are
// dropped and cached results deleted.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.opts.Scorers != nil {
		h.opts.Scorers.Invalidate()
	}
	var deleted int64
	if h.opts.Results != nil {
		n, err := h.opts.Results.Invalidate(r.Context())
		if err != nil {
			h.logger.Error("cache invalidation failed", "error", err)
			h.writeError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "cache invalidation failed"))
			return
		}
		deleted = n
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "results_deleted": deleted})
}

// RecentSearches handles GET /api/v1/searches/recent?n=.
func (h *Handler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	if h.opts.SearchLog == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "search log is disabled"))
		return
	}
	n := 20
	if s := r.URL.Query().Get("n"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > searchlog.MaxRecent {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidParameter, http.StatusBadRequest, "n must be within [1, %d]", searchlog.MaxRecent))
			return
		}
		n = parsed
	}
	entries, err := h.opts.SearchLog.Recent(r.Context(), n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"searches": entries, "count": len(entries)})
}

func (h *Handler) defaultRanking() ranker.Config {
	return h.executor.Defaults().DefaultRanking
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.New(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "request body too large")
		}
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body: %v", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	var verr *ValidationError
	if errors.As(err, &verr) {
		body["error"] = "validation failed"
		body["fields"] = verr.Fields
	}
	h.writeJSON(w, http.StatusBadRequest, body)
}

// writeError maps err to a status. AppError messages are shown to the
// caller; anything else is logged and reported as an internal error.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
