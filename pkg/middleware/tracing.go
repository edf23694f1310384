package middleware

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/pkg/tracing"
)

// Tracing starts a root span per request, using the request id as the trace
// id. It must run inside RequestID. A nil tracer disables it.
func Tracing(t *tracing.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if t == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := t.Start(r.Context(), r.Method+" "+normalizePath(r.URL.Path), logger.RequestID(r.Context()))
			if span == nil {
				next.ServeHTTP(w, r)
				return
			}
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))
			span.SetAttr("status", sw.status)
			t.Finish(span)
		})
	}
}
