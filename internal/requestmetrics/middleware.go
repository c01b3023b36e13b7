package requestmetrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"authapp/pkg/requestcontext"
)

// HTTPObserver receives per-request latency, labelled by route pattern.
type HTTPObserver interface {
	ObserveHTTPRequest(method, route, status string, elapsed time.Duration)
}

// Middleware records every request in counter before calling next and logs
// its start and completion. Counter failures are logged and never fail the
// request. observer may be nil.
func Middleware(counter Counter, logger *slog.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()
			requestID := requestcontext.RequestID(ctx)

			counts, err := counter.Record(ctx, r.Method, r.URL.Path)
			if err != nil {
				logger.ErrorContext(ctx, "failed to record request metrics",
					"error", err,
					"request_id", requestID,
				)
			}

			logger.InfoContext(ctx, "request started",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"total_requests", counts.Total,
			)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				elapsed := time.Since(start)
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				logger.InfoContext(ctx, "request completed",
					"request_id", requestID,
					"status", status,
					"elapsed_ms", elapsed.Milliseconds(),
					"endpoint_count", counts.Endpoint,
				)
				if observer != nil {
					observer.ObserveHTTPRequest(r.Method, routePattern(r), strconv.Itoa(status), elapsed)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// routePattern keeps Prometheus label cardinality bounded by using the chi
// pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
