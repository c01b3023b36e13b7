package httpapi

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	authhandler "authapp/internal/auth/handler"
	"authapp/internal/platform/metrics"
	"authapp/internal/platform/middleware"
	"authapp/internal/requestmetrics"
	metricshandler "authapp/internal/requestmetrics/handler"
	"authapp/pkg/platform/httputil"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Auth           *authhandler.Handler
	RequestMetrics *metricshandler.Handler
	Counter        requestmetrics.Counter
	Prometheus     *metrics.Metrics
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck
}

// NewRouter wires every public endpoint behind the shared middleware chain.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(timeout))

	var observer requestmetrics.HTTPObserver
	if d.Prometheus != nil {
		observer = d.Prometheus
	}
	r.Use(requestmetrics.Middleware(d.Counter, d.Logger, observer))

	r.Get("/health", handleHealth(d.HealthChecks))
	if d.Prometheus != nil {
		r.Method(http.MethodGet, "/metrics", d.Prometheus.Handler())
	}

	d.Auth.Register(r)
	d.RequestMetrics.Register(r)

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	names := slices.Sorted(maps.Keys(checks))

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](r.Context()); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
