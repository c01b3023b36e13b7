package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"authapp/internal/requestmetrics"
	dErrors "authapp/pkg/domain-errors"
	"authapp/pkg/platform/httputil"
	"authapp/pkg/requestcontext"
)

// Handler serves the JSON request counters.
type Handler struct {
	counter requestmetrics.Counter
	logger  *slog.Logger
}

func New(counter requestmetrics.Counter, logger *slog.Logger) *Handler {
	return &Handler{counter: counter, logger: logger}
}

// Register mounts the metrics routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/metrics", h.HandleGetMetrics)
}

func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.counter.Snapshot(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read request metrics",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read metrics"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
