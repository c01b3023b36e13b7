package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authapp/internal/requestmetrics"
)

type brokenCounter struct{}

func (brokenCounter) Record(context.Context, string, string) (requestmetrics.Counts, error) {
	return requestmetrics.Counts{}, nil
}

func (brokenCounter) Snapshot(context.Context) (requestmetrics.Snapshot, error) {
	return requestmetrics.Snapshot{}, errors.New("connection refused")
}

func newRouter(counter requestmetrics.Counter) chi.Router {
	r := chi.NewRouter()
	New(counter, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestHandleGetMetrics(t *testing.T) {
	ctx := context.Background()
	counter := requestmetrics.NewInMemoryCounter()
	_, _ = counter.Record(ctx, "POST", "/api/auth/login")
	_, _ = counter.Record(ctx, "POST", "/api/auth/login")
	_, _ = counter.Record(ctx, "GET", "/api/auth/protected")

	rec := httptest.NewRecorder()
	newRouter(counter).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		TotalRequests  int64            `json:"totalRequests"`
		EndpointCounts map[string]int64 `json:"endpointCounts"`
		Timestamp      time.Time        `json:"timestamp"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(3), body.TotalRequests)
	assert.Equal(t, map[string]int64{"POST /api/auth/login": 2, "GET /api/auth/protected": 1}, body.EndpointCounts)
	assert.WithinDuration(t, time.Now(), body.Timestamp, time.Minute)
}

func TestHandleGetMetrics_CounterFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(brokenCounter{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
