// Package requestmetrics counts inbound requests in total and per endpoint.
//
// A Counter is owned by the process wiring and injected into the middleware
// and the metrics handler; there is no package-level state.
package requestmetrics

import (
	"context"
	"time"
)

// Counter records requests and produces consistent snapshots.
type Counter interface {
	// Record adds one request to the total and to the "METHOD PATH" bucket.
	Record(ctx context.Context, method, path string) (Counts, error)
	// Snapshot returns a point-in-time copy of all counts.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Counts are the totals observed immediately after a Record.
type Counts struct {
	Total    int64
	Endpoint int64
}

// Snapshot is the body of GET /api/metrics.
type Snapshot struct {
	TotalRequests  int64            `json:"totalRequests"`
	EndpointCounts map[string]int64 `json:"endpointCounts"`
	Timestamp      time.Time        `json:"timestamp"`
}

// EndpointKey formats the per-endpoint bucket name.
func EndpointKey(method, path string) string {
	return method + " " + path
}
