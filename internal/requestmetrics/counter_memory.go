package requestmetrics

import (
	"context"
	"maps"
	"sync"
	"time"
)

// InMemoryCounter keeps counts for the lifetime of the process. One mutex
// guards both the total and the map so snapshots never mix states.
type InMemoryCounter struct {
	mu        sync.Mutex
	total     int64
	endpoints map[string]int64
	now       func() time.Time
}

func NewInMemoryCounter() *InMemoryCounter {
	return &InMemoryCounter{
		endpoints: make(map[string]int64),
		now:       time.Now,
	}
}

func (c *InMemoryCounter) Record(_ context.Context, method, path string) (Counts, error) {
	key := EndpointKey(method, path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.endpoints[key]++
	return Counts{Total: c.total, Endpoint: c.endpoints[key]}, nil
}

func (c *InMemoryCounter) Snapshot(_ context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		TotalRequests:  c.total,
		EndpointCounts: maps.Clone(c.endpoints),
		Timestamp:      c.now().UTC(),
	}, nil
}
