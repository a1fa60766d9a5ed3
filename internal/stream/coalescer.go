package stream

import (
	"context"
	"sync"

	"github.com/fnpulse/fnpulse/internal/api"
)

// defaultCursorQuantum is the bucket width applied to numeric cursors when
// building coalescing keys. Numeric cursors are epoch-millisecond-like, so
// rounding to the nearest second groups consumers that are within one
// second of each other.
const defaultCursorQuantum = 1000

// Coalescer deduplicates concurrent fetches across streams.
//
// When several dashboard cards watch the same deployment, their streams
// issue near-identical requests. A Coalescer keys each in-flight fetch by
// (endpoint, cursor bucket); callers that arrive while a matching fetch is
// in flight wait for its result instead of issuing their own request.
//
// The first caller's context drives the shared request. If that caller is
// cancelled mid-flight, waiters receive the propagated cancellation as an
// ordinary transient error and retry on their own schedule.
type Coalescer struct {
	quantum float64

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done  chan struct{}
	batch api.LogBatch
	err   error
}

// NewCoalescer creates a [Coalescer]. quantum is the numeric-cursor bucket
// width used for the dedup key; zero or negative uses the default of one
// second (1000 for epoch-millisecond cursors).
func NewCoalescer(quantum float64) *Coalescer {
	if quantum <= 0 {
		quantum = defaultCursorQuantum
	}
	return &Coalescer{
		quantum:  quantum,
		inflight: make(map[string]*inflightCall),
	}
}

// Do executes fetch for (endpoint, cursor), sharing the result with any
// concurrent caller whose endpoint and cursor bucket match. endpoint is an
// arbitrary stable identity for the remote resource (deployment plus
// filter, typically).
func (c *Coalescer) Do(ctx context.Context, endpoint string, cursor api.Cursor, fetch FetchFunc) (api.LogBatch, error) {
	key := endpoint + "|" + cursor.Key(c.quantum)

	c.mu.Lock()
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.batch, call.err
		case <-ctx.Done():
			return api.LogBatch{}, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.batch, call.err = fetch(ctx, cursor)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(call.done)

	return call.batch, call.err
}

// Shared wraps fetch so that all calls through the returned FetchFunc are
// coalesced under the given endpoint key. The result plugs directly into
// [New].
func (c *Coalescer) Shared(endpoint string, fetch FetchFunc) FetchFunc {
	return func(ctx context.Context, cursor api.Cursor) (api.LogBatch, error) {
		return c.Do(ctx, endpoint, cursor, fetch)
	}
}
