package stream

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/fnpulse/fnpulse/internal/api"
)

// Pacing defaults, matching the platform dashboard's observed behavior.
const (
	defaultMinRequestInterval = 2 * time.Second
	defaultActiveInterval     = 2 * time.Second
	defaultIdleInterval       = 3 * time.Second
	defaultIdleIntervalMax    = 15 * time.Second
	defaultBackoffFactor      = 1.5

	// gateRecheckInterval is how often a parked stream re-checks its gate.
	gateRecheckInterval = 250 * time.Millisecond
)

// FetchFunc fetches one batch of execution logs starting at cursor. It must
// honor ctx cancellation promptly; a cancelled fetch should return an error
// satisfying errors.Is(err, context.Canceled).
type FetchFunc func(ctx context.Context, cursor api.Cursor) (api.LogBatch, error)

// Config holds the pacing configuration for a [Stream]. The zero value is
// usable; unset fields take the defaults documented on each field.
type Config struct {
	// MinRequestInterval is the hard floor between the start of one request
	// and the start of the next, regardless of the active/idle/error timers.
	// Defaults to 2s.
	MinRequestInterval time.Duration

	// ActiveInterval is the delay after a poll that merged at least one new
	// entry. Defaults to 2s.
	ActiveInterval time.Duration

	// IdleInterval is the initial delay after a poll that merged nothing.
	// Defaults to 3s.
	IdleInterval time.Duration

	// IdleIntervalMax caps the grown idle delay. Defaults to 15s.
	IdleIntervalMax time.Duration

	// BackoffFactor multiplies the idle delay per consecutive idle poll.
	// Defaults to 1.5. A factor of 1.0 yields fixed-interval polling.
	BackoffFactor float64

	// ErrorBackoff computes the delay after the attempt-th consecutive
	// failure (attempt starts at 1). Defaults to [DefaultErrorBackoff].
	ErrorBackoff func(attempt int) time.Duration

	// Gate is checked before each request; while it returns false the
	// stream parks without issuing requests and resumes from its last
	// cursor once the gate opens again. A nil Gate always runs. The
	// concrete pause condition (window hidden, user pause) is the caller's
	// concern.
	Gate func() bool

	// MaxEntries caps the retained collection; once exceeded, the oldest
	// entries are dropped after each merge. Zero means unbounded.
	MaxEntries int
}

func (c Config) withDefaults() Config {
	if c.MinRequestInterval <= 0 {
		c.MinRequestInterval = defaultMinRequestInterval
	}
	if c.ActiveInterval <= 0 {
		c.ActiveInterval = defaultActiveInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = defaultIdleInterval
	}
	if c.IdleIntervalMax <= 0 {
		c.IdleIntervalMax = defaultIdleIntervalMax
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = defaultBackoffFactor
	}
	if c.ErrorBackoff == nil {
		c.ErrorBackoff = DefaultErrorBackoff
	}
	return c
}

// DefaultErrorBackoff returns an exponentially growing delay with jitter:
// 1s doubling per consecutive failure, capped at 30s, with ±20% random
// variation to avoid synchronized retry storms across streams.
func DefaultErrorBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(time.Second) * math.Pow(2, float64(attempt-1))
	if base > float64(30*time.Second) {
		base = float64(30 * time.Second)
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(base * jitter)
}

// idleDelay computes the delay after the k-th consecutive idle poll
// (k starts at 1): IdleInterval·BackoffFactor^(k−1), capped at
// IdleIntervalMax.
func idleDelay(cfg Config, k int) time.Duration {
	if k < 1 {
		k = 1
	}
	d := float64(cfg.IdleInterval) * math.Pow(cfg.BackoffFactor, float64(k-1))
	if d > float64(cfg.IdleIntervalMax) {
		d = float64(cfg.IdleIntervalMax)
	}
	return time.Duration(d)
}

// Stats is a snapshot of a stream's pacing state, taken after the most
// recent completed poll.
type Stats struct {
	// Polls is the number of requests issued since the last reset.
	Polls int

	// ConsecutiveIdle is the current idle streak length.
	ConsecutiveIdle int

	// ConsecutiveFailures is the current failure streak length.
	ConsecutiveFailures int

	// LastDelay is the delay scheduled after the most recent poll.
	LastDelay time.Duration
}

// loopState is the per-iteration state of the poll loop. It is owned by the
// loop goroutine and passed between iterations explicitly; nothing outside
// the loop mutates it. Resets are signaled through the stream's generation
// counter and materialize here as a fresh loopState.
type loopState struct {
	gen       uint64
	cursor    api.Cursor
	failures  int
	idles     int
	polls     int
	lastStart time.Time
}

// Stream is one incremental polling subscription.
//
// A Stream continuously fetches new execution-log records from a
// cursor-based endpoint and maintains a deduplicated, timestamp-descending
// view of everything seen so far. At most one request is in flight at any
// time. Consumers read the accumulated view with [Stream.Snapshot] and are
// nudged through [Stream.Updates] whenever it changes.
//
// Lifecycle follows Start/Stop: [Stream.Start] launches the loop in a
// background goroutine, [Stream.Stop] cancels it and waits for the in-flight
// request to abort. [Stream.Reset] discards all accumulated state mid-flight
// and restarts from the zero cursor; use it when the streamed subject
// changes. All methods are safe for concurrent use.
type Stream struct {
	fetch FetchFunc
	cfg   Config

	// mu guards the published view: entries, cursor, error, stats, and the
	// generation counter that invalidates in-flight polls on Reset.
	mu      sync.RWMutex
	gen     uint64
	byID    map[string]struct{}
	entries []api.ExecutionLog
	cursor  api.Cursor
	lastErr error
	stats   Stats

	updates   chan struct{}
	closeOnce sync.Once

	lifeMu  sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a [Stream] that polls via fetch with the given pacing
// configuration. The stream does nothing until [Stream.Start] is called.
func New(fetch FetchFunc, cfg Config) *Stream {
	return &Stream{
		fetch:   fetch,
		cfg:     cfg.withDefaults(),
		byID:    make(map[string]struct{}),
		updates: make(chan struct{}, 1),
	}
}

// Start launches the poll loop in a background goroutine.
//
// Start is non-blocking and idempotent; calls after the first are no-ops,
// as is Start after Stop. If ctx is nil, context.Background() is used.
// The loop runs until Stop is called or the context is cancelled.
func (s *Stream) Start(ctx context.Context) {
	s.lifeMu.Lock()
	if s.started || s.stopped {
		s.lifeMu.Unlock()
		return
	}
	s.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.lifeMu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.updates) })
		s.run(ctx)
	}()
}

// Stop cancels the loop, aborts any in-flight request, and waits for the
// loop goroutine to exit. Idempotent; Stop before Start is a safe no-op.
func (s *Stream) Stop() {
	s.lifeMu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.lifeMu.Unlock()

	s.wg.Wait()
	s.closeOnce.Do(func() { close(s.updates) })
}

// Reset discards all accumulated entries, the cursor, the error, and all
// pacing counters, as if the stream had just been created. Safe to call
// while a poll is in flight: the in-flight response is discarded rather
// than merged into the fresh state.
func (s *Stream) Reset() {
	s.mu.Lock()
	s.gen++
	s.byID = make(map[string]struct{})
	s.entries = nil
	s.cursor = api.Cursor{}
	s.lastErr = nil
	s.stats = Stats{}
	s.mu.Unlock()

	s.notify()
}

// Updates returns a channel that receives a nudge whenever the snapshot
// changes (new entries merged, error surfaced or cleared, reset). Signals
// are coalesced; consumers should re-read [Stream.Snapshot] on each receive.
// The channel is closed when the stream stops.
func (s *Stream) Updates() <-chan struct{} {
	return s.updates
}

// Snapshot returns a copy of the accumulated entries, sorted by start time
// descending (most recent first).
func (s *Stream) Snapshot() []api.ExecutionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.ExecutionLog, len(s.entries))
	copy(out, s.entries)
	return out
}

// Err returns the error from the most recent failed poll, or nil if the
// last poll succeeded. Errors never discard accumulated entries.
func (s *Stream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Cursor returns the most recently advanced cursor.
func (s *Stream) Cursor() api.Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Stats returns a snapshot of the stream's pacing counters.
func (s *Stream) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Stream) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// run is the poll loop. All pacing state lives in st, owned by this
// goroutine; the published view is updated under s.mu after each poll.
func (s *Stream) run(ctx context.Context) {
	st := loopState{gen: s.generation()}

	for {
		if ctx.Err() != nil {
			return
		}

		// a reset since the last iteration discards loop state entirely
		if gen := s.generation(); gen != st.gen {
			st = loopState{gen: gen}
		}

		// park while the gate is closed; cursor and entries are retained
		// so reopening resumes rather than restarts
		if !s.gateOpen() {
			if !sleepCtx(ctx, gateRecheckInterval) {
				return
			}
			continue
		}

		// hard floor between request starts, independent of the adaptive
		// delays below
		if !st.lastStart.IsZero() {
			if wait := s.cfg.MinRequestInterval - time.Since(st.lastStart); wait > 0 {
				if !sleepCtx(ctx, wait) {
					return
				}
				// a pause may have occurred during the floor wait
				if !s.gateOpen() {
					continue
				}
			}
		}

		st.lastStart = time.Now()
		st.polls++
		batch, err := s.fetch(ctx, st.cursor)

		if err != nil {
			// only this stream's own cancellation ends the loop; a
			// propagated cancellation from a shared fetch is a transient
			// failure like any other
			if ctx.Err() != nil {
				return
			}
			st.failures++
			delay := s.cfg.ErrorBackoff(st.failures)
			s.commitFailure(st, err, delay)
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}
		st.failures = 0

		merged, changed, ok := s.commitBatch(&st, batch)
		if !ok {
			// a reset raced with this poll: drop the stale response and
			// start over from the fresh state next iteration
			continue
		}

		var delay time.Duration
		if merged > 0 {
			st.idles = 0
			delay = s.cfg.ActiveInterval
		} else {
			st.idles++
			delay = idleDelay(s.cfg, st.idles)
		}
		s.commitStats(st, delay)

		if changed {
			s.notify()
		}

		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

func (s *Stream) gateOpen() bool {
	return s.cfg.Gate == nil || s.cfg.Gate()
}

// commitBatch merges a successful batch into the published view and
// advances the loop cursor. Entries whose ID has already been seen are
// no-ops; the collection is re-sorted by start time descending after any
// merge. changed reports whether the consumer-visible view moved (entries
// merged or a previous error cleared). ok is false when the stream was
// reset while the poll was in flight, in which case nothing is merged.
func (s *Stream) commitBatch(st *loopState, batch api.LogBatch) (merged int, changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != st.gen {
		return 0, false, false
	}

	for _, e := range batch.Entries {
		if e.ID == "" {
			continue
		}
		if _, seen := s.byID[e.ID]; seen {
			continue
		}
		s.byID[e.ID] = struct{}{}
		s.entries = append(s.entries, e)
		merged++
	}
	if merged > 0 {
		sort.SliceStable(s.entries, func(i, j int) bool {
			return s.entries[i].StartedAtMs > s.entries[j].StartedAtMs
		})
		if s.cfg.MaxEntries > 0 && len(s.entries) > s.cfg.MaxEntries {
			for _, dropped := range s.entries[s.cfg.MaxEntries:] {
				delete(s.byID, dropped.ID)
			}
			s.entries = s.entries[:s.cfg.MaxEntries]
		}
	}

	// advance only on a non-null cursor; a null response cursor means the
	// server did not move and the previous position is retained
	if !batch.NewCursor.IsZero() {
		st.cursor = batch.NewCursor
		s.cursor = st.cursor
	}
	changed = merged > 0 || s.lastErr != nil
	s.lastErr = nil
	return merged, changed, true
}

// commitStats publishes pacing counters after a successful poll.
func (s *Stream) commitStats(st loopState, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != st.gen {
		return
	}
	s.stats = Stats{
		Polls:           st.polls,
		ConsecutiveIdle: st.idles,
		LastDelay:       delay,
	}
}

// commitFailure surfaces a poll error without touching accumulated entries
// or the cursor.
func (s *Stream) commitFailure(st loopState, err error, delay time.Duration) {
	s.mu.Lock()
	if s.gen != st.gen {
		s.mu.Unlock()
		return
	}
	s.lastErr = err
	s.stats = Stats{
		Polls:               st.polls,
		ConsecutiveIdle:     st.idles,
		ConsecutiveFailures: st.failures,
		LastDelay:           delay,
	}
	s.mu.Unlock()

	s.notify()
}

// notify nudges the updates channel without blocking; signals coalesce.
// The channel only closes after the loop goroutine has exited, so the loop
// itself can always send safely; Reset may race with Stop, hence the
// recover guard.
func (s *Stream) notify() {
	defer func() { _ = recover() }()
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// sleepCtx waits for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
