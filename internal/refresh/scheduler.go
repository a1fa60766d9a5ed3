package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fnpulse/fnpulse/internal/api"
	"github.com/fnpulse/fnpulse/internal/metrics"
)

// Card kinds, mirroring the public constants in the root package. The
// refresh package keeps its own strings to avoid a circular dependency.
const (
	KindFailureRate  = "failure_rate"
	KindCacheHitRate = "cache_hit_rate"
	KindLatency      = "latency"
	KindSchedulerLag = "scheduler_lag"
	KindRequestRate  = "request_rate"
	KindUDFTable     = "udf_table"
	KindUsage        = "usage"
)

// seriesBuckets is how many sparkline buckets a card's window is divided
// into.
const seriesBuckets = 30

// ClassifyFunc determines a status string from a card's headline value.
//
// This is the refresh-internal version that returns a string rather than
// the fnpulse.Status type, avoiding circular dependencies.
type ClassifyFunc func(value float64) string

// CardInfo contains the configuration needed to refresh a single card.
//
// This is the refresh-internal representation of a card, decoupled from the
// main fnpulse.Card type to avoid circular dependencies.
type CardInfo struct {
	// Name is the display name of the card.
	Name string

	// Kind is one of the Kind* constants and selects the platform endpoint
	// and derivation.
	Kind string

	// Window is the trailing window the metric is computed over.
	Window time.Duration

	// Interval is the custom refresh interval for this card.
	// If 0, the scheduler's global interval is used.
	Interval time.Duration

	// TableRows limits the rows of a KindUDFTable card.
	TableRows int

	// Classify determines the status from the headline value.
	// If nil, the status is always "unknown".
	Classify ClassifyFunc
}

// Result holds the outcome of refreshing a single card.
//
// Result contains the derived headline value, secondary detail values, the
// bucketed series for the sparkline, and any error that occurred.
type Result struct {
	// CardName is the display name of the refreshed card.
	CardName string

	// Metric is the metric family backing the card.
	Metric string

	// Value is the headline value in Unit.
	Value float64

	// Unit is the display unit ("percent", "ms", "req/s", ...).
	Unit string

	// Status is the classified health status as a string.
	Status string

	// Detail holds secondary values keyed by label (e.g., "p50", "max").
	Detail map[string]float64

	// Series holds the bucketed history for the card's sparkline.
	Series []metrics.Bucket

	// UDFs holds per-function statistics for table cards; nil otherwise.
	UDFs []api.UDFStat

	// CheckedAt is the timestamp when the refresh was performed.
	CheckedAt time.Time

	// Error contains any error that occurred during the refresh.
	Error error
}

// Scheduler manages periodic refreshing of multiple cards.
//
// Scheduler implements a worker pool pattern, refreshing configured cards
// at their respective intervals with configurable concurrency. Results are
// emitted to a channel that can be consumed by the caller.
//
// The scheduler refreshes all cards immediately on start, then uses a
// tick-and-check pattern where it ticks at the GCD of all card intervals
// and refreshes only cards that are due.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	cards          []CardInfo
	deployment     string
	team           string
	interval       time.Duration // global default interval
	maxConcurrency int
	client         *api.Client
	results        chan Result
	logger         *slog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// per-card timing for tick-and-check pattern
	lastRefreshedAt map[string]time.Time
	baseInterval    time.Duration
}

// NewScheduler creates a new refresh [Scheduler].
//
// The client is the platform API client shared by all cards; deployment and
// team identify the subject. interval is the global default between refresh
// cycles, overridden per card via CardInfo.Interval. maxConcurrency bounds
// concurrent platform requests.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(client *api.Client, deployment, team string, cards []CardInfo, interval time.Duration, maxConcurrency int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cards:          cards,
		deployment:     deployment,
		team:           team,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		client:         client,
		results:        make(chan Result, len(cards)),
		logger:         logger,
	}
}

// Results returns a receive-only channel that emits [Result] values.
//
// The channel is closed when the scheduler stops. Consumers should read from
// this channel until it is closed to receive all refresh results.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// calculateBaseInterval determines the tick interval for the scheduler.
// Uses the GCD of all card intervals to ensure timely refreshing.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.cards) == 0 {
		return s.interval
	}

	intervals := make([]time.Duration, 0, len(s.cards))
	for _, c := range s.cards {
		if c.Interval > 0 {
			intervals = append(intervals, c.Interval)
		} else {
			intervals = append(intervals, s.interval)
		}
	}

	result := intervals[0]
	for _, d := range intervals[1:] {
		result = gcdDuration(result, d)
	}

	// floor at 1 second to prevent CPU thrashing
	if result < time.Second {
		result = time.Second
	}

	return result
}

// gcdDuration calculates the greatest common divisor of two durations.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins the refresh loop in a background goroutine.
//
// Start is non-blocking and returns immediately. The scheduler will:
//  1. Refresh all cards immediately
//  2. Tick at the GCD of all card intervals
//  3. Refresh only cards that are due on each tick
//  4. Continue until [Scheduler.Stop] is called or the context is cancelled
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastRefreshedAt = make(map[string]time.Time, len(s.cards))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	refreshCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.refreshDueCards(refreshCtx, true)

		ticker := time.NewTicker(s.baseInterval)
		defer ticker.Stop()

		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				s.refreshDueCards(refreshCtx, false)
			}
		}
	}()
}

// Stop halts the scheduler and waits for all goroutines to complete.
//
// Stop cancels the scheduler's context and blocks until:
//   - The refresh loop exits
//   - All in-flight requests complete
//   - The results channel is closed
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// refreshDueCards refreshes only cards that are due based on their intervals.
// If immediate is true, refreshes all cards regardless of timing.
//
// TIMING SEMANTIC: lastRefreshedAt is updated when a refresh STARTS, not
// when it completes. This prevents concurrent refreshes of the same card but
// means effective interval = configured interval + fetch duration for slow
// cards.
func (s *Scheduler) refreshDueCards(ctx context.Context, immediate bool) {
	now := time.Now()
	due := make([]CardInfo, 0, len(s.cards))

	s.mu.Lock()
	for _, c := range s.cards {
		if immediate {
			due = append(due, c)
			s.lastRefreshedAt[c.Name] = now
			continue
		}

		interval := c.Interval
		if interval == 0 {
			interval = s.interval // use global default
		}

		last, exists := s.lastRefreshedAt[c.Name]
		if !exists || now.Sub(last) >= interval {
			due = append(due, c)
			s.lastRefreshedAt[c.Name] = now
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}

	s.refreshCards(ctx, due)
}

// refreshCards refreshes a subset of cards concurrently, respecting
// maxConcurrency.
func (s *Scheduler) refreshCards(ctx context.Context, cards []CardInfo) {
	jobs := make(chan CardInfo, len(cards))

	var wg sync.WaitGroup
	for i := 0; i < s.maxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				result := s.refreshCard(ctx, c)
				select {
				case s.results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, c := range cards {
		select {
		case jobs <- c:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)

	wg.Wait()
}

// refreshCard fetches and derives a single card's result.
func (s *Scheduler) refreshCard(ctx context.Context, c CardInfo) Result {
	result := Result{
		CardName:  c.Name,
		Metric:    c.Kind,
		Status:    "unknown",
		CheckedAt: time.Now(),
	}

	if err := s.deriveCard(ctx, c, &result); err != nil {
		result.Error = err
		return result
	}

	if c.Classify != nil {
		status, err := s.safeClassify(c.Classify, result.Value)
		result.Status = status
		if err != nil {
			result.Error = err
		}
	}

	return result
}

// deriveCard fetches the card's backing data and fills in value, unit,
// detail, series, and rows according to the card kind.
func (s *Scheduler) deriveCard(ctx context.Context, c CardInfo, r *Result) error {
	switch c.Kind {
	case KindFailureRate:
		return s.deriveSeriesCard(ctx, c, r, api.MetricFailureRate, "percent")

	case KindCacheHitRate:
		return s.deriveSeriesCard(ctx, c, r, api.MetricCacheHitRate, "percent")

	case KindLatency:
		series, err := s.client.MetricSeries(ctx, s.deployment, api.MetricLatency, c.Window)
		if err != nil {
			return err
		}
		r.Metric = api.MetricLatency
		r.Unit = "ms"
		r.Series = metrics.Bucketize(series.Points, bucketWidth(c.Window))
		samples := make([]float64, len(series.Points))
		for i, p := range series.Points {
			samples[i] = p.Value
		}
		if sum, ok := metrics.Latency(samples); ok {
			r.Value = sum.P95
			r.Detail = map[string]float64{
				"p50": sum.P50,
				"p90": sum.P90,
				"p99": sum.P99,
			}
		}
		return nil

	case KindSchedulerLag:
		series, err := s.client.MetricSeries(ctx, s.deployment, api.MetricSchedulerLag, c.Window)
		if err != nil {
			return err
		}
		r.Metric = api.MetricSchedulerLag
		r.Unit = "ms"
		r.Series = metrics.Bucketize(series.Points, bucketWidth(c.Window))
		if lag, ok := metrics.SchedulerLag(series.Points); ok {
			r.Value = lag.Current
			r.Detail = map[string]float64{
				"mean": lag.Mean,
				"max":  lag.Max,
			}
		}
		return nil

	case KindRequestRate:
		series, err := s.client.MetricSeries(ctx, s.deployment, api.MetricRequestRate, c.Window)
		if err != nil {
			return err
		}
		r.Metric = api.MetricRequestRate
		r.Unit = "req/s"
		r.Series = metrics.Bucketize(series.Points, bucketWidth(c.Window))
		var total float64
		for _, p := range series.Points {
			total += p.Value
		}
		r.Value = metrics.RequestRate(int64(total), c.Window)
		r.Detail = map[string]float64{"total": total}
		return nil

	case KindUDFTable:
		stats, err := s.client.UDFStats(ctx, s.deployment, c.Window)
		if err != nil {
			return err
		}
		r.Metric = "udfs"
		r.Unit = "calls"
		r.UDFs = metrics.TopUDFs(stats, c.TableRows)
		var total int64
		for _, u := range stats {
			total += u.Invocations
		}
		r.Value = float64(total)
		return nil

	case KindUsage:
		usage, err := s.client.Usage(ctx, s.team)
		if err != nil {
			return err
		}
		r.Metric = "usage"
		r.Unit = "calls"
		r.Value = float64(usage.FunctionCalls)
		r.Detail = map[string]float64{
			"compute_gb_hours":    usage.ComputeGBHours,
			"database_storage_gb": usage.DatabaseStorageGB,
			"bandwidth_gb":        usage.BandwidthGB,
		}
		return nil

	default:
		return fmt.Errorf("unknown card kind %q", c.Kind)
	}
}

// deriveSeriesCard handles the percentage-series cards, where the headline
// is the most recent sample.
func (s *Scheduler) deriveSeriesCard(ctx context.Context, c CardInfo, r *Result, metric, unit string) error {
	series, err := s.client.MetricSeries(ctx, s.deployment, metric, c.Window)
	if err != nil {
		return err
	}
	r.Metric = metric
	r.Unit = unit
	r.Series = metrics.Bucketize(series.Points, bucketWidth(c.Window))

	if len(series.Points) == 0 {
		return nil
	}
	latest := series.Points[0]
	var sum, max float64
	for _, p := range series.Points {
		sum += p.Value
		if p.Value > max {
			max = p.Value
		}
		if p.TimeMs > latest.TimeMs {
			latest = p
		}
	}
	r.Value = latest.Value
	r.Detail = map[string]float64{
		"mean": sum / float64(len(series.Points)),
		"max":  max,
	}
	return nil
}

// bucketWidth divides a card window into sparkline buckets, floored at one
// second.
func bucketWidth(window time.Duration) time.Duration {
	w := window / seriesBuckets
	if w < time.Second {
		w = time.Second
	}
	return w
}

// safeClassify calls the classifier with panic recovery.
// If the classifier panics, it logs the full stack trace with a correlation
// ID and returns "unknown" status with a user-friendly error containing the
// ID.
func (s *Scheduler) safeClassify(classify ClassifyFunc, value float64) (status string, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			// log full context server-side for debugging
			s.logger.Error("classifier panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			status = "unknown"
			err = fmt.Errorf("classifier panic (correlation_id: %s)", correlationID)
		}
	}()
	return classify(value), nil
}
