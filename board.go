package fnpulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fnpulse/fnpulse/dashboard"
	"github.com/fnpulse/fnpulse/internal/api"
	"github.com/fnpulse/fnpulse/internal/metrics"
	"github.com/fnpulse/fnpulse/internal/refresh"
	"github.com/fnpulse/fnpulse/internal/server"
	"github.com/fnpulse/fnpulse/internal/store"
	"github.com/fnpulse/fnpulse/internal/stream"
)

const (
	defaultRefreshInterval = 15 * time.Second
	defaultPort            = 8080
	defaultMaxConcurrency  = 10
)

// CardUpdate is the outcome of one card refresh, delivered to callbacks
// registered via [WithCardCallback].
type CardUpdate struct {
	// CardName is the display name of the refreshed card.
	CardName string

	// Metric is the metric family backing the card.
	Metric string

	// Value is the headline value in Unit.
	Value float64

	// Unit is the display unit ("percent", "ms", "req/s", ...).
	Unit string

	// Status is the classified health status.
	Status Status

	// Detail holds secondary values keyed by label (e.g., "p95", "max").
	Detail map[string]float64

	// CheckedAt is the timestamp when the refresh was performed.
	CheckedAt time.Time

	// Error contains any error that occurred during the refresh.
	Error error
}

// Board is the main orchestrator for platform polling and dashboard serving.
//
// Board coordinates refreshing the configured metric cards, streaming the
// deployment's execution log, and serving a real-time dashboard via HTTP.
// It is created using [New] with functional options and started with
// [Board.Start].
//
// The typical lifecycle is:
//
//	b, err := fnpulse.New(
//	    fnpulse.WithPlatform("https://api.example.dev", deployKey),
//	    fnpulse.WithDeployment("happy-otter-123"),
//	    fnpulse.WithCard(card),
//	)
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type Board struct {
	title           string
	platformURL     string
	token           string
	deployment      string
	team            string
	cards           []Card
	refreshInterval time.Duration
	port            int
	maxConcurrency  int
	logger          *slog.Logger
	cardCallbacks   []func(CardUpdate)
	tuning          StreamTuning
	streamGate      func() bool

	// watched subject of the log stream; guarded because Watch may be
	// called from any goroutine while the stream is running
	watchMu sync.RWMutex
	udf     string
	logs    *stream.Stream
}

// New creates a new [Board] instance with the given options.
//
// A platform origin ([WithPlatform]), a deployment ([WithDeployment]), and
// at least one card ([WithCard] or [WithCards]) must be configured. Other
// options have sensible defaults:
//   - Refresh interval: 15 seconds
//   - Port: 8080
//   - Max concurrency: 10
//
// Returns an error if required configuration is missing or any option is
// invalid.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		cards:           []Card{},
		refreshInterval: defaultRefreshInterval,
		port:            defaultPort,
		maxConcurrency:  defaultMaxConcurrency,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.platformURL == "" {
		return nil, errors.New("a platform origin is required (use WithPlatform)")
	}
	if cfg.deployment == "" {
		return nil, errors.New("a deployment is required (use WithDeployment)")
	}
	if len(cfg.cards) == 0 {
		return nil, errors.New("at least one card is required")
	}

	// validate card name uniqueness (required for per-card interval tracking)
	seen := make(map[string]bool, len(cfg.cards))
	for _, c := range cfg.cards {
		if seen[c.name] {
			return nil, fmt.Errorf("duplicate card name: %q", c.name)
		}
		seen[c.name] = true
		if c.kind == CardUsage && cfg.team == "" {
			return nil, fmt.Errorf("card %q requires a team (use WithTeam)", c.name)
		}
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		platformURL:     cfg.platformURL,
		token:           cfg.token,
		deployment:      cfg.deployment,
		team:            cfg.team,
		cards:           cfg.cards,
		refreshInterval: cfg.refreshInterval,
		port:            cfg.port,
		maxConcurrency:  cfg.maxConcurrency,
		logger:          logger,
		cardCallbacks:   cfg.cardCallbacks,
		tuning:          cfg.tuning,
		streamGate:      cfg.streamGate,
	}, nil
}

// Start begins refreshing cards, streaming the execution log, and serving
// the dashboard.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - All configured cards are refreshed immediately, then at their intervals
//   - The execution-log stream polls the deployment continuously
//   - The HTTP server starts on the configured port
//   - The dashboard is available at http://localhost:<port>
//
// The caller controls the lifecycle via context cancellation. For signal
// handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	b.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// fails to start.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("fnpulse starting",
		"deployment", b.deployment,
		"card_count", len(b.cards),
	)
	b.logger.Info("refresh configured", "interval", b.refreshInterval.String())
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	client := api.NewClient(b.platformURL, b.token)
	defer client.Close()

	// create the store
	cardStore := store.NewMemoryStore()

	// start the refresh scheduler
	scheduler := refresh.NewScheduler(client, b.deployment, b.team, b.toRefreshCards(),
		b.refreshInterval, b.maxConcurrency, b.logger)
	scheduler.Start(ctx)

	// start the execution-log stream; concurrent consumers of the same
	// deployment share in-flight requests through the coalescer
	logs := stream.New(b.logFetch(client, stream.NewCoalescer(0)), b.streamConfig())
	b.setStream(logs)
	logs.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.consumeResults(scheduler, cardStore)
	}()

	// cleanup function ensures scheduler is stopped and all results are processed
	cleanup := func() {
		scheduler.Stop() // closes results channel
		logs.Stop()
		wg.Wait() // wait for all results to be processed
		b.setStream(nil)
	}

	// start the HTTP server
	httpServer := server.NewServer(cardStore, logs, b.port, dashboard.Assets, b.title, b.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("fnpulse stopped")
	return nil
}

// Watch restricts the execution-log stream to a single function, or clears
// the restriction when udf is empty.
//
// Changing the watched subject discards the accumulated log view and
// restarts the stream from scratch; entries from the previous subject never
// bleed into the new view. Safe to call at any time, including before Start
// and while a request is in flight.
func (b *Board) Watch(udf string) {
	b.watchMu.Lock()
	changed := b.udf != udf
	b.udf = udf
	s := b.logs
	b.watchMu.Unlock()

	if changed && s != nil {
		s.Reset()
	}
}

// Watching returns the function the log stream is currently restricted to,
// or the empty string when streaming all functions.
func (b *Board) Watching() string {
	b.watchMu.RLock()
	defer b.watchMu.RUnlock()
	return b.udf
}

// Cards returns a copy of the configured cards.
//
// The returned slice is a copy; modifying it does not affect the Board.
// Each [Card] in the slice is immutable.
func (b *Board) Cards() []Card {
	cp := make([]Card, len(b.cards))
	copy(cp, b.cards)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// Deployment returns the deployment the board watches.
func (b *Board) Deployment() string {
	return b.deployment
}

// RefreshInterval returns the configured default interval between card
// refreshes.
func (b *Board) RefreshInterval() time.Duration {
	return b.refreshInterval
}

func (b *Board) setStream(s *stream.Stream) {
	b.watchMu.Lock()
	b.logs = s
	b.watchMu.Unlock()
}

// logFetch builds the stream's fetch function. The watched function is read
// per call so a Watch between polls takes effect on the next request, and
// the coalescing key includes it so filtered and unfiltered consumers never
// share a response.
func (b *Board) logFetch(client *api.Client, coal *stream.Coalescer) stream.FetchFunc {
	return func(ctx context.Context, cursor api.Cursor) (api.LogBatch, error) {
		udf := b.Watching()
		endpoint := "logs:" + b.deployment + ":" + udf
		return coal.Do(ctx, endpoint, cursor, func(ctx context.Context, cur api.Cursor) (api.LogBatch, error) {
			return client.Logs(ctx, b.deployment, udf, cur)
		})
	}
}

func (b *Board) streamConfig() stream.Config {
	cfg := stream.Config{
		MinRequestInterval: b.tuning.MinRequestInterval,
		ActiveInterval:     b.tuning.ActiveInterval,
		IdleInterval:       b.tuning.IdleInterval,
		IdleIntervalMax:    b.tuning.IdleIntervalMax,
		BackoffFactor:      b.tuning.BackoffFactor,
		MaxEntries:         b.tuning.MaxEntries,
		Gate:               b.streamGate,
	}
	return cfg
}

// toRefreshCards converts the Card slice to refresh.CardInfo slice.
func (b *Board) toRefreshCards() []refresh.CardInfo {
	result := make([]refresh.CardInfo, len(b.cards))

	for i, c := range b.cards {
		var classify refresh.ClassifyFunc
		if c.classifier != nil {
			// wrap the fnpulse classifier to return string
			cardClassifier := c.classifier
			classify = func(value float64) string {
				return cardClassifier(value).String()
			}
		}

		result[i] = refresh.CardInfo{
			Name:      c.name,
			Kind:      string(c.kind),
			Window:    c.window,
			Interval:  c.interval,
			TableRows: c.tableRows,
			Classify:  classify,
		}
	}

	return result
}

// consumeResults drains the scheduler's results channel, merging each
// result into the store and invoking callbacks.
func (b *Board) consumeResults(scheduler *refresh.Scheduler, cardStore store.Store) {
	for result := range scheduler.Results() {
		// store update first (callbacks fire after data is persisted)
		storeResult := b.mergeResult(result, cardStore)
		cardStore.Update(storeResult)

		// invoke card callbacks (after store update)
		if len(b.cardCallbacks) > 0 {
			update := resultToUpdate(result)
			for _, cb := range b.cardCallbacks {
				invokeCallbackSafe(cb, update, b.logger)
			}
		}

		// log refresh results (DEBUG level for success to reduce noise)
		logAttrs := []any{
			"card", result.CardName,
			"status", result.Status,
			"value", result.Value,
		}
		if result.Error != nil {
			b.logger.Warn("refresh completed with error", append(logAttrs, "error", result.Error.Error())...)
		} else {
			b.logger.Debug("refresh completed", logAttrs...)
		}
	}
}

// mergeResult converts a refresh result to a store result. A failed refresh
// retains the values of the last successful one alongside the error, so the
// dashboard keeps showing the most recent known state instead of blanking
// out.
func (b *Board) mergeResult(r refresh.Result, cardStore store.Store) store.CardResult {
	if r.Error != nil {
		errStr := r.Error.Error()
		for _, prev := range cardStore.GetAll() {
			if prev.Name == r.CardName {
				prev.Error = &errStr
				prev.CheckedAt = r.CheckedAt
				return prev
			}
		}
		return store.CardResult{
			Name:      r.CardName,
			Metric:    r.Metric,
			Status:    r.Status,
			CheckedAt: r.CheckedAt,
			Error:     &errStr,
		}
	}

	return store.CardResult{
		Name:      r.CardName,
		Metric:    r.Metric,
		Value:     r.Value,
		Unit:      r.Unit,
		Status:    r.Status,
		Detail:    r.Detail,
		Series:    r.Series,
		UDFs:      udfRows(r.UDFs),
		CheckedAt: r.CheckedAt,
	}
}

// udfRows converts raw per-function stats to table rows with derived rates.
func udfRows(stats []api.UDFStat) []store.UDFRow {
	if stats == nil {
		return nil
	}
	rows := make([]store.UDFRow, len(stats))
	for i, s := range stats {
		rows[i] = store.UDFRow{
			Name:         s.Name,
			Kind:         s.Kind,
			Invocations:  s.Invocations,
			FailureRate:  metrics.FailureRate(s.Failures, s.Invocations),
			CacheHitRate: metrics.CacheHitRate(s.CacheHits, s.CacheLookups),
			P95Ms:        s.P95Ms,
		}
	}
	return rows
}

// resultToUpdate converts an internal refresh result to the public API type.
// Creates defensive copies of mutable fields to prevent data races.
func resultToUpdate(r refresh.Result) CardUpdate {
	return CardUpdate{
		CardName:  r.CardName,
		Metric:    r.Metric,
		Value:     r.Value,
		Unit:      r.Unit,
		Status:    Status(r.Status),
		Detail:    copyFloatMap(r.Detail),
		CheckedAt: r.CheckedAt,
		Error:     r.Error,
	}
}

// copyFloatMap returns a copy of the map, or nil if input is nil.
func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// invokeCallbackSafe calls a card callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CardUpdate), update CardUpdate, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("card callback panicked",
				"panic", r,
				"card", update.CardName,
			)
		}
	}()
	cb(update)
}
