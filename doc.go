// Package fnpulse provides a lightweight, embeddable deployment-health
// dashboard for serverless function platforms.
//
// fnpulse is designed as an SDK-first library, allowing developers to
// programmatically configure and deploy health dashboards as part of their
// tooling. It follows functional programming principles with immutable
// types, pure functions, and composable configuration via the functional
// options pattern.
//
// # Quick Start
//
// Create cards and start the dashboard with graceful shutdown:
//
//	card, _ := fnpulse.NewCard("Failure Rate", fnpulse.CardFailureRate,
//	    fnpulse.WithClassifier(fnpulse.ThresholdClassifier(1, 5, true)))
//	b, _ := fnpulse.New(
//	    fnpulse.WithPlatform("https://api.example.dev", os.Getenv("DEPLOY_KEY")),
//	    fnpulse.WithDeployment("happy-otter-123"),
//	    fnpulse.WithCard(card),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// fnpulse uses the functional options pattern for configuration:
//
//	b, err := fnpulse.New(
//	    fnpulse.WithPlatform(baseURL, deployKey),
//	    fnpulse.WithDeployment("happy-otter-123"),
//	    fnpulse.WithCards(cards...),
//	    fnpulse.WithRefreshInterval(30 * time.Second),
//	    fnpulse.WithPort(9090),
//	    fnpulse.WithMaxConcurrency(5),
//	)
//
// Cards can also be configured with options:
//
//	card, err := fnpulse.NewCard("Latency", fnpulse.CardLatency,
//	    fnpulse.WithWindow(30 * time.Minute),
//	    fnpulse.WithCardInterval(10 * time.Second),
//	    fnpulse.WithClassifier(fnpulse.ThresholdClassifier(200, 1000, true)),
//	)
//
// # Execution Log Streaming
//
// Alongside the metric cards, the board continuously streams the
// deployment's execution log through an adaptive poll loop: polling speeds
// up while new entries arrive and backs off geometrically while the log is
// quiet, with a hard floor between requests. Use [Board.Watch] to restrict
// the stream to a single function and [WithStreamTuning] or
// [WithStreamGate] to adjust pacing and pausing.
//
// # Classifiers
//
// Classifiers determine how a card's headline value is interpreted as a
// health status:
//
//   - [ThresholdClassifier]: Compares the value against warning and critical limits
//   - [FirstMatch]: Tries multiple classifiers in order, returning the first non-unknown result
//
// Custom classifiers can be created by implementing the [Classifier]
// function type.
//
// # Architecture
//
// fnpulse consists of several internal packages (under internal/):
//
//   - internal/api: Platform API client (logs, metric series, UDF stats, usage)
//   - internal/stream: Adaptive incremental log polling with request coalescing
//   - internal/refresh: Concurrent card refreshing with worker pool
//   - internal/metrics: Pure metric derivations (percentiles, rates, bucketing)
//   - internal/store: In-memory storage with pub/sub for real-time updates
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/tui: Terminal dashboard
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice. The library is designed for single-binary deployment
// using Go's embed directive for static assets.
package fnpulse
