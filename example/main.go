package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fnpulse/fnpulse"
	"github.com/fnpulse/fnpulse/example/mockplatform"
)

func main() {
	// start mock platform (see mockplatform/)
	go mockplatform.Start(":9999")
	time.Sleep(100 * time.Millisecond)

	// cards with per-card windows, intervals and thresholds
	failureRate, _ := fnpulse.NewCard("Failure Rate", fnpulse.CardFailureRate,
		fnpulse.WithWindow(30*time.Minute),
		fnpulse.WithClassifier(fnpulse.ThresholdClassifier(1, 5, true)),
	)
	latency, _ := fnpulse.NewCard("Latency", fnpulse.CardLatency,
		fnpulse.WithClassifier(fnpulse.ThresholdClassifier(150, 400, true)),
	)
	cacheHits, _ := fnpulse.NewCard("Cache Hit Rate", fnpulse.CardCacheHitRate,
		fnpulse.WithClassifier(fnpulse.ThresholdClassifier(80, 50, false)),
	)
	functions, _ := fnpulse.NewCard("Functions", fnpulse.CardUDFTable,
		fnpulse.WithTableRows(10),
		fnpulse.WithCardInterval(30*time.Second),
	)

	board, err := fnpulse.New(
		fnpulse.WithPlatform("http://localhost:9999", "demo-key"),
		fnpulse.WithDeployment("happy-otter-123"),
		fnpulse.WithCards(failureRate, latency, cacheHits, functions),
		fnpulse.WithRefreshInterval(10*time.Second),
		fnpulse.WithPort(8080),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   fnpulse Demo                                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Watching a mock deployment on :9999 with four       ║")
	fmt.Println("  ║   cards and a live execution-log stream               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("fnpulse error", "error", err)
		os.Exit(1)
	}
}
