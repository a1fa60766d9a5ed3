package fnpulse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fnpulse/fnpulse/internal/api"
	"github.com/fnpulse/fnpulse/internal/refresh"
	"github.com/fnpulse/fnpulse/internal/store"
	"github.com/fnpulse/fnpulse/internal/stream"
	"github.com/fnpulse/fnpulse/internal/tui"
)

// StartTUI runs the board as a terminal dashboard instead of an HTTP server.
//
// The refresh scheduler and execution-log stream run exactly as in [Board.Start];
// only the presentation differs. The terminal UI shows the card grid, the live
// execution log, and a filter prompt bound to [Board.Watch]. StartTUI blocks
// until the user quits or the context is cancelled.
//
// The TUI owns the terminal, so the configured logger should write somewhere
// else (a file, or [io.Discard]).
func (b *Board) StartTUI(ctx context.Context) error {
	b.logger.Info("fnpulse starting in terminal mode",
		"deployment", b.deployment,
		"card_count", len(b.cards),
	)

	if ctx.Err() != nil {
		return nil
	}

	client := api.NewClient(b.platformURL, b.token)
	defer client.Close()

	cardStore := store.NewMemoryStore()

	scheduler := refresh.NewScheduler(client, b.deployment, b.team, b.toRefreshCards(),
		b.refreshInterval, b.maxConcurrency, b.logger)
	scheduler.Start(ctx)

	logs := stream.New(b.logFetch(client, stream.NewCoalescer(0)), b.streamConfig())
	b.setStream(logs)
	logs.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.consumeResults(scheduler, cardStore)
	}()

	defer func() {
		scheduler.Stop()
		logs.Stop()
		wg.Wait()
		b.setStream(nil)
		b.logger.Info("fnpulse stopped")
	}()

	app := tui.New(b.title, cardStore, logs, b.Watch)
	prog := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := prog.Run(); err != nil {
		// context cancellation is a normal shutdown path
		if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
