package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fnpulse/fnpulse"
	"github.com/fnpulse/fnpulse/config"
)

// watchCmd starts the terminal dashboard.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the terminal dashboard",
	Long: `Start fnpulse as a terminal UI instead of a web server.

The TUI shows the same card grid and live execution log as the web
dashboard. Press / to filter the log to a single function, u to clear
the filter, and q to quit.

The TUI owns the terminal, so logs are discarded unless --log is given.

Example:
  fnpulse watch -c config.yaml
  fnpulse watch -c config.yaml --udf sendEmail --log /tmp/fnpulse.log`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().String("udf", "", "start with the log stream filtered to this function")
	watchCmd.Flags().String("log", "", "write logs to this file instead of discarding them")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closeLog, err := watchLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, fnpulse.WithLogger(logger))

	board, err := fnpulse.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create board: %w", err)
	}

	if udf, _ := cmd.Flags().GetString("udf"); udf != "" {
		board.Watch(udf)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return board.StartTUI(ctx)
}

// watchLogger builds the logger for TUI mode. Without --log everything is
// discarded; the alternate screen would swallow it anyway.
func watchLogger(cmd *cobra.Command) (*slog.Logger, func(), error) {
	path, _ := cmd.Flags().GetString("log")
	if path == "" {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		return logger, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	return logger, func() { _ = f.Close() }, nil
}
