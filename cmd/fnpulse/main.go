// Package main is the entry point for the fnpulse CLI.
//
// fnpulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	fnpulse serve -c config.yaml    # Start the web dashboard
//	fnpulse watch -c config.yaml    # Start the terminal dashboard
//	fnpulse validate -c config.yaml # Validate configuration
//	fnpulse version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "fnpulse",
	Short: "A deployment health dashboard for serverless functions",
	Long: `fnpulse is a real-time health dashboard for serverless function
deployments.

It derives health cards (failure rate, latency percentiles, cache hit
rate, scheduler lag, usage) from the platform's metrics API and streams
the deployment's execution log with an adaptive incremental poll loop.

Quick start:
  1. Create a config file (fnpulse.yaml)
  2. Run: fnpulse serve -c fnpulse.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  refresh_interval: 15s
  platform:
    url: https://api.example.dev
    deploy_key: ${FNPULSE_DEPLOY_KEY}
  deployment: happy-otter-123
  cards:
    - name: Failure Rate
      kind: failure_rate
      thresholds: 1/5`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this fnpulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fnpulse %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
