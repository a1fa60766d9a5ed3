package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fnpulse/fnpulse/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an fnpulse configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  fnpulse validate -c config.yaml
  fnpulse validate --config /etc/fnpulse/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Count cards that carry threshold classifiers
	classified := 0
	for _, c := range cfg.Cards {
		if c.Thresholds.IsSet() {
			classified++
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:             %d\n", cfg.Port)
	fmt.Printf("  Refresh interval: %s\n", cfg.RefreshInterval.Duration())
	fmt.Printf("  Deployment:       %s\n", cfg.Deployment)
	fmt.Printf("  Cards:            %d total, %d with thresholds\n",
		len(cfg.Cards), classified)

	return nil
}
