package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeValidateCmd runs the validate command with the given config path
// and returns captured stdout and any error.
func executeValidateCmd(t *testing.T, configPath string) (string, error) {
	t.Helper()

	// capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// execute via root command with validate subcommand
	rootCmd.SetArgs([]string{"validate", "-c", configPath})
	err := rootCmd.Execute()

	// restore stdout
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	return buf.String(), err
}

func TestRunValidate_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
port: 8080
refresh_interval: 15s
platform:
  url: https://api.example.dev
  deploy_key: test-key
deployment: happy-otter-123
cards:
  - name: Failure Rate
    kind: failure_rate
    thresholds: 1/5
  - name: Latency
    kind: latency
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	output, err := executeValidateCmd(t, configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Port:             8080",
		"Refresh interval: 15s",
		"Deployment:       happy-otter-123",
		"2 total, 1 with thresholds",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
port: 8080
platform:
  url: https://api.example.dev
deployment: happy-otter-123
cards:
  - name: ""
    kind: failure_rate
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := executeValidateCmd(t, configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error should mention 'name is required', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeValidateCmd(t, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}
