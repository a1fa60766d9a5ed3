// Standalone mock platform for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/fnpulse serve -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/fnpulse/fnpulse/example/mockplatform"
)

func main() {
	fmt.Println("Mock platform starting on :9999")
	fmt.Println("Serving a synthetic deployment: happy-otter-123 (team acme)")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := http.ListenAndServe(":9999", mockplatform.NewHandler()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
