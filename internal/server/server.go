package server

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fnpulse/fnpulse/internal/api"
	"github.com/fnpulse/fnpulse/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write
	// operation. This prevents goroutine leaks when clients are slow or
	// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "fnpulse"

	// titlePlaceholder is the marker in HTML that gets replaced with the
	// actual title.
	titlePlaceholder = "{{.Title}}"
)

// LogSource supplies the live execution-log view served at /api/logs.
// It is backed by the board's active log stream.
type LogSource interface {
	// Snapshot returns the accumulated entries, most recent first.
	Snapshot() []api.ExecutionLog

	// Err returns the last poll error, or nil.
	Err() error
}

// logsResponse is the JSON shape of /api/logs.
type logsResponse struct {
	Entries []api.ExecutionLog `json:"entries"`
	Error   *string            `json:"error"`
}

// Server handles HTTP requests for the fnpulse dashboard and API.
//
// Server provides four endpoints:
//   - GET /: Serves the embedded dashboard HTML
//   - GET /api/cards: Returns all current card results as JSON
//   - GET /api/logs: Returns the accumulated execution-log view as JSON
//   - GET /api/sse: Server-Sent Events stream of card updates
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	logs       LogSource
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store implementation for card data
//   - logs: Source for the live log view (may be nil; /api/logs then
//     returns an empty view)
//   - port: TCP port to listen on
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "fnpulse" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, logs LogSource, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		logs:   logs,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a
// 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/cards", s.handleCards)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/sse", s.handleSSE)

	// serve dashboard assets
	if s.assets != nil {
		// serve index.html at root
		mux.HandleFunc("/", s.handleDashboard)
	}

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleCards returns all current card results as JSON.
func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cards := s.store.GetAll()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(cards); err != nil {
		s.logger.Error("failed to encode cards response", "error", err)
	}
}

// handleLogs returns the accumulated execution-log view as JSON.
//
// Data already fetched is served even when the stream's most recent poll
// failed; the failure rides along in the error field.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := logsResponse{Entries: []api.ExecutionLog{}}
	if s.logs != nil {
		if entries := s.logs.Snapshot(); entries != nil {
			resp.Entries = entries
		}
		if err := s.logs.Err(); err != nil {
			msg := err.Error()
			resp.Error = &msg
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode logs response", "error", err)
	}
}

// handleSSE streams card updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call would
// prevent the handler from detecting context cancellation or channel
// closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some
	// ResponseWriter impls)
	deadlinesSupported := true

	// writeAndFlush writes SSE data with a deadline to prevent blocking
	// forever. If the client is slow or disconnected, the write will
	// timeout rather than blocking indefinitely, allowing the handler to
	// detect shutdown signals.
	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe to store updates
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send initial card states (also protected by write deadline)
	for _, card := range s.store.GetAll() {
		data, err := json.Marshal(card)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case result, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(result)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via
			// BaseContext, so this fires on both client disconnect AND
			// server shutdown
			return
		}
	}
}
