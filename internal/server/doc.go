// Package server provides the HTTP server for the fnpulse dashboard and API.
//
// This package is internal to fnpulse and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: JSON endpoints at "/api/cards" and "/api/logs"
//   - Server-Sent Events: Real-time card updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the fnpulse library should not need to interact with this package
// directly. The server is started automatically by the board's Start.
package server
