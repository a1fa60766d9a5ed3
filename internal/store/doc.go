// Package store provides in-memory storage for dashboard card state.
//
// This package is internal to fnpulse. It holds the latest [CardResult] per
// card and implements a publish-subscribe mechanism so the HTTP server's
// Server-Sent Events stream and the terminal UI can react to updates in
// real time.
//
// The main components are:
//
//   - [Store]: storage interface with pub/sub
//   - [MemoryStore]: thread-safe in-memory implementation
//   - [CardResult]: the stored state of one card
package store
