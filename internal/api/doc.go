// Package api provides the HTTP client for the serverless platform backend.
//
// This package is internal to fnpulse and wraps the platform's REST API:
// cursor-based execution log batches, per-metric time series, per-UDF
// execution statistics, and billing usage. It owns the [Cursor] codec used
// by the incremental log stream.
//
// The client is transport-only: it performs requests, enforces body limits,
// and decodes JSON. Pacing, retries, and backoff are the caller's concern
// (see the stream package).
package api
