// Package stream implements incremental, cursor-based log polling for
// fnpulse.
//
// This package is internal to fnpulse. It owns the adaptive poll loop that
// feeds the dashboard's live log views:
//
//   - [Stream]: one polling subscription; fetches batches from a cursor,
//     merges them into a deduplicated, timestamp-descending collection, and
//     paces itself based on observed activity and errors
//   - [Config]: pacing knobs (minimum spacing, active/idle intervals, idle
//     backoff, error backoff, run gate)
//   - [Coalescer]: joins concurrent fetches for the same endpoint and
//     cursor bucket into a single request
//
// Pacing rules, in order of precedence: a hard minimum spacing between
// request starts protects the platform regardless of other timers; a poll
// that merged new entries schedules the next poll at the active interval; a
// poll that merged nothing grows the delay geometrically up to a ceiling;
// a failed poll backs off with jitter keyed by the consecutive-failure
// count. Failures are never fatal: only cancellation stops a stream.
package stream
