// Package refresh implements the card refresh scheduler for fnpulse.
//
// This package is internal to fnpulse and not intended for direct use.
// The public API is provided by the root fnpulse package.
//
// The scheduler fetches each card's backing metric from the platform API at
// the card's interval, derives the card's headline value and detail via the
// metrics package, and emits results on a channel consumed by the board.
// Cards with distinct intervals share one ticker running at the GCD of all
// intervals.
package refresh
