// Package limiters provides the Redis-backed failed-attempt limiter for
// autologin verification.
//
// # Design
//
// Failure records are fixed-window counters keyed per target user id and per
// source IP: INCR plus an EXPIRE set only on the first failure, so the window
// runs a fixed duration from the first failure and resets only by natural
// expiry. Each counter carries a capped companion list of audit metadata
// (offending IPs on the user record; targeted user ids or malformed payloads
// on the IP record) that shares the counter's expiry and is never consulted
// for the blocking decision.
//
// # Architecture boundaries
//
// This package owns counting and its Redis key namespace. Policy thresholds
// come from Config at construction time; the Engine decides consequences.
//
// # What this package must NOT do
//
//   - Import autologin or any sibling internal package.
//   - Make blocking decisions from metadata — only the counter blocks.
package limiters
