// Package stores provides the Redis-backed persistent store for autologin
// code records.
//
// # Design
//
// Each record is a versioned, binary-encoded value keyed by the hex code hash,
// written with SET NX so a duplicate hash insert fails loudly instead of
// overwriting. Consumption is a single atomic Lua GET→expiry-check→DEL, so at
// most one concurrent verifier can win a code. Expired records are treated as
// absent and opportunistically deleted on read; a SCAN-based sweep removes
// leftovers on a schedule.
//
// # Architecture boundaries
//
// This package owns persistence and single-use semantics. It does NOT derive
// hashes, enforce rate limits, or make authentication decisions — those
// belong to internal/token and the Engine.
//
// # What this package must NOT do
//
//   - Import autologin or any sibling internal package.
//   - See or store plaintext secrets; callers hand it digests only.
package stores
