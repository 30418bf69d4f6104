// Package autologin issues and verifies single-use, time-limited login
// tokens embedded in URLs, with Redis-backed persistence and abuse-resistant
// rate limiting of failed attempts.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Each issuance or verification is a short request-scoped
// unit of work; the only long-lived goroutines are the audit dispatcher and
// the optional expiry sweeper, both stopped by [Engine.Close].
//
// # Architecture boundaries
//
// autologin is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (IssuedToken, VerifyResult, etc.). All internal mechanics —
// secret generation, wire codec, code persistence, failure counting, audit
// dispatch — live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or record encodings in its public API.
//   - Establish sessions, send email, or render URLs — callers own those.
//   - Reveal a denial reason to end users; reasons are for logs and audit only.
//
// # Security contract
//
// Secrets are never persisted or logged: the store holds sha256 digests only,
// and stored-versus-provided comparisons are constant-time. Verification
// fails closed when Redis is unreachable. Consumption is a single atomic
// delete-on-match, so a replayed token deterministically fails.
package autologin
