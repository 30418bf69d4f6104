// Package token implements secret generation, wire-format encoding, and hash
// derivation for autologin codes.
//
// # Components
//
//   - [NewSecret] — CSPRNG alphanumeric secret generation.
//   - [Encode] / [Decode] — the "{user_id}~{secret}" wire format.
//   - [CodeHash] / [UserHash] — the digests persisted by the code store.
//
// # Architecture boundaries
//
// This package is pure: no I/O beyond crypto/rand, no Redis, no policy. Wire
// validation happens here so malformed input is rejected before any store or
// limiter is consulted.
//
// # What this package must NOT do
//
//   - Import autologin or any sibling internal package.
//   - Persist or log secrets.
package token
