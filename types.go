package autologin

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/linkgate/autologin/internal/audit"
)

// IssuedToken is returned by [Engine.Issue]. Token is the "{user_id}~{secret}"
// wire form ready to embed in a URL query parameter; ExpiresIn is the
// effective TTL after capping, for caller-facing messaging ("valid for 15
// minutes"); ExpiresAt is the absolute UTC deadline.
type IssuedToken struct {
	Token     string
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// DenyReason classifies a verification denial for internal logging and audit.
// It must never be exposed to the end user: all denials look identical from
// the outside so an attacker cannot distinguish "wrong code" from "blocked
// IP" from "unknown user".
type DenyReason string

const (
	// DenyMalformed is an exported constant or variable used by the autologin engine.
	DenyMalformed DenyReason = "malformed"
	// DenyIPBlocked is an exported constant or variable used by the autologin engine.
	DenyIPBlocked DenyReason = "ip_blocked"
	// DenyUserBlocked is an exported constant or variable used by the autologin engine.
	DenyUserBlocked DenyReason = "user_blocked"
	// DenyAlreadyAuthenticated is an exported constant or variable used by the autologin engine.
	DenyAlreadyAuthenticated DenyReason = "already_authenticated"
	// DenyInvalidOrExpired is an exported constant or variable used by the autologin engine.
	DenyInvalidOrExpired DenyReason = "invalid_or_expired"
	// DenyStoreUnavailable is an exported constant or variable used by the autologin engine.
	DenyStoreUnavailable DenyReason = "store_unavailable"
)

// VerifyResult is the tagged outcome of [Engine.Verify]. When OK is true,
// UserID identifies the authenticated account and the caller is responsible
// for establishing the session. When OK is false, Reason records why — for
// logs and audit only, never for the end user.
type VerifyResult struct {
	OK     bool
	UserID uint64
	Reason DenyReason
}

// UserResolver is the interface callers implement to let the engine confirm
// that a verified code belongs to a real, existing account. Exists must not
// create sessions or mutate state.
type UserResolver interface {
	Exists(ctx context.Context, userID uint64) (bool, error)
}

// UserResolverFunc adapts a function to the [UserResolver] interface.
type UserResolverFunc func(ctx context.Context, userID uint64) (bool, error)

// Exists describes the exists operation and its observable behavior.
func (f UserResolverFunc) Exists(ctx context.Context, userID uint64) (bool, error) {
	return f(ctx, userID)
}

// IssuePolicy is a caller-supplied predicate consulted before issuing a
// token. Returning false vetoes issuance for that user (for example: account
// disabled, channel opted out). A nil policy allows all issuance.
type IssuePolicy func(ctx context.Context, userID uint64) bool

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
