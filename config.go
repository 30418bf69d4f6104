package autologin

import (
	"errors"
	"time"
)

// Config defines a public type used by autologin APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token   TokenConfig
	Codes   CodeStoreConfig
	Lockout LockoutConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by autologin APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// SecretLength is the generated secret size in characters from the
	// 62-character alphanumeric alphabet. Minimum 32 (~190 bits).
	SecretLength int

	// DefaultTTL applies when Issue is called with ttl <= 0.
	DefaultTTL time.Duration

	// MaxTTL caps any requested TTL. 0 means "no cap beyond DefaultTTL rules".
	MaxTTL time.Duration
}

/*
====================================
CODE STORE CONFIG
====================================
*/

// CodeStoreConfig defines a public type used by autologin APIs.
//
// CodeStoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeStoreConfig struct {
	RedisPrefix string

	// Salt is the server-side secret mixed into user hashes. Rotating it
	// invalidates every outstanding code.
	Salt []byte

	// OpTimeout bounds each store round-trip. 0 disables the engine-applied
	// timeout; the caller's context still governs.
	OpTimeout time.Duration

	// SweepInterval, when > 0, starts a background expiry sweep that runs at
	// this cadence until Close. 0 leaves sweeping to the caller's scheduler.
	SweepInterval time.Duration

	// ConsumeOnSuccess deletes a code the moment it verifies. Disabling it
	// leaves successful codes to the expiry sweep (multi-use until expiry).
	ConsumeOnSuccess bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by autologin APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	RedisPrefix string

	// MaxAttempts is the failed-attempt budget per user id and per IP within
	// the window. At MaxAttempts the target is short-circuited to denied.
	MaxAttempts int

	// Window runs fixed from the first failure; it is not refreshed by later
	// failures and never reset by a success. A legitimate user who fails
	// MaxAttempts-1 times stays one failure from lockout until expiry.
	Window time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by autologin APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by autologin APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SecretLength: 32,
			DefaultTTL:   15 * time.Minute,
			MaxTTL:       24 * time.Hour,
		},
		Codes: CodeStoreConfig{
			RedisPrefix:      "alc",
			OpTimeout:        2 * time.Second,
			SweepInterval:    0,
			ConsumeOnSuccess: true,
		},
		Lockout: LockoutConfig{
			RedisPrefix: "alf",
			MaxAttempts: 5,
			Window:      24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Codes.Salt = cloneBytes(cfg.Codes.Salt)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Token
	if c.Token.SecretLength < 32 {
		return errors.New("Token SecretLength must be >= 32")
	}
	if c.Token.DefaultTTL <= 0 {
		return errors.New("Token DefaultTTL must be > 0")
	}
	if c.Token.MaxTTL > 0 && c.Token.MaxTTL < c.Token.DefaultTTL {
		return errors.New("Token MaxTTL must be >= DefaultTTL")
	}

	// Codes
	if len(c.Codes.Salt) < 16 {
		return errors.New("Codes Salt must be >= 16 bytes")
	}
	if c.Codes.OpTimeout < 0 {
		return errors.New("Codes OpTimeout must be >= 0")
	}
	if c.Codes.SweepInterval < 0 {
		return errors.New("Codes SweepInterval must be >= 0")
	}

	// Lockout
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.Window <= 0 {
		return errors.New("Lockout Window must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
