package autologin

import (
	"errors"

	internalaudit "github.com/linkgate/autologin/internal/audit"
	"github.com/linkgate/autologin/internal/limiters"
	"github.com/linkgate/autologin/internal/stores"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by autologin APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	resolver  UserResolver
	policy    IssuePolicy
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserResolver describes the withuserresolver operation and its observable behavior.
//
// WithUserResolver does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserResolver(r UserResolver) *Builder {
	b.resolver = r
	return b
}

// WithIssuePolicy describes the withissuepolicy operation and its observable behavior.
//
// WithIssuePolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithIssuePolicy(p IssuePolicy) *Builder {
	b.policy = p
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.resolver == nil {
		return nil, errors.New("user resolver required")
	}

	engine := &Engine{
		config:    cfg,
		codeStore: stores.NewCodeStore(b.redis, cfg.Codes.RedisPrefix),
		limiter: limiters.New(b.redis, cfg.Lockout.RedisPrefix, limiters.Config{
			MaxAttempts: cfg.Lockout.MaxAttempts,
			Window:      cfg.Lockout.Window,
		}),
		resolver: b.resolver,
		policy:   b.policy,
		metrics:  NewMetrics(cfg.Metrics),
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	if cfg.Codes.SweepInterval > 0 {
		engine.startSweeper(cfg.Codes.SweepInterval)
	}

	b.built = true

	return engine, nil
}
