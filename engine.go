package autologin

import (
	"context"
	"sync"
	"time"

	internalaudit "github.com/linkgate/autologin/internal/audit"
	"github.com/linkgate/autologin/internal/limiters"
	"github.com/linkgate/autologin/internal/stores"
)

// Engine defines a public type used by autologin APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config    Config
	codeStore *stores.CodeStore
	limiter   *limiters.FailureLimiter
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	resolver  UserResolver
	policy    IssuePolicy

	sweepDone chan struct{}
	sweepWG   sync.WaitGroup
	closeOnce sync.Once
}

// Close stops the audit dispatcher and the background sweeper, flushing any
// buffered audit events first.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.sweepDone != nil {
			close(e.sweepDone)
			e.sweepWG.Wait()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType returns per-event-type counts of audit events lost to
// dispatcher backpressure, nil when nothing has been dropped. Lets operators
// distinguish lost denial events from lost sweep summaries.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil || e.audit == nil {
		return nil
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeContext applies the configured per-operation timeout on top of the
// caller's context so a Redis stall surfaces as unavailable instead of a hang.
func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Codes.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Codes.OpTimeout)
}

// FailureCounts returns the current failure counters for a user id and an IP,
// for operator tooling. Missing records read as zero.
func (e *Engine) FailureCounts(ctx context.Context, userID uint64, ip string) (userCount, ipCount int64, err error) {
	if e == nil || e.limiter == nil {
		return 0, 0, ErrEngineNotReady
	}

	userCount, err = e.limiter.UserFailures(ctx, userID)
	if err != nil {
		return 0, 0, ErrStoreUnavailable
	}
	if ip != "" {
		ipCount, err = e.limiter.IPFailures(ctx, ip)
		if err != nil {
			return 0, 0, ErrStoreUnavailable
		}
	}

	return userCount, ipCount, nil
}

// FailureMetadata returns the audit metadata recorded alongside the failure
// counters: the IPs that failed against the user id, and the user ids (or
// malformed payloads) the IP has targeted.
func (e *Engine) FailureMetadata(ctx context.Context, userID uint64, ip string) (userIPs, ipTargets []string, err error) {
	if e == nil || e.limiter == nil {
		return nil, nil, ErrEngineNotReady
	}

	userIPs, err = e.limiter.UserFailureIPs(ctx, userID)
	if err != nil {
		return nil, nil, ErrStoreUnavailable
	}
	if ip != "" {
		ipTargets, err = e.limiter.IPFailureTargets(ctx, ip)
		if err != nil {
			return nil, nil, ErrStoreUnavailable
		}
	}

	return userIPs, ipTargets, nil
}

func (e *Engine) startSweeper(interval time.Duration) {
	e.sweepDone = make(chan struct{})
	e.sweepWG.Add(1)

	go func() {
		defer e.sweepWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := e.storeContext(context.Background())
				_, _ = e.SweepExpiredCodes(ctx, time.Now())
				cancel()
			case <-e.sweepDone:
				return
			}
		}
	}()
}
