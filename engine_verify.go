package autologin

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/linkgate/autologin/internal/stores"
	"github.com/linkgate/autologin/internal/token"
)

// Verify runs the full verification state machine for a raw token taken from
// an inbound URL: wire decode, per-IP and per-user lockout checks, the
// already-authenticated short-circuit, then the atomic consume against the
// code store and the account existence check.
//
// Source IP and the current session user travel on ctx via [WithClientIP]
// and [WithSessionUserID]; Verify is otherwise a pure function of its inputs
// and the injected collaborators.
//
// On success the caller establishes the session for VerifyResult.UserID. On
// denial, VerifyResult.Reason is for logs and audit only — callers must show
// the end user one uniform "login failed" message regardless of reason.
// Store or limiter outages deny (fail closed) with DenyStoreUnavailable and
// do not feed the attempt limiter.
func (e *Engine) Verify(ctx context.Context, rawToken string) (VerifyResult, error) {
	if e == nil || e.codeStore == nil || e.limiter == nil || e.resolver == nil {
		return VerifyResult{}, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}
	}()

	ip := clientIPFromContext(ctx)

	// START → DECODED. Malformed input never reaches the store and is never
	// attributed to a real user id.
	userID, secret, err := token.Decode(rawToken)
	if err != nil {
		e.recordFailure(ctx, nil, ip, rawToken)
		e.metricInc(MetricVerifyMalformed)
		e.emitAudit(ctx, auditEventVerifyDenied, false, 0, ErrMalformedToken, nil)
		return e.denied(0, DenyMalformed), nil
	}

	// DECODED → IP_CHECKED.
	if ip != "" {
		blocked, err := e.limiter.IsIPBlocked(ctx, ip)
		if err != nil {
			return e.failClosed(ctx, userID), nil
		}
		if blocked {
			e.recordFailure(ctx, &userID, ip, rawToken)
			e.metricInc(MetricVerifyIPBlocked)
			e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrRateLimited, nil)
			e.emitRateLimit(ctx, "verify_ip", userID, nil)
			return e.denied(userID, DenyIPBlocked), nil
		}
	}

	// IP_CHECKED → USER_CHECKED.
	blocked, err := e.limiter.IsUserBlocked(ctx, userID)
	if err != nil {
		return e.failClosed(ctx, userID), nil
	}
	if blocked {
		e.recordFailure(ctx, &userID, ip, rawToken)
		e.metricInc(MetricVerifyUserBlocked)
		e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrRateLimited, nil)
		e.emitRateLimit(ctx, "verify_user", userID, nil)
		return e.denied(userID, DenyUserBlocked), nil
	}

	// USER_CHECKED → STORE_CHECKED. Clicking one's own still-valid link is
	// not an attack signal: no failure is recorded and the code survives.
	if sessionUser, ok := sessionUserIDFromContext(ctx); ok && sessionUser == userID {
		e.metricInc(MetricVerifyAlreadyAuthenticated)
		e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrAlreadyAuthenticated, nil)
		return e.denied(userID, DenyAlreadyAuthenticated), nil
	}

	storeCtx, cancel := e.storeContext(ctx)
	record, err := e.codeStore.Consume(storeCtx, token.CodeHash(userID, secret), e.config.Codes.ConsumeOnSuccess)
	cancel()
	if err != nil {
		if errors.Is(err, stores.ErrCodeNotFound) {
			e.recordFailure(ctx, &userID, ip, rawToken)
			e.metricInc(MetricVerifyInvalidCode)
			e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrInvalidOrExpiredCode, nil)
			return e.denied(userID, DenyInvalidOrExpired), nil
		}
		return e.failClosed(ctx, userID), nil
	}

	// The code hash already binds user id and secret; recomputing the user
	// hash under the current salt catches stale records after salt rotation.
	expected := token.UserHash(e.config.Codes.Salt, userID)
	if record.UserID != userID || subtle.ConstantTimeCompare(record.UserHash[:], expected[:]) != 1 {
		e.recordFailure(ctx, &userID, ip, rawToken)
		e.metricInc(MetricVerifyInvalidCode)
		e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrInvalidOrExpiredCode, func() map[string]string {
			return map[string]string{
				"reason": "user_hash_mismatch",
			}
		})
		return e.denied(userID, DenyInvalidOrExpired), nil
	}

	exists, err := e.resolver.Exists(ctx, userID)
	if err != nil {
		return e.failClosed(ctx, userID), nil
	}
	if !exists {
		e.recordFailure(ctx, &userID, ip, rawToken)
		e.metricInc(MetricVerifyInvalidCode)
		e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrUserNotFound, nil)
		return e.denied(userID, DenyInvalidOrExpired), nil
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, userID, nil, nil)

	return VerifyResult{OK: true, UserID: userID}, nil
}

func (e *Engine) denied(userID uint64, reason DenyReason) VerifyResult {
	return VerifyResult{UserID: userID, Reason: reason}
}

// failClosed denies when the backend cannot be consulted. The outage is not
// attacker-controlled input, so the limiter is left untouched; the distinct
// audit code lets operators tell outages from attacks.
func (e *Engine) failClosed(ctx context.Context, userID uint64) VerifyResult {
	e.metricInc(MetricVerifyStoreUnavailable)
	e.emitAudit(ctx, auditEventVerifyDenied, false, userID, ErrStoreUnavailable, nil)
	return e.denied(userID, DenyStoreUnavailable)
}

// recordFailure feeds the attempt limiter. Recording is best-effort: a
// limiter outage must not change the denial already decided.
func (e *Engine) recordFailure(ctx context.Context, userID *uint64, ip, rawToken string) {
	_ = e.limiter.RecordFailure(ctx, userID, ip, rawToken)
}
