package autologin

import (
	"context"
	"strconv"
	"time"

	"github.com/linkgate/autologin/internal/token"
)

// SweepExpiredCodes deletes every stored code whose expiry is before the
// given timestamp and returns the number removed. Intended to run on a
// recurring schedule (see Config.Codes.SweepInterval for the built-in
// scheduler); idempotent and safe to run concurrently with issuance and
// verification, since it only ever removes records already past their
// deadline.
func (e *Engine) SweepExpiredCodes(ctx context.Context, before time.Time) (int64, error) {
	if e == nil || e.codeStore == nil {
		return 0, ErrEngineNotReady
	}

	deleted, err := e.codeStore.SweepExpired(ctx, before)
	if err != nil {
		e.emitAudit(ctx, auditEventCodesSwept, false, 0, ErrStoreUnavailable, nil)
		return deleted, ErrStoreUnavailable
	}

	if deleted > 0 {
		if e.metrics != nil {
			e.metrics.Add(MetricCodesSwept, uint64(deleted))
		}
		e.emitAudit(ctx, auditEventCodesSwept, true, 0, nil, func() map[string]string {
			return map[string]string{
				"deleted": strconv.FormatInt(deleted, 10),
			}
		})
	}

	return deleted, nil
}

// RevokeUserCodes invalidates every outstanding code issued to the given
// user, regardless of expiry, and returns the number removed. The lookup
// runs on the stored user hash, so it finds records without knowing any
// secret.
func (e *Engine) RevokeUserCodes(ctx context.Context, userID uint64) (int64, error) {
	if e == nil || e.codeStore == nil {
		return 0, ErrEngineNotReady
	}

	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	deleted, err := e.codeStore.RevokeUser(storeCtx, token.UserHash(e.config.Codes.Salt, userID))
	if err != nil {
		e.emitAudit(ctx, auditEventCodesRevoked, false, userID, ErrStoreUnavailable, nil)
		return deleted, ErrStoreUnavailable
	}

	if e.metrics != nil && deleted > 0 {
		e.metrics.Add(MetricCodesRevoked, uint64(deleted))
	}
	e.emitAudit(ctx, auditEventCodesRevoked, true, userID, nil, func() map[string]string {
		return map[string]string{
			"deleted": strconv.FormatInt(deleted, 10),
		}
	})

	return deleted, nil
}
