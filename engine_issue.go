package autologin

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/linkgate/autologin/internal/stores"
	"github.com/linkgate/autologin/internal/token"
)

// saveRetries bounds regeneration on a code-hash collision. With >=190 bits
// of secret entropy a single collision is already implausible.
const saveRetries = 3

// Issue generates a single-use autologin token for the given user and
// persists its salted hash with the requested TTL. ttl <= 0 falls back to
// the configured default; a TTL above the configured cap is silently capped.
// The token is returned only after the record is durably written — a store
// failure surfaces ErrStoreUnavailable and no token.
//
// The caller embeds the returned token in a URL and owns delivery; the
// effective TTL is reported back for human-readable expiry messaging.
func (e *Engine) Issue(ctx context.Context, userID uint64, ttl time.Duration) (IssuedToken, error) {
	if e == nil || e.codeStore == nil {
		return IssuedToken{}, ErrEngineNotReady
	}

	if e.policy != nil && !e.policy(ctx, userID) {
		e.metricInc(MetricIssueDenied)
		e.emitAudit(ctx, auditEventIssueDenied, false, userID, ErrIssuanceDenied, nil)
		return IssuedToken{}, ErrIssuanceDenied
	}

	if ttl <= 0 {
		ttl = e.config.Token.DefaultTTL
	}
	if e.config.Token.MaxTTL > 0 && ttl > e.config.Token.MaxTTL {
		ttl = e.config.Token.MaxTTL
	}

	userHash := token.UserHash(e.config.Codes.Salt, userID)

	var encoded string
	for attempt := 0; ; attempt++ {
		secret, err := token.NewSecret(e.config.Token.SecretLength)
		if err != nil {
			e.metricInc(MetricIssueFailure)
			e.emitAudit(ctx, auditEventIssueFailure, false, userID, err, func() map[string]string {
				return map[string]string{
					"reason": "secret_generation_failed",
				}
			})
			return IssuedToken{}, err
		}

		record := &stores.CodeRecord{
			UserID:    userID,
			UserHash:  userHash,
			ExpiresAt: time.Now().Add(ttl).Unix(),
		}

		storeCtx, cancel := e.storeContext(ctx)
		err = e.codeStore.Save(storeCtx, token.CodeHash(userID, secret), record, ttl)
		cancel()

		if err == nil {
			encoded = token.Encode(userID, secret)
			break
		}
		if errors.Is(err, stores.ErrCodeExists) && attempt < saveRetries {
			continue
		}

		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, ErrStoreUnavailable, func() map[string]string {
			return map[string]string{
				"ttl_seconds": strconv.FormatInt(int64(ttl/time.Second), 10),
			}
		})
		return IssuedToken{}, ErrStoreUnavailable
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, userID, nil, func() map[string]string {
		return map[string]string{
			"ttl_seconds": strconv.FormatInt(int64(ttl/time.Second), 10),
		}
	})

	return IssuedToken{
		Token:     encoded,
		ExpiresIn: ttl,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}, nil
}
