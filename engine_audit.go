package autologin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventIssueSuccess       = "autologin_issue_success"
	auditEventIssueDenied        = "autologin_issue_denied"
	auditEventIssueFailure       = "autologin_issue_failure"
	auditEventVerifySuccess      = "autologin_verify_success"
	auditEventVerifyDenied       = "autologin_verify_denied"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventCodesSwept         = "autologin_codes_swept"
	auditEventCodesRevoked       = "autologin_codes_revoked"
)

// AuditErrorCode defines a public type used by autologin APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrMalformed     AuditErrorCode = "malformed"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
	auditErrAlreadyAuthed AuditErrorCode = "already_authenticated"
	auditErrInvalidCode   AuditErrorCode = "invalid_or_expired"
	auditErrUserNotFound  AuditErrorCode = "user_not_found"
	auditErrPolicyDenied  AuditErrorCode = "policy_denied"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedToken):
		return auditErrMalformed
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAlreadyAuthenticated):
		return auditErrAlreadyAuthed
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrIssuanceDenied):
		return auditErrPolicyDenied
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID uint64,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	userID uint64,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, userID, nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}
