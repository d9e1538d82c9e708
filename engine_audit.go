package goWarden

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventAuthenticateSuccess = "authenticate_success"
	auditEventAuthenticateFailure = "authenticate_failure"
	auditEventRefreshSuccess      = "refresh_success"
	auditEventRefreshFailure      = "refresh_failure"
	auditEventAccessTokenIssued   = "access_token_issued"
	auditEventRefreshTokenIssued  = "refresh_token_issued"
	auditEventRotation            = "token_rotation"
	auditEventSignOut             = "sign_out"
	auditEventTTLChanged          = "access_token_ttl_changed"
	auditEventStoreFailure        = "store_failure"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrAuthenticationFailed AuditErrorCode = "authentication_failed"
	auditErrInvalidState         AuditErrorCode = "invalid_state"
	auditErrMisconfigured        AuditErrorCode = "misconfigured_scope"
	auditErrPoolExhausted        AuditErrorCode = "pool_exhausted"
	auditErrUnavailable          AuditErrorCode = "store_unavailable"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	scope string,
	subjectID string,
	success bool,
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
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Scope:     scope,
		SubjectID: subjectID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// storeFailure records a store error surfaced by operation on scope.
func (e *Engine) storeFailure(ctx context.Context, scope *Scope, operation string, err error) {
	if e == nil {
		return
	}
	name := ""
	if scope != nil {
		name = scope.name
	}

	e.metricInc(MetricStoreError)
	e.logger.Error().Err(err).Str("scope", name).Str("operation", operation).Msg("token store failure")
	e.emitAudit(ctx, auditEventStoreFailure, name, "", false, err, func() map[string]string {
		return map[string]string{"operation": operation}
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrAuthenticationFailed
	case errors.Is(err, ErrInvalidState):
		return auditErrInvalidState
	case errors.Is(err, ErrMisconfiguredScope):
		return auditErrMisconfigured
	case errors.Is(err, ErrPoolExhausted):
		return auditErrPoolExhausted
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
