package scope

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/metrics"
	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/pii"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

// Interceptor is the single choke point every operation passes through. The
// rewrite is synchronous and completes entirely before the I/O-bound
// dispatch; the interceptor holds no per-call state of its own.
type Interceptor struct {
	registry *Registry
	guard    relationshipGuard
	metrics  *metrics.IsolationMetrics
	audit    domain.AuditBuffer
	redactor *pii.Redactor
	logger   *slog.Logger
}

func newInterceptor(registry *Registry, m *metrics.IsolationMetrics, audit domain.AuditBuffer, redactor *pii.Redactor, logger *slog.Logger) *Interceptor {
	return &Interceptor{
		registry: registry,
		guard:    relationshipGuard{registry: registry},
		metrics:  m,
		audit:    audit,
		redactor: redactor,
		logger:   logger.With("component", "scope_interceptor"),
	}
}

// prepare rewrites the descriptor in place for the given tenant binding. An
// empty tenantID means the unscoped provisioning path, which is only valid
// for global entities. prepare runs before any I/O; a rejected operation
// never reaches the driver.
func (ic *Interceptor) prepare(op *Operation, tenantID string) error {
	scoped, err := ic.registry.IsTenantScoped(op.Entity)
	if err != nil {
		ic.violation("unknown_entity")
		return err
	}

	if !scoped {
		// Global entities bypass tenant filtering; their includes are still
		// guarded because the targets may be tenant-scoped.
		return ic.guard.rewrite(op, tenantID)
	}

	if tenantID == "" {
		ic.violation("missing_tenant")
		return fmt.Errorf("%w: %s on %q requires a scoped client",
			ErrMissingTenantContext, op.Action, op.Entity)
	}

	key, err := ic.registry.TenantKey(op.Entity)
	if err != nil {
		return err
	}

	switch op.Action {
	case ActionCreate:
		// Strict overwrite: a payload claiming another tenant is never honored.
		op.Data = stampTenant(op.Data, key, tenantID)
	case ActionCreateMany:
		stamped := make([]Record, len(op.Batch))
		for i, rec := range op.Batch {
			stamped[i] = stampTenant(rec, key, tenantID)
		}
		op.Batch = stamped
	case ActionUpdate, ActionUpdateMany:
		// The tenant key is immutable after creation; update payloads may
		// not carry it at all.
		if op.Data != nil {
			op.Data = op.Data.Clone()
			delete(op.Data, key)
		}
		op.Where = And(Eq(key, tenantID), op.Where)
	default:
		op.Where = And(Eq(key, tenantID), op.Where)
	}

	if err := ic.guard.rewrite(op, tenantID); err != nil {
		ic.violation("unsafe_traversal")
		return err
	}
	return nil
}

// finish records metrics and emits the audit event after a successful
// dispatch.
func (ic *Interceptor) finish(ctx context.Context, op *Operation, tenantID string) {
	if ic.metrics != nil {
		ic.metrics.OperationsTotal.WithLabelValues(string(op.Entity), string(op.Action)).Inc()
	}
	ic.emitAudit(ctx, op, tenantID)
}

func (ic *Interceptor) violation(reason string) {
	if ic.metrics != nil {
		ic.metrics.ViolationsTotal.WithLabelValues(reason).Inc()
	}
}

// emitAudit buffers a tenant-tagged record of a successful write. Emission
// is best-effort: a buffer failure is logged and counted but never fails the
// operation it describes. Writes to the audit log itself are not audited.
func (ic *Interceptor) emitAudit(ctx context.Context, op *Operation, tenantID string) {
	if ic.audit == nil || tenantID == "" || !op.Action.Mutates() {
		return
	}
	if op.Entity == domain.EntityAuditLog {
		return
	}

	event := domain.AuditEvent{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Entity:     op.Entity,
		Action:     string(op.Action),
		OccurredAt: time.Now().UTC(),
	}
	if op.Data != nil {
		if id, ok := op.Data["id"].(string); ok {
			event.RecordID = id
		}
		if snapshot, err := json.Marshal(op.Data); err == nil {
			event.Snapshot = snapshot
		}
	}

	if ic.redactor != nil {
		if err := ic.redactor.Redact(&event); err != nil {
			ic.logger.Warn("failed to redact audit snapshot, dropping snapshot",
				"error", err, "event_id", event.ID)
			event.Snapshot = nil
		}
	}

	if err := ic.audit.BufferAudit(ctx, event); err != nil {
		ic.logger.Warn("failed to buffer audit event",
			"error", err, "event_id", event.ID, "entity", op.Entity, "action", op.Action)
		if ic.metrics != nil {
			ic.metrics.AuditBufferErrors.Inc()
		}
		return
	}
	if ic.metrics != nil {
		ic.metrics.AuditEventsBuffered.Inc()
	}
}

func stampTenant(rec Record, key, tenantID string) Record {
	if rec == nil {
		rec = Record{}
	} else {
		rec = rec.Clone()
	}
	rec[key] = tenantID
	return rec
}
