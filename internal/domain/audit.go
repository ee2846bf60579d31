package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditEvent records one successful write operation issued through a scoped
// client. Events are buffered (Redis Streams, with a WAL fallback) and
// drained by the audit worker into auditLog records under the owning tenant.
type AuditEvent struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	Entity     EntityType      `json:"entity"`
	Action     string          `json:"action"`
	RecordID   string          `json:"record_id,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	Redacted   bool            `json:"redacted,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`

	// StreamMessageID is the buffer-assigned message ID, used for acks.
	StreamMessageID string `json:"-"`
}

// AuditBuffer defines the interface for the durable audit-event buffer.
type AuditBuffer interface {
	// BufferAudit appends a single audit event to the durable buffer.
	BufferAudit(ctx context.Context, event AuditEvent) error

	// ReadAuditBatch reads a batch of audit events for a specific consumer.
	ReadAuditBatch(ctx context.Context, group, consumer string, count int) ([]AuditEvent, error)

	// AcknowledgeAudits marks a set of audit events as successfully persisted.
	AcknowledgeAudits(ctx context.Context, group string, messageIDs ...string) error
}

// AuditWAL defines the interface for the local write-ahead failover buffer
// used when the primary audit buffer is unavailable.
type AuditWAL interface {
	// Write appends an audit event to the local WAL.
	Write(ctx context.Context, event AuditEvent) error

	// Replay reads buffered events and hands them to a handler function.
	// The handler is responsible for re-buffering the event.
	Replay(ctx context.Context, handler func(event AuditEvent) error) error

	// Truncate removes WAL segments that have been successfully replayed.
	Truncate(ctx context.Context) error
}
