package pii

import (
	"encoding/json"
	"log/slog"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor removes sensitive payload fields from audit event snapshots
// before they leave the process. The snapshot is advisory; the audit trail
// must never become a side channel for biometric templates or card data.
type Redactor struct {
	fieldsToRedact map[string]struct{}
	logger         *slog.Logger
}

// NewRedactor creates a Redactor for the given set of snapshot fields.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Redact modifies the event in place, replacing configured snapshot fields
// with a placeholder. It returns an error if JSON processing fails.
func (r *Redactor) Redact(event *domain.AuditEvent) error {
	if len(r.fieldsToRedact) == 0 || len(event.Snapshot) == 0 {
		return nil
	}

	var snapshot map[string]interface{}
	if err := json.Unmarshal(event.Snapshot, &snapshot); err != nil {
		r.logger.Warn("failed to unmarshal audit snapshot for redaction", "error", err, "event_id", event.ID)
		return err
	}

	redacted := false
	for field := range r.fieldsToRedact {
		if _, ok := snapshot[field]; ok {
			snapshot[field] = RedactedPlaceholder
			redacted = true
		}
	}

	if redacted {
		modified, err := json.Marshal(snapshot)
		if err != nil {
			r.logger.Error("failed to marshal audit snapshot after redaction", "error", err, "event_id", event.ID)
			return err
		}
		event.Snapshot = modified
		event.Redacted = true
	}

	return nil
}
