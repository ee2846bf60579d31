package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

const (
	defaultBatchSize    = 500
	defaultRetryCount   = 3
	defaultRetryBackoff = 1 * time.Second
)

// ProcessAuditUseCase drains buffered audit events and persists them as
// auditLog records. Every event is written through a scoped client bound to
// that event's tenant; the worker never holds a cross-tenant handle, so the
// audit trail is subject to the same isolation discipline as everything else.
type ProcessAuditUseCase struct {
	buffer    domain.AuditBuffer
	factory   *scope.Factory
	logger    *slog.Logger
	group     string
	consumer  string
	batchSize int
}

// NewProcessAuditUseCase creates a new use case for sinking audit events.
func NewProcessAuditUseCase(buffer domain.AuditBuffer, factory *scope.Factory, logger *slog.Logger, group, consumer string) *ProcessAuditUseCase {
	return &ProcessAuditUseCase{
		buffer:    buffer,
		factory:   factory,
		logger:    logger,
		group:     group,
		consumer:  consumer,
		batchSize: defaultBatchSize,
	}
}

// ProcessBatch reads a batch of audit events, persists each under its own
// tenant with retries, and acknowledges the persisted ones.
func (uc *ProcessAuditUseCase) ProcessBatch(ctx context.Context) (int, error) {
	events, err := uc.buffer.ReadAuditBatch(ctx, uc.group, uc.consumer, uc.batchSize)
	if err != nil {
		uc.logger.Error("failed to read audit batch from buffer", "error", err)
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil // No new events, not an error
	}

	uc.logger.Debug("read batch of audit events", "count", len(events))

	clients := make(map[string]*scope.ScopedClient)
	persisted := make([]string, 0, len(events))
	for _, event := range events {
		client, ok := clients[event.TenantID]
		if !ok {
			client, err = uc.factory.Scoped(event.TenantID)
			if err != nil {
				// A blank tenant on a buffered event is a producer bug; the
				// event is unprocessable and must not wedge the stream.
				uc.logger.Error("dropping audit event with invalid tenant", "event_id", event.ID, "error", err)
				persisted = append(persisted, event.StreamMessageID)
				continue
			}
			clients[event.TenantID] = client
		}

		if err := uc.persistWithRetry(ctx, client, event); err != nil {
			uc.logger.Error("failed to persist audit event after retries, leaving for redelivery",
				"event_id", event.ID, "error", err)
			continue
		}
		persisted = append(persisted, event.StreamMessageID)
	}

	if len(persisted) == 0 {
		return 0, nil
	}
	if err := uc.buffer.AcknowledgeAudits(ctx, uc.group, persisted...); err != nil {
		uc.logger.Error("failed to acknowledge audit events in buffer", "error", err)
		// Persisted but un-acked events will be redelivered; the id column's
		// uniqueness keeps the sink idempotent.
		return 0, err
	}

	uc.logger.Info("persisted audit batch", "count", len(persisted))
	return len(persisted), nil
}

func (uc *ProcessAuditUseCase) persistWithRetry(ctx context.Context, client *scope.ScopedClient, event domain.AuditEvent) error {
	record := scope.Record{
		"id":         event.ID,
		"entity":     string(event.Entity),
		"action":     event.Action,
		"recordId":   event.RecordID,
		"occurredAt": event.OccurredAt,
	}

	var lastErr error
	for i := 0; i < defaultRetryCount; i++ {
		_, err := client.Create(ctx, domain.EntityAuditLog, record)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to persist audit event, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(defaultRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
