package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/memory"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain/mocks"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

func newAuditFixture(t *testing.T, buffer domain.AuditBuffer) (*ProcessAuditUseCase, *scope.Factory) {
	t.Helper()
	registry := scope.DefaultRegistry()
	driver := memory.NewDriver(registry)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := scope.NewFactory(driver, registry, logger)
	uc := NewProcessAuditUseCase(buffer, factory, logger, "audit-sinkers", "test-consumer")
	return uc, factory
}

func auditEvent(id, tenantID, messageID string) domain.AuditEvent {
	return domain.AuditEvent{
		ID:              id,
		TenantID:        tenantID,
		Entity:          domain.EntityUser,
		Action:          "create",
		RecordID:        "u-" + id,
		OccurredAt:      time.Now().UTC(),
		StreamMessageID: messageID,
	}
}

func TestProcessBatch_PersistsUnderEachTenant(t *testing.T) {
	buffer := &mocks.MockAuditBuffer{
		ReadBatchResult: []domain.AuditEvent{
			auditEvent("ev1", "tenant-a", "1-0"),
			auditEvent("ev2", "tenant-b", "2-0"),
			auditEvent("ev3", "tenant-a", "3-0"),
		},
	}
	uc, factory := newAuditFixture(t, buffer)
	ctx := context.Background()

	n, err := uc.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 persisted, got %d", n)
	}
	if len(buffer.AckedMessageIDs) != 3 {
		t.Errorf("expected 3 acks, got %v", buffer.AckedMessageIDs)
	}

	// Each tenant must see exactly its own audit rows.
	clientA, _ := factory.Scoped("tenant-a")
	rowsA, err := clientA.FindMany(ctx, domain.EntityAuditLog, scope.Predicate{})
	if err != nil {
		t.Fatalf("findMany: %v", err)
	}
	if len(rowsA) != 2 {
		t.Errorf("expected 2 audit rows for tenant-a, got %d", len(rowsA))
	}

	clientB, _ := factory.Scoped("tenant-b")
	rowsB, err := clientB.FindMany(ctx, domain.EntityAuditLog, scope.Predicate{})
	if err != nil {
		t.Fatalf("findMany: %v", err)
	}
	if len(rowsB) != 1 || rowsB[0]["recordId"] != "u-ev2" {
		t.Errorf("unexpected audit rows for tenant-b: %v", rowsB)
	}
}

func TestProcessBatch_EmptyBatch(t *testing.T) {
	buffer := &mocks.MockAuditBuffer{}
	uc, _ := newAuditFixture(t, buffer)

	n, err := uc.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 persisted, got %d", n)
	}
	if len(buffer.AckedMessageIDs) != 0 {
		t.Errorf("empty batch must not ack anything, got %v", buffer.AckedMessageIDs)
	}
}

func TestProcessBatch_DropsEventWithInvalidTenant(t *testing.T) {
	buffer := &mocks.MockAuditBuffer{
		ReadBatchResult: []domain.AuditEvent{
			auditEvent("ev1", "", "1-0"),
			auditEvent("ev2", "tenant-a", "2-0"),
		},
	}
	uc, factory := newAuditFixture(t, buffer)
	ctx := context.Background()

	n, err := uc.ProcessBatch(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Errorf("expected both message ids handled, got %d", n)
	}
	// The unprocessable event is acked so it cannot wedge the stream.
	if len(buffer.AckedMessageIDs) != 2 {
		t.Errorf("expected 2 acks, got %v", buffer.AckedMessageIDs)
	}

	client, _ := factory.Scoped("tenant-a")
	rows, err := client.FindMany(ctx, domain.EntityAuditLog, scope.Predicate{})
	if err != nil {
		t.Fatalf("findMany: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected only the valid event persisted, got %d rows", len(rows))
	}
}

func TestProcessBatch_ReadErrorPropagates(t *testing.T) {
	buffer := &mocks.MockAuditBuffer{ReadErr: context.DeadlineExceeded}
	uc, _ := newAuditFixture(t, buffer)

	if _, err := uc.ProcessBatch(context.Background()); err == nil {
		t.Fatal("expected read error to propagate")
	}
}
