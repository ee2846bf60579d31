package wal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

func newTestWAL(t *testing.T, maxSegmentSize, maxTotalSize int64) *WALRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWALRepository(t.TempDir(), maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to open WAL: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func testEvent(tenantID string) domain.AuditEvent {
	return domain.AuditEvent{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Entity:     domain.EntityUser,
		Action:     "create",
		RecordID:   uuid.NewString(),
		OccurredAt: time.Now().UTC(),
	}
}

func TestWAL_WriteAndReplay(t *testing.T) {
	w := newTestWAL(t, 1<<20, 1<<24)
	ctx := context.Background()

	written := []domain.AuditEvent{testEvent("t1"), testEvent("t1"), testEvent("t2")}
	for _, event := range written {
		if err := w.Write(ctx, event); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var replayed []domain.AuditEvent
	err := w.Replay(ctx, func(event domain.AuditEvent) error {
		replayed = append(replayed, event)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(replayed) != len(written) {
		t.Fatalf("expected %d events, got %d", len(written), len(replayed))
	}
	for i := range written {
		if replayed[i].ID != written[i].ID || replayed[i].TenantID != written[i].TenantID {
			t.Errorf("event %d mismatch: wrote %+v, replayed %+v", i, written[i], replayed[i])
		}
	}
}

func TestWAL_HandlerErrorStopsReplay(t *testing.T) {
	w := newTestWAL(t, 1<<20, 1<<24)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.Write(ctx, testEvent("t1")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	stop := errors.New("sink unavailable again")
	var seen int
	err := w.Replay(ctx, func(domain.AuditEvent) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	if seen != 2 {
		t.Errorf("expected replay to stop at the failing event, saw %d", seen)
	}
}

func TestWAL_Truncate(t *testing.T) {
	w := newTestWAL(t, 1<<20, 1<<24)
	ctx := context.Background()

	if err := w.Write(ctx, testEvent("t1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Truncate(ctx); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	var replayed int
	err := w.Replay(ctx, func(domain.AuditEvent) error {
		replayed++
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed != 0 {
		t.Errorf("expected empty WAL after truncate, got %d events", replayed)
	}

	// The WAL must accept writes again after truncation.
	if err := w.Write(ctx, testEvent("t1")); err != nil {
		t.Errorf("write after truncate: %v", err)
	}
}

func TestWAL_SegmentRotation(t *testing.T) {
	// A tiny segment cap forces a rotation on every write.
	w := newTestWAL(t, 64, 1<<24)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := w.Write(ctx, testEvent("t1")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	segments, err := w.listSegments()
	if err != nil {
		t.Fatalf("listSegments: %v", err)
	}
	if len(segments) < 2 {
		t.Errorf("expected multiple segments, got %d", len(segments))
	}

	var replayed int
	err = w.Replay(ctx, func(domain.AuditEvent) error {
		replayed++
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed != 5 {
		t.Errorf("expected all 5 events across segments, got %d", replayed)
	}
}

func TestWAL_DiskBudget(t *testing.T) {
	// A budget too small for even one event rejects the write outright.
	w := newTestWAL(t, 1<<20, 16)

	err := w.Write(context.Background(), testEvent("t1"))
	if err == nil {
		t.Fatal("expected write beyond the disk budget to fail")
	}
}

func TestWAL_ReopensExistingSegments(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	w, err := NewWALRepository(dir, 1<<20, 1<<24, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	event := testEvent("t1")
	if err := w.Write(ctx, event); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewWALRepository(dir, 1<<20, 1<<24, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	var replayed []domain.AuditEvent
	err = reopened.Replay(ctx, func(e domain.AuditEvent) error {
		replayed = append(replayed, e)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replayed) != 1 || replayed[0].ID != event.ID {
		t.Fatalf("expected the persisted event back, got %+v", replayed)
	}
}
