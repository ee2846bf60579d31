package mocks

import (
	"context"
	"sync"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

// MockDriver is a mock implementation of scope.Driver for testing. It
// records every dispatched (already rewritten) descriptor and returns the
// configured results.
type MockDriver struct {
	mu  sync.Mutex
	Ops []*scope.Operation

	CreateResult     scope.Record
	CreateManyResult int64
	FindUniqueResult scope.Record
	FindManyResult   []scope.Record
	CountResult      int64
	AggregateResult  scope.AggregateResult
	UpdateResult     scope.Record
	UpdateManyResult int64
	DeleteResult     scope.Record
	DeleteManyResult int64
	Err              error
}

func (m *MockDriver) record(op *scope.Operation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ops = append(m.Ops, op)
}

// LastOp returns the most recently dispatched descriptor, or nil.
func (m *MockDriver) LastOp() *scope.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Ops) == 0 {
		return nil
	}
	return m.Ops[len(m.Ops)-1]
}

func (m *MockDriver) Create(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	m.record(op)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.CreateResult != nil {
		return m.CreateResult, nil
	}
	return op.Data, nil
}

func (m *MockDriver) CreateMany(ctx context.Context, op *scope.Operation) (int64, error) {
	m.record(op)
	if m.Err != nil {
		return 0, m.Err
	}
	if m.CreateManyResult != 0 {
		return m.CreateManyResult, nil
	}
	return int64(len(op.Batch)), nil
}

func (m *MockDriver) FindUnique(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	m.record(op)
	return m.FindUniqueResult, m.Err
}

func (m *MockDriver) FindMany(ctx context.Context, op *scope.Operation) ([]scope.Record, error) {
	m.record(op)
	return m.FindManyResult, m.Err
}

func (m *MockDriver) Count(ctx context.Context, op *scope.Operation) (int64, error) {
	m.record(op)
	return m.CountResult, m.Err
}

func (m *MockDriver) Aggregate(ctx context.Context, op *scope.Operation) (scope.AggregateResult, error) {
	m.record(op)
	return m.AggregateResult, m.Err
}

func (m *MockDriver) Update(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	m.record(op)
	return m.UpdateResult, m.Err
}

func (m *MockDriver) UpdateMany(ctx context.Context, op *scope.Operation) (int64, error) {
	m.record(op)
	return m.UpdateManyResult, m.Err
}

func (m *MockDriver) Delete(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	m.record(op)
	return m.DeleteResult, m.Err
}

func (m *MockDriver) DeleteMany(ctx context.Context, op *scope.Operation) (int64, error) {
	m.record(op)
	return m.DeleteManyResult, m.Err
}

// MockAuditBuffer is a mock implementation of domain.AuditBuffer for testing.
type MockAuditBuffer struct {
	mu              sync.Mutex
	BufferedEvents  []domain.AuditEvent
	ReadBatchResult []domain.AuditEvent
	AckedMessageIDs []string
	BufferErr       error
	ReadErr         error
	AckErr          error
}

func (m *MockAuditBuffer) BufferAudit(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BufferErr != nil {
		return m.BufferErr
	}
	m.BufferedEvents = append(m.BufferedEvents, event)
	return nil
}

func (m *MockAuditBuffer) ReadAuditBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	batch := m.ReadBatchResult
	m.ReadBatchResult = nil
	return batch, nil
}

func (m *MockAuditBuffer) AcknowledgeAudits(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

// Buffered returns a copy of the buffered events.
func (m *MockAuditBuffer) Buffered() []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEvent, len(m.BufferedEvents))
	copy(out, m.BufferedEvents)
	return out
}
