package scope

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/metrics"
	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/pii"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

// Factory produces data-access handles routed through the interceptor. It is
// the sole supported way to obtain one; the raw driver is not exposed.
type Factory struct {
	driver Driver
	ic     *Interceptor
}

// FactoryOption customizes factory construction.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	metrics  *metrics.IsolationMetrics
	audit    domain.AuditBuffer
	redactor *pii.Redactor
}

// WithMetrics wires isolation counters into the interceptor.
func WithMetrics(m *metrics.IsolationMetrics) FactoryOption {
	return func(o *factoryOptions) { o.metrics = m }
}

// WithAuditBuffer enables best-effort audit emission for write operations.
func WithAuditBuffer(buffer domain.AuditBuffer) FactoryOption {
	return func(o *factoryOptions) { o.audit = buffer }
}

// WithRedactor redacts sensitive fields from audit snapshots before they are
// buffered.
func WithRedactor(r *pii.Redactor) FactoryOption {
	return func(o *factoryOptions) { o.redactor = r }
}

// NewFactory creates a factory over the given driver and registry.
func NewFactory(driver Driver, registry *Registry, logger *slog.Logger, opts ...FactoryOption) *Factory {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Factory{
		driver: driver,
		ic:     newInterceptor(registry, o.metrics, o.audit, o.redactor, logger),
	}
}

// Scoped returns a client bound to exactly one tenant for its entire
// lifetime. The identifier must come from an already-authenticated upstream
// step; the factory trusts it but refuses to construct a handle around a
// blank one.
func (f *Factory) Scoped(tenantID string) (*ScopedClient, error) {
	if strings.TrimSpace(tenantID) == "" {
		if f.ic.metrics != nil {
			f.ic.metrics.ViolationsTotal.WithLabelValues("invalid_tenant").Inc()
		}
		return nil, fmt.Errorf("%w: identifier must be non-empty", ErrInvalidTenantIdentifier)
	}
	return &ScopedClient{factory: f, tenantID: tenantID}, nil
}

// Global returns the explicitly-unscoped handle used by provisioning flows.
// It can only operate on global entities; anything tenant-scoped is rejected
// before I/O.
func (f *Factory) Global() *GlobalClient {
	return &GlobalClient{factory: f}
}

// ScopedClient is a data-access handle bound to one tenant. The binding is
// captured at construction and immutable afterward, so concurrent units of
// work holding different clients can never observe each other's tenant.
type ScopedClient struct {
	factory  *Factory
	tenantID string
}

// TenantID reports the immutable tenant binding.
func (c *ScopedClient) TenantID() string { return c.tenantID }

func (c *ScopedClient) run(ctx context.Context, op *Operation, dispatch func(ctx context.Context) error) error {
	if err := c.factory.ic.prepare(op, c.tenantID); err != nil {
		return err
	}
	ctx = WithTenant(ctx, c.tenantID)
	if err := dispatch(ctx); err != nil {
		return err
	}
	c.factory.ic.finish(ctx, op, c.tenantID)
	return nil
}

// Create inserts a record owned by the bound tenant. Any tenant identifier
// in the payload is overwritten.
func (c *ScopedClient) Create(ctx context.Context, entity domain.EntityType, data Record) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionCreate, Data: data}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.Create(ctx, op)
		return err
	})
	return rec, err
}

// CreateMany inserts a batch of records, all owned by the bound tenant.
func (c *ScopedClient) CreateMany(ctx context.Context, entity domain.EntityType, batch []Record) (int64, error) {
	op := &Operation{Entity: entity, Action: ActionCreateMany, Batch: batch}
	var n int64
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = c.factory.driver.CreateMany(ctx, op)
		return err
	})
	return n, err
}

// FindUnique returns the single matching record, or nil if none matches
// within the bound tenant. A record that exists under another tenant is
// indistinguishable from one that does not exist.
func (c *ScopedClient) FindUnique(ctx context.Context, entity domain.EntityType, where Predicate) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionFindUnique, Where: where}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.FindUnique(ctx, op)
		return err
	})
	return rec, err
}

// FindMany returns all matching records, optionally with nested relationship
// fetches. Nested queries carry their own injected tenant filter.
func (c *ScopedClient) FindMany(ctx context.Context, entity domain.EntityType, where Predicate, includes ...Include) ([]Record, error) {
	op := &Operation{Entity: entity, Action: ActionFindMany, Where: where, Includes: includes}
	var recs []Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		recs, err = c.factory.driver.FindMany(ctx, op)
		return err
	})
	return recs, err
}

// Count returns the number of matching records within the bound tenant.
func (c *ScopedClient) Count(ctx context.Context, entity domain.EntityType, where Predicate) (int64, error) {
	op := &Operation{Entity: entity, Action: ActionCount, Where: where}
	var n int64
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = c.factory.driver.Count(ctx, op)
		return err
	})
	return n, err
}

// Aggregate computes aggregates over the bound tenant's records only.
func (c *ScopedClient) Aggregate(ctx context.Context, entity domain.EntityType, where Predicate, spec AggregateSpec) (AggregateResult, error) {
	op := &Operation{Entity: entity, Action: ActionAggregate, Where: where, Aggregate: spec}
	var res AggregateResult
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		res, err = c.factory.driver.Aggregate(ctx, op)
		return err
	})
	return res, err
}

// Update modifies the single record selected by where. A selector naming
// another tenant's record matches zero rows and returns domain.ErrNotFound.
func (c *ScopedClient) Update(ctx context.Context, entity domain.EntityType, where Predicate, data Record) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionUpdate, Where: where, Data: data}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.Update(ctx, op)
		return err
	})
	return rec, err
}

// UpdateMany modifies all matching records and returns the affected count.
func (c *ScopedClient) UpdateMany(ctx context.Context, entity domain.EntityType, where Predicate, data Record) (int64, error) {
	op := &Operation{Entity: entity, Action: ActionUpdateMany, Where: where, Data: data}
	var n int64
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = c.factory.driver.UpdateMany(ctx, op)
		return err
	})
	return n, err
}

// Delete removes the single record selected by where, returning it. Another
// tenant's record yields domain.ErrNotFound, unchanged.
func (c *ScopedClient) Delete(ctx context.Context, entity domain.EntityType, where Predicate) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionDelete, Where: where}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.Delete(ctx, op)
		return err
	})
	return rec, err
}

// DeleteMany removes all matching records and returns the affected count.
func (c *ScopedClient) DeleteMany(ctx context.Context, entity domain.EntityType, where Predicate) (int64, error) {
	op := &Operation{Entity: entity, Action: ActionDeleteMany, Where: where}
	var n int64
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = c.factory.driver.DeleteMany(ctx, op)
		return err
	})
	return n, err
}

// GlobalClient is the distinct, explicitly-unscoped handle for global
// entities (provisioning). Operations on tenant-scoped entities fail with
// ErrMissingTenantContext before any I/O.
type GlobalClient struct {
	factory *Factory
}

func (c *GlobalClient) run(ctx context.Context, op *Operation, dispatch func(ctx context.Context) error) error {
	if err := c.factory.ic.prepare(op, ""); err != nil {
		return err
	}
	if err := dispatch(ctx); err != nil {
		return err
	}
	c.factory.ic.finish(ctx, op, "")
	return nil
}

func (c *GlobalClient) Create(ctx context.Context, entity domain.EntityType, data Record) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionCreate, Data: data}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.Create(ctx, op)
		return err
	})
	return rec, err
}

func (c *GlobalClient) FindUnique(ctx context.Context, entity domain.EntityType, where Predicate) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionFindUnique, Where: where}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.FindUnique(ctx, op)
		return err
	})
	return rec, err
}

func (c *GlobalClient) FindMany(ctx context.Context, entity domain.EntityType, where Predicate) ([]Record, error) {
	op := &Operation{Entity: entity, Action: ActionFindMany, Where: where}
	var recs []Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		recs, err = c.factory.driver.FindMany(ctx, op)
		return err
	})
	return recs, err
}

func (c *GlobalClient) Count(ctx context.Context, entity domain.EntityType, where Predicate) (int64, error) {
	op := &Operation{Entity: entity, Action: ActionCount, Where: where}
	var n int64
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = c.factory.driver.Count(ctx, op)
		return err
	})
	return n, err
}

func (c *GlobalClient) Update(ctx context.Context, entity domain.EntityType, where Predicate, data Record) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionUpdate, Where: where, Data: data}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.Update(ctx, op)
		return err
	})
	return rec, err
}

func (c *GlobalClient) Delete(ctx context.Context, entity domain.EntityType, where Predicate) (Record, error) {
	op := &Operation{Entity: entity, Action: ActionDelete, Where: where}
	var rec Record
	err := c.run(ctx, op, func(ctx context.Context) error {
		var err error
		rec, err = c.factory.driver.Delete(ctx, op)
		return err
	})
	return rec, err
}
