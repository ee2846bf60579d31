package scope

import "context"

// Driver executes rewritten operation descriptors against a concrete store.
// Implementations receive descriptors that already carry the tenant filter
// and must not relax them. FindUnique returns (nil, nil) when no record
// matches; Update and Delete return domain.ErrNotFound when their selector
// matches zero rows, which is also the result a caller sees when the target
// belongs to another tenant.
type Driver interface {
	Create(ctx context.Context, op *Operation) (Record, error)
	CreateMany(ctx context.Context, op *Operation) (int64, error)
	FindUnique(ctx context.Context, op *Operation) (Record, error)
	FindMany(ctx context.Context, op *Operation) ([]Record, error)
	Count(ctx context.Context, op *Operation) (int64, error)
	Aggregate(ctx context.Context, op *Operation) (AggregateResult, error)
	Update(ctx context.Context, op *Operation) (Record, error)
	UpdateMany(ctx context.Context, op *Operation) (int64, error)
	Delete(ctx context.Context, op *Operation) (Record, error)
	DeleteMany(ctx context.Context, op *Operation) (int64, error)
}
