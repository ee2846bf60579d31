package memory

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

// Driver is the in-process reference implementation of scope.Driver. It
// evaluates the same rewritten descriptors as the SQL driver against
// mutex-guarded per-entity tables. Used by the test suites and the isolation
// tester; it is not a production store.
type Driver struct {
	registry *scope.Registry

	mu     sync.RWMutex
	tables map[domain.EntityType][]scope.Record
}

// NewDriver creates an empty in-memory store over the given registry.
func NewDriver(registry *scope.Registry) *Driver {
	return &Driver{
		registry: registry,
		tables:   make(map[domain.EntityType][]scope.Record),
	}
}

func (d *Driver) Create(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := prepareInsert(op.Data)
	d.tables[op.Entity] = append(d.tables[op.Entity], rec)
	return rec.Clone(), nil
}

func (d *Driver) CreateMany(ctx context.Context, op *scope.Operation) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, data := range op.Batch {
		d.tables[op.Entity] = append(d.tables[op.Entity], prepareInsert(data))
	}
	return int64(len(op.Batch)), nil
}

func (d *Driver) FindUnique(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, rec := range d.tables[op.Entity] {
		if evalPredicate(op.Where, rec) {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

func (d *Driver) FindMany(ctx context.Context, op *scope.Operation) ([]scope.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]scope.Record, 0)
	for _, rec := range d.tables[op.Entity] {
		if !evalPredicate(op.Where, rec) {
			continue
		}
		clone := rec.Clone()
		if err := d.attachIncludes(op, rec, clone); err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

// attachIncludes resolves nested relationship fetches. The include predicate
// arrives already tenant-filtered; the driver only adds the foreign-key join
// condition.
func (d *Driver) attachIncludes(op *scope.Operation, parent, clone scope.Record) error {
	for _, inc := range op.Includes {
		rel, ok := d.registry.RelationFor(op.Entity, inc.Relation)
		if !ok {
			return fmt.Errorf("memory: unregistered relation %q on %q", inc.Relation, op.Entity)
		}
		nested := scope.And(scope.Eq(rel.ForeignKey, parent["id"]), inc.Where)

		children := make([]scope.Record, 0)
		for _, child := range d.tables[rel.Target] {
			if evalPredicate(nested, child) {
				children = append(children, child.Clone())
			}
		}
		clone[inc.Relation] = children
	}
	return nil
}

func (d *Driver) Count(ctx context.Context, op *scope.Operation) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var n int64
	for _, rec := range d.tables[op.Entity] {
		if evalPredicate(op.Where, rec) {
			n++
		}
	}
	return n, nil
}

func (d *Driver) Aggregate(ctx context.Context, op *scope.Operation) (scope.AggregateResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res := scope.AggregateResult{}
	spec := op.Aggregate

	if spec.GroupBy != "" {
		res.Groups = make(map[string]int64)
	}
	if len(spec.Sum) > 0 {
		res.Sum = make(map[string]float64)
	}
	if len(spec.Avg) > 0 {
		res.Avg = make(map[string]float64)
	}
	if len(spec.Min) > 0 {
		res.Min = make(map[string]float64)
	}
	if len(spec.Max) > 0 {
		res.Max = make(map[string]float64)
	}

	avgCounts := make(map[string]int64)
	minSeen := make(map[string]bool)
	maxSeen := make(map[string]bool)

	for _, rec := range d.tables[op.Entity] {
		if !evalPredicate(op.Where, rec) {
			continue
		}
		res.Count++

		if spec.GroupBy != "" {
			res.Groups[fmt.Sprint(rec[spec.GroupBy])]++
			continue
		}
		for _, field := range spec.Sum {
			if v, ok := toFloat64(rec[field]); ok {
				res.Sum[field] += v
			}
		}
		for _, field := range spec.Avg {
			if v, ok := toFloat64(rec[field]); ok {
				res.Avg[field] += v
				avgCounts[field]++
			}
		}
		for _, field := range spec.Min {
			if v, ok := toFloat64(rec[field]); ok {
				if !minSeen[field] || v < res.Min[field] {
					res.Min[field] = v
					minSeen[field] = true
				}
			}
		}
		for _, field := range spec.Max {
			if v, ok := toFloat64(rec[field]); ok {
				if !maxSeen[field] || v > res.Max[field] {
					res.Max[field] = v
					maxSeen[field] = true
				}
			}
		}
	}

	for field, n := range avgCounts {
		if n > 0 {
			res.Avg[field] /= float64(n)
		}
	}
	return res, nil
}

func (d *Driver) Update(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rec := range d.tables[op.Entity] {
		if evalPredicate(op.Where, rec) {
			applyUpdate(rec, op.Data)
			return rec.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (d *Driver) UpdateMany(ctx context.Context, op *scope.Operation) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var n int64
	for _, rec := range d.tables[op.Entity] {
		if evalPredicate(op.Where, rec) {
			applyUpdate(rec, op.Data)
			n++
		}
	}
	return n, nil
}

func (d *Driver) Delete(ctx context.Context, op *scope.Operation) (scope.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	table := d.tables[op.Entity]
	for i, rec := range table {
		if evalPredicate(op.Where, rec) {
			d.tables[op.Entity] = append(table[:i:i], table[i+1:]...)
			return rec.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (d *Driver) DeleteMany(ctx context.Context, op *scope.Operation) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	table := d.tables[op.Entity]
	kept := table[:0:0]
	var n int64
	for _, rec := range table {
		if evalPredicate(op.Where, rec) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	d.tables[op.Entity] = kept
	return n, nil
}

func prepareInsert(data scope.Record) scope.Record {
	rec := data.Clone()
	if rec == nil {
		rec = scope.Record{}
	}
	if _, ok := rec["id"]; !ok {
		rec["id"] = uuid.NewString()
	}
	return rec
}

func applyUpdate(rec, data scope.Record) {
	for k, v := range data {
		rec[k] = v
	}
}

func evalPredicate(p scope.Predicate, rec scope.Record) bool {
	if p.Cond != nil {
		return evalCondition(*p.Cond, rec)
	}
	if len(p.All) > 0 {
		for _, child := range p.All {
			if !evalPredicate(child, rec) {
				return false
			}
		}
		return true
	}
	if len(p.Any) > 0 {
		for _, child := range p.Any {
			if evalPredicate(child, rec) {
				return true
			}
		}
		return false
	}
	return true
}

func evalCondition(c scope.Condition, rec scope.Record) bool {
	v := rec[c.Field]
	switch c.Op {
	case scope.OpEq:
		return equalValues(v, c.Value)
	case scope.OpNe:
		return !equalValues(v, c.Value)
	case scope.OpGt, scope.OpGte, scope.OpLt, scope.OpLte:
		return evalOrdering(c.Op, v, c.Value)
	case scope.OpIn:
		values := reflect.ValueOf(c.Value)
		if values.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < values.Len(); i++ {
			if equalValues(v, values.Index(i).Interface()) {
				return true
			}
		}
		return false
	case scope.OpContains:
		s, ok := v.(string)
		sub, ok2 := c.Value.(string)
		return ok && ok2 && strings.Contains(s, sub)
	}
	return false
}

func evalOrdering(op scope.CompareOp, a, b any) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return orderingHolds(op, compareTimes(at, bt))
		}
		return false
	}
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return orderingHolds(op, compareFloats(af, bf))
		}
		return false
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return orderingHolds(op, strings.Compare(as, bs))
		}
	}
	return false
}

func orderingHolds(op scope.CompareOp, cmp int) bool {
	switch op {
	case scope.OpGt:
		return cmp > 0
	case scope.OpGte:
		return cmp >= 0
	case scope.OpLt:
		return cmp < 0
	case scope.OpLte:
		return cmp <= 0
	}
	return false
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func equalValues(a, b any) bool {
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
