package scope

import (
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

// Record is the schemaless payload and result shape the layer operates on.
// Field names are the logical attribute names of the schema (camelCase), not
// physical column names; drivers own the column mapping.
type Record map[string]any

// Clone returns a shallow copy so the interceptor can stamp the tenant key
// without mutating the caller's map.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Action is the kind of data operation being requested.
type Action string

const (
	ActionCreate     Action = "create"
	ActionCreateMany Action = "createMany"
	ActionFindUnique Action = "findUnique"
	ActionFindMany   Action = "findMany"
	ActionCount      Action = "count"
	ActionAggregate  Action = "aggregate"
	ActionUpdate     Action = "update"
	ActionUpdateMany Action = "updateMany"
	ActionDelete     Action = "delete"
	ActionDeleteMany Action = "deleteMany"
)

// Mutates reports whether the action writes to the store.
func (a Action) Mutates() bool {
	switch a {
	case ActionCreate, ActionCreateMany, ActionUpdate, ActionUpdateMany, ActionDelete, ActionDeleteMany:
		return true
	}
	return false
}

// Include requests a nested relationship fetch alongside a findMany. The
// relationship guard rewrites Where before dispatch so the nested query is
// tenant-filtered in its own right, independent of the parent's scoping.
type Include struct {
	Relation string
	Where    Predicate
}

// AggregateSpec selects the aggregate computations to run.
type AggregateSpec struct {
	Count bool
	Sum   []string
	Avg   []string
	Min   []string
	Max   []string

	// GroupBy, when set, returns per-group row counts keyed by the grouped
	// field's value instead of the scalar aggregates.
	GroupBy string
}

// AggregateResult holds aggregate outputs keyed by field name.
type AggregateResult struct {
	Count  int64
	Sum    map[string]float64
	Avg    map[string]float64
	Min    map[string]float64
	Max    map[string]float64
	Groups map[string]int64
}

// Operation is the internal descriptor of one requested data operation. It
// is constructed per call, rewritten exactly once by the interceptor, then
// dispatched to the driver and discarded.
type Operation struct {
	Entity    domain.EntityType
	Action    Action
	Where     Predicate
	Data      Record
	Batch     []Record
	Includes  []Include
	Aggregate AggregateSpec
}
