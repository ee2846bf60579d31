package scope

// CompareOp is a leaf comparison operator.
type CompareOp string

const (
	OpEq       CompareOp = "eq"
	OpNe       CompareOp = "ne"
	OpGt       CompareOp = "gt"
	OpGte      CompareOp = "gte"
	OpLt       CompareOp = "lt"
	OpLte      CompareOp = "lte"
	OpIn       CompareOp = "in"
	OpContains CompareOp = "contains"
)

// Condition is a single field comparison.
type Condition struct {
	Field string
	Op    CompareOp
	Value any
}

// Predicate is a structural filter tree: either a leaf condition, a
// conjunction (All) or a disjunction (Any). The zero Predicate matches every
// record. Tenant filters are conjoined onto caller predicates as tree nodes,
// never by string concatenation, so the effective predicate is always at
// least as restrictive as tenant equality.
type Predicate struct {
	Cond *Condition
	All  []Predicate
	Any  []Predicate
}

// IsEmpty reports whether the predicate matches everything.
func (p Predicate) IsEmpty() bool {
	return p.Cond == nil && len(p.All) == 0 && len(p.Any) == 0
}

func cond(field string, op CompareOp, value any) Predicate {
	return Predicate{Cond: &Condition{Field: field, Op: op, Value: value}}
}

func Eq(field string, value any) Predicate  { return cond(field, OpEq, value) }
func Ne(field string, value any) Predicate  { return cond(field, OpNe, value) }
func Gt(field string, value any) Predicate  { return cond(field, OpGt, value) }
func Gte(field string, value any) Predicate { return cond(field, OpGte, value) }
func Lt(field string, value any) Predicate  { return cond(field, OpLt, value) }
func Lte(field string, value any) Predicate { return cond(field, OpLte, value) }

// In matches records whose field equals any of the given values.
func In(field string, values ...any) Predicate { return cond(field, OpIn, values) }

// Contains matches string fields containing the given substring.
func Contains(field string, substring string) Predicate {
	return cond(field, OpContains, substring)
}

// And conjoins predicates, dropping empty children.
func And(ps ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		if !p.IsEmpty() {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return Predicate{}
	case 1:
		return kept[0]
	default:
		return Predicate{All: kept}
	}
}

// Or disjoins predicates. An empty child matches everything, which would make
// the whole disjunction vacuous, so empty children collapse the result to the
// empty predicate.
func Or(ps ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		if p.IsEmpty() {
			return Predicate{}
		}
		kept = append(kept, p)
	}
	switch len(kept) {
	case 0:
		return Predicate{}
	case 1:
		return kept[0]
	default:
		return Predicate{Any: kept}
	}
}
