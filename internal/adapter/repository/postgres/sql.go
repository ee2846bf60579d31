package postgres

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/lib/pq"

	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

// columnFor maps a logical camelCase field name to its physical snake_case
// column.
func columnFor(field string) string {
	var b strings.Builder
	for _, r := range field {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fieldFor maps a physical snake_case column back to its logical camelCase
// field name.
func fieldFor(column string) string {
	parts := strings.Split(column, "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

var compareSQL = map[scope.CompareOp]string{
	scope.OpEq:  "=",
	scope.OpNe:  "<>",
	scope.OpGt:  ">",
	scope.OpGte: ">=",
	scope.OpLt:  "<",
	scope.OpLte: "<=",
}

// compilePredicate renders a predicate tree as a parameterized SQL fragment,
// appending bind values to args. Composition is structural; values never
// appear in the SQL text.
func compilePredicate(p scope.Predicate, args *[]any) (string, error) {
	if p.IsEmpty() {
		return "", nil
	}

	if p.Cond != nil {
		c := *p.Cond
		col := columnFor(c.Field)
		switch c.Op {
		case scope.OpIn:
			*args = append(*args, pq.Array(c.Value))
			return fmt.Sprintf("%s = ANY($%d)", col, len(*args)), nil
		case scope.OpContains:
			*args = append(*args, c.Value)
			return fmt.Sprintf("%s LIKE '%%' || $%d || '%%'", col, len(*args)), nil
		default:
			op, ok := compareSQL[c.Op]
			if !ok {
				return "", fmt.Errorf("postgres: unsupported comparison %q", c.Op)
			}
			*args = append(*args, c.Value)
			return fmt.Sprintf("%s %s $%d", col, op, len(*args)), nil
		}
	}

	children := p.All
	joiner := " AND "
	if len(p.Any) > 0 {
		children = p.Any
		joiner = " OR "
	}

	parts := make([]string, 0, len(children))
	for _, child := range children {
		frag, err := compilePredicate(child, args)
		if err != nil {
			return "", err
		}
		if frag != "" {
			parts = append(parts, frag)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

// whereClause renders " WHERE ..." for a predicate, or the empty string for
// a match-all predicate.
func whereClause(p scope.Predicate, args *[]any) (string, error) {
	frag, err := compilePredicate(p, args)
	if err != nil {
		return "", err
	}
	if frag == "" {
		return "", nil
	}
	return " WHERE " + frag, nil
}

// sortedFields returns the record's field names in deterministic order so
// generated SQL is stable.
func sortedFields(rec scope.Record) []string {
	fields := make([]string, 0, len(rec))
	for field := range rec {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
