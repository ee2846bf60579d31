package postgres

import (
	"testing"

	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

func TestColumnMapping(t *testing.T) {
	cases := []struct {
		field  string
		column string
	}{
		{"tenantId", "tenant_id"},
		{"amountCents", "amount_cents"},
		{"id", "id"},
		{"occurredAt", "occurred_at"},
	}
	for _, c := range cases {
		if got := columnFor(c.field); got != c.column {
			t.Errorf("columnFor(%q) = %q, want %q", c.field, got, c.column)
		}
		if got := fieldFor(c.column); got != c.field {
			t.Errorf("fieldFor(%q) = %q, want %q", c.column, got, c.field)
		}
	}
}

func TestCompilePredicate(t *testing.T) {
	t.Run("Leaf Equality", func(t *testing.T) {
		var args []any
		frag, err := compilePredicate(scope.Eq("tenantId", "t1"), &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if frag != "tenant_id = $1" {
			t.Errorf("unexpected fragment %q", frag)
		}
		if len(args) != 1 || args[0] != "t1" {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("Conjunction Keeps Placeholder Order", func(t *testing.T) {
		var args []any
		p := scope.And(scope.Eq("tenantId", "t1"), scope.Gt("amountCents", 100))
		frag, err := compilePredicate(p, &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if frag != "(tenant_id = $1 AND amount_cents > $2)" {
			t.Errorf("unexpected fragment %q", frag)
		}
		if len(args) != 2 || args[0] != "t1" || args[1] != 100 {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("Disjunction", func(t *testing.T) {
		var args []any
		p := scope.Or(scope.Eq("status", "captured"), scope.Eq("status", "pending"))
		frag, err := compilePredicate(p, &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if frag != "(status = $1 OR status = $2)" {
			t.Errorf("unexpected fragment %q", frag)
		}
	})

	t.Run("Nested Tree", func(t *testing.T) {
		var args []any
		p := scope.And(
			scope.Eq("tenantId", "t1"),
			scope.Or(scope.Eq("status", "captured"), scope.Eq("status", "pending")),
		)
		frag, err := compilePredicate(p, &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if frag != "(tenant_id = $1 AND (status = $2 OR status = $3))" {
			t.Errorf("unexpected fragment %q", frag)
		}
		if len(args) != 3 {
			t.Errorf("expected 3 args, got %v", args)
		}
	})

	t.Run("In Uses Array Binding", func(t *testing.T) {
		var args []any
		frag, err := compilePredicate(scope.In("id", "a", "b"), &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if frag != "id = ANY($1)" {
			t.Errorf("unexpected fragment %q", frag)
		}
		if len(args) != 1 {
			t.Errorf("expected a single array arg, got %v", args)
		}
	})

	t.Run("Contains Binds The Substring", func(t *testing.T) {
		var args []any
		frag, err := compilePredicate(scope.Contains("email", "@evil"), &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if frag != "email LIKE '%' || $1 || '%'" {
			t.Errorf("unexpected fragment %q", frag)
		}
		if args[0] != "@evil" {
			t.Errorf("unexpected args %v", args)
		}
	})
}

func TestWhereClause(t *testing.T) {
	t.Run("Empty Predicate Renders Nothing", func(t *testing.T) {
		var args []any
		clause, err := whereClause(scope.Predicate{}, &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if clause != "" {
			t.Errorf("expected empty clause, got %q", clause)
		}
	})

	t.Run("Non-Empty Predicate", func(t *testing.T) {
		var args []any
		clause, err := whereClause(scope.Eq("tenantId", "t1"), &args)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if clause != " WHERE tenant_id = $1" {
			t.Errorf("unexpected clause %q", clause)
		}
	})
}

func TestSortedFields(t *testing.T) {
	rec := scope.Record{"email": "a@b.c", "id": "u1", "tenantId": "t1"}
	fields := sortedFields(rec)
	want := []string{"email", "id", "tenantId"}
	if len(fields) != len(want) {
		t.Fatalf("expected %v, got %v", want, fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, fields)
		}
	}
}
