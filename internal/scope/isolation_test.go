package scope_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/memory"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

func newMemoryFactory(t *testing.T) *scope.Factory {
	t.Helper()
	registry := scope.DefaultRegistry()
	driver := memory.NewDriver(registry)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return scope.NewFactory(driver, registry, logger)
}

func mustScoped(t *testing.T, factory *scope.Factory, tenantID string) *scope.ScopedClient {
	t.Helper()
	client, err := factory.Scoped(tenantID)
	if err != nil {
		t.Fatalf("failed to create scoped client: %v", err)
	}
	return client
}

// The concrete two-tenant scenario: every read, write and aggregate issued
// under one tenant is blind to the other's data.
func TestTwoTenantScenario(t *testing.T) {
	factory := newMemoryFactory(t)
	ctx := context.Background()

	clientA := mustScoped(t, factory, "tenant-a")
	clientB := mustScoped(t, factory, "tenant-b")

	u1, err := clientA.Create(ctx, domain.EntityUser, scope.Record{"id": "u1", "email": "u1@a.test"})
	if err != nil {
		t.Fatalf("create u1: %v", err)
	}
	u2, err := clientB.Create(ctx, domain.EntityUser, scope.Record{"id": "u2", "email": "u2@b.test"})
	if err != nil {
		t.Fatalf("create u2: %v", err)
	}
	if u1["tenantId"] != "tenant-a" || u2["tenantId"] != "tenant-b" {
		t.Fatalf("unexpected ownership: %v / %v", u1["tenantId"], u2["tenantId"])
	}

	t.Run("FindMany Sees Only Own Rows", func(t *testing.T) {
		rowsA, err := clientA.FindMany(ctx, domain.EntityUser, scope.Predicate{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rowsA) != 1 || rowsA[0]["id"] != "u1" {
			t.Errorf("tenant A sees %v", rowsA)
		}

		rowsB, err := clientB.FindMany(ctx, domain.EntityUser, scope.Predicate{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rowsB) != 1 || rowsB[0]["id"] != "u2" {
			t.Errorf("tenant B sees %v", rowsB)
		}
	})

	t.Run("Primary Key Lookup Does Not Cross", func(t *testing.T) {
		rec, err := clientA.FindUnique(ctx, domain.EntityUser, scope.Eq("id", "u2"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec != nil {
			t.Errorf("tenant A resolved tenant B's record: %v", rec)
		}
	})

	t.Run("Cross-Tenant Delete Reports Not Found", func(t *testing.T) {
		_, err := clientA.Delete(ctx, domain.EntityUser, scope.Eq("id", "u2"))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		rec, err := clientB.FindUnique(ctx, domain.EntityUser, scope.Eq("id", "u2"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec == nil {
			t.Fatal("u2 must survive tenant A's delete attempt")
		}
	})

	t.Run("Cross-Tenant Update Reports Not Found", func(t *testing.T) {
		_, err := clientA.Update(ctx, domain.EntityUser, scope.Eq("id", "u2"), scope.Record{"email": "stolen@a.test"})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		rec, _ := clientB.FindUnique(ctx, domain.EntityUser, scope.Eq("id", "u2"))
		if rec["email"] != "u2@b.test" {
			t.Errorf("u2 was mutated across the boundary: %v", rec["email"])
		}
	})
}

func TestRelationshipNonLeak(t *testing.T) {
	factory := newMemoryFactory(t)
	ctx := context.Background()

	clientA := mustScoped(t, factory, "tenant-a")
	clientB := mustScoped(t, factory, "tenant-b")

	if _, err := clientA.Create(ctx, domain.EntityUser, scope.Record{"id": "u1"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	// Tenant A's own instrument.
	if _, err := clientA.Create(ctx, domain.EntityPaymentMethod, scope.Record{"id": "pm-a", "userId": "u1", "kind": "card"}); err != nil {
		t.Fatalf("create pm-a: %v", err)
	}
	// A foreign row under tenant B that claims the same foreign key.
	if _, err := clientB.Create(ctx, domain.EntityPaymentMethod, scope.Record{"id": "pm-b", "userId": "u1", "kind": "card"}); err != nil {
		t.Fatalf("create pm-b: %v", err)
	}

	rows, err := clientA.FindMany(ctx, domain.EntityUser, scope.Eq("id", "u1"),
		scope.Include{Relation: "paymentMethods"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 user, got %d", len(rows))
	}

	methods, ok := rows[0]["paymentMethods"].([]scope.Record)
	if !ok {
		t.Fatalf("expected nested records, got %T", rows[0]["paymentMethods"])
	}
	if len(methods) != 1 || methods[0]["id"] != "pm-a" {
		t.Fatalf("nested fetch leaked across tenants: %v", methods)
	}
}

func TestAggregateMonotonicIndependence(t *testing.T) {
	factory := newMemoryFactory(t)
	ctx := context.Background()

	clientA := mustScoped(t, factory, "tenant-a")
	clientB := mustScoped(t, factory, "tenant-b")

	for i := 0; i < 3; i++ {
		_, err := clientA.Create(ctx, domain.EntityTransaction, scope.Record{
			"id": fmt.Sprintf("ta-%d", i), "amountCents": int64(100), "status": "captured",
		})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	spec := scope.AggregateSpec{Count: true, Sum: []string{"amountCents"}}
	before, err := clientA.Aggregate(ctx, domain.EntityTransaction, scope.Predicate{}, spec)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if before.Count != 3 || before.Sum["amountCents"] != 300 {
		t.Fatalf("unexpected baseline aggregate: %+v", before)
	}

	// Flooding tenant B must not move tenant A's numbers.
	for i := 0; i < 50; i++ {
		_, err := clientB.Create(ctx, domain.EntityTransaction, scope.Record{
			"id": fmt.Sprintf("tb-%d", i), "amountCents": int64(9999), "status": "captured",
		})
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	after, err := clientA.Aggregate(ctx, domain.EntityTransaction, scope.Predicate{}, spec)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if after.Count != before.Count || after.Sum["amountCents"] != before.Sum["amountCents"] {
		t.Errorf("tenant A's aggregates moved with tenant B's volume: %+v vs %+v", before, after)
	}

	n, err := clientA.Count(ctx, domain.EntityTransaction, scope.Predicate{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected count 3, got %d", n)
	}
}

func TestConcurrentTenantsDoNotInterfere(t *testing.T) {
	factory := newMemoryFactory(t)
	ctx := context.Background()

	const perTenant = 50
	tenants := []string{"tenant-a", "tenant-b", "tenant-c", "tenant-d"}

	var wg sync.WaitGroup
	for _, tenantID := range tenants {
		wg.Add(1)
		go func(tenantID string) {
			defer wg.Done()
			client := mustScoped(t, factory, tenantID)
			for i := 0; i < perTenant; i++ {
				_, err := client.Create(ctx, domain.EntityAnalyticsEvent, scope.Record{
					"id": fmt.Sprintf("%s-%d", tenantID, i), "name": "checkout",
				})
				if err != nil {
					t.Errorf("create under %s: %v", tenantID, err)
					return
				}
				rows, err := client.FindMany(ctx, domain.EntityAnalyticsEvent, scope.Predicate{})
				if err != nil {
					t.Errorf("find under %s: %v", tenantID, err)
					return
				}
				for _, rec := range rows {
					if rec["tenantId"] != tenantID {
						t.Errorf("tenant %s observed row of %v", tenantID, rec["tenantId"])
						return
					}
				}
			}
		}(tenantID)
	}
	wg.Wait()

	for _, tenantID := range tenants {
		client := mustScoped(t, factory, tenantID)
		n, err := client.Count(ctx, domain.EntityAnalyticsEvent, scope.Predicate{})
		if err != nil {
			t.Fatalf("count under %s: %v", tenantID, err)
		}
		if n != perTenant {
			t.Errorf("tenant %s: expected %d events, got %d", tenantID, perTenant, n)
		}
	}
}
