package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/memory"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

// Hammers the scope layer with concurrent traffic from many tenants at once
// and verifies that no operation ever observes another tenant's rows.
func main() {
	tenants := flag.Int("tenants", 8, "Number of concurrent tenants")
	concurrency := flag.Int("c", 4, "Workers per tenant")
	duration := flag.Duration("d", 10*time.Second, "Duration of the test")
	rps := flag.Int("rps", 5000, "Total operations per second limit")
	flag.Parse()

	log.Printf("Starting isolation test: %d tenants, %d workers each, %s, %d ops/s", *tenants, *concurrency, *duration, *rps)

	registry := scope.DefaultRegistry()
	driver := memory.NewDriver(registry)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	factory := scope.NewFactory(driver, registry, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	var wg sync.WaitGroup
	var opCount, violationCount atomic.Int64

	for t := 0; t < *tenants; t++ {
		tenantID := uuid.NewString()
		client, err := factory.Scoped(tenantID)
		if err != nil {
			log.Fatalf("failed to create scoped client: %v", err)
		}

		for w := 0; w < *concurrency; w++ {
			wg.Add(1)
			go func(client *scope.ScopedClient, tenantID string, workerID int) {
				defer wg.Done()
				for i := 0; ; i++ {
					if ctx.Err() != nil {
						return
					}
					if err := limiter.Wait(ctx); err != nil {
						return
					}
					opCount.Add(1)

					switch i % 3 {
					case 0:
						_, err := client.Create(ctx, domain.EntityUser, scope.Record{
							"id":    uuid.NewString(),
							"email": fmt.Sprintf("w%d-%d@%s.test", workerID, i, tenantID[:8]),
							// A hostile payload claiming another tenant.
							"tenantId": "someone-else",
						})
						if err != nil {
							log.Printf("create failed: %v", err)
						}
					case 1:
						recs, err := client.FindMany(ctx, domain.EntityUser, scope.Predicate{})
						if err != nil {
							log.Printf("findMany failed: %v", err)
							continue
						}
						for _, rec := range recs {
							if rec["tenantId"] != tenantID {
								violationCount.Add(1)
								log.Printf("VIOLATION: tenant %s observed row of %v", tenantID, rec["tenantId"])
							}
						}
					case 2:
						// Counting through a filter that tries to widen the scope.
						n, err := client.Count(ctx, domain.EntityUser, scope.Ne("tenantId", tenantID))
						if err != nil {
							log.Printf("count failed: %v", err)
							continue
						}
						if n != 0 {
							violationCount.Add(1)
							log.Printf("VIOLATION: tenant %s counted %d foreign rows", tenantID, n)
						}
					}
				}
			}(client, tenantID, w)
		}
	}

	wg.Wait()

	log.Printf("Done. operations=%d violations=%d", opCount.Load(), violationCount.Load())
	if violationCount.Load() > 0 {
		os.Exit(1)
	}
}
