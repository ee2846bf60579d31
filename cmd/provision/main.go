package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/postgres"
	"github.com/DabtcAvila/FacePay-sub004/internal/pkg/config"
	"github.com/DabtcAvila/FacePay-sub004/internal/pkg/logger"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
	"github.com/DabtcAvila/FacePay-sub004/internal/usecase"
)

func main() {
	name := flag.String("name", "", "Name of the tenant to provision")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: provision -name <tenant name>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	registry := scope.DefaultRegistry()
	driver := postgres.NewDriver(db, registry, log)
	factory := scope.NewFactory(driver, registry, log)

	provision := usecase.NewProvisionTenantUseCase(factory, log)
	tenant, apiKey, err := provision.Provision(ctx, *name)
	if err != nil {
		log.Error("provisioning failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("tenant_id: %s\n", tenant.ID)
	fmt.Printf("api_key:   %s\n", apiKey)
	fmt.Println("store the api key now; it is not shown again")
}
