package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/postgres"
	redisrepo "github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/redis"
	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/repository/wal"
	"github.com/DabtcAvila/FacePay-sub004/internal/pkg/config"
	"github.com/DabtcAvila/FacePay-sub004/internal/pkg/logger"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
	"github.com/DabtcAvila/FacePay-sub004/internal/usecase"
)

const (
	processingInterval  = 1 * time.Second
	healthCheckInterval = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting audit worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stopChan
		log.Info("shutdown signal received, stopping audit worker...")
		cancel()
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

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
	log.Info("connected to postgres")

	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "auditworker-default"
	}

	auditWAL, err := wal.NewWALRepository(cfg.AuditWALDir, cfg.AuditWALSegmentSize, cfg.AuditWALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to open audit WAL", "error", err)
		os.Exit(1)
	}
	defer auditWAL.Close()

	buffer, err := redisrepo.NewAuditRepository(redisClient, log, cfg.AuditConsumerGroup, cfg.AuditStream, auditWAL)
	if err != nil {
		log.Error("failed to create redis audit repository", "error", err)
		os.Exit(1)
	}
	go buffer.StartHealthCheck(ctx, healthCheckInterval)

	// The worker's own writes go through scoped clients too, but without an
	// audit buffer: the sink must not feed the stream it drains.
	registry := scope.DefaultRegistry()
	driver := postgres.NewDriver(db, registry, log)
	factory := scope.NewFactory(driver, registry, log)

	processAudit := usecase.NewProcessAuditUseCase(buffer, factory, log, cfg.AuditConsumerGroup, consumerName)

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()

	log.Info("audit worker started", "group", cfg.AuditConsumerGroup, "consumer", consumerName)

Loop:
	for {
		select {
		case <-ticker.C:
			if _, err := processAudit.ProcessBatch(ctx); err != nil {
				log.Error("error processing audit batch", "error", err)
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down audit worker loop")
			break Loop
		}
	}

	log.Info("audit worker shut down gracefully")
}
