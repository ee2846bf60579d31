package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

// AuditRepository implements domain.AuditBuffer on Redis Streams, with an
// optional local WAL for failover when Redis is unavailable.
type AuditRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	streamKey   string
	wal         domain.AuditWAL
	isAvailable atomic.Bool
}

// NewAuditRepository creates a Redis-backed audit buffer. The WAL is
// optional; pass nil if not needed (e.g., for consumers).
func NewAuditRepository(client *redis.Client, logger *slog.Logger, group, streamKey string, wal domain.AuditWAL) (*AuditRepository, error) {
	repo := &AuditRepository{
		client:    client,
		logger:    logger.With("component", "redis_audit_repository"),
		streamKey: streamKey,
		wal:       wal,
	}
	repo.isAvailable.Store(true) // Assume available initially

	if err := repo.setupConsumerGroup(context.Background(), group); err != nil {
		repo.isAvailable.Store(false)
		repo.logger.Error("Failed to setup consumer group, Redis may be unavailable on startup", "error", err)
	}

	return repo, nil
}

// StartHealthCheck monitors Redis connectivity and triggers WAL replay once
// the connection recovers.
func (r *AuditRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.wal == nil {
		r.logger.Info("audit WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("starting Redis health check and audit WAL replayer")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping Redis health check")
			return
		case <-ticker.C:
			err := r.client.Ping(ctx).Err()
			if err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("Redis connection lost", "error", err)
				}
				continue
			}
			if r.isAvailable.CompareAndSwap(false, true) {
				r.logger.Info("Redis connection recovered")
				if err := r.ReplayWAL(ctx); err != nil {
					r.logger.Error("failed to replay audit WAL after Redis recovery", "error", err)
					r.isAvailable.Store(false)
				}
			}
		}
	}
}

// ReplayWAL replays buffered audit events to Redis and truncates the WAL on
// success.
func (r *AuditRepository) ReplayWAL(ctx context.Context) error {
	if err := r.wal.Replay(ctx, func(event domain.AuditEvent) error {
		return r.bufferToRedis(ctx, event)
	}); err != nil {
		return fmt.Errorf("audit WAL replay failed: %w", err)
	}

	if err := r.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate audit WAL after replay: %w", err)
	}

	r.logger.Info("audit WAL replay completed")
	return nil
}

func (r *AuditRepository) setupConsumerGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, r.streamKey, group, "0").Err()
	if err != nil && !isRedisBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// BufferAudit appends an audit event to the stream, falling back to the WAL
// if Redis is unavailable.
func (r *AuditRepository) BufferAudit(ctx context.Context, event domain.AuditEvent) error {
	if !r.isAvailable.Load() {
		if r.wal == nil {
			return errors.New("redis is unavailable and audit WAL is not configured")
		}
		return r.wal.Write(ctx, event)
	}

	err := r.bufferToRedis(ctx, event)
	if err != nil && isNetworkError(err) {
		if r.isAvailable.CompareAndSwap(true, false) {
			r.logger.Error("Redis connection lost during write", "error", err)
		}
		if r.wal == nil {
			return fmt.Errorf("redis became unavailable and audit WAL is not configured: %w", err)
		}
		r.logger.Warn("Redis became unavailable, writing audit event to WAL", "event_id", event.ID)
		return r.wal.Write(ctx, event)
	}
	return err
}

func (r *AuditRepository) bufferToRedis(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.streamKey,
		Values: map[string]interface{}{"payload": payload},
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to audit stream: %w", err)
	}
	return nil
}

// ReadAuditBatch reads a batch of audit events for a consumer group.
func (r *AuditRepository) ReadAuditBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEvent, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{r.streamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}

	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from audit stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	messages := streams[0].Messages
	events := make([]domain.AuditEvent, 0, len(messages))
	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			r.logger.Warn("invalid message format in audit stream, skipping", "message_id", msg.ID)
			continue
		}

		var event domain.AuditEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			r.logger.Warn("failed to unmarshal audit event from stream, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}

	return events, nil
}

// AcknowledgeAudits acknowledges persisted audit events in the stream.
func (r *AuditRepository) AcknowledgeAudits(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, r.streamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK audit messages: %w", err)
	}
	return nil
}

func isRedisBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
