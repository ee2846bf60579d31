package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/DabtcAvila/FacePay-sub004/internal/adapter/metrics"
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

type cacheEntry struct {
	tenantID  string
	expiresAt time.Time
}

// TenantResolver maps a presented API key to its owning tenant identifier.
// This is the upstream step that produces the trusted tenant ID handed to
// the scoped client factory; it performs no authorization beyond the lookup.
// PostgreSQL is the source of truth, fronted by an in-memory TTL cache.
type TenantResolver struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]cacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	metrics  *metrics.IsolationMetrics
}

// NewTenantResolver creates a new PostgreSQL-backed tenant resolver.
func NewTenantResolver(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.IsolationMetrics) *TenantResolver {
	return &TenantResolver{
		db:       db,
		logger:   logger.With("component", "tenant_resolver"),
		cache:    make(map[string]cacheEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// TenantForKey resolves an active, unexpired API key to its tenant ID. An
// unknown or inactive key yields domain.ErrNotFound; the caller must not
// learn anything beyond that.
func (r *TenantResolver) TenantForKey(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	entry, found := r.cache[key]
	r.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.TenantCacheHits.Inc()
		}
		return entry.tenantID, nil
	}

	if r.metrics != nil {
		r.metrics.TenantCacheMisses.Inc()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check in case another goroutine populated it while waiting for the lock
	entry, found = r.cache[key]
	if found && time.Now().Before(entry.expiresAt) {
		return entry.tenantID, nil
	}

	var tenantID string
	query := `SELECT tenant_id FROM api_keys WHERE key = $1 AND is_active = true AND (expires_at IS NULL OR expires_at > NOW())`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Negative results are not cached; an unknown key stays a DB hit.
			return "", domain.ErrNotFound
		}
		r.logger.Error("failed to resolve API key tenant in database", "error", err)
		return "", err
	}

	r.cache[key] = cacheEntry{
		tenantID:  tenantID,
		expiresAt: time.Now().Add(r.cacheTTL),
	}

	return tenantID, nil
}
