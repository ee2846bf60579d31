package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IsolationMetrics holds all Prometheus metrics for the data access layer.
type IsolationMetrics struct {
	OperationsTotal     *prometheus.CounterVec
	ViolationsTotal     *prometheus.CounterVec
	AuditEventsBuffered prometheus.Counter
	AuditBufferErrors   prometheus.Counter
	TenantCacheHits     prometheus.Counter
	TenantCacheMisses   prometheus.Counter
}

// NewIsolationMetrics initializes and registers the Prometheus metrics.
func NewIsolationMetrics() *IsolationMetrics {
	return &IsolationMetrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facepay",
			Subsystem: "scope",
			Name:      "operations_total",
			Help:      "Total number of intercepted operations by entity and action.",
		}, []string{"entity", "action"}),
		ViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "facepay",
			Subsystem: "scope",
			Name:      "violations_total",
			Help:      "Total number of rejected operations by reason.",
		}, []string{"reason"}), // reason: unknown_entity, missing_tenant, invalid_tenant, unsafe_traversal
		AuditEventsBuffered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "facepay",
			Subsystem: "audit",
			Name:      "events_buffered_total",
			Help:      "Total number of audit events buffered successfully.",
		}),
		AuditBufferErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "facepay",
			Subsystem: "audit",
			Name:      "buffer_errors_total",
			Help:      "Total number of audit events that could not be buffered.",
		}),
		TenantCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "facepay",
			Subsystem: "auth",
			Name:      "tenant_cache_hits_total",
			Help:      "Total number of API key tenant-resolution cache hits.",
		}),
		TenantCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "facepay",
			Subsystem: "auth",
			Name:      "tenant_cache_misses_total",
			Help:      "Total number of API key tenant-resolution cache misses.",
		}),
	}
}
