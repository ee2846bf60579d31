package scope

import (
	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

// DefaultRegistry declares the full schema. Adding an entity type here is an
// explicit, reviewable act; the tenant record is the only global entity.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(domain.EntityTenant, "tenants", WithGlobal())

	r.Register(domain.EntityUser, "users",
		WithRelation("credentials", domain.EntityCredential, "userId"),
		WithRelation("paymentMethods", domain.EntityPaymentMethod, "userId"),
		WithRelation("transactions", domain.EntityTransaction, "userId"),
	)
	r.Register(domain.EntityCredential, "credentials")
	r.Register(domain.EntityPaymentMethod, "payment_methods",
		WithRelation("transactions", domain.EntityTransaction, "paymentMethodId"),
	)
	r.Register(domain.EntityTransaction, "transactions")
	r.Register(domain.EntityAPIKey, "api_keys")
	r.Register(domain.EntityWebhookEndpoint, "webhook_endpoints")
	r.Register(domain.EntityAuditLog, "audit_logs")
	r.Register(domain.EntityAnalyticsEvent, "analytics_events")
	r.Register(domain.EntityUsageRecord, "usage_records")

	return r
}
