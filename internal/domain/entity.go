package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
)

// EntityType identifies a record kind in the shared relational schema.
// Every type the data access layer is allowed to touch must be registered
// with the scope registry; operations on anything else are rejected.
type EntityType string

const (
	EntityTenant          EntityType = "tenant"
	EntityUser            EntityType = "user"
	EntityCredential      EntityType = "credential"
	EntityPaymentMethod   EntityType = "paymentMethod"
	EntityTransaction     EntityType = "transaction"
	EntityAPIKey          EntityType = "apiKey"
	EntityWebhookEndpoint EntityType = "webhookEndpoint"
	EntityAuditLog        EntityType = "auditLog"
	EntityAnalyticsEvent  EntityType = "analyticsEvent"
	EntityUsageRecord     EntityType = "usageRecord"
)

// TenantKeyField is the attribute carried by every tenant-scoped record.
// It is set by the data access layer at creation time and never mutated.
const TenantKeyField = "tenantId"

// Tenant is a global entity: the isolation boundary itself. It is created
// out-of-band by the provisioning flow and never passes through tenant
// filtering.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an end user enrolled under a tenant.
type User struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential is a biometric enrollment record tied to a user.
type Credential struct {
	ID                uuid.UUID `json:"id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	UserID            uuid.UUID `json:"user_id"`
	BiometricTemplate string    `json:"-"` // Never exposed in API responses
	CreatedAt         time.Time `json:"created_at"`
}

// PaymentMethod is a stored payment instrument belonging to a user.
type PaymentMethod struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	UserID          uuid.UUID `json:"user_id"`
	Kind            string    `json:"kind"`
	Last4           string    `json:"last4"`
	CardFingerprint string    `json:"-"` // Never exposed in API responses
	CreatedAt       time.Time `json:"created_at"`
}

// Transaction is a payment attempt against a payment method.
type Transaction struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	UserID          uuid.UUID `json:"user_id"`
	PaymentMethodID uuid.UUID `json:"payment_method_id"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// APIKey authenticates a tenant's server-side integration. The upstream
// auth step resolves a presented key to its owning tenant; the resolved
// tenant identifier is what feeds the scoped client factory.
type APIKey struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Key       string     `json:"-"` // Not exposed in API responses
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AuditLog is the persisted form of an audit event (see audit.go).
type AuditLog struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	RecordID   string    `json:"record_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
