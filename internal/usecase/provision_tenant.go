package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
	"github.com/DabtcAvila/FacePay-sub004/internal/scope"
)

// ProvisionTenantUseCase creates a tenant and its first API key. The tenant
// record is global and goes through the explicitly-unscoped handle; the API
// key is tenant-scoped and is written through a scoped client bound to the
// newly issued tenant identifier.
type ProvisionTenantUseCase struct {
	factory *scope.Factory
	logger  *slog.Logger
}

// NewProvisionTenantUseCase creates a new provisioning use case.
func NewProvisionTenantUseCase(factory *scope.Factory, logger *slog.Logger) *ProvisionTenantUseCase {
	return &ProvisionTenantUseCase{factory: factory, logger: logger}
}

// Provision creates the tenant and returns it along with the plaintext API
// key. The key is shown exactly once; only the provisioning caller sees it.
func (uc *ProvisionTenantUseCase) Provision(ctx context.Context, name string) (*domain.Tenant, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("tenant name must not be empty")
	}

	tenantID := uuid.New()
	now := time.Now().UTC()

	global := uc.factory.Global()
	_, err := global.Create(ctx, domain.EntityTenant, scope.Record{
		"id":        tenantID.String(),
		"name":      name,
		"createdAt": now,
		"updatedAt": now,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create tenant: %w", err)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, "", err
	}

	client, err := uc.factory.Scoped(tenantID.String())
	if err != nil {
		return nil, "", err
	}
	_, err = client.Create(ctx, domain.EntityAPIKey, scope.Record{
		"id":        uuid.NewString(),
		"key":       apiKey,
		"isActive":  true,
		"createdAt": now,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create api key: %w", err)
	}

	uc.logger.Info("provisioned tenant", "tenant_id", tenantID, "name", name)

	tenant := &domain.Tenant{ID: tenantID, Name: name, CreatedAt: now, UpdatedAt: now}
	return tenant, apiKey, nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "fp_" + hex.EncodeToString(buf), nil
}
