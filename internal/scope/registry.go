package scope

import (
	"fmt"

	"github.com/DabtcAvila/FacePay-sub004/internal/domain"
)

// Relation describes a traversable foreign-key relationship: records of
// Target whose ForeignKey field references the parent record's id.
type Relation struct {
	Name       string
	Target     domain.EntityType
	ForeignKey string
}

type entityInfo struct {
	table     string
	global    bool
	tenantKey string
	relations map[string]Relation
}

// Registry is the static classification of every entity type the layer may
// touch. Registration defaults to tenant-scoped; global entities require the
// explicit WithGlobal opt-in, so a forgotten classification over-isolates
// instead of leaking. The registry is populated at process start and
// read-only afterward.
type Registry struct {
	entities map[domain.EntityType]*entityInfo
}

// RegisterOption customizes a single entity registration.
type RegisterOption func(*entityInfo)

// WithGlobal marks the entity as shared across tenants. Global entities
// never pass through tenant filtering.
func WithGlobal() RegisterOption {
	return func(info *entityInfo) { info.global = true }
}

// WithTenantKey overrides the field carrying the tenant identifier.
func WithTenantKey(field string) RegisterOption {
	return func(info *entityInfo) { info.tenantKey = field }
}

// WithRelation declares a traversable relationship from this entity.
func WithRelation(name string, target domain.EntityType, foreignKey string) RegisterOption {
	return func(info *entityInfo) {
		info.relations[name] = Relation{Name: name, Target: target, ForeignKey: foreignKey}
	}
}

// NewRegistry returns an empty registry. Most callers want DefaultRegistry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[domain.EntityType]*entityInfo)}
}

// Register declares an entity type and its physical table. Absent options,
// the entity is tenant-scoped on the default tenant key field.
func (r *Registry) Register(entity domain.EntityType, table string, opts ...RegisterOption) {
	info := &entityInfo{
		table:     table,
		tenantKey: domain.TenantKeyField,
		relations: make(map[string]Relation),
	}
	for _, opt := range opts {
		opt(info)
	}
	r.entities[entity] = info
}

func (r *Registry) lookup(entity domain.EntityType) (*entityInfo, error) {
	info, ok := r.entities[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entity)
	}
	return info, nil
}

// IsTenantScoped reports whether the entity must be tenant-isolated.
func (r *Registry) IsTenantScoped(entity domain.EntityType) (bool, error) {
	info, err := r.lookup(entity)
	if err != nil {
		return false, err
	}
	return !info.global, nil
}

// TenantKey returns the field holding the entity's tenant identifier.
func (r *Registry) TenantKey(entity domain.EntityType) (string, error) {
	info, err := r.lookup(entity)
	if err != nil {
		return "", err
	}
	return info.tenantKey, nil
}

// Table returns the entity's physical table name.
func (r *Registry) Table(entity domain.EntityType) (string, error) {
	info, err := r.lookup(entity)
	if err != nil {
		return "", err
	}
	return info.table, nil
}

// RelationFor resolves a declared relationship by name.
func (r *Registry) RelationFor(entity domain.EntityType, name string) (Relation, bool) {
	info, ok := r.entities[entity]
	if !ok {
		return Relation{}, false
	}
	rel, ok := info.relations[name]
	return rel, ok
}
