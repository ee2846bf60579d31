package scope

import (
	"fmt"
)

// relationshipGuard prevents tenant leakage through nested includes. Every
// traversal target must be a registered, tenant-scoped entity, and the
// nested query gets its own injected tenant filter rather than trusting the
// parent's scoping: a driver is free to resolve relations through a separate
// query path, and that path must be scoped too. There is no fetch-then-verify
// fallback anywhere in the layer.
type relationshipGuard struct {
	registry *Registry
}

func (g relationshipGuard) rewrite(op *Operation, tenantID string) error {
	for i := range op.Includes {
		inc := &op.Includes[i]

		rel, ok := g.registry.RelationFor(op.Entity, inc.Relation)
		if !ok {
			return fmt.Errorf("%w: %q has no registered relation %q",
				ErrUnsafeRelationshipTraversal, op.Entity, inc.Relation)
		}

		scoped, err := g.registry.IsTenantScoped(rel.Target)
		if err != nil {
			return fmt.Errorf("%w: relation %q targets unregistered entity %q",
				ErrUnsafeRelationshipTraversal, inc.Relation, rel.Target)
		}
		if !scoped {
			return fmt.Errorf("%w: relation %q targets global entity %q",
				ErrUnsafeRelationshipTraversal, inc.Relation, rel.Target)
		}
		if tenantID == "" {
			// The unscoped provisioning path may not traverse into
			// tenant-scoped data.
			return fmt.Errorf("%w: relation %q requires a bound tenant",
				ErrUnsafeRelationshipTraversal, inc.Relation)
		}

		key, err := g.registry.TenantKey(rel.Target)
		if err != nil {
			return err
		}
		inc.Where = And(Eq(key, tenantID), inc.Where)
	}
	return nil
}
