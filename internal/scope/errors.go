package scope

import "errors"

// Isolation violations are programming errors in the calling code, never
// user-input errors. They are returned before any store I/O happens and are
// never downgraded to a log line.
var (
	// ErrMissingTenantContext is returned when a tenant-scoped operation is
	// attempted without a bound tenant.
	ErrMissingTenantContext = errors.New("scope: missing tenant context")

	// ErrInvalidTenantIdentifier is returned when a scoped client is
	// requested for an empty or blank tenant identifier.
	ErrInvalidTenantIdentifier = errors.New("scope: invalid tenant identifier")

	// ErrUnknownEntityType is returned for operations on entity types absent
	// from the registry. This indicates a missing registration, not bad input.
	ErrUnknownEntityType = errors.New("scope: unknown entity type")

	// ErrUnsafeRelationshipTraversal is returned when a nested include names
	// a relation that is unregistered or crosses out of tenant-scoped data.
	ErrUnsafeRelationshipTraversal = errors.New("scope: unsafe relationship traversal")
)
