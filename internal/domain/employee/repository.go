package employee

import "context"

// Directory resolves report identity for the users whose punches are aggregated.
type Directory interface {
	// GetByIDs returns profiles keyed by user id. Unknown ids are omitted.
	GetByIDs(ctx context.Context, userIDs []string) (map[string]Employee, error)

	// ListByDepartment returns active employees of a department ordered by name.
	ListByDepartment(ctx context.Context, departmentID string) ([]Employee, error)

	// ListActive returns every active employee ordered by name.
	ListActive(ctx context.Context) ([]Employee, error)
}
