package sqlite

import (
	"context"

	"github.com/example/parking-ledger/internal/persistence"
)

// RoleRepository implements persistence.RoleRepository using SQLite
type RoleRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRoleRepository creates a new SQLite role repository
func NewRoleRepository(pool *ConnectionPool) *RoleRepository {
	return &RoleRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// AddRoleMember adds a principal to a role set. Adding an existing member is a no-op.
func (r *RoleRepository) AddRoleMember(ctx context.Context, role, principal string) error {
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, `INSERT INTO role_members (role, principal) VALUES (?, ?) ON CONFLICT (role, principal) DO NOTHING`, role, principal)
		return err
	})
}

// HasRoleMember reports whether a principal belongs to a role set
func (r *RoleRepository) HasRoleMember(ctx context.Context, role, principal string) (bool, error) {
	var found int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM role_members WHERE role = ? AND principal = ?`, role, principal,
	).Scan(&found)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return found > 0, nil
}

// CountRoleMembers returns the size of a role set
func (r *RoleRepository) CountRoleMembers(ctx context.Context, role string) (int, error) {
	var count int
	if err := r.helper.QueryRow(ctx, `SELECT COUNT(*) FROM role_members WHERE role = ?`, role).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

var _ persistence.RoleRepository = (*RoleRepository)(nil)
