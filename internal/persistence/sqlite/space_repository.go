package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/parking-ledger/internal/persistence"
)

// SpaceRepository implements persistence.SpaceRepository using SQLite
type SpaceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSpaceRepository creates a new SQLite space repository
func NewSpaceRepository(pool *ConnectionPool) *SpaceRepository {
	return &SpaceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const selectSpace = `
	SELECT id, owner, location, description, hourly_rate, daily_rate, available, active
	FROM spaces
	WHERE id = ?
`

// InsertSpace inserts a new space and returns it with its assigned id
func (r *SpaceRepository) InsertSpace(ctx context.Context, space persistence.Space) (persistence.Space, error) {
	query := `
		INSERT INTO spaces (owner, location, description, hourly_rate, daily_rate, available, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			space.Owner,
			space.Location,
			space.Description,
			space.HourlyRate,
			space.DailyRate,
			space.Available,
			space.Active,
		)
		if err != nil {
			return err
		}
		space.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted id: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistence.Space{}, err
	}
	return space, nil
}

// GetSpace retrieves a space by id
func (r *SpaceRepository) GetSpace(ctx context.Context, id int64) (persistence.Space, error) {
	space, err := scanSpace(r.helper.QueryRow(ctx, selectSpace, id))
	if err != nil {
		return persistence.Space{}, r.mapper.MapError(err)
	}
	return space, nil
}

// UpdateSpace overwrites the mutable fields of a space. The owner cannot change.
func (r *SpaceRepository) UpdateSpace(ctx context.Context, space persistence.Space) (persistence.Space, error) {
	query := `
		UPDATE spaces
		SET location = ?, description = ?, hourly_rate = ?, daily_rate = ?, available = ?, active = ?
		WHERE id = ? AND owner = ?
	`

	err := r.pool.WriteTransaction(ctx, r.retry, func(tx *sql.Tx) error {
		helper := r.helper.Tx(tx)
		result, err := helper.Exec(ctx, query,
			space.Location,
			space.Description,
			space.HourlyRate,
			space.DailyRate,
			space.Available,
			space.Active,
			space.ID,
			space.Owner,
		)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected > 0 {
			return nil
		}

		if _, err := scanSpace(helper.QueryRow(ctx, selectSpace, space.ID)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return err
		}
		return fmt.Errorf("%w: owner is immutable", persistence.ErrConstraintViolation)
	})
	if err != nil {
		return persistence.Space{}, err
	}
	return space, nil
}

func scanSpace(row *sql.Row) (persistence.Space, error) {
	var space persistence.Space
	err := row.Scan(
		&space.ID,
		&space.Owner,
		&space.Location,
		&space.Description,
		&space.HourlyRate,
		&space.DailyRate,
		&space.Available,
		&space.Active,
	)
	return space, err
}
