package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/parking-ledger/internal/persistence"
)

// ViolationRepository implements persistence.ViolationRepository using SQLite.
// The space and violator indices are served by idx_violations_space and idx_violations_violator.
type ViolationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewViolationRepository creates a new SQLite violation repository
func NewViolationRepository(pool *ConnectionPool) *ViolationRepository {
	return &ViolationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const selectViolation = `
	SELECT id, space_id, reporter, violator, license_plate, description, evidence_hash, reported_at, status, penalty_amount
	FROM violations
	WHERE id = ?
`

// InsertViolation inserts a new violation and returns it with its assigned id
func (r *ViolationRepository) InsertViolation(ctx context.Context, violation persistence.Violation) (persistence.Violation, error) {
	query := `
		INSERT INTO violations (space_id, reporter, violator, license_plate, description, evidence_hash, reported_at, status, penalty_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			violation.SpaceID,
			violation.Reporter,
			nullableString(violation.Violator),
			violation.LicensePlate,
			violation.Description,
			evidenceBytes(violation.EvidenceHash),
			violation.Timestamp,
			violation.Status,
			violation.PenaltyAmount,
		)
		if err != nil {
			return err
		}
		violation.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted id: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistence.Violation{}, err
	}
	return violation, nil
}

// GetViolation retrieves a violation by id
func (r *ViolationRepository) GetViolation(ctx context.Context, id int64) (persistence.Violation, error) {
	violation, err := scanViolation(r.helper.QueryRow(ctx, selectViolation, id))
	if err != nil {
		return persistence.Violation{}, r.mapper.MapError(err)
	}
	return violation, nil
}

// UpdateViolation overwrites the mutable fields of a violation. The violator index follows the row.
func (r *ViolationRepository) UpdateViolation(ctx context.Context, violation persistence.Violation) (persistence.Violation, error) {
	query := `
		UPDATE violations
		SET violator = ?, license_plate = ?, description = ?, status = ?, penalty_amount = ?
		WHERE id = ? AND space_id = ?
	`

	err := r.pool.WriteTransaction(ctx, r.retry, func(tx *sql.Tx) error {
		helper := r.helper.Tx(tx)
		result, err := helper.Exec(ctx, query,
			nullableString(violation.Violator),
			violation.LicensePlate,
			violation.Description,
			violation.Status,
			violation.PenaltyAmount,
			violation.ID,
			violation.SpaceID,
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

		if _, err := scanViolation(helper.QueryRow(ctx, selectViolation, violation.ID)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return err
		}
		return fmt.Errorf("%w: space is immutable", persistence.ErrConstraintViolation)
	})
	if err != nil {
		return persistence.Violation{}, err
	}
	return r.GetViolation(ctx, violation.ID)
}

// ListViolationIDsForSpace returns the ids of violations reported against a space
func (r *ViolationRepository) ListViolationIDsForSpace(ctx context.Context, spaceID int64) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM violations WHERE space_id = ? ORDER BY id ASC`, spaceID)
}

// ListViolationIDsForViolator returns the ids of violations currently attributed to a principal
func (r *ViolationRepository) ListViolationIDsForViolator(ctx context.Context, violator string) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM violations WHERE violator = ? ORDER BY id ASC`, violator)
}

func (r *ViolationRepository) listIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := r.helper.Query(ctx, query, arg)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return ids, nil
}

func scanViolation(row rowScanner) (persistence.Violation, error) {
	var violation persistence.Violation
	var violator sql.NullString
	err := row.Scan(
		&violation.ID,
		&violation.SpaceID,
		&violation.Reporter,
		&violator,
		&violation.LicensePlate,
		&violation.Description,
		&violation.EvidenceHash,
		&violation.Timestamp,
		&violation.Status,
		&violation.PenaltyAmount,
	)
	if err != nil {
		return persistence.Violation{}, err
	}

	// Handle nullable violator field
	if violator.Valid {
		v := violator.String
		violation.Violator = &v
	}
	return violation, nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func evidenceBytes(hash []byte) []byte {
	if hash == nil {
		return []byte{}
	}
	return hash
}
