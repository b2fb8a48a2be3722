package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/parking-ledger/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const reservationColumns = `id, space_id, holder, start_time, end_time, status, payment_id`

// InsertReservation inserts a new reservation and returns it with its assigned id
func (r *ReservationRepository) InsertReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	query := `
		INSERT INTO reservations (space_id, holder, start_time, end_time, status, payment_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			reservation.SpaceID,
			reservation.Holder,
			reservation.StartTime,
			reservation.EndTime,
			reservation.Status,
			reservation.PaymentID,
		)
		if err != nil {
			return err
		}
		reservation.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted id: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}

// GetReservation retrieves a reservation by id
func (r *ReservationRepository) GetReservation(ctx context.Context, id int64) (persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

	reservation, err := scanReservation(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// UpdateReservation overwrites the mutable fields of a reservation. Space and holder cannot change.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	query := `
		UPDATE reservations
		SET start_time = ?, end_time = ?, status = ?, payment_id = ?
		WHERE id = ? AND space_id = ? AND holder = ?
	`

	err := r.pool.WriteTransaction(ctx, r.retry, func(tx *sql.Tx) error {
		helper := r.helper.Tx(tx)
		result, err := helper.Exec(ctx, query,
			reservation.StartTime,
			reservation.EndTime,
			reservation.Status,
			reservation.PaymentID,
			reservation.ID,
			reservation.SpaceID,
			reservation.Holder,
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

		var exists int
		err = helper.QueryRow(ctx, `SELECT 1 FROM reservations WHERE id = ?`, reservation.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: space and holder are immutable", persistence.ErrConstraintViolation)
	})
	if err != nil {
		return persistence.Reservation{}, err
	}
	return reservation, nil
}

// ListReservationsForSpace returns every reservation on a space ordered by id
func (r *ReservationRepository) ListReservationsForSpace(ctx context.Context, spaceID int64) ([]persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE space_id = ? ORDER BY id ASC`
	return r.list(ctx, query, spaceID)
}

// ListReservationsForHolder returns every reservation held by a principal ordered by id
func (r *ReservationRepository) ListReservationsForHolder(ctx context.Context, holder string) ([]persistence.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE holder = ? ORDER BY id ASC`
	return r.list(ctx, query, holder)
}

func (r *ReservationRepository) list(ctx context.Context, query string, arg any) ([]persistence.Reservation, error) {
	rows, err := r.helper.Query(ctx, query, arg)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.SpaceID,
		&reservation.Holder,
		&reservation.StartTime,
		&reservation.EndTime,
		&reservation.Status,
		&reservation.PaymentID,
	)
	return reservation, err
}
