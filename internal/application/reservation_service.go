package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/parking-ledger/internal/lifecycle"
	"github.com/example/parking-ledger/internal/scheduler"
)

// DefaultGraceWindow is how early, in seconds, a holder may check in before the reservation starts.
const DefaultGraceWindow int64 = 900

// ReservationRepository captures the persistence operations needed by the reservation ledger.
type ReservationRepository interface {
	InsertReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	ListReservationsForSpace(ctx context.Context, spaceID int64) ([]Reservation, error)
	ListReservationsForHolder(ctx context.Context, holder Principal) ([]Reservation, error)
}

// ReservationOption customises a ReservationService.
type ReservationOption func(*ReservationService)

// WithGraceWindow overrides the check-in grace window. Negative values are treated as zero.
func WithGraceWindow(seconds int64) ReservationOption {
	return func(s *ReservationService) {
		if seconds < 0 {
			seconds = 0
		}
		s.graceWindow = seconds
	}
}

// WithReservationLogger sets the logger used for operation outcomes.
func WithReservationLogger(logger *slog.Logger) ReservationOption {
	return func(s *ReservationService) {
		s.logger = defaultLogger(logger)
	}
}

// ReservationService owns reservations against spaces and their lifecycle.
type ReservationService struct {
	spaces       SpaceCatalog
	reservations ReservationRepository
	graceWindow  int64
	locks        *keyedMutex
	logger       *slog.Logger
}

// NewReservationService constructs a reservation ledger that validates spaces through the catalog.
func NewReservationService(spaces SpaceCatalog, reservations ReservationRepository, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		spaces:       spaces,
		reservations: reservations,
		graceWindow:  DefaultGraceWindow,
		locks:        newKeyedMutex(),
		logger:       defaultLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// GraceWindow reports the configured check-in grace window in seconds.
func (s *ReservationService) GraceWindow() int64 {
	return s.graceWindow
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Create books [start, end) on a space for the caller.
func (s *ReservationService) Create(ctx context.Context, caller Principal, spaceID, start, end int64) (reservation Reservation, err error) {
	if s == nil || s.reservations == nil || s.spaces == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal", caller.String(),
		"space_id", spaceID,
		"start_time", start,
		"end_time", end,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create reservation", "reservation created", "reservation_id", reservation.ID)
	}()

	candidate := scheduler.Interval{Start: start, End: end}
	if !candidate.Valid() {
		err = ErrInvalidRange
		return
	}

	unlock := s.locks.Lock(spaceKey(spaceID))
	defer unlock()

	var available bool
	available, err = s.spaces.IsAvailable(ctx, spaceID)
	if err != nil {
		return
	}
	if !available {
		err = ErrSpaceUnavailable
		return
	}

	var conflicts []scheduler.Conflict
	conflicts, err = s.detectConflicts(ctx, spaceID, candidate)
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = fmt.Errorf("%w: overlaps reservation %d", ErrTimeConflict, conflicts[0].WithReservationID)
		return
	}

	reservation, err = s.reservations.InsertReservation(ctx, Reservation{
		SpaceID:   spaceID,
		Holder:    caller,
		StartTime: start,
		EndTime:   end,
		Status:    lifecycle.ReservationPending,
	})
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// Confirm records the payment and moves a pending reservation to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, caller Principal, id, paymentID int64) (Reservation, error) {
	return s.transition(ctx, "Confirm", caller, id, func(current Reservation) (Reservation, error) {
		next, err := advance(current, lifecycle.ReservationConfirmed)
		if err != nil {
			return Reservation{}, err
		}
		next.PaymentID = paymentID
		return next, nil
	}, "payment_id", paymentID)
}

// Cancel releases the slot of any non-terminal reservation.
func (s *ReservationService) Cancel(ctx context.Context, caller Principal, id int64) (Reservation, error) {
	return s.transition(ctx, "Cancel", caller, id, func(current Reservation) (Reservation, error) {
		return advance(current, lifecycle.ReservationCancelled)
	})
}

// CheckIn marks a confirmed reservation as occupied once the grace window has opened.
func (s *ReservationService) CheckIn(ctx context.Context, caller Principal, id, now int64) (Reservation, error) {
	return s.transition(ctx, "CheckIn", caller, id, func(current Reservation) (Reservation, error) {
		next, err := advance(current, lifecycle.ReservationCheckedIn)
		if err != nil {
			return Reservation{}, err
		}
		if now < current.StartTime-s.graceWindow {
			return Reservation{}, ErrTooEarly
		}
		return next, nil
	}, "current_time", now)
}

// CheckOut completes a checked-in reservation.
func (s *ReservationService) CheckOut(ctx context.Context, caller Principal, id, now int64) (Reservation, error) {
	return s.transition(ctx, "CheckOut", caller, id, func(current Reservation) (Reservation, error) {
		return advance(current, lifecycle.ReservationCompleted)
	}, "current_time", now)
}

// transition runs the shared NotFound, Forbidden, apply sequence for holder-initiated changes.
func (s *ReservationService) transition(ctx context.Context, operation string, caller Principal, id int64, apply func(Reservation) (Reservation, error), attrs ...any) (reservation Reservation, err error) {
	if s == nil || s.reservations == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	logger := s.loggerWith(ctx, operation, append([]any{"principal", caller.String(), "reservation_id", id}, attrs...)...)
	defer func() {
		logOutcome(ctx, logger, err, "reservation transition failed", "reservation transitioned", "status", string(reservation.Status))
	}()

	var current Reservation
	current, err = s.Get(ctx, id)
	if err != nil {
		return
	}

	unlock := s.locks.Lock(spaceKey(current.SpaceID))
	defer unlock()

	current, err = s.Get(ctx, id)
	if err != nil {
		return
	}
	if current.Holder != caller {
		err = ErrForbidden
		return
	}

	var next Reservation
	next, err = apply(current)
	if err != nil {
		return
	}

	reservation, err = s.reservations.UpdateReservation(ctx, next)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// Get returns the reservation with the given id.
func (s *ReservationService) Get(ctx context.Context, id int64) (Reservation, error) {
	if s == nil || s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation service not configured")
	}
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapRepoError(err)
	}
	return reservation, nil
}

// IsActive reports whether the reservation exists and still holds its slot.
func (s *ReservationService) IsActive(ctx context.Context, id int64) (bool, error) {
	reservation, err := s.Get(ctx, id)
	if ok, err := presence(err); !ok || err != nil {
		return false, err
	}
	return reservation.Status.IsActive(), nil
}

// IsTimeAvailable reports whether no active reservation on the space covers t.
func (s *ReservationService) IsTimeAvailable(ctx context.Context, spaceID, t int64) (bool, error) {
	bookings, err := s.activeBookings(ctx, spaceID)
	if err != nil {
		return false, err
	}
	return scheduler.IsFree(bookings, t), nil
}

// ForSpace lists every reservation made against a space, ordered by id.
func (s *ReservationService) ForSpace(ctx context.Context, spaceID int64) ([]Reservation, error) {
	if s == nil || s.reservations == nil {
		return nil, fmt.Errorf("reservation service not configured")
	}
	reservations, err := s.reservations.ListReservationsForSpace(ctx, spaceID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return reservations, nil
}

// ForHolder lists every reservation held by a principal, ordered by id.
func (s *ReservationService) ForHolder(ctx context.Context, holder Principal) ([]Reservation, error) {
	if s == nil || s.reservations == nil {
		return nil, fmt.Errorf("reservation service not configured")
	}
	reservations, err := s.reservations.ListReservationsForHolder(ctx, holder)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return reservations, nil
}

func (s *ReservationService) detectConflicts(ctx context.Context, spaceID int64, candidate scheduler.Interval) ([]scheduler.Conflict, error) {
	bookings, err := s.activeBookings(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return scheduler.DetectConflicts(bookings, candidate), nil
}

func (s *ReservationService) activeBookings(ctx context.Context, spaceID int64) ([]scheduler.Booking, error) {
	reservations, err := s.ForSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	bookings := make([]scheduler.Booking, 0, len(reservations))
	for _, reservation := range reservations {
		if !reservation.Status.IsActive() {
			continue
		}
		bookings = append(bookings, scheduler.Booking{
			ReservationID: reservation.ID,
			Interval:      scheduler.Interval{Start: reservation.StartTime, End: reservation.EndTime},
		})
	}
	return bookings, nil
}

func advance(current Reservation, to lifecycle.ReservationStatus) (Reservation, error) {
	status, err := current.Status.Transition(to)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			return Reservation{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return Reservation{}, err
	}
	next := current
	next.Status = status
	return next, nil
}
