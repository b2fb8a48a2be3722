package app

import (
	"context"
	"fmt"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/lifecycle"
	"github.com/example/parking-ledger/internal/persistence"
)

type spaceRepositoryAdapter struct {
	repo persistence.SpaceRepository
}

func newSpaceRepositoryAdapter(repo persistence.SpaceRepository) *spaceRepositoryAdapter {
	return &spaceRepositoryAdapter{repo: repo}
}

func (a *spaceRepositoryAdapter) InsertSpace(ctx context.Context, space application.Space) (application.Space, error) {
	stored, err := a.repo.InsertSpace(ctx, toPersistenceSpace(space))
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

func (a *spaceRepositoryAdapter) GetSpace(ctx context.Context, id int64) (application.Space, error) {
	stored, err := a.repo.GetSpace(ctx, id)
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

func (a *spaceRepositoryAdapter) UpdateSpace(ctx context.Context, space application.Space) (application.Space, error) {
	stored, err := a.repo.UpdateSpace(ctx, toPersistenceSpace(space))
	if err != nil {
		return application.Space{}, err
	}
	return toApplicationSpace(stored), nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) InsertReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	stored, err := a.repo.InsertReservation(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id int64) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	stored, err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation))
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored)
}

func (a *reservationRepositoryAdapter) ListReservationsForSpace(ctx context.Context, spaceID int64) ([]application.Reservation, error) {
	models, err := a.repo.ListReservationsForSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

func (a *reservationRepositoryAdapter) ListReservationsForHolder(ctx context.Context, holder application.Principal) ([]application.Reservation, error) {
	models, err := a.repo.ListReservationsForHolder(ctx, holder.String())
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(models)
}

type violationRepositoryAdapter struct {
	repo persistence.ViolationRepository
}

func newViolationRepositoryAdapter(repo persistence.ViolationRepository) *violationRepositoryAdapter {
	return &violationRepositoryAdapter{repo: repo}
}

func (a *violationRepositoryAdapter) InsertViolation(ctx context.Context, violation application.Violation) (application.Violation, error) {
	stored, err := a.repo.InsertViolation(ctx, toPersistenceViolation(violation))
	if err != nil {
		return application.Violation{}, err
	}
	return toApplicationViolation(stored)
}

func (a *violationRepositoryAdapter) GetViolation(ctx context.Context, id int64) (application.Violation, error) {
	stored, err := a.repo.GetViolation(ctx, id)
	if err != nil {
		return application.Violation{}, err
	}
	return toApplicationViolation(stored)
}

func (a *violationRepositoryAdapter) UpdateViolation(ctx context.Context, violation application.Violation) (application.Violation, error) {
	stored, err := a.repo.UpdateViolation(ctx, toPersistenceViolation(violation))
	if err != nil {
		return application.Violation{}, err
	}
	return toApplicationViolation(stored)
}

func (a *violationRepositoryAdapter) ListViolationIDsForSpace(ctx context.Context, spaceID int64) ([]int64, error) {
	return a.repo.ListViolationIDsForSpace(ctx, spaceID)
}

func (a *violationRepositoryAdapter) ListViolationIDsForViolator(ctx context.Context, violator application.Principal) ([]int64, error) {
	return a.repo.ListViolationIDsForViolator(ctx, violator.String())
}

type roleRepositoryAdapter struct {
	repo persistence.RoleRepository
}

func newRoleRepositoryAdapter(repo persistence.RoleRepository) *roleRepositoryAdapter {
	return &roleRepositoryAdapter{repo: repo}
}

func (a *roleRepositoryAdapter) AddRoleMember(ctx context.Context, role application.Role, principal application.Principal) error {
	return a.repo.AddRoleMember(ctx, string(role), principal.String())
}

func (a *roleRepositoryAdapter) HasRoleMember(ctx context.Context, role application.Role, principal application.Principal) (bool, error) {
	return a.repo.HasRoleMember(ctx, string(role), principal.String())
}

func (a *roleRepositoryAdapter) CountRoleMembers(ctx context.Context, role application.Role) (int, error) {
	return a.repo.CountRoleMembers(ctx, string(role))
}

func toApplicationSpace(model persistence.Space) application.Space {
	return application.Space{
		ID:          model.ID,
		Owner:       application.Principal(model.Owner),
		Location:    model.Location,
		Description: model.Description,
		HourlyRate:  model.HourlyRate,
		DailyRate:   model.DailyRate,
		Available:   model.Available,
		Active:      model.Active,
	}
}

func toPersistenceSpace(space application.Space) persistence.Space {
	return persistence.Space{
		ID:          space.ID,
		Owner:       space.Owner.String(),
		Location:    space.Location,
		Description: space.Description,
		HourlyRate:  space.HourlyRate,
		DailyRate:   space.DailyRate,
		Available:   space.Available,
		Active:      space.Active,
	}
}

func toApplicationReservation(model persistence.Reservation) (application.Reservation, error) {
	status, ok := lifecycle.ParseReservationStatus(model.Status)
	if !ok {
		return application.Reservation{}, fmt.Errorf("app: reservation %d has unknown status %q", model.ID, model.Status)
	}
	return application.Reservation{
		ID:        model.ID,
		SpaceID:   model.SpaceID,
		Holder:    application.Principal(model.Holder),
		StartTime: model.StartTime,
		EndTime:   model.EndTime,
		Status:    status,
		PaymentID: model.PaymentID,
	}, nil
}

func toApplicationReservations(models []persistence.Reservation) ([]application.Reservation, error) {
	if len(models) == 0 {
		return nil, nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservation, err := toApplicationReservation(model)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:        reservation.ID,
		SpaceID:   reservation.SpaceID,
		Holder:    reservation.Holder.String(),
		StartTime: reservation.StartTime,
		EndTime:   reservation.EndTime,
		Status:    string(reservation.Status),
		PaymentID: reservation.PaymentID,
	}
}

func toApplicationViolation(model persistence.Violation) (application.Violation, error) {
	status, ok := lifecycle.ParseViolationStatus(model.Status)
	if !ok {
		return application.Violation{}, fmt.Errorf("app: violation %d has unknown status %q", model.ID, model.Status)
	}
	hash, err := application.EvidenceHashFromBytes(model.EvidenceHash)
	if err != nil {
		return application.Violation{}, fmt.Errorf("app: violation %d: %w", model.ID, err)
	}
	var violator *application.Principal
	if model.Violator != nil {
		v := application.Principal(*model.Violator)
		violator = &v
	}
	return application.Violation{
		ID:            model.ID,
		SpaceID:       model.SpaceID,
		Reporter:      application.Principal(model.Reporter),
		Violator:      violator,
		LicensePlate:  model.LicensePlate,
		Description:   model.Description,
		EvidenceHash:  hash,
		Timestamp:     model.Timestamp,
		Status:        status,
		PenaltyAmount: model.PenaltyAmount,
	}, nil
}

func toPersistenceViolation(violation application.Violation) persistence.Violation {
	var violator *string
	if violation.Violator != nil {
		v := violation.Violator.String()
		violator = &v
	}
	return persistence.Violation{
		ID:            violation.ID,
		SpaceID:       violation.SpaceID,
		Reporter:      violation.Reporter.String(),
		Violator:      violator,
		LicensePlate:  violation.LicensePlate,
		Description:   violation.Description,
		EvidenceHash:  violation.EvidenceHash.Bytes(),
		Timestamp:     violation.Timestamp,
		Status:        string(violation.Status),
		PenaltyAmount: violation.PenaltyAmount,
	}
}
