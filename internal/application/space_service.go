package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/parking-ledger/internal/persistence"
)

// SpaceRepository captures the persistence operations needed by the space registry.
type SpaceRepository interface {
	InsertSpace(ctx context.Context, space Space) (Space, error)
	GetSpace(ctx context.Context, id int64) (Space, error)
	UpdateSpace(ctx context.Context, space Space) (Space, error)
}

// AdminChecker answers admin membership questions.
type AdminChecker interface {
	IsAdmin(ctx context.Context, p Principal) (bool, error)
}

// SpaceCatalog is the read-only view of the space registry used by other registries.
type SpaceCatalog interface {
	Exists(ctx context.Context, id int64) (bool, error)
	IsActive(ctx context.Context, id int64) (bool, error)
	IsAvailable(ctx context.Context, id int64) (bool, error)
}

// SpaceService owns the catalog of parking spaces.
type SpaceService struct {
	spaces SpaceRepository
	admins AdminChecker
	locks  *keyedMutex
	logger *slog.Logger
}

// NewSpaceService constructs a space registry.
func NewSpaceService(spaces SpaceRepository, admins AdminChecker) *SpaceService {
	return NewSpaceServiceWithLogger(spaces, admins, nil)
}

// NewSpaceServiceWithLogger constructs a space registry with a specified logger.
func NewSpaceServiceWithLogger(spaces SpaceRepository, admins AdminChecker, logger *slog.Logger) *SpaceService {
	return &SpaceService{
		spaces: spaces,
		admins: admins,
		locks:  newKeyedMutex(),
		logger: defaultLogger(logger),
	}
}

func (s *SpaceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SpaceService", operation, attrs...)
}

// Register records a new space owned by the caller. Registration is open to any principal.
func (s *SpaceService) Register(ctx context.Context, caller Principal, input RegisterSpaceInput) (space Space, err error) {
	if s == nil || s.spaces == nil {
		err = fmt.Errorf("space repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Register", "principal", caller.String())
	defer func() {
		logOutcome(ctx, logger, err, "failed to register space", "space registered", "space_id", space.ID)
	}()

	vErr := &ValidationError{}
	vErr.merge(validateRate("hourly_rate", &input.HourlyRate))
	vErr.merge(validateRate("daily_rate", &input.DailyRate))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	space, err = s.spaces.InsertSpace(ctx, Space{
		Owner:       caller,
		Location:    strings.TrimSpace(input.Location),
		Description: strings.TrimSpace(input.Description),
		HourlyRate:  input.HourlyRate,
		DailyRate:   input.DailyRate,
		Available:   true,
		Active:      true,
	})
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateDetails overwrites the supplied descriptive fields and rates of an owned, active space.
func (s *SpaceService) UpdateDetails(ctx context.Context, caller Principal, id int64, input UpdateSpaceInput) (space Space, err error) {
	logger := s.loggerWith(ctx, "UpdateDetails", "principal", caller.String(), "space_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update space", "space updated")
	}()

	unlock := s.locks.Lock(spaceKey(id))
	defer unlock()

	space, err = s.ownedActiveSpace(ctx, caller, id)
	if err != nil {
		return
	}

	vErr := &ValidationError{}
	vErr.merge(validateRate("hourly_rate", input.HourlyRate))
	vErr.merge(validateRate("daily_rate", input.DailyRate))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := space
	if input.Description != nil {
		updated.Description = strings.TrimSpace(*input.Description)
	}
	if input.HourlyRate != nil {
		updated.HourlyRate = *input.HourlyRate
	}
	if input.DailyRate != nil {
		updated.DailyRate = *input.DailyRate
	}

	space, err = s.save(ctx, updated)
	return
}

// SetAvailability toggles whether an owned, active space accepts new reservations.
func (s *SpaceService) SetAvailability(ctx context.Context, caller Principal, id int64, available bool) (space Space, err error) {
	logger := s.loggerWith(ctx, "SetAvailability", "principal", caller.String(), "space_id", id, "available", available)
	defer func() {
		logOutcome(ctx, logger, err, "failed to set space availability", "space availability set")
	}()

	unlock := s.locks.Lock(spaceKey(id))
	defer unlock()

	space, err = s.ownedActiveSpace(ctx, caller, id)
	if err != nil {
		return
	}

	updated := space
	updated.Available = available
	space, err = s.save(ctx, updated)
	return
}

// Deactivate permanently retires a space. Allowed for the owner or any admin.
func (s *SpaceService) Deactivate(ctx context.Context, caller Principal, id int64) (space Space, err error) {
	logger := s.loggerWith(ctx, "Deactivate", "principal", caller.String(), "space_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to deactivate space", "space deactivated")
	}()

	unlock := s.locks.Lock(spaceKey(id))
	defer unlock()

	space, err = s.Get(ctx, id)
	if err != nil {
		return
	}

	if space.Owner != caller {
		var isAdmin bool
		if s.admins != nil {
			isAdmin, err = s.admins.IsAdmin(ctx, caller)
			if err != nil {
				return
			}
		}
		if !isAdmin {
			err = ErrForbidden
			return
		}
	}
	if !space.Active {
		err = ErrInactive
		return
	}

	updated := space
	updated.Active = false
	updated.Available = false
	space, err = s.save(ctx, updated)
	return
}

// Get returns the space with the given id.
func (s *SpaceService) Get(ctx context.Context, id int64) (Space, error) {
	if s == nil || s.spaces == nil {
		return Space{}, fmt.Errorf("space repository not configured")
	}
	space, err := s.spaces.GetSpace(ctx, id)
	if err != nil {
		return Space{}, mapRepoError(err)
	}
	return space, nil
}

// Exists reports whether a space with the given id was ever registered.
func (s *SpaceService) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.Get(ctx, id)
	return presence(err)
}

// IsActive reports whether the space exists and has not been deactivated.
func (s *SpaceService) IsActive(ctx context.Context, id int64) (bool, error) {
	space, err := s.Get(ctx, id)
	if ok, err := presence(err); !ok || err != nil {
		return false, err
	}
	return space.Active, nil
}

// IsAvailable reports whether the space exists, is active, and is flagged available.
func (s *SpaceService) IsAvailable(ctx context.Context, id int64) (bool, error) {
	space, err := s.Get(ctx, id)
	if ok, err := presence(err); !ok || err != nil {
		return false, err
	}
	return space.Active && space.Available, nil
}

// HourlyRate returns the stored hourly rate of a space.
func (s *SpaceService) HourlyRate(ctx context.Context, id int64) (int64, error) {
	space, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return space.HourlyRate, nil
}

// DailyRate returns the stored daily rate of a space.
func (s *SpaceService) DailyRate(ctx context.Context, id int64) (int64, error) {
	space, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return space.DailyRate, nil
}

func (s *SpaceService) ownedActiveSpace(ctx context.Context, caller Principal, id int64) (Space, error) {
	space, err := s.Get(ctx, id)
	if err != nil {
		return Space{}, err
	}
	if space.Owner != caller {
		return Space{}, ErrForbidden
	}
	if !space.Active {
		return Space{}, ErrInactive
	}
	return space, nil
}

func (s *SpaceService) save(ctx context.Context, space Space) (Space, error) {
	persisted, err := s.spaces.UpdateSpace(ctx, space)
	if err != nil {
		return Space{}, mapRepoError(err)
	}
	return persisted, nil
}

func validateRate(field string, rate *int64) *ValidationError {
	if rate == nil || *rate >= 0 {
		return nil
	}
	return invalidField(field, strings.ReplaceAll(field, "_", " ")+" must not be negative")
}

// presence converts a not-found lookup into a plain false.
func presence(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return err
}
