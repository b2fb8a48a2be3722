package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/parking-ledger/internal/lifecycle"
)

// ViolationRepository captures the persistence operations needed by the violation registry.
// Implementations keep the space and violator indices in step with the primary record.
type ViolationRepository interface {
	InsertViolation(ctx context.Context, violation Violation) (Violation, error)
	GetViolation(ctx context.Context, id int64) (Violation, error)
	UpdateViolation(ctx context.Context, violation Violation) (Violation, error)
	ListViolationIDsForSpace(ctx context.Context, spaceID int64) ([]int64, error)
	ListViolationIDsForViolator(ctx context.Context, violator Principal) ([]int64, error)
}

// EnforcerChecker answers enforcer membership questions.
type EnforcerChecker interface {
	IsEnforcer(ctx context.Context, p Principal) (bool, error)
}

// ViolationService owns violation reports, their review, and penalty payment.
type ViolationService struct {
	spaces     SpaceCatalog
	enforcers  EnforcerChecker
	violations ViolationRepository
	locks      *keyedMutex
	logger     *slog.Logger
}

// NewViolationService constructs a violation registry.
func NewViolationService(spaces SpaceCatalog, enforcers EnforcerChecker, violations ViolationRepository) *ViolationService {
	return NewViolationServiceWithLogger(spaces, enforcers, violations, nil)
}

// NewViolationServiceWithLogger constructs a violation registry with a specified logger.
func NewViolationServiceWithLogger(spaces SpaceCatalog, enforcers EnforcerChecker, violations ViolationRepository, logger *slog.Logger) *ViolationService {
	return &ViolationService{
		spaces:     spaces,
		enforcers:  enforcers,
		violations: violations,
		locks:      newKeyedMutex(),
		logger:     defaultLogger(logger),
	}
}

func (s *ViolationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ViolationService", operation, attrs...)
}

// Report files a new violation against an active space. Any principal may report.
func (s *ViolationService) Report(ctx context.Context, caller Principal, input ReportViolationInput) (violation Violation, err error) {
	if s == nil || s.violations == nil || s.spaces == nil {
		err = fmt.Errorf("violation service not configured")
		return
	}

	logger := s.loggerWith(ctx, "Report", "principal", caller.String(), "space_id", input.SpaceID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to report violation", "violation reported", "violation_id", violation.ID)
	}()

	var exists bool
	exists, err = s.spaces.Exists(ctx, input.SpaceID)
	if err != nil {
		return
	}
	if !exists {
		err = ErrSpaceNotFound
		return
	}

	var active bool
	active, err = s.spaces.IsActive(ctx, input.SpaceID)
	if err != nil {
		return
	}
	if !active {
		err = ErrSpaceUnavailable
		return
	}

	violation, err = s.violations.InsertViolation(ctx, Violation{
		SpaceID:      input.SpaceID,
		Reporter:     caller,
		LicensePlate: strings.TrimSpace(input.LicensePlate),
		Description:  strings.TrimSpace(input.Description),
		EvidenceHash: input.EvidenceHash,
		Timestamp:    input.Timestamp,
		Status:       lifecycle.ViolationReported,
	})
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// Review records an enforcer's decision on a reported violation. A confirmation requires a penalty;
// a dismissal ignores it.
func (s *ViolationService) Review(ctx context.Context, caller Principal, id int64, decision lifecycle.ViolationStatus, penalty *int64) (Violation, error) {
	return s.mutate(ctx, "Review", id, func(current Violation) (Violation, error) {
		if err := s.requireEnforcer(ctx, caller); err != nil {
			return Violation{}, err
		}
		if current.Status != lifecycle.ViolationReported {
			return Violation{}, fmt.Errorf("%w: violation is %s", ErrInvalidState, current.Status)
		}
		if !decision.IsReviewDecision() {
			return Violation{}, invalidField("decision", "decision must be confirmed or dismissed")
		}
		if decision == lifecycle.ViolationConfirmed {
			if penalty == nil {
				return Violation{}, invalidField("penalty_amount", "penalty amount is required to confirm")
			}
			if *penalty < 0 {
				return Violation{}, invalidField("penalty_amount", "penalty amount must not be negative")
			}
		}

		next := current
		next.Status = decision
		if decision == lifecycle.ViolationConfirmed {
			next.PenaltyAmount = *penalty
		}
		return next, nil
	}, "principal", caller.String(), "decision", string(decision))
}

// IdentifyViolator sets or replaces the accused principal of a violation.
func (s *ViolationService) IdentifyViolator(ctx context.Context, caller Principal, id int64, violator Principal) (Violation, error) {
	return s.mutate(ctx, "IdentifyViolator", id, func(current Violation) (Violation, error) {
		if err := s.requireEnforcer(ctx, caller); err != nil {
			return Violation{}, err
		}
		if violator.IsZero() {
			return Violation{}, invalidField("violator", "violator is required")
		}

		next := current
		identified := violator
		next.Violator = &identified
		return next, nil
	}, "principal", caller.String(), "violator", violator.String())
}

// PayPenalty settles a confirmed violation on behalf of the identified violator.
func (s *ViolationService) PayPenalty(ctx context.Context, caller Principal, id int64) (Violation, error) {
	return s.mutate(ctx, "PayPenalty", id, func(current Violation) (Violation, error) {
		if current.Violator == nil || caller.IsZero() || *current.Violator != caller {
			return Violation{}, ErrForbidden
		}
		status, err := current.Status.Transition(lifecycle.ViolationPaid)
		if err != nil {
			return Violation{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}

		next := current
		next.Status = status
		return next, nil
	}, "principal", caller.String())
}

func (s *ViolationService) mutate(ctx context.Context, operation string, id int64, apply func(Violation) (Violation, error), attrs ...any) (violation Violation, err error) {
	if s == nil || s.violations == nil {
		err = fmt.Errorf("violation service not configured")
		return
	}

	logger := s.loggerWith(ctx, operation, append([]any{"violation_id", id}, attrs...)...)
	defer func() {
		logOutcome(ctx, logger, err, "violation update failed", "violation updated", "status", string(violation.Status))
	}()

	unlock := s.locks.Lock(violationKey(id))
	defer unlock()

	var current Violation
	current, err = s.Get(ctx, id)
	if err != nil {
		return
	}

	var next Violation
	next, err = apply(current)
	if err != nil {
		return
	}

	violation, err = s.violations.UpdateViolation(ctx, next)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

func (s *ViolationService) requireEnforcer(ctx context.Context, caller Principal) error {
	if s.enforcers == nil {
		return ErrForbidden
	}
	ok, err := s.enforcers.IsEnforcer(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Get returns the violation with the given id.
func (s *ViolationService) Get(ctx context.Context, id int64) (Violation, error) {
	if s == nil || s.violations == nil {
		return Violation{}, fmt.Errorf("violation service not configured")
	}
	violation, err := s.violations.GetViolation(ctx, id)
	if err != nil {
		return Violation{}, mapRepoError(err)
	}
	return violation, nil
}

// ForSpace lists the ids of violations reported against a space in ascending order.
func (s *ViolationService) ForSpace(ctx context.Context, spaceID int64) ([]int64, error) {
	if s == nil || s.violations == nil {
		return nil, fmt.Errorf("violation service not configured")
	}
	ids, err := s.violations.ListViolationIDsForSpace(ctx, spaceID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return ids, nil
}

// ForViolator lists the ids of violations currently attributed to a principal in ascending order.
func (s *ViolationService) ForViolator(ctx context.Context, violator Principal) ([]int64, error) {
	if s == nil || s.violations == nil {
		return nil, fmt.Errorf("violation service not configured")
	}
	if violator.IsZero() {
		return nil, nil
	}
	ids, err := s.violations.ListViolationIDsForViolator(ctx, violator)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return nil, nil
		}
		return nil, mapRepoError(err)
	}
	return ids, nil
}
