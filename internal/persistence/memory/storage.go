// Package memory provides a process-local persistence engine backed by maps.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/parking-ledger/internal/persistence"
)

// Storage keeps every collection in memory. Identifiers are assigned from per-collection
// counters and are never reused.
type Storage struct {
	mu sync.RWMutex

	spaces       map[int64]persistence.Space
	reservations map[int64]persistence.Reservation
	violations   map[int64]persistence.Violation
	roles        map[string]map[string]struct{}

	nextSpaceID       int64
	nextReservationID int64
	nextViolationID   int64

	reservationsBySpace  map[int64][]int64
	reservationsByHolder map[string][]int64
	violationsBySpace    map[int64][]int64
	violationsByViolator map[string][]int64
}

var _ persistence.Store = (*Storage)(nil)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		spaces:               make(map[int64]persistence.Space),
		reservations:         make(map[int64]persistence.Reservation),
		violations:           make(map[int64]persistence.Violation),
		roles:                make(map[string]map[string]struct{}),
		reservationsBySpace:  make(map[int64][]int64),
		reservationsByHolder: make(map[string][]int64),
		violationsBySpace:    make(map[int64][]int64),
		violationsByViolator: make(map[string][]int64),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- SpaceRepository implementation ---

// InsertSpace stores a new space under the next id.
func (s *Storage) InsertSpace(ctx context.Context, space persistence.Space) (persistence.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkSpace(space); err != nil {
		return persistence.Space{}, err
	}

	s.nextSpaceID++
	space.ID = s.nextSpaceID
	s.spaces[space.ID] = space
	return space, nil
}

// GetSpace retrieves a space by id.
func (s *Storage) GetSpace(ctx context.Context, id int64) (persistence.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.spaces[id]
	if !ok {
		return persistence.Space{}, persistence.ErrNotFound
	}
	return space, nil
}

// UpdateSpace overwrites an existing space.
func (s *Storage) UpdateSpace(ctx context.Context, space persistence.Space) (persistence.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.spaces[space.ID]
	if !ok {
		return persistence.Space{}, persistence.ErrNotFound
	}
	if err := checkSpace(space); err != nil {
		return persistence.Space{}, err
	}
	if existing.Owner != space.Owner {
		return persistence.Space{}, fmt.Errorf("%w: owner is immutable", persistence.ErrConstraintViolation)
	}

	s.spaces[space.ID] = space
	return space, nil
}

// --- ReservationRepository implementation ---

// InsertReservation stores a new reservation under the next id.
func (s *Storage) InsertReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reservation.EndTime <= reservation.StartTime {
		return persistence.Reservation{}, fmt.Errorf("%w: end must follow start", persistence.ErrConstraintViolation)
	}
	if _, ok := s.spaces[reservation.SpaceID]; !ok {
		return persistence.Reservation{}, fmt.Errorf("%w: unknown space %d", persistence.ErrConstraintViolation, reservation.SpaceID)
	}

	s.nextReservationID++
	reservation.ID = s.nextReservationID
	s.reservations[reservation.ID] = reservation
	s.reservationsBySpace[reservation.SpaceID] = append(s.reservationsBySpace[reservation.SpaceID], reservation.ID)
	s.reservationsByHolder[reservation.Holder] = append(s.reservationsByHolder[reservation.Holder], reservation.ID)
	return reservation, nil
}

// GetReservation retrieves a reservation by id.
func (s *Storage) GetReservation(ctx context.Context, id int64) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

// UpdateReservation overwrites the mutable fields of a reservation.
func (s *Storage) UpdateReservation(ctx context.Context, reservation persistence.Reservation) (persistence.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reservations[reservation.ID]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	if existing.SpaceID != reservation.SpaceID || existing.Holder != reservation.Holder {
		return persistence.Reservation{}, fmt.Errorf("%w: space and holder are immutable", persistence.ErrConstraintViolation)
	}

	s.reservations[reservation.ID] = reservation
	return reservation, nil
}

// ListReservationsForSpace returns every reservation on a space ordered by id.
func (s *Storage) ListReservationsForSpace(ctx context.Context, spaceID int64) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectReservationsLocked(s.reservationsBySpace[spaceID]), nil
}

// ListReservationsForHolder returns every reservation held by a principal ordered by id.
func (s *Storage) ListReservationsForHolder(ctx context.Context, holder string) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectReservationsLocked(s.reservationsByHolder[holder]), nil
}

func (s *Storage) collectReservationsLocked(ids []int64) []persistence.Reservation {
	if len(ids) == 0 {
		return nil
	}
	out := make([]persistence.Reservation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.reservations[id])
	}
	return out
}

// --- ViolationRepository implementation ---

// InsertViolation stores a new violation under the next id and indexes it by space and violator.
func (s *Storage) InsertViolation(ctx context.Context, violation persistence.Violation) (persistence.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.spaces[violation.SpaceID]; !ok {
		return persistence.Violation{}, fmt.Errorf("%w: unknown space %d", persistence.ErrConstraintViolation, violation.SpaceID)
	}
	if violation.PenaltyAmount < 0 {
		return persistence.Violation{}, fmt.Errorf("%w: negative penalty", persistence.ErrConstraintViolation)
	}

	s.nextViolationID++
	violation.ID = s.nextViolationID
	violation = cloneViolation(violation)
	s.violations[violation.ID] = violation
	s.violationsBySpace[violation.SpaceID] = append(s.violationsBySpace[violation.SpaceID], violation.ID)
	if violation.Violator != nil {
		s.violationsByViolator[*violation.Violator] = append(s.violationsByViolator[*violation.Violator], violation.ID)
	}
	return cloneViolation(violation), nil
}

// GetViolation retrieves a violation by id.
func (s *Storage) GetViolation(ctx context.Context, id int64) (persistence.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	violation, ok := s.violations[id]
	if !ok {
		return persistence.Violation{}, persistence.ErrNotFound
	}
	return cloneViolation(violation), nil
}

// UpdateViolation overwrites a violation and moves it between violator indices when the violator changes.
func (s *Storage) UpdateViolation(ctx context.Context, violation persistence.Violation) (persistence.Violation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.violations[violation.ID]
	if !ok {
		return persistence.Violation{}, persistence.ErrNotFound
	}
	if existing.SpaceID != violation.SpaceID {
		return persistence.Violation{}, fmt.Errorf("%w: space is immutable", persistence.ErrConstraintViolation)
	}
	if violation.PenaltyAmount < 0 {
		return persistence.Violation{}, fmt.Errorf("%w: negative penalty", persistence.ErrConstraintViolation)
	}

	before, after := violatorKey(existing.Violator), violatorKey(violation.Violator)
	if before != after {
		if before != "" {
			s.violationsByViolator[before] = removeID(s.violationsByViolator[before], violation.ID)
			if len(s.violationsByViolator[before]) == 0 {
				delete(s.violationsByViolator, before)
			}
		}
		if after != "" {
			s.violationsByViolator[after] = insertSorted(s.violationsByViolator[after], violation.ID)
		}
	}

	violation = cloneViolation(violation)
	s.violations[violation.ID] = violation
	return cloneViolation(violation), nil
}

// ListViolationIDsForSpace returns the ids of violations reported against a space.
func (s *Storage) ListViolationIDsForSpace(ctx context.Context, spaceID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneIDs(s.violationsBySpace[spaceID]), nil
}

// ListViolationIDsForViolator returns the ids of violations currently attributed to a principal.
func (s *Storage) ListViolationIDsForViolator(ctx context.Context, violator string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneIDs(s.violationsByViolator[violator]), nil
}

// --- RoleRepository implementation ---

// AddRoleMember adds a principal to a role set. Adding an existing member is a no-op.
func (s *Storage) AddRoleMember(ctx context.Context, role, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role == "" || principal == "" {
		return fmt.Errorf("%w: role and principal are required", persistence.ErrConstraintViolation)
	}
	members, ok := s.roles[role]
	if !ok {
		members = make(map[string]struct{})
		s.roles[role] = members
	}
	members[principal] = struct{}{}
	return nil
}

// HasRoleMember reports whether a principal belongs to a role set.
func (s *Storage) HasRoleMember(ctx context.Context, role, principal string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.roles[role][principal]
	return ok, nil
}

// CountRoleMembers returns the size of a role set.
func (s *Storage) CountRoleMembers(ctx context.Context, role string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.roles[role]), nil
}

func checkSpace(space persistence.Space) error {
	if space.HourlyRate < 0 || space.DailyRate < 0 {
		return fmt.Errorf("%w: negative rate", persistence.ErrConstraintViolation)
	}
	if space.Available && !space.Active {
		return fmt.Errorf("%w: inactive space cannot be available", persistence.ErrConstraintViolation)
	}
	return nil
}

func cloneViolation(violation persistence.Violation) persistence.Violation {
	clone := violation
	if violation.Violator != nil {
		v := *violation.Violator
		clone.Violator = &v
	}
	if violation.EvidenceHash != nil {
		clone.EvidenceHash = append([]byte(nil), violation.EvidenceHash...)
	}
	return clone
}

func cloneIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func violatorKey(violator *string) string {
	if violator == nil {
		return ""
	}
	return *violator
}

func removeID(ids []int64, target int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func insertSorted(ids []int64, id int64) []int64 {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
