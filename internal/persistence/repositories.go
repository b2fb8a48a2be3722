package persistence

import "context"

// SpaceRepository stores spaces. InsertSpace assigns the next id, starting at 1.
type SpaceRepository interface {
	InsertSpace(ctx context.Context, space Space) (Space, error)
	GetSpace(ctx context.Context, id int64) (Space, error)
	UpdateSpace(ctx context.Context, space Space) (Space, error)
}

// ReservationRepository stores reservations. Listings are ordered by id.
type ReservationRepository interface {
	InsertReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	ListReservationsForSpace(ctx context.Context, spaceID int64) ([]Reservation, error)
	ListReservationsForHolder(ctx context.Context, holder string) ([]Reservation, error)
}

// ViolationRepository stores violations together with their space and violator indices.
// Index lookups return ids in ascending order and reflect the current violator only.
type ViolationRepository interface {
	InsertViolation(ctx context.Context, violation Violation) (Violation, error)
	GetViolation(ctx context.Context, id int64) (Violation, error)
	UpdateViolation(ctx context.Context, violation Violation) (Violation, error)
	ListViolationIDsForSpace(ctx context.Context, spaceID int64) ([]int64, error)
	ListViolationIDsForViolator(ctx context.Context, violator string) ([]int64, error)
}

// RoleRepository stores role membership.
type RoleRepository interface {
	AddRoleMember(ctx context.Context, role, principal string) error
	HasRoleMember(ctx context.Context, role, principal string) (bool, error)
	CountRoleMembers(ctx context.Context, role string) (int, error)
}

// Store is implemented by every storage engine.
type Store interface {
	SpaceRepository
	ReservationRepository
	ViolationRepository
	RoleRepository
	Migrate(ctx context.Context) error
	Close() error
}
