// Package app assembles storage, registries and transport into a running service.
package app

import (
	"log/slog"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/persistence"
)

// Services holds the registries that share one store and one pair of role sets.
type Services struct {
	Access       *application.AccessControl
	Spaces       *application.SpaceService
	Reservations *application.ReservationService
	Violations   *application.ViolationService
}

// ServiceOptions tunes the registries built by NewServices.
type ServiceOptions struct {
	// GraceWindow is the check-in grace in seconds; negative selects the default.
	GraceWindow int64
	Logger      *slog.Logger
}

// NewServices wires the registries over store. The space registry is the catalog the
// reservation ledger and violation registry consult.
func NewServices(store persistence.Store, opts ServiceOptions) *Services {
	grace := opts.GraceWindow
	if grace < 0 {
		grace = application.DefaultGraceWindow
	}

	access := application.NewAccessControlWithLogger(newRoleRepositoryAdapter(store), opts.Logger)
	spaces := application.NewSpaceServiceWithLogger(newSpaceRepositoryAdapter(store), access, opts.Logger)
	reservations := application.NewReservationService(
		spaces,
		newReservationRepositoryAdapter(store),
		application.WithGraceWindow(grace),
		application.WithReservationLogger(opts.Logger),
	)
	violations := application.NewViolationServiceWithLogger(spaces, access, newViolationRepositoryAdapter(store), opts.Logger)

	return &Services{
		Access:       access,
		Spaces:       spaces,
		Reservations: reservations,
		Violations:   violations,
	}
}
