package application

import (
	"strings"

	"github.com/example/parking-ledger/internal/lifecycle"
)

// Principal is an opaque, already-authenticated caller identity.
type Principal string

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return strings.TrimSpace(string(p)) == ""
}

// String returns the principal's raw identity.
func (p Principal) String() string {
	return string(p)
}

// Role names a privileged principal set managed by AccessControl.
type Role string

const (
	// RoleAdmin may deactivate any space.
	RoleAdmin Role = "admin"
	// RoleEnforcer may review violations and identify violators.
	RoleEnforcer Role = "enforcer"
)

// Space represents a registered parking location.
type Space struct {
	ID          int64
	Owner       Principal
	Location    string
	Description string
	HourlyRate  int64
	DailyRate   int64
	Available   bool
	Active      bool
}

// RegisterSpaceInput captures caller provided fields for a new space.
type RegisterSpaceInput struct {
	Location    string
	Description string
	HourlyRate  int64
	DailyRate   int64
}

// UpdateSpaceInput carries the optional fields of a details update. Nil fields are left unchanged.
type UpdateSpaceInput struct {
	Description *string
	HourlyRate  *int64
	DailyRate   *int64
}

// Reservation represents a time-bounded booking against a space.
type Reservation struct {
	ID        int64
	SpaceID   int64
	Holder    Principal
	StartTime int64
	EndTime   int64
	Status    lifecycle.ReservationStatus
	PaymentID int64
}

// Violation represents a report of improper use of a space.
type Violation struct {
	ID            int64
	SpaceID       int64
	Reporter      Principal
	Violator      *Principal
	LicensePlate  string
	Description   string
	EvidenceHash  EvidenceHash
	Timestamp     int64
	Status        lifecycle.ViolationStatus
	PenaltyAmount int64
}

// ReportViolationInput captures caller provided fields for a new violation report.
type ReportViolationInput struct {
	SpaceID      int64
	LicensePlate string
	Description  string
	EvidenceHash EvidenceHash
	Timestamp    int64
}
