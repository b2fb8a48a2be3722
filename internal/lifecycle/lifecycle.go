// Package lifecycle defines the reservation and violation status machines.
package lifecycle

import (
	"errors"
	"strings"
)

// ErrInvalidTransition is returned when a status change is not permitted.
var ErrInvalidTransition = errors.New("lifecycle: invalid transition")

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCheckedIn ReservationStatus = "checked-in"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// ParseReservationStatus converts a stored status label into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, bool) {
	status := ReservationStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case ReservationPending, ReservationConfirmed, ReservationCheckedIn, ReservationCompleted, ReservationCancelled:
		return status, true
	default:
		return "", false
	}
}

// IsActive reports whether the reservation still holds its time slot.
func (s ReservationStatus) IsActive() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCheckedIn:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled
}

// CanTransition reports whether a reservation may move from one status to another.
func (s ReservationStatus) CanTransition(to ReservationStatus) bool {
	switch s {
	case ReservationPending:
		return to == ReservationConfirmed || to == ReservationCancelled
	case ReservationConfirmed:
		return to == ReservationCheckedIn || to == ReservationCancelled
	case ReservationCheckedIn:
		return to == ReservationCompleted || to == ReservationCancelled
	default:
		return false
	}
}

// Transition returns the target status when the move is legal.
func (s ReservationStatus) Transition(to ReservationStatus) (ReservationStatus, error) {
	if !s.CanTransition(to) {
		return s, ErrInvalidTransition
	}
	return to, nil
}

// ViolationStatus is the lifecycle state of a violation report.
type ViolationStatus string

const (
	ViolationReported  ViolationStatus = "reported"
	ViolationConfirmed ViolationStatus = "confirmed"
	ViolationDismissed ViolationStatus = "dismissed"
	ViolationPaid      ViolationStatus = "paid"
)

// ParseViolationStatus converts a stored status label into a ViolationStatus.
func ParseViolationStatus(value string) (ViolationStatus, bool) {
	status := ViolationStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case ViolationReported, ViolationConfirmed, ViolationDismissed, ViolationPaid:
		return status, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s ViolationStatus) IsTerminal() bool {
	return s == ViolationDismissed || s == ViolationPaid
}

// IsReviewDecision reports whether the status is a valid outcome of a review.
func (s ViolationStatus) IsReviewDecision() bool {
	return s == ViolationConfirmed || s == ViolationDismissed
}

// CanTransition reports whether a violation may move from one status to another.
func (s ViolationStatus) CanTransition(to ViolationStatus) bool {
	switch s {
	case ViolationReported:
		return to.IsReviewDecision()
	case ViolationConfirmed:
		return to == ViolationPaid
	default:
		return false
	}
}

// Transition returns the target status when the move is legal.
func (s ViolationStatus) Transition(to ViolationStatus) (ViolationStatus, error) {
	if !s.CanTransition(to) {
		return s, ErrInvalidTransition
	}
	return to, nil
}
