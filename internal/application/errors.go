package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrSpaceNotFound is returned when a violation references an unknown space.
	ErrSpaceNotFound = errors.New("application: space not found")
	// ErrForbidden is returned when the caller lacks the required role or ownership.
	ErrForbidden = errors.New("application: forbidden")
	// ErrInvalidState is returned when an operation is not legal from the current lifecycle state.
	ErrInvalidState = errors.New("application: invalid state")
	// ErrInvalidRange is returned when a reservation window does not end after it starts.
	ErrInvalidRange = errors.New("application: invalid time range")
	// ErrInvalidArgument is returned for malformed input values.
	ErrInvalidArgument = errors.New("application: invalid argument")
	// ErrInactive is returned when a deactivated space is mutated.
	ErrInactive = errors.New("application: space inactive")
	// ErrSpaceUnavailable is returned when a space cannot host new activity.
	ErrSpaceUnavailable = errors.New("application: space unavailable")
	// ErrTimeConflict is returned when a reservation overlaps an active one on the same space.
	ErrTimeConflict = errors.New("application: time conflict")
	// ErrTooEarly is returned when check-in happens before the grace window opens.
	ErrTooEarly = errors.New("application: too early")
	// ErrAlreadyInitialized is returned when a role set has already been bootstrapped.
	ErrAlreadyInitialized = errors.New("application: already initialized")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Is lets callers match any validation failure against ErrInvalidArgument.
func (v *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func invalidField(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}
