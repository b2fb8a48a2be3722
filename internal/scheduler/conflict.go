package scheduler

// Interval is a half-open time range [Start, End) expressed in timestamp units.
type Interval struct {
	Start int64
	End   int64
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	return i.End > i.Start
}

// Overlaps reports whether two half-open intervals share at least one instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Covers reports whether the instant t falls inside the interval.
func (i Interval) Covers(t int64) bool {
	return i.Start <= t && t < i.End
}

// Booking is an interval held on a space by a reservation.
type Booking struct {
	ReservationID int64
	Interval      Interval
}

// Conflict identifies an existing booking that overlaps a candidate interval.
type Conflict struct {
	WithReservationID int64
	Interval          Interval
}

// DetectConflicts returns every existing booking overlapping the candidate, in input order.
func DetectConflicts(existing []Booking, candidate Interval) []Conflict {
	if len(existing) == 0 || !candidate.Valid() {
		return nil
	}

	var conflicts []Conflict
	for _, booking := range existing {
		if !booking.Interval.Overlaps(candidate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithReservationID: booking.ReservationID,
			Interval:          booking.Interval,
		})
	}
	return conflicts
}

// IsFree reports whether no booking covers the instant t.
func IsFree(existing []Booking, t int64) bool {
	for _, booking := range existing {
		if booking.Interval.Covers(t) {
			return false
		}
	}
	return true
}
