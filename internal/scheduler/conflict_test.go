package scheduler

import "testing"

func TestDetectConflicts(t *testing.T) {
	existing := []Booking{
		{ReservationID: 1, Interval: Interval{Start: 100000, End: 100576}},
		{ReservationID: 2, Interval: Interval{Start: 200000, End: 200600}},
	}

	t.Run("partial overlap produces conflict", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Interval{Start: 100200, End: 100700})
		if len(conflicts) != 1 || conflicts[0].WithReservationID != 1 {
			t.Fatalf("expected conflict with reservation 1, got %#v", conflicts)
		}
	})

	t.Run("enclosing interval conflicts with every booking inside it", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Interval{Start: 0, End: 300000})
		if len(conflicts) != 2 {
			t.Fatalf("expected two conflicts, got %#v", conflicts)
		}
	})

	t.Run("adjacent intervals do not conflict", func(t *testing.T) {
		if conflicts := DetectConflicts(existing, Interval{Start: 100576, End: 101000}); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for back-to-back booking, got %#v", conflicts)
		}
		if conflicts := DetectConflicts(existing, Interval{Start: 99000, End: 100000}); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for booking ending at start, got %#v", conflicts)
		}
	})

	t.Run("invalid candidate yields no conflicts", func(t *testing.T) {
		if conflicts := DetectConflicts(existing, Interval{Start: 100300, End: 100300}); conflicts != nil {
			t.Fatalf("expected nil for empty interval, got %#v", conflicts)
		}
	})
}

func TestIsFree(t *testing.T) {
	existing := []Booking{{ReservationID: 1, Interval: Interval{Start: 10, End: 20}}}

	cases := []struct {
		at   int64
		want bool
	}{
		{9, true},
		{10, false},
		{19, false},
		{20, true},
	}
	for _, tc := range cases {
		if got := IsFree(existing, tc.at); got != tc.want {
			t.Fatalf("IsFree(%d) = %v, want %v", tc.at, got, tc.want)
		}
	}
}
