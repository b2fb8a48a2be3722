package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/parking-ledger/internal/lifecycle"
	"github.com/example/parking-ledger/internal/persistence"
)

type catalogStub struct {
	spaces map[int64]Space
	err    error
}

func (c catalogStub) Exists(ctx context.Context, id int64) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.spaces[id]
	return ok, nil
}

func (c catalogStub) IsActive(ctx context.Context, id int64) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.spaces[id].Active, nil
}

func (c catalogStub) IsAvailable(ctx context.Context, id int64) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	space := c.spaces[id]
	return space.Active && space.Available, nil
}

func openCatalog(ids ...int64) catalogStub {
	spaces := make(map[int64]Space, len(ids))
	for _, id := range ids {
		spaces[id] = Space{ID: id, Owner: "owner", Available: true, Active: true}
	}
	return catalogStub{spaces: spaces}
}

type reservationRepoStub struct {
	reservations []Reservation
	insertErr    error
	updates      int
}

func (r *reservationRepoStub) InsertReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if r.insertErr != nil {
		return Reservation{}, r.insertErr
	}
	reservation.ID = int64(len(r.reservations) + 1)
	r.reservations = append(r.reservations, reservation)
	return reservation, nil
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	if id < 1 || id > int64(len(r.reservations)) {
		return Reservation{}, persistence.ErrNotFound
	}
	return r.reservations[id-1], nil
}

func (r *reservationRepoStub) UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	if reservation.ID < 1 || reservation.ID > int64(len(r.reservations)) {
		return Reservation{}, persistence.ErrNotFound
	}
	r.updates++
	r.reservations[reservation.ID-1] = reservation
	return reservation, nil
}

func (r *reservationRepoStub) ListReservationsForSpace(ctx context.Context, spaceID int64) ([]Reservation, error) {
	var out []Reservation
	for _, reservation := range r.reservations {
		if reservation.SpaceID == spaceID {
			out = append(out, reservation)
		}
	}
	return out, nil
}

func (r *reservationRepoStub) ListReservationsForHolder(ctx context.Context, holder Principal) ([]Reservation, error) {
	var out []Reservation
	for _, reservation := range r.reservations {
		if reservation.Holder == holder {
			out = append(out, reservation)
		}
	}
	return out, nil
}

func TestReservationService_Create(t *testing.T) {
	t.Run("books a pending reservation and rejects overlaps", func(t *testing.T) {
		repo := &reservationRepoStub{}
		svc := NewReservationService(openCatalog(1), repo)
		ctx := context.Background()

		first, err := svc.Create(ctx, "driver", 1, 100000, 100576)
		if err != nil {
			t.Fatalf("expected create to succeed, got %v", err)
		}
		if first.ID != 1 || first.Status != lifecycle.ReservationPending || first.PaymentID != 0 || first.Holder != "driver" {
			t.Fatalf("unexpected reservation %+v", first)
		}

		_, err = svc.Create(ctx, "driver", 1, 100200, 100700)
		if !errors.Is(err, ErrTimeConflict) {
			t.Fatalf("expected ErrTimeConflict, got %v", err)
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected conflict to leave one reservation, got %d", len(repo.reservations))
		}
	})

	t.Run("adjacent windows do not conflict", func(t *testing.T) {
		svc := NewReservationService(openCatalog(1), &reservationRepoStub{})
		ctx := context.Background()

		if _, err := svc.Create(ctx, "a", 1, 100, 200); err != nil {
			t.Fatalf("expected first booking to succeed, got %v", err)
		}
		second, err := svc.Create(ctx, "b", 1, 200, 300)
		if err != nil {
			t.Fatalf("expected adjacent booking to succeed, got %v", err)
		}
		if second.ID != 2 {
			t.Fatalf("expected id 2, got %d", second.ID)
		}
	})

	t.Run("cancelled reservations release their slot", func(t *testing.T) {
		svc := NewReservationService(openCatalog(1), &reservationRepoStub{})
		ctx := context.Background()

		first, _ := svc.Create(ctx, "a", 1, 100, 200)
		if _, err := svc.Cancel(ctx, "a", first.ID); err != nil {
			t.Fatalf("expected cancel to succeed, got %v", err)
		}
		if _, err := svc.Create(ctx, "b", 1, 150, 250); err != nil {
			t.Fatalf("expected booking over cancelled slot to succeed, got %v", err)
		}
	})

	t.Run("checks are evaluated in order", func(t *testing.T) {
		repo := &reservationRepoStub{}
		catalog := openCatalog(1, 2)
		unavailable := catalog.spaces[2]
		unavailable.Available = false
		catalog.spaces[2] = unavailable
		svc := NewReservationService(catalog, repo)
		ctx := context.Background()

		if _, err := svc.Create(ctx, "a", 1, 100, 200); err != nil {
			t.Fatalf("expected seed booking to succeed, got %v", err)
		}

		cases := []struct {
			name       string
			spaceID    int64
			start, end int64
			want       error
		}{
			{"empty range on unknown space", 9, 100, 100, ErrInvalidRange},
			{"reversed range", 1, 200, 100, ErrInvalidRange},
			{"unknown space", 9, 100, 200, ErrSpaceUnavailable},
			{"unavailable space", 2, 100, 200, ErrSpaceUnavailable},
			{"overlap", 1, 150, 160, ErrTimeConflict},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Create(ctx, "b", tc.spaceID, tc.start, tc.end)
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
			})
		}
		if len(repo.reservations) != 1 {
			t.Fatalf("expected failures to leave state unchanged, got %d reservations", len(repo.reservations))
		}
	})

	t.Run("propagates catalog failures", func(t *testing.T) {
		boom := errors.New("catalog offline")
		svc := NewReservationService(catalogStub{err: boom}, &reservationRepoStub{})

		if _, err := svc.Create(context.Background(), "a", 1, 1, 2); !errors.Is(err, boom) {
			t.Fatalf("expected catalog error, got %v", err)
		}
	})
}

func TestReservationService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm, check in within grace window, check out", func(t *testing.T) {
		svc := NewReservationService(openCatalog(1), &reservationRepoStub{})
		reservation, _ := svc.Create(ctx, "holder", 1, 100000, 100576)

		confirmed, err := svc.Confirm(ctx, "holder", reservation.ID, 1)
		if err != nil {
			t.Fatalf("expected confirm to succeed, got %v", err)
		}
		if confirmed.Status != lifecycle.ReservationConfirmed || confirmed.PaymentID != 1 {
			t.Fatalf("unexpected confirmed reservation %+v", confirmed)
		}

		if _, err := svc.CheckIn(ctx, "someone-else", reservation.ID, 100000); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden for non-holder, got %v", err)
		}
		if _, err := svc.CheckIn(ctx, "holder", reservation.ID, 99000); !errors.Is(err, ErrTooEarly) {
			t.Fatalf("expected ErrTooEarly, got %v", err)
		}

		checkedIn, err := svc.CheckIn(ctx, "holder", reservation.ID, 99950)
		if err != nil {
			t.Fatalf("expected check-in to succeed, got %v", err)
		}
		if checkedIn.Status != lifecycle.ReservationCheckedIn {
			t.Fatalf("expected checked-in, got %s", checkedIn.Status)
		}

		completed, err := svc.CheckOut(ctx, "holder", reservation.ID, 100600)
		if err != nil {
			t.Fatalf("expected check-out to succeed, got %v", err)
		}
		if completed.Status != lifecycle.ReservationCompleted {
			t.Fatalf("expected completed, got %s", completed.Status)
		}

		active, err := svc.IsActive(ctx, reservation.ID)
		if err != nil || active {
			t.Fatalf("expected completed reservation to be inactive, got %v (err %v)", active, err)
		}
		if _, err := svc.Cancel(ctx, "holder", reservation.ID); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState cancelling completed reservation, got %v", err)
		}
	})

	t.Run("grace window boundary is inclusive", func(t *testing.T) {
		svc := NewReservationService(openCatalog(1), &reservationRepoStub{}, WithGraceWindow(60))
		reservation, _ := svc.Create(ctx, "holder", 1, 1000, 2000)
		if _, err := svc.Confirm(ctx, "holder", reservation.ID, 7); err != nil {
			t.Fatalf("expected confirm to succeed, got %v", err)
		}
		if _, err := svc.CheckIn(ctx, "holder", reservation.ID, 939); !errors.Is(err, ErrTooEarly) {
			t.Fatalf("expected ErrTooEarly one second before the window, got %v", err)
		}
		if _, err := svc.CheckIn(ctx, "holder", reservation.ID, 940); err != nil {
			t.Fatalf("expected check-in at window start to succeed, got %v", err)
		}
	})

	t.Run("invalid state wins over too early", func(t *testing.T) {
		svc := NewReservationService(openCatalog(1), &reservationRepoStub{})
		reservation, _ := svc.Create(ctx, "holder", 1, 100000, 100500)

		if _, err := svc.CheckIn(ctx, "holder", reservation.ID, 0); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState for pending reservation, got %v", err)
		}
		if _, err := svc.CheckOut(ctx, "holder", reservation.ID, 0); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState checking out pending reservation, got %v", err)
		}
	})

	t.Run("cancel from every active state", func(t *testing.T) {
		repo := &reservationRepoStub{}
		svc := NewReservationService(openCatalog(1), repo)

		pending, _ := svc.Create(ctx, "holder", 1, 0, 10)
		confirmed, _ := svc.Create(ctx, "holder", 1, 10, 20)
		checkedIn, _ := svc.Create(ctx, "holder", 1, 20, 30)
		svc.Confirm(ctx, "holder", confirmed.ID, 1)
		svc.Confirm(ctx, "holder", checkedIn.ID, 2)
		if _, err := svc.CheckIn(ctx, "holder", checkedIn.ID, 20); err != nil {
			t.Fatalf("expected check-in to succeed, got %v", err)
		}

		for _, id := range []int64{pending.ID, confirmed.ID, checkedIn.ID} {
			cancelled, err := svc.Cancel(ctx, "holder", id)
			if err != nil {
				t.Fatalf("expected cancel of %d to succeed, got %v", id, err)
			}
			if cancelled.Status != lifecycle.ReservationCancelled {
				t.Fatalf("expected cancelled, got %s", cancelled.Status)
			}
		}
		if _, err := svc.Cancel(ctx, "holder", pending.ID); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState on double cancel, got %v", err)
		}
	})

	t.Run("guards precede state checks", func(t *testing.T) {
		repo := &reservationRepoStub{}
		svc := NewReservationService(openCatalog(1), repo)
		reservation, _ := svc.Create(ctx, "holder", 1, 0, 10)

		if _, err := svc.Confirm(ctx, "holder", 42, 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := svc.Confirm(ctx, "thief", reservation.ID, 1); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if _, err := svc.Cancel(ctx, "thief", reservation.ID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden on cancel, got %v", err)
		}
		if repo.updates != 0 {
			t.Fatalf("expected no writes, got %d", repo.updates)
		}
		if _, err := svc.Confirm(ctx, "holder", reservation.ID, 1); err != nil {
			t.Fatalf("expected confirm to succeed, got %v", err)
		}
		if _, err := svc.Confirm(ctx, "holder", reservation.ID, 2); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState on re-confirm, got %v", err)
		}
	})
}

func TestReservationService_Reads(t *testing.T) {
	ctx := context.Background()
	svc := NewReservationService(openCatalog(1, 2), &reservationRepoStub{})

	first, _ := svc.Create(ctx, "a", 1, 100, 200)
	svc.Create(ctx, "b", 2, 100, 200)
	svc.Create(ctx, "a", 1, 300, 400)

	cases := []struct {
		at   int64
		want bool
	}{
		{99, true},
		{100, false},
		{199, false},
		{200, true},
		{350, false},
	}
	for _, tc := range cases {
		got, err := svc.IsTimeAvailable(ctx, 1, tc.at)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("IsTimeAvailable(1, %d) = %v, want %v", tc.at, got, tc.want)
		}
	}

	svc.Cancel(ctx, "a", first.ID)
	if free, _ := svc.IsTimeAvailable(ctx, 1, 150); !free {
		t.Fatalf("expected cancelled window to be free")
	}

	forSpace, err := svc.ForSpace(ctx, 1)
	if err != nil || len(forSpace) != 2 {
		t.Fatalf("expected two reservations on space 1, got %d (err %v)", len(forSpace), err)
	}
	forHolder, err := svc.ForHolder(ctx, "b")
	if err != nil || len(forHolder) != 1 || forHolder[0].SpaceID != 2 {
		t.Fatalf("unexpected reservations for holder b: %+v (err %v)", forHolder, err)
	}

	if active, err := svc.IsActive(ctx, 99); err != nil || active {
		t.Fatalf("expected unknown reservation to be inactive, got %v (err %v)", active, err)
	}
	if svc.GraceWindow() != DefaultGraceWindow {
		t.Fatalf("expected default grace window, got %d", svc.GraceWindow())
	}
}
