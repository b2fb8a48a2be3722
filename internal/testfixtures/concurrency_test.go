package testfixtures

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/lifecycle"
)

func TestConcurrentOverlappingReservations(t *testing.T) {
	const callers = 40

	for _, engine := range Engines() {
		t.Run(string(engine), func(t *testing.T) {
			services := NewServiceFactory(WithEngine(engine)).NewServices(t)
			space := RegisterSpace(t, services, NewSpaceFixture())
			ctx := context.Background()

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				created   int
				conflicts int
				others    []error
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					// Every window overlaps [1000, 2000).
					start := int64(1000 + i)
					holder := application.Principal(fmt.Sprintf("holder-%d", i))
					_, err := services.Reservations.Create(ctx, holder, space.ID, start, start+1000)

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						created++
					case errors.Is(err, application.ErrTimeConflict):
						conflicts++
					default:
						others = append(others, err)
					}
				}(i)
			}
			wg.Wait()

			if len(others) != 0 {
				t.Fatalf("expected only conflicts, got %v", others)
			}
			if created != 1 || conflicts != callers-1 {
				t.Fatalf("expected 1 reservation and %d conflicts, got %d and %d", callers-1, created, conflicts)
			}

			reservations, err := services.Reservations.ForSpace(ctx, space.ID)
			if err != nil {
				t.Fatalf("ForSpace returned error: %v", err)
			}
			if len(reservations) != 1 {
				t.Fatalf("expected exactly one stored reservation, got %d", len(reservations))
			}
		})
	}
}

func TestConcurrentViolationMutations(t *testing.T) {
	const callers = 20

	for _, engine := range Engines() {
		t.Run(string(engine), func(t *testing.T) {
			services := NewServiceFactory(WithEngine(engine)).NewServices(t)
			ctx := context.Background()
			if err := services.Access.InitializeEnforcers(ctx, "enforcer"); err != nil {
				t.Fatalf("InitializeEnforcers returned error: %v", err)
			}
			space := RegisterSpace(t, services, NewSpaceFixture())
			violation := ReportViolation(t, services, NewViolationFixture(WithViolationSpace(space.ID)))

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					violator := application.Principal(fmt.Sprintf("driver-%d", i))
					if _, err := services.Violations.IdentifyViolator(ctx, "enforcer", violation.ID, violator); err != nil {
						t.Errorf("IdentifyViolator(%s) returned error: %v", violator, err)
					}
				}(i)
			}
			wg.Wait()

			current, err := services.Violations.Get(ctx, violation.ID)
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if current.Violator == nil {
				t.Fatalf("expected a violator to be recorded")
			}

			entries := 0
			for i := 0; i < callers; i++ {
				violator := application.Principal(fmt.Sprintf("driver-%d", i))
				ids, err := services.Violations.ForViolator(ctx, violator)
				if err != nil {
					t.Fatalf("ForViolator returned error: %v", err)
				}
				entries += len(ids)
				if len(ids) == 1 && violator != *current.Violator {
					t.Fatalf("index points at %s but violation names %s", violator, *current.Violator)
				}
			}
			if entries != 1 {
				t.Fatalf("expected one violator index entry, got %d", entries)
			}

			penalty := int64(25)
			var (
				mu       sync.Mutex
				reviewed int
				rejected int
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := services.Violations.Review(ctx, "enforcer", violation.ID, lifecycle.ViolationConfirmed, &penalty)

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						reviewed++
					case errors.Is(err, application.ErrInvalidState):
						rejected++
					default:
						t.Errorf("unexpected review error: %v", err)
					}
				}()
			}
			wg.Wait()

			if reviewed != 1 || rejected != callers-1 {
				t.Fatalf("expected one review and %d rejections, got %d and %d", callers-1, reviewed, rejected)
			}
		})
	}
}
