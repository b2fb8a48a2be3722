package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/parking-ledger/internal/lifecycle"
	"github.com/example/parking-ledger/internal/persistence"
)

type violationRepoStub struct {
	violations []Violation
	updates    int
}

func (r *violationRepoStub) InsertViolation(ctx context.Context, violation Violation) (Violation, error) {
	violation.ID = int64(len(r.violations) + 1)
	r.violations = append(r.violations, violation)
	return violation, nil
}

func (r *violationRepoStub) GetViolation(ctx context.Context, id int64) (Violation, error) {
	if id < 1 || id > int64(len(r.violations)) {
		return Violation{}, persistence.ErrNotFound
	}
	return r.violations[id-1], nil
}

func (r *violationRepoStub) UpdateViolation(ctx context.Context, violation Violation) (Violation, error) {
	if violation.ID < 1 || violation.ID > int64(len(r.violations)) {
		return Violation{}, persistence.ErrNotFound
	}
	r.updates++
	r.violations[violation.ID-1] = violation
	return violation, nil
}

func (r *violationRepoStub) ListViolationIDsForSpace(ctx context.Context, spaceID int64) ([]int64, error) {
	var ids []int64
	for _, violation := range r.violations {
		if violation.SpaceID == spaceID {
			ids = append(ids, violation.ID)
		}
	}
	return ids, nil
}

func (r *violationRepoStub) ListViolationIDsForViolator(ctx context.Context, violator Principal) ([]int64, error) {
	var ids []int64
	for _, violation := range r.violations {
		if violation.Violator != nil && *violation.Violator == violator {
			ids = append(ids, violation.ID)
		}
	}
	return ids, nil
}

type enforcerStub map[Principal]bool

func (e enforcerStub) IsEnforcer(ctx context.Context, p Principal) (bool, error) {
	return e[p], nil
}

func newViolationFixture() (*ViolationService, *violationRepoStub) {
	catalog := openCatalog(1, 2)
	retired := catalog.spaces[2]
	retired.Active = false
	retired.Available = false
	catalog.spaces[2] = retired

	repo := &violationRepoStub{}
	return NewViolationService(catalog, enforcerStub{"enforcer": true}, repo), repo
}

func TestViolationService_PenaltyFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newViolationFixture()
	hash := DigestEvidence([]byte("photo"))

	reported, err := svc.Report(ctx, "reporter", ReportViolationInput{
		SpaceID:      1,
		LicensePlate: "ABC123",
		Description:  "desc",
		EvidenceHash: hash,
		Timestamp:    100000,
	})
	if err != nil {
		t.Fatalf("expected report to succeed, got %v", err)
	}
	if reported.ID != 1 || reported.Status != lifecycle.ViolationReported || reported.PenaltyAmount != 0 || reported.Violator != nil {
		t.Fatalf("unexpected reported violation %+v", reported)
	}
	if reported.EvidenceHash != hash || reported.Reporter != "reporter" {
		t.Fatalf("expected evidence and reporter to be recorded, got %+v", reported)
	}

	reviewed, err := svc.Review(ctx, "enforcer", 1, lifecycle.ViolationConfirmed, amount(50))
	if err != nil {
		t.Fatalf("expected review to succeed, got %v", err)
	}
	if reviewed.Status != lifecycle.ViolationConfirmed || reviewed.PenaltyAmount != 50 {
		t.Fatalf("unexpected reviewed violation %+v", reviewed)
	}

	if _, err := svc.IdentifyViolator(ctx, "enforcer", 1, "violator"); err != nil {
		t.Fatalf("expected identify to succeed, got %v", err)
	}
	if _, err := svc.PayPenalty(ctx, "wrong-caller", 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong caller, got %v", err)
	}

	paid, err := svc.PayPenalty(ctx, "violator", 1)
	if err != nil {
		t.Fatalf("expected payment to succeed, got %v", err)
	}
	if paid.Status != lifecycle.ViolationPaid || paid.PenaltyAmount != 50 {
		t.Fatalf("unexpected paid violation %+v", paid)
	}

	if _, err := svc.Review(ctx, "enforcer", 1, lifecycle.ViolationConfirmed, amount(99)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second review, got %v", err)
	}
	if _, err := svc.PayPenalty(ctx, "violator", 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second payment, got %v", err)
	}
}

func TestViolationService_Report(t *testing.T) {
	ctx := context.Background()
	svc, repo := newViolationFixture()

	if _, err := svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 7}); !errors.Is(err, ErrSpaceNotFound) {
		t.Fatalf("expected ErrSpaceNotFound, got %v", err)
	}
	if _, err := svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 2}); !errors.Is(err, ErrSpaceUnavailable) {
		t.Fatalf("expected ErrSpaceUnavailable for inactive space, got %v", err)
	}
	if len(repo.violations) != 0 {
		t.Fatalf("expected no violations stored, got %d", len(repo.violations))
	}
}

func TestViolationService_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("guards are evaluated in order", func(t *testing.T) {
		svc, repo := newViolationFixture()
		svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})

		cases := []struct {
			name     string
			caller   Principal
			id       int64
			decision lifecycle.ViolationStatus
			penalty  *int64
			want     error
		}{
			{"unknown violation", "enforcer", 9, lifecycle.ViolationConfirmed, amount(10), ErrNotFound},
			{"not an enforcer", "reporter", 1, "bogus", amount(-1), ErrForbidden},
			{"not an enforcer without penalty", "reporter", 1, lifecycle.ViolationConfirmed, nil, ErrForbidden},
			{"unknown decision", "enforcer", 1, lifecycle.ViolationPaid, amount(10), ErrInvalidArgument},
			{"negative penalty", "enforcer", 1, lifecycle.ViolationConfirmed, amount(-1), ErrInvalidArgument},
			{"missing penalty", "enforcer", 1, lifecycle.ViolationConfirmed, nil, ErrInvalidArgument},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Review(ctx, tc.caller, tc.id, tc.decision, tc.penalty)
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
			})
		}
		if repo.updates != 0 {
			t.Fatalf("expected failed reviews to leave state unchanged, got %d updates", repo.updates)
		}
	})

	t.Run("confirmation records a zero penalty when given", func(t *testing.T) {
		svc, _ := newViolationFixture()
		svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})

		reviewed, err := svc.Review(ctx, "enforcer", 1, lifecycle.ViolationConfirmed, amount(0))
		if err != nil {
			t.Fatalf("expected confirmation with explicit zero penalty to succeed, got %v", err)
		}
		if reviewed.Status != lifecycle.ViolationConfirmed || reviewed.PenaltyAmount != 0 {
			t.Fatalf("unexpected reviewed violation %+v", reviewed)
		}
	})

	t.Run("dismissal ignores penalty", func(t *testing.T) {
		svc, _ := newViolationFixture()
		svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})

		if _, err := svc.Review(ctx, "enforcer", 1, lifecycle.ViolationDismissed, nil); err != nil {
			t.Fatalf("expected dismissal without penalty to succeed, got %v", err)
		}
		svc, _ = newViolationFixture()
		svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})

		dismissed, err := svc.Review(ctx, "enforcer", 1, lifecycle.ViolationDismissed, amount(-5))
		if err != nil {
			t.Fatalf("expected dismissal to succeed, got %v", err)
		}
		if dismissed.Status != lifecycle.ViolationDismissed || dismissed.PenaltyAmount != 0 {
			t.Fatalf("unexpected dismissed violation %+v", dismissed)
		}
		if _, err := svc.IdentifyViolator(ctx, "enforcer", 1, "driver"); err != nil {
			t.Fatalf("expected identification after dismissal to succeed, got %v", err)
		}
		if _, err := svc.PayPenalty(ctx, "driver", 1); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState paying dismissed violation, got %v", err)
		}
	})
}

func TestViolationService_IdentifyViolator(t *testing.T) {
	ctx := context.Background()
	svc, _ := newViolationFixture()
	svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})
	svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})

	if _, err := svc.IdentifyViolator(ctx, "reporter", 1, "driver"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-enforcer, got %v", err)
	}
	if _, err := svc.IdentifyViolator(ctx, "enforcer", 1, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty violator, got %v", err)
	}
	if _, err := svc.IdentifyViolator(ctx, "enforcer", 3, "driver"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	svc.IdentifyViolator(ctx, "enforcer", 1, "driver")
	svc.IdentifyViolator(ctx, "enforcer", 2, "driver")
	if _, err := svc.IdentifyViolator(ctx, "enforcer", 1, "other"); err != nil {
		t.Fatalf("expected overwrite to succeed, got %v", err)
	}

	driverIDs, _ := svc.ForViolator(ctx, "driver")
	if len(driverIDs) != 1 || driverIDs[0] != 2 {
		t.Fatalf("expected driver to keep only violation 2, got %v", driverIDs)
	}
	otherIDs, _ := svc.ForViolator(ctx, "other")
	if len(otherIDs) != 1 || otherIDs[0] != 1 {
		t.Fatalf("expected other to own violation 1, got %v", otherIDs)
	}
	spaceIDs, _ := svc.ForSpace(ctx, 1)
	if len(spaceIDs) != 2 || spaceIDs[0] != 1 || spaceIDs[1] != 2 {
		t.Fatalf("expected space index [1 2], got %v", spaceIDs)
	}
	if ids, err := svc.ForViolator(ctx, ""); err != nil || len(ids) != 0 {
		t.Fatalf("expected no violations for the zero principal, got %v (err %v)", ids, err)
	}
}

func TestViolationService_PayPenaltyWithoutViolator(t *testing.T) {
	ctx := context.Background()
	svc, _ := newViolationFixture()
	svc.Report(ctx, "reporter", ReportViolationInput{SpaceID: 1})
	svc.Review(ctx, "enforcer", 1, lifecycle.ViolationConfirmed, amount(10))

	if _, err := svc.PayPenalty(ctx, "reporter", 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden while violator is unset, got %v", err)
	}
	if _, err := svc.PayPenalty(ctx, "", 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for the zero principal, got %v", err)
	}
}

func amount(v int64) *int64 {
	return &v
}
