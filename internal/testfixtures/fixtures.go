package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/lifecycle"
	"github.com/example/parking-ledger/internal/persistence"
)

var (
	spaceCounter       uint64
	reservationCounter uint64
	violationCounter   uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceUnix returns ReferenceTime in seconds since the epoch.
func ReferenceUnix() int64 {
	return referenceTime.Unix()
}

// ----------------------------- Space fixtures -----------------------------

// SpaceFixture represents a deterministic space record that can be materialised
// for application or persistence tests.
type SpaceFixture struct {
	Owner       string
	Location    string
	Description string
	HourlyRate  int64
	DailyRate   int64
	Available   bool
	Active      bool
}

// SpaceOption configures the generated space fixture.
type SpaceOption func(*SpaceFixture)

// NewSpaceFixture returns a deterministic, active and available space fixture.
func NewSpaceFixture(opts ...SpaceOption) SpaceFixture {
	idx := atomic.AddUint64(&spaceCounter, 1)
	fixture := SpaceFixture{
		Owner:       fmt.Sprintf("owner-%03d", idx),
		Location:    fmt.Sprintf("Lot %03d", idx),
		Description: "covered bay",
		HourlyRate:  200,
		DailyRate:   1500,
		Available:   true,
		Active:      true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSpaceOwner overrides the generated owner.
func WithSpaceOwner(owner string) SpaceOption {
	return func(f *SpaceFixture) {
		f.Owner = owner
	}
}

// WithSpaceLocation overrides the generated location.
func WithSpaceLocation(location string) SpaceOption {
	return func(f *SpaceFixture) {
		f.Location = location
	}
}

// WithSpaceRates sets the hourly and daily rates.
func WithSpaceRates(hourly, daily int64) SpaceOption {
	return func(f *SpaceFixture) {
		f.HourlyRate = hourly
		f.DailyRate = daily
	}
}

// WithSpaceState sets the availability and active flags.
func WithSpaceState(available, active bool) SpaceOption {
	return func(f *SpaceFixture) {
		f.Available = available
		f.Active = active
	}
}

// Input returns the fixture as registration input.
func (f SpaceFixture) Input() application.RegisterSpaceInput {
	return application.RegisterSpaceInput{
		Location:    f.Location,
		Description: f.Description,
		HourlyRate:  f.HourlyRate,
		DailyRate:   f.DailyRate,
	}
}

// Persistence returns the fixture as a persistence.Space value without an id.
func (f SpaceFixture) Persistence() persistence.Space {
	return persistence.Space{
		Owner:       f.Owner,
		Location:    f.Location,
		Description: f.Description,
		HourlyRate:  f.HourlyRate,
		DailyRate:   f.DailyRate,
		Available:   f.Available,
		Active:      f.Active,
	}
}

// -------------------------- Reservation fixtures --------------------------

// ReservationFixture represents a deterministic booking. Each fixture occupies
// its own one hour slot after ReferenceTime unless overridden.
type ReservationFixture struct {
	SpaceID   int64
	Holder    string
	StartTime int64
	EndTime   int64
	Status    lifecycle.ReservationStatus
	PaymentID int64
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a pending reservation fixture on space 1.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := ReferenceUnix() + int64(idx)*int64(time.Hour/time.Second)
	fixture := ReservationFixture{
		SpaceID:   1,
		Holder:    fmt.Sprintf("driver-%03d", idx),
		StartTime: start,
		EndTime:   start + int64(time.Hour/time.Second),
		Status:    lifecycle.ReservationPending,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationSpace overrides the reserved space.
func WithReservationSpace(spaceID int64) ReservationOption {
	return func(f *ReservationFixture) {
		f.SpaceID = spaceID
	}
}

// WithReservationHolder overrides the holder.
func WithReservationHolder(holder string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Holder = holder
	}
}

// WithReservationWindow sets the booked interval.
func WithReservationWindow(start, end int64) ReservationOption {
	return func(f *ReservationFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithReservationStatus sets the lifecycle status.
func WithReservationStatus(status lifecycle.ReservationStatus) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// Persistence returns the fixture as a persistence.Reservation value without an id.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		SpaceID:   f.SpaceID,
		Holder:    f.Holder,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		Status:    string(f.Status),
		PaymentID: f.PaymentID,
	}
}

// --------------------------- Violation fixtures ---------------------------

// ViolationFixture represents a deterministic violation report.
type ViolationFixture struct {
	SpaceID      int64
	Reporter     string
	Violator     *string
	LicensePlate string
	Description  string
	Evidence     []byte
	Timestamp    int64
	Status       lifecycle.ViolationStatus
	Penalty      int64
}

// ViolationOption configures the generated violation fixture.
type ViolationOption func(*ViolationFixture)

// NewViolationFixture returns a reported violation fixture on space 1.
func NewViolationFixture(opts ...ViolationOption) ViolationFixture {
	idx := atomic.AddUint64(&violationCounter, 1)
	fixture := ViolationFixture{
		SpaceID:      1,
		Reporter:     fmt.Sprintf("reporter-%03d", idx),
		LicensePlate: fmt.Sprintf("PLT-%04d", idx),
		Description:  "blocking the bay",
		Evidence:     []byte(fmt.Sprintf("photo-%03d", idx)),
		Timestamp:    ReferenceUnix() + int64(idx),
		Status:       lifecycle.ViolationReported,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithViolationSpace overrides the reported space.
func WithViolationSpace(spaceID int64) ViolationOption {
	return func(f *ViolationFixture) {
		f.SpaceID = spaceID
	}
}

// WithViolationReporter overrides the reporter.
func WithViolationReporter(reporter string) ViolationOption {
	return func(f *ViolationFixture) {
		f.Reporter = reporter
	}
}

// WithViolationViolator attributes the violation to a principal.
func WithViolationViolator(violator string) ViolationOption {
	return func(f *ViolationFixture) {
		f.Violator = &violator
	}
}

// WithViolationStatus sets the lifecycle status and penalty.
func WithViolationStatus(status lifecycle.ViolationStatus, penalty int64) ViolationOption {
	return func(f *ViolationFixture) {
		f.Status = status
		f.Penalty = penalty
	}
}

// Hash returns the evidence digest of the fixture.
func (f ViolationFixture) Hash() application.EvidenceHash {
	return application.DigestEvidence(f.Evidence)
}

// Input returns the fixture as report input.
func (f ViolationFixture) Input() application.ReportViolationInput {
	return application.ReportViolationInput{
		SpaceID:      f.SpaceID,
		LicensePlate: f.LicensePlate,
		Description:  f.Description,
		EvidenceHash: f.Hash(),
		Timestamp:    f.Timestamp,
	}
}

// Persistence returns the fixture as a persistence.Violation value without an id.
func (f ViolationFixture) Persistence() persistence.Violation {
	var violator *string
	if f.Violator != nil {
		v := *f.Violator
		violator = &v
	}
	return persistence.Violation{
		SpaceID:       f.SpaceID,
		Reporter:      f.Reporter,
		Violator:      violator,
		LicensePlate:  f.LicensePlate,
		Description:   f.Description,
		EvidenceHash:  f.Hash().Bytes(),
		Timestamp:     f.Timestamp,
		Status:        string(f.Status),
		PenaltyAmount: f.Penalty,
	}
}
