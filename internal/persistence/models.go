package persistence

// Space is the stored form of a parking space.
type Space struct {
	ID          int64
	Owner       string
	Location    string
	Description string
	HourlyRate  int64
	DailyRate   int64
	Available   bool
	Active      bool
}

// Reservation is the stored form of a booking against a space.
type Reservation struct {
	ID        int64
	SpaceID   int64
	Holder    string
	StartTime int64
	EndTime   int64
	Status    string
	PaymentID int64
}

// Violation is the stored form of a violation report.
type Violation struct {
	ID            int64
	SpaceID       int64
	Reporter      string
	Violator      *string
	LicensePlate  string
	Description   string
	EvidenceHash  []byte
	Timestamp     int64
	Status        string
	PenaltyAmount int64
}
