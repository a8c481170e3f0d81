package domain

import "time"

type PassStatus string

const (
	PassStatusApplied  PassStatus = "APPLIED"
	PassStatusApproved PassStatus = "APPROVED"
	PassStatusRejected PassStatus = "REJECTED"
)

type PassType string

const (
	PassTypeRegular PassType = "R"
	PassTypeOther   PassType = "O"
)

// PassItem is the caller-facing read model of a pass. It never carries the owning
// applicant's id.
type PassItem struct {
	ID PassID

	FromLocation string
	ToLocation   string
	District     int
	Thana        int

	StartAt time.Time
	EndAt   time.Time

	Type   PassType
	Reason string

	IncludeVehicle  bool
	VehicleNo       *string
	SelfDriven      bool
	DriverName      *string
	DriverLicenseNo *string

	Status    PassStatus
	CreatedAt time.Time
}

// PassDetail is a single pass merged with its owner's profile.
type PassDetail struct {
	PassItem
	Applicant Applicant
}

// PassListKey is the pagination cursor over an applicant's passes ordered by EndAt.
// Callers treat it as opaque and echo it back verbatim.
type PassListKey struct {
	ID    PassID
	EndAt time.Time
}
