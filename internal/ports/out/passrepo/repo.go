package passrepo

import (
	"context"
	"time"

	"github.com/movement-pass/public-api/internal/domain"
)

// DefaultPageSize is the number of passes returned per ListByApplicant page.
const DefaultPageSize = 25

// Pass is the persistence shape used by the pass repository.
type Pass struct {
	ID          domain.PassID
	ApplicantID domain.ApplicantID

	FromLocation string
	ToLocation   string
	District     int
	Thana        int

	StartAt time.Time
	EndAt   time.Time

	Type   domain.PassType
	Reason string

	IncludeVehicle  bool
	VehicleNo       *string
	SelfDriven      bool
	DriverName      *string
	DriverLicenseNo *string

	Status    domain.PassStatus
	CreatedAt time.Time
}

// Page is one page of an applicant's passes.
// Next is nil when the listing is exhausted.
type Page struct {
	Passes []Pass
	Next   *domain.PassListKey
}

// Repository provides access to persisted passes.
//
// Result ordering expectations:
// - ListByApplicant returns passes ordered by EndAt descending, ties broken by ID descending.
type Repository interface {
	// CreateApplied inserts p and increments the owning applicant's AppliedCount by exactly one,
	// as a single all-or-nothing write. On any error neither effect is visible.
	CreateApplied(ctx context.Context, p Pass) error

	GetByID(ctx context.Context, id domain.PassID) (Pass, error)

	// ListByApplicant returns at most limit passes owned by applicantID, starting strictly
	// after startKey when it is non-nil.
	ListByApplicant(ctx context.Context, applicantID domain.ApplicantID, limit int, startKey *domain.PassListKey) (Page, error)
}
