package passes

import (
	"time"

	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/domain"
)

// ApplyRequest asks for a new pass on behalf of ApplicantID.
// Optional fields are nil when the caller did not send them.
type ApplyRequest struct {
	FromLocation   string
	ToLocation     string
	District       int
	Thana          int
	DateTime       time.Time
	DurationInHour int
	Type           domain.PassType
	Reason         string

	IncludeVehicle  bool
	VehicleNo       *string
	SelfDriven      *bool
	DriverName      *string
	DriverLicenseNo *string

	ApplicantID domain.ApplicantID
}

func (ApplyRequest) Kind() dispatch.Kind { return dispatch.KindApply }

type IDResult struct {
	ID domain.PassID
}

// ViewPassRequest fetches one pass, visible only to its owner.
type ViewPassRequest struct {
	ID          domain.PassID
	ApplicantID domain.ApplicantID
}

func (ViewPassRequest) Kind() dispatch.Kind { return dispatch.KindViewPass }

// DetailResult carries the pass with a suggested cache lifetime for the response.
type DetailResult struct {
	Pass        domain.PassDetail
	CacheMaxAge time.Duration
}

// ViewPassesRequest lists the caller's passes. StartKey is the NextKey of a previous page.
type ViewPassesRequest struct {
	ApplicantID domain.ApplicantID
	StartKey    *domain.PassListKey
}

func (ViewPassesRequest) Kind() dispatch.Kind { return dispatch.KindViewPasses }

type ListResult struct {
	Passes  []domain.PassItem
	NextKey *domain.PassListKey
}
