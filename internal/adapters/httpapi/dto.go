package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	"github.com/oapi-codegen/runtime/types"

	"github.com/movement-pass/public-api/internal/app/identity"
	"github.com/movement-pass/public-api/internal/app/passes"
	"github.com/movement-pass/public-api/internal/app/uploads"
	"github.com/movement-pass/public-api/internal/domain"
)

// timeLayout is the ISO-8601 millisecond form used for every timestamp on the wire.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// parseTime accepts the wire layout and any RFC 3339 timestamp.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type registerRequest struct {
	Name        string     `json:"name" validate:"required,max=64"`
	District    int        `json:"district" validate:"required,min=1001,max=1075"`
	Thana       int        `json:"thana" validate:"required,min=10001,max=10626"`
	DateOfBirth types.Date `json:"dateOfBirth" validate:"required,adult"`
	Gender      string     `json:"gender" validate:"required,oneof=F M O"`
	IDType      string     `json:"idType" validate:"required,oneof=NID DL PP BR EID SID"`
	IDNumber    string     `json:"idNumber" validate:"required,max=64"`
	Photo       string     `json:"photo" validate:"required,url,startswith=https://"`
	MobilePhone string     `json:"mobilePhone" validate:"required,mobile"`
}

func (b registerRequest) toRequest() identity.RegisterRequest {
	return identity.RegisterRequest{
		Name:        b.Name,
		District:    b.District,
		Thana:       b.Thana,
		DateOfBirth: b.DateOfBirth.Time,
		Gender:      domain.Gender(b.Gender),
		IDType:      domain.IDType(b.IDType),
		IDNumber:    b.IDNumber,
		Photo:       b.Photo,
		MobilePhone: b.MobilePhone,
	}
}

type loginRequest struct {
	MobilePhone string `json:"mobilePhone" validate:"required,mobile"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,len=8,numeric"`
}

type photoRequest struct {
	ContentType string `json:"contentType" validate:"required,imagetype"`
	Filename    string `json:"filename" validate:"required,imagefile"`
}

type applyRequest struct {
	FromLocation   string    `json:"fromLocation" validate:"required,max=64"`
	ToLocation     string    `json:"toLocation" validate:"required,max=64"`
	District       int       `json:"district" validate:"required,min=1001,max=1075"`
	Thana          int       `json:"thana" validate:"required,min=10001,max=10626"`
	DateTime       time.Time `json:"dateTime" validate:"required"`
	DurationInHour int       `json:"durationInHour" validate:"required,min=1,max=12"`
	Type           string    `json:"type" validate:"required,oneof=R O"`
	Reason         string    `json:"reason" validate:"required,max=64"`
	IncludeVehicle *bool     `json:"includeVehicle" validate:"required"`

	VehicleNo       nullable.Nullable[string] `json:"vehicleNo,omitempty"`
	SelfDriven      nullable.Nullable[bool]   `json:"selfDriven,omitempty"`
	DriverName      nullable.Nullable[string] `json:"driverName,omitempty"`
	DriverLicenseNo nullable.Nullable[string] `json:"driverLicenseNo,omitempty"`
}

func (b applyRequest) toRequest(applicant domain.ApplicantID) passes.ApplyRequest {
	return passes.ApplyRequest{
		FromLocation:    b.FromLocation,
		ToLocation:      b.ToLocation,
		District:        b.District,
		Thana:           b.Thana,
		DateTime:        b.DateTime,
		DurationInHour:  b.DurationInHour,
		Type:            domain.PassType(b.Type),
		Reason:          b.Reason,
		IncludeVehicle:  b.IncludeVehicle != nil && *b.IncludeVehicle,
		VehicleNo:       optional(b.VehicleNo),
		SelfDriven:      optional(b.SelfDriven),
		DriverName:      optional(b.DriverName),
		DriverLicenseNo: optional(b.DriverLicenseNo),
		ApplicantID:     applicant,
	}
}

func optional[T any](n nullable.Nullable[T]) *T {
	v, err := n.Get()
	if err != nil {
		return nil
	}
	return &v
}

type tokenResponse struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

func tokenFromResult(r identity.TokenResult) tokenResponse {
	return tokenResponse{Type: r.Type, Token: r.Token}
}

type photoResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func photoFromResult(r uploads.PhotoURLResult) photoResponse {
	return photoResponse{URL: r.URL, Filename: r.Filename}
}

type idResponse struct {
	ID string `json:"id"`
}

type applicantResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	District      int        `json:"district"`
	Thana         int        `json:"thana"`
	DateOfBirth   types.Date `json:"dateOfBirth"`
	Gender        string     `json:"gender"`
	IDType        string     `json:"idType"`
	IDNumber      string     `json:"idNumber"`
	Photo         string     `json:"photo"`
	CreatedAt     string     `json:"createdAt"`
	AppliedCount  int        `json:"appliedCount"`
	ApprovedCount int        `json:"approvedCount"`
	RejectedCount int        `json:"rejectedCount"`
}

type passResponse struct {
	ID              string  `json:"id"`
	FromLocation    string  `json:"fromLocation"`
	ToLocation      string  `json:"toLocation"`
	District        int     `json:"district"`
	Thana           int     `json:"thana"`
	StartAt         string  `json:"startAt"`
	EndAt           string  `json:"endAt"`
	Type            string  `json:"type"`
	Reason          string  `json:"reason"`
	IncludeVehicle  bool    `json:"includeVehicle"`
	VehicleNo       *string `json:"vehicleNo,omitempty"`
	SelfDriven      bool    `json:"selfDriven"`
	DriverName      *string `json:"driverName,omitempty"`
	DriverLicenseNo *string `json:"driverLicenseNo,omitempty"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"createdAt"`
}

type passDetailResponse struct {
	passResponse
	Applicant applicantResponse `json:"applicant"`
}

type listKeyResponse struct {
	ID    string `json:"id"`
	EndAt string `json:"endAt"`
}

type passListResponse struct {
	Passes  []passResponse   `json:"passes"`
	NextKey *listKeyResponse `json:"nextKey,omitempty"`
}

func passFromDomain(p domain.PassItem) passResponse {
	return passResponse{
		ID:              string(p.ID),
		FromLocation:    p.FromLocation,
		ToLocation:      p.ToLocation,
		District:        p.District,
		Thana:           p.Thana,
		StartAt:         formatTime(p.StartAt),
		EndAt:           formatTime(p.EndAt),
		Type:            string(p.Type),
		Reason:          p.Reason,
		IncludeVehicle:  p.IncludeVehicle,
		VehicleNo:       p.VehicleNo,
		SelfDriven:      p.SelfDriven,
		DriverName:      p.DriverName,
		DriverLicenseNo: p.DriverLicenseNo,
		Status:          string(p.Status),
		CreatedAt:       formatTime(p.CreatedAt),
	}
}

func applicantFromDomain(a domain.Applicant) applicantResponse {
	return applicantResponse{
		ID:            string(a.ID),
		Name:          a.Name,
		District:      a.District,
		Thana:         a.Thana,
		DateOfBirth:   types.Date{Time: a.DateOfBirth},
		Gender:        string(a.Gender),
		IDType:        string(a.IDType),
		IDNumber:      a.IDNumber,
		Photo:         a.Photo,
		CreatedAt:     formatTime(a.CreatedAt),
		AppliedCount:  a.AppliedCount,
		ApprovedCount: a.ApprovedCount,
		RejectedCount: a.RejectedCount,
	}
}

func passDetailFromDomain(d domain.PassDetail) passDetailResponse {
	return passDetailResponse{
		passResponse: passFromDomain(d.PassItem),
		Applicant:    applicantFromDomain(d.Applicant),
	}
}

func passListFromResult(r passes.ListResult) passListResponse {
	out := passListResponse{Passes: make([]passResponse, 0, len(r.Passes))}
	for _, p := range r.Passes {
		out.Passes = append(out.Passes, passFromDomain(p))
	}
	if r.NextKey != nil {
		out.NextKey = &listKeyResponse{ID: string(r.NextKey.ID), EndAt: formatTime(r.NextKey.EndAt)}
	}
	return out
}
