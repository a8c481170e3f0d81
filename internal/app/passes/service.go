package passes

import (
	"context"
	"errors"
	"time"

	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
	clockport "github.com/movement-pass/public-api/internal/ports/out/clock"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

const (
	// AppliedCacheMaxAge is the suggested cache lifetime of a pass still awaiting a decision.
	AppliedCacheMaxAge = 300 * time.Second
	// DecidedCacheMaxAge applies once a pass is approved or rejected.
	DecidedCacheMaxAge = 60 * 24 * 30 * time.Second
	// ListCacheMaxAge is the suggested cache lifetime of a page of passes.
	ListCacheMaxAge = 300 * time.Second
)

type Service struct {
	passes     passrepo.Repository
	applicants applicantrepo.Repository
	clk        clockport.Clock

	newPassID func() domain.PassID

	// PageSize bounds the number of passes per ViewPasses page.
	PageSize int
}

func NewService(passes passrepo.Repository, applicants applicantrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		passes:     passes,
		applicants: applicants,
		clk:        clk,
		newPassID: func() domain.PassID {
			return domain.PassID(domain.NewOpaqueID())
		},
		PageSize: passrepo.DefaultPageSize,
	}
}

// Apply persists a new pass and bumps the applicant's applied counter in one transaction.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (IDResult, error) {
	// Timestamps are kept at millisecond precision, the resolution of the wire format,
	// so a cursor echoed back by a client still matches its pass exactly.
	startAt := req.DateTime.UTC().Truncate(time.Millisecond)
	p := passrepo.Pass{
		ID:           s.newPassID(),
		ApplicantID:  req.ApplicantID,
		FromLocation: req.FromLocation,
		ToLocation:   req.ToLocation,
		District:     req.District,
		Thana:        req.Thana,
		StartAt:      startAt,
		EndAt:        startAt.Add(time.Duration(req.DurationInHour) * time.Hour),
		Type:         req.Type,
		Reason:       req.Reason,
		Status:       domain.PassStatusApplied,
		CreatedAt:    s.clk.Now().UTC().Truncate(time.Millisecond),
	}
	applyVehicleRules(&p, req)

	if err := s.passes.CreateApplied(ctx, p); err != nil {
		return IDResult{}, err
	}
	return IDResult{ID: p.ID}, nil
}

// applyVehicleRules strips vehicle and driver fields that do not apply.
func applyVehicleRules(p *passrepo.Pass, req ApplyRequest) {
	if !req.IncludeVehicle {
		p.IncludeVehicle = false
		p.SelfDriven = false
		return
	}

	p.IncludeVehicle = true
	p.VehicleNo = copyString(req.VehicleNo)
	p.SelfDriven = req.SelfDriven != nil && *req.SelfDriven
	if p.SelfDriven {
		return
	}
	p.DriverName = copyString(req.DriverName)
	p.DriverLicenseNo = copyString(req.DriverLicenseNo)
}

// ViewPass returns the pass merged with its owner. Missing and foreign passes are both
// NotApplicable, so callers cannot tell them apart.
func (s *Service) ViewPass(ctx context.Context, req ViewPassRequest) (dispatch.Outcome[DetailResult], error) {
	p, err := s.passes.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, passrepo.ErrNotFound) {
			return dispatch.NotApplicable[DetailResult](), nil
		}
		return dispatch.Outcome[DetailResult]{}, err
	}
	if p.ApplicantID != req.ApplicantID {
		return dispatch.NotApplicable[DetailResult](), nil
	}

	owner, err := s.applicants.GetByID(ctx, p.ApplicantID)
	if err != nil {
		return dispatch.Outcome[DetailResult]{}, err
	}

	return dispatch.Found(DetailResult{
		Pass: domain.PassDetail{
			PassItem:  toItem(p),
			Applicant: owner.ToDomain(),
		},
		CacheMaxAge: CacheMaxAge(p.Status),
	}), nil
}

// CacheMaxAge is short while a pass is pending and long once it is decided.
func CacheMaxAge(status domain.PassStatus) time.Duration {
	if status == domain.PassStatusApplied {
		return AppliedCacheMaxAge
	}
	return DecidedCacheMaxAge
}

// ViewPasses returns one page of the caller's passes, most recent endAt first.
func (s *Service) ViewPasses(ctx context.Context, req ViewPassesRequest) (ListResult, error) {
	page, err := s.passes.ListByApplicant(ctx, req.ApplicantID, s.PageSize, req.StartKey)
	if err != nil {
		return ListResult{}, err
	}

	out := ListResult{Passes: make([]domain.PassItem, 0, len(page.Passes))}
	for _, p := range page.Passes {
		out.Passes = append(out.Passes, toItem(p))
	}
	if page.Next != nil {
		next := *page.Next
		out.NextKey = &next
	}
	return out, nil
}

func toItem(p passrepo.Pass) domain.PassItem {
	return domain.PassItem{
		ID:              p.ID,
		FromLocation:    p.FromLocation,
		ToLocation:      p.ToLocation,
		District:        p.District,
		Thana:           p.Thana,
		StartAt:         p.StartAt,
		EndAt:           p.EndAt,
		Type:            p.Type,
		Reason:          p.Reason,
		IncludeVehicle:  p.IncludeVehicle,
		VehicleNo:       p.VehicleNo,
		SelfDriven:      p.SelfDriven,
		DriverName:      p.DriverName,
		DriverLicenseNo: p.DriverLicenseNo,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
