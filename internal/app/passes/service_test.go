package passes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/movement-pass/public-api/internal/adapters/contracttest"
	memclock "github.com/movement-pass/public-api/internal/adapters/memory/clock"
	"github.com/movement-pass/public-api/internal/adapters/memory/docstore"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

const (
	alice = domain.ApplicantID("01711111111")
	bob   = domain.ApplicantID("01822222222")
)

var now = time.Date(2021, time.April, 20, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *docstore.Store) {
	t.Helper()
	store := docstore.NewStore()
	for _, id := range []domain.ApplicantID{alice, bob} {
		if err := store.Applicants().Create(context.Background(), contracttest.NewApplicant(id, now)); err != nil {
			t.Fatalf("seed applicant %s: %v", id, err)
		}
	}
	svc := NewService(store.Passes(), store.Applicants(), memclock.NewManualClock(now))

	n := 0
	svc.newPassID = func() domain.PassID {
		n++
		return domain.PassID(fmt.Sprintf("pass%03d", n))
	}
	return svc, store
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func applyRequest(owner domain.ApplicantID) ApplyRequest {
	return ApplyRequest{
		FromLocation:    "Dhanmondi",
		ToLocation:      "Uttara",
		District:        1047,
		Thana:           10452,
		DateTime:        time.Date(2021, time.April, 21, 14, 0, 0, 0, time.UTC),
		DurationInHour:  5,
		Type:            domain.PassTypeRegular,
		Reason:          "Medical appointment",
		VehicleNo:       strPtr("DHA-GA-1234"),
		SelfDriven:      boolPtr(false),
		DriverName:      strPtr("Karim"),
		DriverLicenseNo: strPtr("DL-998877"),
		ApplicantID:     owner,
	}
}

func TestService_Apply_VehicleRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		includeVehicle bool
		selfDriven     *bool
		wantVehicle    bool
		wantDriver     bool
		wantSelfDriven bool
	}{
		{name: "no vehicle strips everything", includeVehicle: false, selfDriven: boolPtr(true)},
		{name: "self driven drops driver", includeVehicle: true, selfDriven: boolPtr(true), wantVehicle: true, wantSelfDriven: true},
		{name: "driven keeps driver", includeVehicle: true, selfDriven: boolPtr(false), wantVehicle: true, wantDriver: true},
		{name: "missing selfDriven means driven", includeVehicle: true, selfDriven: nil, wantVehicle: true, wantDriver: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t)

			req := applyRequest(alice)
			req.IncludeVehicle = tt.includeVehicle
			req.SelfDriven = tt.selfDriven

			res, err := svc.Apply(context.Background(), req)
			if err != nil {
				t.Fatalf("Apply err=%v", err)
			}
			p, err := store.Passes().GetByID(context.Background(), res.ID)
			if err != nil {
				t.Fatalf("GetByID err=%v", err)
			}

			if (p.VehicleNo != nil) != tt.wantVehicle {
				t.Fatalf("vehicleNo=%v, want present=%v", p.VehicleNo, tt.wantVehicle)
			}
			if (p.DriverName != nil) != tt.wantDriver || (p.DriverLicenseNo != nil) != tt.wantDriver {
				t.Fatalf("driverName=%v license=%v, want present=%v", p.DriverName, p.DriverLicenseNo, tt.wantDriver)
			}
			if p.SelfDriven != tt.wantSelfDriven || p.IncludeVehicle != tt.includeVehicle {
				t.Fatalf("selfDriven=%v includeVehicle=%v", p.SelfDriven, p.IncludeVehicle)
			}
		})
	}
}

func TestService_Apply_DerivedFieldsAndCounter(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	req := applyRequest(alice)

	for i := 1; i <= 3; i++ {
		res, err := svc.Apply(context.Background(), req)
		if err != nil {
			t.Fatalf("Apply #%d err=%v", i, err)
		}
		p, _ := store.Passes().GetByID(context.Background(), res.ID)
		if !p.StartAt.Equal(req.DateTime) || !p.EndAt.Equal(req.DateTime.Add(5*time.Hour)) {
			t.Fatalf("startAt=%v endAt=%v", p.StartAt, p.EndAt)
		}
		if p.Status != domain.PassStatusApplied || !p.CreatedAt.Equal(now) || p.ApplicantID != alice {
			t.Fatalf("pass=%+v", p)
		}

		a, _ := store.Applicants().GetByID(context.Background(), alice)
		if a.AppliedCount != i {
			t.Fatalf("AppliedCount=%d, want %d", a.AppliedCount, i)
		}
	}
}

func TestService_Apply_AtomicOnSecondWriteFailure(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	boom := errors.New("transaction cancelled")
	store.FailNextCounterUpdate(boom)

	_, err := svc.Apply(context.Background(), applyRequest(alice))
	if !errors.Is(err, boom) {
		t.Fatalf("Apply err=%v, want %v", err, boom)
	}
	if _, err := store.Passes().GetByID(context.Background(), "pass001"); !errors.Is(err, passrepo.ErrNotFound) {
		t.Fatalf("pass visible after failed apply: err=%v", err)
	}
	a, _ := store.Applicants().GetByID(context.Background(), alice)
	if a.AppliedCount != 0 {
		t.Fatalf("AppliedCount=%d, want 0", a.AppliedCount)
	}
}

func TestService_Apply_UnknownApplicant(t *testing.T) {
	t.Parallel()

	svc, store := newService(t)
	_, err := svc.Apply(context.Background(), applyRequest("01999999999"))
	if !errors.Is(err, passrepo.ErrApplicantNotFound) {
		t.Fatalf("Apply err=%v, want ErrApplicantNotFound", err)
	}
	if _, err := store.Passes().GetByID(context.Background(), "pass001"); !errors.Is(err, passrepo.ErrNotFound) {
		t.Fatalf("orphan pass visible: err=%v", err)
	}
}

func TestService_ViewPass(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	res, err := svc.Apply(context.Background(), applyRequest(alice))
	if err != nil {
		t.Fatalf("Apply err=%v", err)
	}

	out, err := svc.ViewPass(context.Background(), ViewPassRequest{ID: res.ID, ApplicantID: alice})
	if err != nil {
		t.Fatalf("ViewPass err=%v", err)
	}
	detail, ok := out.Get()
	if !ok {
		t.Fatalf("ViewPass owner: not found")
	}
	if detail.Pass.ID != res.ID || detail.Pass.Applicant.ID != alice || detail.Pass.Applicant.AppliedCount != 1 {
		t.Fatalf("detail=%+v", detail.Pass)
	}
	if detail.CacheMaxAge != AppliedCacheMaxAge {
		t.Fatalf("CacheMaxAge=%v, want %v", detail.CacheMaxAge, AppliedCacheMaxAge)
	}

	foreign, err := svc.ViewPass(context.Background(), ViewPassRequest{ID: res.ID, ApplicantID: bob})
	if err != nil {
		t.Fatalf("ViewPass foreign err=%v", err)
	}
	missing, err := svc.ViewPass(context.Background(), ViewPassRequest{ID: "nope", ApplicantID: bob})
	if err != nil {
		t.Fatalf("ViewPass missing err=%v", err)
	}
	if foreign.IsFound() || missing.IsFound() || foreign != missing {
		t.Fatalf("foreign=%+v missing=%+v, want identical NotApplicable", foreign, missing)
	}
}

func TestCacheMaxAge(t *testing.T) {
	t.Parallel()

	if CacheMaxAge(domain.PassStatusApplied) >= CacheMaxAge(domain.PassStatusApproved) {
		t.Fatalf("applied pass should be cached for less time than a decided one")
	}
	if CacheMaxAge(domain.PassStatusRejected) != DecidedCacheMaxAge {
		t.Fatalf("rejected=%v", CacheMaxAge(domain.PassStatusRejected))
	}
}

func TestService_ViewPasses_Pagination(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	const total = 31
	for i := 0; i < total; i++ {
		req := applyRequest(alice)
		req.DateTime = req.DateTime.Add(time.Duration(i) * time.Hour)
		if _, err := svc.Apply(context.Background(), req); err != nil {
			t.Fatalf("Apply %d err=%v", i, err)
		}
	}
	if _, err := svc.Apply(context.Background(), applyRequest(bob)); err != nil {
		t.Fatalf("Apply bob err=%v", err)
	}

	first, err := svc.ViewPasses(context.Background(), ViewPassesRequest{ApplicantID: alice})
	if err != nil {
		t.Fatalf("ViewPasses err=%v", err)
	}
	if len(first.Passes) != 25 || first.NextKey == nil {
		t.Fatalf("first page len=%d next=%v", len(first.Passes), first.NextKey)
	}
	// Latest endAt first: the last applied pass heads the list.
	if first.Passes[0].ID != "pass031" {
		t.Fatalf("first item=%s, want pass031", first.Passes[0].ID)
	}

	second, err := svc.ViewPasses(context.Background(), ViewPassesRequest{ApplicantID: alice, StartKey: first.NextKey})
	if err != nil {
		t.Fatalf("ViewPasses page 2 err=%v", err)
	}
	if len(second.Passes) != total-25 || second.NextKey != nil {
		t.Fatalf("second page len=%d next=%v", len(second.Passes), second.NextKey)
	}

	all := append(first.Passes, second.Passes...)
	for i := 1; i < len(all); i++ {
		if !all[i-1].EndAt.After(all[i].EndAt) {
			t.Fatalf("not strictly descending at %d: %v then %v", i, all[i-1].EndAt, all[i].EndAt)
		}
	}
	if all[len(all)-1].ID != "pass001" {
		t.Fatalf("last item=%s, want pass001 (no gap)", all[len(all)-1].ID)
	}
}

func TestService_ViewPasses_SubMillisecondCursorRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	const total = 30
	dateTime := time.Date(2021, time.April, 21, 12, 0, 0, 123456789, time.UTC)
	for i := 0; i < total; i++ {
		req := applyRequest(alice)
		req.DateTime = dateTime
		req.DurationInHour = 2
		if _, err := svc.Apply(context.Background(), req); err != nil {
			t.Fatalf("Apply %d err=%v", i, err)
		}
	}

	first, err := svc.ViewPasses(context.Background(), ViewPassesRequest{ApplicantID: alice})
	if err != nil {
		t.Fatalf("ViewPasses err=%v", err)
	}
	if len(first.Passes) != 25 || first.NextKey == nil {
		t.Fatalf("first page len=%d next=%v", len(first.Passes), first.NextKey)
	}
	if got := first.Passes[0].EndAt.Nanosecond(); got != 123000000 {
		t.Fatalf("endAt nanos=%d, want 123000000", got)
	}

	// Clients echo the cursor back through the millisecond JSON layout.
	const layout = "2006-01-02T15:04:05.000Z"
	echoed, err := time.Parse(layout, first.NextKey.EndAt.Format(layout))
	if err != nil {
		t.Fatalf("parse cursor err=%v", err)
	}
	second, err := svc.ViewPasses(context.Background(), ViewPassesRequest{
		ApplicantID: alice,
		StartKey:    &domain.PassListKey{ID: first.NextKey.ID, EndAt: echoed},
	})
	if err != nil {
		t.Fatalf("ViewPasses page 2 err=%v", err)
	}
	if len(second.Passes) != total-25 || second.NextKey != nil {
		t.Fatalf("second page len=%d next=%v, want %d and nil", len(second.Passes), second.NextKey, total-25)
	}

	seen := make(map[domain.PassID]bool, total)
	for _, p := range append(first.Passes, second.Passes...) {
		if seen[p.ID] {
			t.Fatalf("pass %s returned twice", p.ID)
		}
		seen[p.ID] = true
	}
}
