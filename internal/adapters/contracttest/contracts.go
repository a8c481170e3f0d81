package contracttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
	idempotencyport "github.com/movement-pass/public-api/internal/ports/out/idempotency"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

type CleanupFunc = func()

// DocStore bundles the two repositories that must share one backing store.
type DocStore struct {
	Applicants applicantrepo.Repository
	Passes     passrepo.Repository
}

type DocStoreFactory func(t *testing.T) (DocStore, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:       idempotencyport.Key("k-" + domain.NewOpaqueID()),
		Applicant: domain.ApplicantID("01712345678"),
		Method:    "POST",
		Route:     "/v1/passes",
		BodyHash:  "abc",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"p1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"id":"p1"}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// A different body hash is a different request.
	other := fp
	other.BodyHash = "def"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other fingerprint: ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"p2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"id":"p2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	runClaim(t, store)
}

func runClaim(t *testing.T, store idempotencyport.Store) {
	t.Helper()
	ctx := context.Background()

	fp := idempotencyport.Fingerprint{
		Key:       idempotencyport.Key("claim-" + domain.NewOpaqueID()),
		Applicant: domain.ApplicantID("01712345678"),
		Method:    "POST",
		Route:     "/v1/passes",
	}

	// Concurrent claims on one fingerprint: exactly one wins, the rest see its record.
	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		bodies  = map[string]int{}
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, claimed, err := store.Claim(ctx, fp, idempotencyport.Record{
				ContentType: "text/plain",
				Body:        []byte(fmt.Sprintf("hash-%d", i)),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if claimed {
				winners++
			}
			bodies[string(rec.Body)]++
		}(i)
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("Claim errors: %v", errs)
	}
	if winners != 1 {
		t.Fatalf("claimed %d times, want exactly 1", winners)
	}
	if len(bodies) != 1 {
		t.Fatalf("claimers saw different records: %v", bodies)
	}

	// Release frees the fingerprint for the next claim.
	if err := store.Release(ctx, fp); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get after Release: ok=%v err=%v", ok, err)
	}
	if _, claimed, err := store.Claim(ctx, fp, idempotencyport.Record{Body: []byte("again")}); err != nil || !claimed {
		t.Fatalf("Claim after Release: claimed=%v err=%v", claimed, err)
	}
	if err := store.Release(ctx, fp); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := store.Release(ctx, fp); err != nil {
		t.Fatalf("Release of missing record: %v", err)
	}
}

func RunDocStore(t *testing.T, newStore DocStoreFactory) {
	t.Helper()

	t.Run("applicants", func(t *testing.T) {
		store, cleanup := newStore(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		runApplicants(t, store)
	})
	t.Run("create applied", func(t *testing.T) {
		store, cleanup := newStore(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		runCreateApplied(t, store)
	})
	t.Run("list by applicant", func(t *testing.T) {
		store, cleanup := newStore(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		runListByApplicant(t, store)
	})
}

// uniqueMobile returns an applicant id unlikely to collide across runs against a shared database.
func uniqueMobile() domain.ApplicantID {
	return domain.ApplicantID("017" + fmt.Sprintf("%08d", time.Now().UnixNano()%100000000))
}

func NewApplicant(id domain.ApplicantID, now time.Time) applicantrepo.Applicant {
	return applicantrepo.Applicant{
		ID:          id,
		Name:        "Test Applicant",
		District:    1047,
		Thana:       10452,
		DateOfBirth: time.Date(1990, time.March, 7, 0, 0, 0, 0, time.UTC),
		Gender:      domain.GenderFemale,
		IDType:      domain.IDTypeNationalID,
		IDNumber:    "1990123456789",
		Photo:       "https://photos.example.com/abc.png",
		CreatedAt:   now,
	}
}

func NewPass(owner domain.ApplicantID, endAt time.Time) passrepo.Pass {
	startAt := endAt.Add(-2 * time.Hour)
	return passrepo.Pass{
		ID:           domain.PassID(domain.NewOpaqueID()),
		ApplicantID:  owner,
		FromLocation: "Dhanmondi",
		ToLocation:   "Gulshan",
		District:     1047,
		Thana:        10452,
		StartAt:      startAt,
		EndAt:        endAt,
		Type:         domain.PassTypeRegular,
		Reason:       "Hospital",
		Status:       domain.PassStatusApplied,
		CreatedAt:    startAt,
	}
}

func runApplicants(t *testing.T, s DocStore) {
	t.Helper()
	ctx := context.Background()

	now := time.Date(2021, time.May, 1, 10, 0, 0, 0, time.UTC)
	id := uniqueMobile()
	a := NewApplicant(id, now)
	if err := s.Applicants.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Applicants.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != a.Name || got.District != a.District || got.Thana != a.Thana || got.IDNumber != a.IDNumber {
		t.Fatalf("GetByID()=%+v, want %+v", got, a)
	}
	if !got.DateOfBirth.Equal(a.DateOfBirth) || !got.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("times: dob=%v createdAt=%v", got.DateOfBirth, got.CreatedAt)
	}
	if got.AppliedCount != 0 || got.ApprovedCount != 0 || got.RejectedCount != 0 {
		t.Fatalf("counters=%d/%d/%d, want zero", got.AppliedCount, got.ApprovedCount, got.RejectedCount)
	}

	// Conditional create never overwrites.
	dup := a
	dup.Name = "Someone Else"
	if err := s.Applicants.Create(ctx, dup); !errors.Is(err, applicantrepo.ErrAlreadyExists) {
		t.Fatalf("duplicate Create err=%v, want ErrAlreadyExists", err)
	}
	got, err = s.Applicants.GetByID(ctx, id)
	if err != nil || got.Name != a.Name {
		t.Fatalf("after duplicate: name=%q err=%v", got.Name, err)
	}

	if _, err := s.Applicants.GetByID(ctx, domain.ApplicantID("01900000000")); !errors.Is(err, applicantrepo.ErrNotFound) {
		t.Fatalf("missing GetByID err=%v, want ErrNotFound", err)
	}
}

func runCreateApplied(t *testing.T, s DocStore) {
	t.Helper()
	ctx := context.Background()

	now := time.Date(2021, time.May, 1, 10, 0, 0, 0, time.UTC)
	owner := uniqueMobile()
	if err := s.Applicants.Create(ctx, NewApplicant(owner, now)); err != nil {
		t.Fatalf("Create applicant: %v", err)
	}

	vehicle := "DHAKA-METRO-GA-1234"
	p := NewPass(owner, now.Add(4*time.Hour))
	p.IncludeVehicle = true
	p.VehicleNo = &vehicle
	p.SelfDriven = true
	if err := s.Passes.CreateApplied(ctx, p); err != nil {
		t.Fatalf("CreateApplied: %v", err)
	}

	got, err := s.Passes.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ApplicantID != owner || got.Status != domain.PassStatusApplied || !got.EndAt.Equal(p.EndAt) {
		t.Fatalf("GetByID()=%+v", got)
	}
	if got.VehicleNo == nil || *got.VehicleNo != vehicle || got.DriverName != nil || got.DriverLicenseNo != nil {
		t.Fatalf("vehicle fields: vehicleNo=%v driverName=%v license=%v", got.VehicleNo, got.DriverName, got.DriverLicenseNo)
	}

	a, err := s.Applicants.GetByID(ctx, owner)
	if err != nil {
		t.Fatalf("GetByID applicant: %v", err)
	}
	if a.AppliedCount != 1 {
		t.Fatalf("AppliedCount=%d, want 1", a.AppliedCount)
	}

	// Duplicate pass id: the whole write fails and the counter is unchanged.
	if err := s.Passes.CreateApplied(ctx, p); !errors.Is(err, passrepo.ErrAlreadyExists) {
		t.Fatalf("duplicate CreateApplied err=%v, want ErrAlreadyExists", err)
	}
	if a, _ := s.Applicants.GetByID(ctx, owner); a.AppliedCount != 1 {
		t.Fatalf("AppliedCount after duplicate=%d, want 1", a.AppliedCount)
	}

	// Missing owner: the counter update fails, so the pass must not be visible either.
	orphan := NewPass(domain.ApplicantID("01800000000"), now)
	if err := s.Passes.CreateApplied(ctx, orphan); !errors.Is(err, passrepo.ErrApplicantNotFound) {
		t.Fatalf("orphan CreateApplied err=%v, want ErrApplicantNotFound", err)
	}
	if _, err := s.Passes.GetByID(ctx, orphan.ID); !errors.Is(err, passrepo.ErrNotFound) {
		t.Fatalf("orphan pass visible: err=%v", err)
	}

	if _, err := s.Passes.GetByID(ctx, domain.PassID("does-not-exist")); !errors.Is(err, passrepo.ErrNotFound) {
		t.Fatalf("missing GetByID err=%v, want ErrNotFound", err)
	}
}

func runListByApplicant(t *testing.T, s DocStore) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)
	owner := uniqueMobile()
	other := domain.ApplicantID(string(owner[:len(owner)-1]) + "x")
	for _, id := range []domain.ApplicantID{owner, other} {
		if err := s.Applicants.Create(ctx, NewApplicant(id, base)); err != nil {
			t.Fatalf("Create applicant %s: %v", id, err)
		}
	}

	const total = passrepo.DefaultPageSize + 7
	for i := 0; i < total; i++ {
		// Two passes share each endAt so the id tie-break is exercised.
		p := NewPass(owner, base.Add(time.Duration(i/2)*time.Hour))
		if err := s.Passes.CreateApplied(ctx, p); err != nil {
			t.Fatalf("CreateApplied %d: %v", i, err)
		}
	}
	if err := s.Passes.CreateApplied(ctx, NewPass(other, base.Add(100*time.Hour))); err != nil {
		t.Fatalf("CreateApplied other: %v", err)
	}

	first, err := s.Passes.ListByApplicant(ctx, owner, passrepo.DefaultPageSize, nil)
	if err != nil {
		t.Fatalf("ListByApplicant page 1: %v", err)
	}
	if len(first.Passes) != passrepo.DefaultPageSize {
		t.Fatalf("page 1 len=%d, want %d", len(first.Passes), passrepo.DefaultPageSize)
	}
	if first.Next == nil {
		t.Fatalf("page 1 Next=nil, want cursor")
	}
	last := first.Passes[len(first.Passes)-1]
	if first.Next.ID != last.ID || !first.Next.EndAt.Equal(last.EndAt) {
		t.Fatalf("Next=%+v, want last item %s/%v", first.Next, last.ID, last.EndAt)
	}

	second, err := s.Passes.ListByApplicant(ctx, owner, passrepo.DefaultPageSize, first.Next)
	if err != nil {
		t.Fatalf("ListByApplicant page 2: %v", err)
	}
	if len(second.Passes) != total-passrepo.DefaultPageSize {
		t.Fatalf("page 2 len=%d, want %d", len(second.Passes), total-passrepo.DefaultPageSize)
	}
	if second.Next != nil {
		t.Fatalf("page 2 Next=%+v, want nil", second.Next)
	}

	all := append(append([]passrepo.Pass{}, first.Passes...), second.Passes...)
	seen := make(map[domain.PassID]bool, len(all))
	for i, p := range all {
		if p.ApplicantID != owner {
			t.Fatalf("item %d belongs to %s", i, p.ApplicantID)
		}
		if seen[p.ID] {
			t.Fatalf("item %d (%s) repeated across pages", i, p.ID)
		}
		seen[p.ID] = true
		if i == 0 {
			continue
		}
		prev := all[i-1]
		if prev.EndAt.Before(p.EndAt) || (prev.EndAt.Equal(p.EndAt) && prev.ID < p.ID) {
			t.Fatalf("ordering broken at %d: %s/%v then %s/%v", i, prev.ID, prev.EndAt, p.ID, p.EndAt)
		}
	}
	if len(seen) != total {
		t.Fatalf("saw %d passes, want %d", len(seen), total)
	}

	empty, err := s.Passes.ListByApplicant(ctx, domain.ApplicantID("01600000000"), passrepo.DefaultPageSize, nil)
	if err != nil {
		t.Fatalf("ListByApplicant unknown: %v", err)
	}
	if len(empty.Passes) != 0 || empty.Next != nil {
		t.Fatalf("unknown applicant page=%+v", empty)
	}
}
