package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:       "k1",
		Applicant: domain.ApplicantID("01712345678"),
		Method:    "POST",
		Route:     "/v1/passes",
		BodyHash:  "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"p1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != rec.StatusCode || got.ContentType != rec.ContentType || string(got.Body) != string(rec.Body) {
		t.Fatalf("Get()=%+v, want %+v", got, rec)
	}

	// Another applicant replaying the same key is a different request.
	other := fp
	other.Applicant = "01812345678"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("Get(other applicant) ok=true, want false")
	}
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2021, 4, 20, 9, 0, 0, 0, time.UTC)
	s := NewStore(WithTTL(time.Hour, func() time.Time { return now }))
	fp := idempotency.Fingerprint{Key: "k1", Applicant: "01712345678", Method: "POST", Route: "/v1/passes"}

	if err := s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201, Body: []byte("{}")}); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, ok, _ := s.Get(context.Background(), fp); !ok {
		t.Fatalf("Get() before ttl ok=false, want true")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := s.Get(context.Background(), fp); ok {
		t.Fatalf("Get() at ttl ok=true, want false")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{Key: "k1", Applicant: "01712345678"}
	_ = s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201, Body: []byte(`{"id":"p1"}`)})

	got, _, _ := s.Get(context.Background(), fp)
	got.Body[0] = 'X'

	again, _, _ := s.Get(context.Background(), fp)
	if string(again.Body) != `{"id":"p1"}` {
		t.Fatalf("stored body mutated through Get: %q", again.Body)
	}
}
