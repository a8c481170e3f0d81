package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/movement-pass/public-api/internal/domain"
)

// ErrInvalidRecord is returned when a stored record cannot be decoded.
var ErrInvalidRecord = errors.New("idempotency record invalid")

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + route + applicant + request body hash.
// Route is HTTP method + path template (e.g. "POST /v1/passes").
type Fingerprint struct {
	Key       Key
	Applicant domain.ApplicantID
	Method    string
	Route     string
	BodyHash  string
}

// Record is the stored response replayed for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error

	// Claim stores rec under fp only if nothing is stored there yet, as one atomic step.
	// It returns the record stored under fp after the call and whether this call stored it.
	Claim(ctx context.Context, fp Fingerprint, rec Record) (Record, bool, error)

	// Release removes the record under fp. Releasing a missing record is not an error.
	Release(ctx context.Context, fp Fingerprint) error
}
