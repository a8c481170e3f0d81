package applicantrepo

import (
	"context"
	"time"

	"github.com/movement-pass/public-api/internal/domain"
)

// Applicant is the persistence shape used by the applicant repository.
// It's used as an internal record, not an HTTP DTO.
type Applicant struct {
	ID domain.ApplicantID

	Name        string
	District    int
	Thana       int
	DateOfBirth time.Time
	Gender      domain.Gender
	IDType      domain.IDType
	IDNumber    string
	Photo       string

	CreatedAt time.Time

	// Counters start at zero. AppliedCount is only ever changed by passrepo.CreateApplied.
	AppliedCount  int
	ApprovedCount int
	RejectedCount int
}

// Repository provides access to persisted applicants.
type Repository interface {
	// Create inserts a new applicant. It must fail with ErrAlreadyExists when an applicant
	// with the same ID is present, leaving the existing record untouched.
	Create(ctx context.Context, a Applicant) error

	GetByID(ctx context.Context, id domain.ApplicantID) (Applicant, error)
}

// ToDomain converts the persistence shape into the domain model.
func (a Applicant) ToDomain() domain.Applicant {
	return domain.Applicant{
		ID:            a.ID,
		Name:          a.Name,
		District:      a.District,
		Thana:         a.Thana,
		DateOfBirth:   a.DateOfBirth,
		Gender:        a.Gender,
		IDType:        a.IDType,
		IDNumber:      a.IDNumber,
		Photo:         a.Photo,
		CreatedAt:     a.CreatedAt,
		AppliedCount:  a.AppliedCount,
		ApprovedCount: a.ApprovedCount,
		RejectedCount: a.RejectedCount,
	}
}
