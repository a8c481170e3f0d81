package passrepo

import "errors"

var (
	// ErrNotFound indicates the requested pass does not exist.
	ErrNotFound = errors.New("pass not found")

	// ErrAlreadyExists indicates a pass already exists with the provided ID.
	ErrAlreadyExists = errors.New("pass already exists")

	// ErrApplicantNotFound indicates the owning applicant is missing, so the counter
	// increment in CreateApplied could not be applied.
	ErrApplicantNotFound = errors.New("pass applicant not found")
)
