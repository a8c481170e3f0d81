package applicantrepo

import "errors"

var (
	// ErrNotFound indicates the requested applicant does not exist.
	ErrNotFound = errors.New("applicant not found")

	// ErrAlreadyExists indicates an applicant already exists with the provided ID (mobile number).
	ErrAlreadyExists = errors.New("applicant already exists")
)
