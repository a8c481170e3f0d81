package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ApplicantID identifies an applicant record. It is the applicant's normalized mobile number,
// so it is assigned by the applicant rather than generated.
type ApplicantID string

// PassID is an opaque identifier for a pass record.
type PassID string

// NewOpaqueID returns a random identifier: a v4 UUID with the dashes removed, lower case.
func NewOpaqueID() string {
	return strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
