package domain

import "time"

type Gender string

const (
	GenderFemale Gender = "F"
	GenderMale   Gender = "M"
	GenderOther  Gender = "O"
)

// IDType is the kind of identity document an applicant registered with.
type IDType string

const (
	IDTypeNationalID     IDType = "NID"
	IDTypeDrivingLicense IDType = "DL"
	IDTypePassport       IDType = "PP"
	IDTypeBirthReg       IDType = "BR"
	IDTypeEmployeeID     IDType = "EID"
	IDTypeStudentID      IDType = "SID"
)

// DateOfBirthLayout is the DDMMYYYY representation used as the login credential.
const DateOfBirthLayout = "02012006"

// Applicant is the domain representation of a registered identity.
type Applicant struct {
	ID ApplicantID

	Name        string
	District    int
	Thana       int
	DateOfBirth time.Time
	Gender      Gender
	IDType      IDType
	IDNumber    string
	// Photo is a reference to an uploaded image (see the photo upload URL operation).
	Photo string

	CreatedAt time.Time

	AppliedCount  int
	ApprovedCount int
	RejectedCount int
}
