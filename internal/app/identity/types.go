package identity

import (
	"time"

	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/domain"
)

// RegisterRequest creates a new applicant. Fields are assumed shape-validated by the transport.
type RegisterRequest struct {
	Name        string
	District    int
	Thana       int
	DateOfBirth time.Time
	Gender      domain.Gender
	IDType      domain.IDType
	IDNumber    string
	Photo       string
	MobilePhone string
}

func (RegisterRequest) Kind() dispatch.Kind { return dispatch.KindRegister }

// LoginRequest authenticates an applicant by mobile number and date of birth (DDMMYYYY).
type LoginRequest struct {
	MobilePhone string
	DateOfBirth string
}

func (LoginRequest) Kind() dispatch.Kind { return dispatch.KindLogin }

// TokenType is the scheme reported alongside every issued token.
const TokenType = "bearer"

type TokenResult struct {
	Type  string
	Token string
}
