package identity

import (
	"context"
	"errors"

	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
	clockport "github.com/movement-pass/public-api/internal/ports/out/clock"
)

// TokenSigner issues access tokens for applicants.
type TokenSigner interface {
	Sign(ctx context.Context, a domain.Applicant) (string, error)
}

type Service struct {
	applicants applicantrepo.Repository
	tokens     TokenSigner
	clk        clockport.Clock
}

func NewService(applicants applicantrepo.Repository, tokens TokenSigner, clk clockport.Clock) *Service {
	return &Service{
		applicants: applicants,
		tokens:     tokens,
		clk:        clk,
	}
}

// Register creates the applicant and returns a token for it. A mobile number that is already
// registered yields NotApplicable and leaves the existing record untouched.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (dispatch.Outcome[TokenResult], error) {
	rec := applicantrepo.Applicant{
		ID:          domain.ApplicantID(domain.NormalizeMobile(req.MobilePhone)),
		Name:        req.Name,
		District:    req.District,
		Thana:       req.Thana,
		DateOfBirth: req.DateOfBirth.UTC(),
		Gender:      req.Gender,
		IDType:      req.IDType,
		IDNumber:    req.IDNumber,
		Photo:       req.Photo,
		CreatedAt:   s.clk.Now().UTC(),
	}

	if err := s.applicants.Create(ctx, rec); err != nil {
		if errors.Is(err, applicantrepo.ErrAlreadyExists) {
			return dispatch.NotApplicable[TokenResult](), nil
		}
		return dispatch.Outcome[TokenResult]{}, err
	}

	return s.issue(ctx, rec.ToDomain())
}

// Login checks the supplied date of birth against the stored one. There is no password:
// an unknown mobile number or any mismatch yields NotApplicable.
func (s *Service) Login(ctx context.Context, req LoginRequest) (dispatch.Outcome[TokenResult], error) {
	rec, err := s.applicants.GetByID(ctx, domain.ApplicantID(domain.NormalizeMobile(req.MobilePhone)))
	if err != nil {
		if errors.Is(err, applicantrepo.ErrNotFound) {
			return dispatch.NotApplicable[TokenResult](), nil
		}
		return dispatch.Outcome[TokenResult]{}, err
	}

	if rec.DateOfBirth.UTC().Format(domain.DateOfBirthLayout) != req.DateOfBirth {
		return dispatch.NotApplicable[TokenResult](), nil
	}

	return s.issue(ctx, rec.ToDomain())
}

func (s *Service) issue(ctx context.Context, a domain.Applicant) (dispatch.Outcome[TokenResult], error) {
	token, err := s.tokens.Sign(ctx, a)
	if err != nil {
		return dispatch.Outcome[TokenResult]{}, err
	}
	return dispatch.Found(TokenResult{Type: TokenType, Token: token}), nil
}
