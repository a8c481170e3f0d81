package httpapi

import (
	"context"

	"github.com/movement-pass/public-api/internal/domain"
)

type applicantKey struct{}

func WithApplicant(ctx context.Context, id domain.ApplicantID) context.Context {
	return context.WithValue(ctx, applicantKey{}, id)
}

func ApplicantFromContext(ctx context.Context) (domain.ApplicantID, bool) {
	v, ok := ctx.Value(applicantKey{}).(domain.ApplicantID)
	return v, ok && v != ""
}
