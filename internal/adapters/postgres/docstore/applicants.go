// Package docstore implements the applicant and pass repositories on Postgres.
package docstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/movement-pass/public-api/internal/adapters/postgres"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
)

// ApplicantRepo is a Postgres implementation of applicantrepo.Repository.
type ApplicantRepo struct {
	pool *pgxpool.Pool
}

var _ applicantrepo.Repository = (*ApplicantRepo)(nil)

func NewApplicantRepo(pool *pgxpool.Pool) *ApplicantRepo {
	return &ApplicantRepo{pool: pool}
}

func (r *ApplicantRepo) Create(ctx context.Context, a applicantrepo.Applicant) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO applicants (
			id,
			name,
			district,
			thana,
			date_of_birth,
			gender,
			id_type,
			id_number,
			photo,
			created_at,
			applied_count,
			approved_count,
			rejected_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		string(a.ID),
		a.Name,
		a.District,
		a.Thana,
		a.DateOfBirth.UTC(),
		string(a.Gender),
		string(a.IDType),
		a.IDNumber,
		a.Photo,
		a.CreatedAt.UTC(),
		a.AppliedCount,
		a.ApprovedCount,
		a.RejectedCount,
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return applicantrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ApplicantRepo) GetByID(ctx context.Context, id domain.ApplicantID) (applicantrepo.Applicant, error) {
	if r.pool == nil {
		return applicantrepo.Applicant{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, district, thana, date_of_birth, gender, id_type, id_number, photo,
		       created_at, applied_count, approved_count, rejected_count
		FROM applicants
		WHERE id = $1
	`, string(id))

	var (
		a      applicantrepo.Applicant
		rawID  string
		gender string
		idType string
	)
	if err := row.Scan(
		&rawID,
		&a.Name,
		&a.District,
		&a.Thana,
		&a.DateOfBirth,
		&gender,
		&idType,
		&a.IDNumber,
		&a.Photo,
		&a.CreatedAt,
		&a.AppliedCount,
		&a.ApprovedCount,
		&a.RejectedCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return applicantrepo.Applicant{}, applicantrepo.ErrNotFound
		}
		return applicantrepo.Applicant{}, err
	}
	a.ID = domain.ApplicantID(rawID)
	a.Gender = domain.Gender(gender)
	a.IDType = domain.IDType(idType)
	a.DateOfBirth = a.DateOfBirth.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
