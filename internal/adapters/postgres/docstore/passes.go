package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/movement-pass/public-api/internal/adapters/postgres"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

// PassRepo is a Postgres implementation of passrepo.Repository.
type PassRepo struct {
	pool *pgxpool.Pool
}

var _ passrepo.Repository = (*PassRepo)(nil)

func NewPassRepo(pool *pgxpool.Pool) *PassRepo {
	return &PassRepo{pool: pool}
}

const passColumns = `id, applicant_id, from_location, to_location, district, thana, start_at, end_at,
	type, reason, include_vehicle, vehicle_no, self_driven, driver_name, driver_license_no,
	status, created_at`

func (r *PassRepo) CreateApplied(ctx context.Context, p passrepo.Pass) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO passes (`+passColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			string(p.ID),
			string(p.ApplicantID),
			p.FromLocation,
			p.ToLocation,
			p.District,
			p.Thana,
			p.StartAt.UTC(),
			p.EndAt.UTC(),
			string(p.Type),
			p.Reason,
			p.IncludeVehicle,
			p.VehicleNo,
			p.SelfDriven,
			p.DriverName,
			p.DriverLicenseNo,
			string(p.Status),
			p.CreatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok {
				switch pe.Code {
				case postgres.UniqueViolationCode:
					return passrepo.ErrAlreadyExists
				case postgres.ForeignKeyViolationCode:
					return passrepo.ErrApplicantNotFound
				}
			}
			return err
		}

		ct, err := tx.Exec(ctx, `
			UPDATE applicants
			SET applied_count = applied_count + 1
			WHERE id = $1
		`, string(p.ApplicantID))
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return passrepo.ErrApplicantNotFound
		}
		return nil
	})
}

func (r *PassRepo) GetByID(ctx context.Context, id domain.PassID) (passrepo.Pass, error) {
	if r.pool == nil {
		return passrepo.Pass{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+passColumns+` FROM passes WHERE id = $1`, string(id))
	p, err := scanPass(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return passrepo.Pass{}, passrepo.ErrNotFound
		}
		return passrepo.Pass{}, err
	}
	return p, nil
}

func (r *PassRepo) ListByApplicant(ctx context.Context, applicantID domain.ApplicantID, limit int, startKey *domain.PassListKey) (passrepo.Page, error) {
	if r.pool == nil {
		return passrepo.Page{}, errors.New("nil postgres pool")
	}
	if limit <= 0 {
		limit = passrepo.DefaultPageSize
	}

	var (
		afterEndAt *time.Time
		afterID    *string
	)
	if startKey != nil {
		t := startKey.EndAt.UTC()
		id := string(startKey.ID)
		afterEndAt, afterID = &t, &id
	}

	// One extra row tells us whether another page exists.
	rows, err := r.pool.Query(ctx, `
		SELECT `+passColumns+`
		FROM passes
		WHERE applicant_id = $1
		  AND ($2::timestamptz IS NULL OR (end_at, id) < ($2::timestamptz, $3::text))
		ORDER BY end_at DESC, id DESC
		LIMIT $4
	`, string(applicantID), afterEndAt, afterID, limit+1)
	if err != nil {
		return passrepo.Page{}, err
	}
	defer rows.Close()

	out := make([]passrepo.Pass, 0, limit)
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return passrepo.Page{}, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return passrepo.Page{}, err
	}

	var next *domain.PassListKey
	if len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]
		next = &domain.PassListKey{ID: last.ID, EndAt: last.EndAt}
	}
	return passrepo.Page{Passes: out, Next: next}, nil
}

func scanPass(row pgx.Row) (passrepo.Pass, error) {
	var (
		p                     passrepo.Pass
		id, applicantID       string
		passType, status      string
		vehicleNo, driverName *string
		driverLicenseNo       *string
	)
	if err := row.Scan(
		&id,
		&applicantID,
		&p.FromLocation,
		&p.ToLocation,
		&p.District,
		&p.Thana,
		&p.StartAt,
		&p.EndAt,
		&passType,
		&p.Reason,
		&p.IncludeVehicle,
		&vehicleNo,
		&p.SelfDriven,
		&driverName,
		&driverLicenseNo,
		&status,
		&p.CreatedAt,
	); err != nil {
		return passrepo.Pass{}, err
	}
	p.ID = domain.PassID(id)
	p.ApplicantID = domain.ApplicantID(applicantID)
	p.Type = domain.PassType(passType)
	p.Status = domain.PassStatus(status)
	p.VehicleNo = vehicleNo
	p.DriverName = driverName
	p.DriverLicenseNo = driverLicenseNo
	p.StartAt = p.StartAt.UTC()
	p.EndAt = p.EndAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
