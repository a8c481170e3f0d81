//go:build integration

package itest

import (
	"testing"

	pgdocstore "github.com/movement-pass/public-api/internal/adapters/postgres/docstore"
	pgidempotency "github.com/movement-pass/public-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/movement-pass/public-api/internal/adapters/postgres/testutil"
)

func init() {
	openPostgres = func(t *testing.T) stores {
		pool := postgres_testutil.OpenMigratedPool(t)
		return stores{
			applicants: pgdocstore.NewApplicantRepo(pool),
			passes:     pgdocstore.NewPassRepo(pool),
			idem:       pgidempotency.NewStore(pool),
		}
	}
}
