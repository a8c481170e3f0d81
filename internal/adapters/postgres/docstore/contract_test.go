//go:build integration

package docstore

import (
	"testing"

	"github.com/movement-pass/public-api/internal/adapters/contracttest"
	"github.com/movement-pass/public-api/internal/adapters/postgres/testutil"
)

func TestContract_PostgresDocStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunDocStore(t, func(t *testing.T) (contracttest.DocStore, func()) {
		t.Helper()
		return contracttest.DocStore{
			Applicants: NewApplicantRepo(pool),
			Passes:     NewPassRepo(pool),
		}, nil
	})
}
