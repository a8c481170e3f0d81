package docstore

import (
	"testing"

	"github.com/movement-pass/public-api/internal/adapters/contracttest"
)

func TestContract_DocStore(t *testing.T) {
	contracttest.RunDocStore(t, func(t *testing.T) (contracttest.DocStore, func()) {
		t.Helper()
		s := NewStore()
		return contracttest.DocStore{Applicants: s.Applicants(), Passes: s.Passes()}, nil
	})
}
