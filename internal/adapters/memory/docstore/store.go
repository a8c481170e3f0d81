// Package docstore is an in-memory document store holding the applicants and passes tables.
//
// Both repositories share one lock so CreateApplied can stage the pass insert and the
// applicant counter update and commit them together.
package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	applicants map[domain.ApplicantID]applicantrepo.Applicant
	passes     map[domain.PassID]passrepo.Pass

	// failCounterUpdate, when set, is returned by the next CreateApplied in place of the
	// applicant update and the transaction is abandoned.
	failCounterUpdate error
}

func NewStore() *Store {
	return &Store{
		applicants: make(map[domain.ApplicantID]applicantrepo.Applicant),
		passes:     make(map[domain.PassID]passrepo.Pass),
	}
}

// Applicants returns the applicant repository view of the store.
func (s *Store) Applicants() *ApplicantRepo { return &ApplicantRepo{s: s} }

// Passes returns the pass repository view of the store.
func (s *Store) Passes() *PassRepo { return &PassRepo{s: s} }

// FailNextCounterUpdate makes the next CreateApplied fail at its second sub-write with err.
func (s *Store) FailNextCounterUpdate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCounterUpdate = err
}

type ApplicantRepo struct{ s *Store }

var _ applicantrepo.Repository = (*ApplicantRepo)(nil)

func (r *ApplicantRepo) Create(ctx context.Context, a applicantrepo.Applicant) error {
	_ = ctx
	if a.ID == "" {
		return applicantrepo.ErrAlreadyExists
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.applicants[a.ID]; ok {
		return applicantrepo.ErrAlreadyExists
	}
	r.s.applicants[a.ID] = a
	return nil
}

func (r *ApplicantRepo) GetByID(ctx context.Context, id domain.ApplicantID) (applicantrepo.Applicant, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.applicants[id]
	if !ok {
		return applicantrepo.Applicant{}, applicantrepo.ErrNotFound
	}
	return a, nil
}

type PassRepo struct{ s *Store }

var _ passrepo.Repository = (*PassRepo)(nil)

func (r *PassRepo) CreateApplied(ctx context.Context, p passrepo.Pass) error {
	_ = ctx
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Evaluate every condition before touching either table.
	if _, ok := r.s.passes[p.ID]; ok || p.ID == "" {
		return passrepo.ErrAlreadyExists
	}
	owner, ok := r.s.applicants[p.ApplicantID]
	if !ok {
		return passrepo.ErrApplicantNotFound
	}
	if err := r.s.failCounterUpdate; err != nil {
		r.s.failCounterUpdate = nil
		return err
	}

	owner.AppliedCount++
	r.s.applicants[owner.ID] = owner
	r.s.passes[p.ID] = clonePass(p)
	return nil
}

func (r *PassRepo) GetByID(ctx context.Context, id domain.PassID) (passrepo.Pass, error) {
	_ = ctx
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.passes[id]
	if !ok {
		return passrepo.Pass{}, passrepo.ErrNotFound
	}
	return clonePass(p), nil
}

func (r *PassRepo) ListByApplicant(ctx context.Context, applicantID domain.ApplicantID, limit int, startKey *domain.PassListKey) (passrepo.Page, error) {
	_ = ctx
	if limit <= 0 {
		limit = passrepo.DefaultPageSize
	}

	r.s.mu.RLock()
	owned := make([]passrepo.Pass, 0)
	for _, p := range r.s.passes {
		if p.ApplicantID == applicantID {
			owned = append(owned, clonePass(p))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool { return before(owned[i], owned[j]) })

	start := 0
	if startKey != nil {
		cursor := passrepo.Pass{ID: startKey.ID, EndAt: startKey.EndAt}
		start = sort.Search(len(owned), func(i int) bool { return before(cursor, owned[i]) })
	}

	out := owned[start:]
	var next *domain.PassListKey
	if len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]
		next = &domain.PassListKey{ID: last.ID, EndAt: last.EndAt}
	}
	return passrepo.Page{Passes: out, Next: next}, nil
}

// before reports whether a sorts ahead of b: EndAt descending, then ID descending.
func before(a, b passrepo.Pass) bool {
	if !a.EndAt.Equal(b.EndAt) {
		return a.EndAt.After(b.EndAt)
	}
	return a.ID > b.ID
}

func clonePass(p passrepo.Pass) passrepo.Pass {
	out := p
	out.VehicleNo = cloneString(p.VehicleNo)
	out.DriverName = cloneString(p.DriverName)
	out.DriverLicenseNo = cloneString(p.DriverLicenseNo)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
