// Package idempotency keeps replayable responses in process memory.
package idempotency

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.Mutex
	m  map[idempotency.Fingerprint]idempotency.Record

	ttl time.Duration
	now func() time.Time
}

type Option func(*Store)

// WithTTL expires records whose CreatedAt is older than ttl, measured by now.
func WithTTL(ttl time.Duration, now func() time.Time) Option {
	return func(s *Store) {
		s.ttl = ttl
		if now != nil {
			s.now = now
		}
	}
}

var _ idempotency.Store = (*Store)(nil)

func NewStore(opts ...Option) *Store {
	s := &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Get(_ context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.expired(rec) {
		delete(s.m, fp)
		return idempotency.Record{}, false, nil
	}
	rec.Body = bytes.Clone(rec.Body)
	return rec, true, nil
}

func (s *Store) Put(_ context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.Body = bytes.Clone(rec.Body)
	s.m[fp] = rec
	return nil
}

func (s *Store) Claim(_ context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[fp]; ok && !s.expired(existing) {
		existing.Body = bytes.Clone(existing.Body)
		return existing, false, nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.Body = bytes.Clone(rec.Body)
	s.m[fp] = rec
	rec.Body = bytes.Clone(rec.Body)
	return rec, true, nil
}

func (s *Store) Release(_ context.Context, fp idempotency.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, fp)
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.ttl > 0 && s.now().Sub(rec.CreatedAt) >= s.ttl
}
