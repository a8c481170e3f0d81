// Package idempotency stores replayable responses in Redis with a bounded lifetime.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

const (
	keyPrefix = "idem:"

	// DefaultTTL bounds how long a retried request can be replayed.
	DefaultTTL = 24 * time.Hour
)

// Store is a Redis implementation of idempotency.Store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

var _ idempotency.Store = (*Store)(nil)

func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type storedRecord struct {
	StatusCode  int       `json:"statusCode"`
	ContentType string    `json:"contentType"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

// key hashes the fingerprint so arbitrary caller keys cannot collide through the separator.
func key(fp idempotency.Fingerprint) string {
	raw := strings.Join([]string{
		string(fp.Key), string(fp.Applicant), fp.Method, fp.Route, fp.BodyHash,
	}, "\x00")
	sum := sha256.Sum256([]byte(raw))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	b, err := s.client.Get(ctx, key(fp)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	var rec storedRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return idempotency.Record{}, false, fmt.Errorf("%w: %v", idempotency.ErrInvalidRecord, err)
	}
	return idempotency.Record{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt.UTC(),
	}, true, nil
}

func encode(rec idempotency.Record) (idempotency.Record, []byte, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	b, err := json.Marshal(storedRecord{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt,
	})
	return rec, b, err
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_, b, err := encode(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(fp), b, s.ttl).Err()
}

// claimAttempts bounds retries when the key expires or is released between SETNX and GET.
const claimAttempts = 3

func (s *Store) Claim(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) (idempotency.Record, bool, error) {
	rec, b, err := encode(rec)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	for range claimAttempts {
		claimed, err := s.client.SetNX(ctx, key(fp), b, s.ttl).Result()
		if err != nil {
			return idempotency.Record{}, false, err
		}
		if claimed {
			return rec, true, nil
		}
		existing, ok, err := s.Get(ctx, fp)
		if err != nil {
			return idempotency.Record{}, false, err
		}
		if ok {
			return existing, false, nil
		}
	}
	return idempotency.Record{}, false, fmt.Errorf("claim idempotency key %q: key released concurrently", fp.Key)
}

func (s *Store) Release(ctx context.Context, fp idempotency.Fingerprint) error {
	return s.client.Del(ctx, key(fp)).Err()
}
