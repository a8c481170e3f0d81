package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/ports/out/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// idemCheck holds the two fingerprints used per keyed request:
//   - meta (no body hash) remembers which body the key was first used with
//   - resp (with body hash) holds the response to replay
type idemCheck struct {
	meta     idempotency.Fingerprint
	resp     idempotency.Fingerprint
	bodyHash string
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(bytes.TrimSpace(body))
	return hex.EncodeToString(sum[:])
}

func newIdemCheck(key string, applicant domain.ApplicantID, method, route string, body []byte) idemCheck {
	meta := idempotency.Fingerprint{
		Key:       idempotency.Key(key),
		Applicant: applicant,
		Method:    method,
		Route:     route,
	}
	h := hashBody(body)
	resp := meta
	resp.BodyHash = h
	return idemCheck{meta: meta, resp: resp, bodyHash: h}
}

type idemDecision int

const (
	// idemProceed: this request claimed the key and must run, then store or release.
	idemProceed idemDecision = iota
	// idemReplay: a finished response exists for this key and body.
	idemReplay
	// idemConflict: the key was first used with a different body.
	idemConflict
	// idemInFlight: another request with this key and body has not finished yet.
	idemInFlight
)

// claimKey atomically claims the key for this body before any work is done, so concurrent
// retries cannot both dispatch.
func claimKey(ctx context.Context, store idempotency.Store, c idemCheck, now time.Time) (idemDecision, *idempotency.Record, error) {
	meta, claimed, err := store.Claim(ctx, c.meta, idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(c.bodyHash),
		CreatedAt:   now,
	})
	if err != nil {
		return 0, nil, err
	}
	if claimed {
		return idemProceed, nil, nil
	}
	if string(meta.Body) != c.bodyHash {
		return idemConflict, nil, nil
	}

	rec, ok, err := store.Get(ctx, c.resp)
	if err != nil {
		return 0, nil, err
	}
	if ok && rec.StatusCode != 0 {
		return idemReplay, &rec, nil
	}
	return idemInFlight, nil, nil
}

func writeRecord(w http.ResponseWriter, rec idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.StatusCode)
	_, _ = w.Write(rec.Body)
}
