package blobstore

//go:generate mockgen -destination=mocks/mock_presigner.go -package=mocks github.com/movement-pass/public-api/internal/ports/out/blobstore Presigner

import (
	"context"
	"time"
)

// Presigner creates time-limited URLs that allow a client to upload an object directly
// to a bucket without further credentials.
type Presigner interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error)
}
