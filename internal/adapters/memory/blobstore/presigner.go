// Package blobstore issues fake presigned upload URLs for local development and tests.
package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/movement-pass/public-api/internal/ports/out/blobstore"
)

// Request records one PresignPut call.
type Request struct {
	Bucket      string
	Key         string
	ContentType string
	TTL         time.Duration
}

// Presigner builds URLs of the form {BaseURL}/{bucket}/{key}?content-type=..&expires=.. .
type Presigner struct {
	BaseURL string

	mu       sync.Mutex
	requests []Request
}

var _ blobstore.Presigner = (*Presigner)(nil)

func NewPresigner(baseURL string) *Presigner {
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}
	return &Presigner{BaseURL: baseURL}
}

func (p *Presigner) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	_ = ctx
	if bucket == "" || key == "" {
		return "", fmt.Errorf("blobstore: bucket and key are required")
	}
	p.mu.Lock()
	p.requests = append(p.requests, Request{Bucket: bucket, Key: key, ContentType: contentType, TTL: ttl})
	p.mu.Unlock()

	q := url.Values{}
	q.Set("content-type", contentType)
	q.Set("expires", strconv.Itoa(int(ttl/time.Second)))
	return fmt.Sprintf("%s/%s/%s?%s", p.BaseURL, url.PathEscape(bucket), url.PathEscape(key), q.Encode()), nil
}

// Requests returns a copy of every PresignPut call recorded so far.
func (p *Presigner) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Request(nil), p.requests...)
}
