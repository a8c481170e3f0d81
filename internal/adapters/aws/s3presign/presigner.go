// Package s3presign issues presigned S3 PUT URLs for direct photo uploads.
package s3presign

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/movement-pass/public-api/internal/ports/out/blobstore"
)

type Presigner struct {
	client *s3.PresignClient
}

var _ blobstore.Presigner = (*Presigner)(nil)

func New(client *s3.PresignClient) *Presigner {
	return &Presigner{client: client}
}

func NewFromConfig(cfg aws.Config) *Presigner {
	return New(s3.NewPresignClient(s3.NewFromConfig(cfg)))
}

// PresignPut signs a PUT for key in bucket. The uploader must send the same Content-Type.
func (p *Presigner) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}
