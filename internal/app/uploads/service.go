package uploads

import (
	"context"
	"path/filepath"
	"time"

	"github.com/movement-pass/public-api/internal/app/dispatch"
	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/ports/out/blobstore"
)

// PhotoURLRequest asks for somewhere to upload an applicant photo.
type PhotoURLRequest struct {
	ContentType string
	Filename    string
}

func (PhotoURLRequest) Kind() dispatch.Kind { return dispatch.KindPhotoURL }

// PhotoURLResult is the presigned upload URL and the generated object name it is scoped to.
type PhotoURLResult struct {
	URL      string
	Filename string
}

type Service struct {
	config    *configcache.Cache
	presigner blobstore.Presigner

	newName func() string
}

func NewService(config *configcache.Cache, presigner blobstore.Presigner) *Service {
	return &Service{
		config:    config,
		presigner: presigner,
		newName:   domain.NewOpaqueID,
	}
}

// PhotoURL keeps only the extension of the caller's filename, exactly as given.
func (s *Service) PhotoURL(ctx context.Context, req PhotoURLRequest) (PhotoURLResult, error) {
	values, err := s.config.Get(ctx)
	if err != nil {
		return PhotoURLResult{}, err
	}
	bucket, err := values.String(configcache.KeyPhotoBucketName)
	if err != nil {
		return PhotoURLResult{}, err
	}
	seconds, err := values.Int(configcache.KeyPhotoUploadExpiration)
	if err != nil {
		return PhotoURLResult{}, err
	}

	filename := s.newName() + filepath.Ext(req.Filename)
	url, err := s.presigner.PresignPut(ctx, bucket, filename, req.ContentType, time.Duration(seconds)*time.Second)
	if err != nil {
		return PhotoURLResult{}, err
	}
	return PhotoURLResult{URL: url, Filename: filename}, nil
}
