package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSStore implements ObjectStore on a Google Cloud Storage bucket.
// Credentials come from the ambient service account (ADC).
type GCSStore struct {
	bucket *gcs.BucketHandle
	name   string
	logger *slog.Logger
}

func NewGCSStore(ctx context.Context, bucketName string, logger *slog.Logger) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{
		bucket: client.Bucket(bucketName),
		name:   bucketName,
		logger: logger,
	}, nil
}

// NewWriter opens a streaming writer. GCS commits the object on Close;
// cancelling ctx before Close aborts the upload with nothing persisted.
func (s *GCSStore) NewWriter(ctx context.Context, key, contentType string) io.WriteCloser {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	// Flush in 1MiB chunks so large archives stream instead of
	// accumulating in the client buffer.
	w.ChunkSize = 1 << 20
	return w
}

func (s *GCSStore) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrObjectNotExist
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return r, nil
}

func (s *GCSStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.bucket.Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return "", ErrObjectNotExist
		}
		return "", fmt.Errorf("stat object %s: %w", key, err)
	}

	url, err := s.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return url, nil
}

func (s *GCSStore) SignUploadPolicy(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadPolicy, error) {
	policy, err := s.bucket.GenerateSignedPostPolicyV4(key, &gcs.PostPolicyV4Options{
		Expires: time.Now().Add(ttl),
		Fields:  &gcs.PolicyV4Fields{ContentType: contentType},
	})
	if err != nil {
		return nil, fmt.Errorf("generate upload policy for %s: %w", key, err)
	}
	return &UploadPolicy{URL: policy.URL, Fields: policy.Fields}, nil
}
