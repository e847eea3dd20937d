// Package storage abstracts the durable object store behind the export
// pipeline and the upload-policy endpoint: streamed writes keyed by path,
// streamed reads, time-bounded signed GET URLs and signed POST policies.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotExist is returned by readers and signers when the
// requested key has no committed object.
var ErrObjectNotExist = errors.New("storage: object does not exist")

// UploadPolicy is a signed POST policy a browser can use to upload one
// object directly to the store.
type UploadPolicy struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// ObjectStore is the durable object store contract. Writers stream;
// an object only becomes retrievable after a successful Close. A writer
// whose context is cancelled before Close must not leave a retrievable
// object behind.
type ObjectStore interface {
	NewWriter(ctx context.Context, key, contentType string) io.WriteCloser
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	SignUploadPolicy(ctx context.Context, key, contentType string, ttl time.Duration) (*UploadPolicy, error)
}
