package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// MemStore is an in-memory ObjectStore used in development mode and in
// tests. Signed URLs are synthetic but shaped like real ones.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	logger  *slog.Logger
}

func NewMemStore(logger *slog.Logger) *MemStore {
	return &MemStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		logger:  logger,
	}
}

type memWriter struct {
	ctx   context.Context
	store *MemStore
	key   string
	ct    string
	buf   bytes.Buffer
	done  bool
}

func (s *MemStore) NewWriter(ctx context.Context, key, contentType string) io.WriteCloser {
	return &memWriter{ctx: ctx, store: s, key: key, ct: contentType}
}

func (w *memWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	return w.buf.Write(p)
}

// Close commits the object. A cancelled context aborts the upload and
// leaves the key absent, matching real object-store semantics.
func (w *memWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.objects[w.key] = append([]byte(nil), w.buf.Bytes()...)
	w.store.types[w.key] = w.ct
	return nil
}

func (s *MemStore) NewReader(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", ErrObjectNotExist
	}
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("https://storage.local/%s?expires=%d", key, expires), nil
}

func (s *MemStore) SignUploadPolicy(_ context.Context, key, contentType string, ttl time.Duration) (*UploadPolicy, error) {
	expires := time.Now().Add(ttl)
	return &UploadPolicy{
		URL: "https://storage.local/upload",
		Fields: map[string]string{
			"key":          key,
			"Content-Type": contentType,
			"expires":      expires.UTC().Format(time.RFC3339),
		},
	}, nil
}

// Has reports whether a committed object exists for key.
func (s *MemStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Object returns a copy of the committed bytes for key.
func (s *MemStore) Object(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.objects[key]...)
}

// Put commits an object directly, bypassing the writer. Test helper.
func (s *MemStore) Put(key, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.types[key] = contentType
}

// Keys returns the committed object keys.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
