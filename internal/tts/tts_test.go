package tts

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
)

type fakeStore struct {
	entries map[string]*catalog.TTSEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*catalog.TTSEntry)}
}

func (f *fakeStore) GetTTSEntry(_ context.Context, id string) (*catalog.TTSEntry, error) {
	return f.entries[id], nil
}

func (f *fakeStore) PutTTSEntry(_ context.Context, e *catalog.TTSEntry) error {
	f.entries[e.ID] = e
	return nil
}

func testService(t *testing.T, srv *httptest.Server, store Store) *Service {
	t.Helper()
	svc := New("test-key", "voce-1", store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if srv != nil {
		svc.baseURL = srv.URL
	}
	return svc
}

func TestSynthesizeCachesShortAudio(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/voce-1") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	store := newFakeStore()
	svc := testService(t, srv, store)

	res, err := svc.Synthesize(context.Background(), "Benvenuto su Arte Registrazioni", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Cached {
		t.Error("first synthesis must not be cached")
	}
	if res.AudioBase64 != base64.StdEncoding.EncodeToString([]byte("mp3-bytes")) {
		t.Errorf("unexpected audio payload: %q", res.AudioBase64)
	}
	if res.Mime != "audio/mpeg" {
		t.Errorf("unexpected mime: %q", res.Mime)
	}

	res2, err := svc.Synthesize(context.Background(), "Benvenuto su Arte Registrazioni", "")
	if err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}
	if !res2.Cached {
		t.Error("second synthesis should hit the cache")
	}
	if calls != 1 {
		t.Errorf("expected one upstream call, got %d", calls)
	}
}

func TestSynthesizeExpiredCacheRefetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	store := newFakeStore()
	key := CacheKey("voce-1", "ciao")
	store.entries[key] = &catalog.TTSEntry{
		ID:          key,
		Voice:       "voce-1",
		Text:        "ciao",
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("stale")),
		Mime:        "audio/mpeg",
		CreatedAt:   time.Now().Add(-8 * 24 * time.Hour),
	}
	svc := testService(t, srv, store)

	res, err := svc.Synthesize(context.Background(), "ciao", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Cached {
		t.Error("expired entry must not be served from cache")
	}
	if res.AudioBase64 != base64.StdEncoding.EncodeToString([]byte("fresh")) {
		t.Error("expected refetched audio")
	}
}

func TestSynthesizeSkipsCachingLargeAudio(t *testing.T) {
	big := make([]byte, maxCacheBytes+1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer srv.Close()

	store := newFakeStore()
	svc := testService(t, srv, store)

	res, err := svc.Synthesize(context.Background(), "lettura lunga", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.AudioBase64 == "" {
		t.Fatal("expected audio in response")
	}
	if len(store.entries) != 0 {
		t.Errorf("oversized audio must not be cached, got %d entries", len(store.entries))
	}
}

func TestSynthesizeTextTooLong(t *testing.T) {
	svc := testService(t, nil, newFakeStore())
	_, err := svc.Synthesize(context.Background(), strings.Repeat("a", MaxTextLen+1), "")
	if err != ErrTextTooLong {
		t.Fatalf("expected ErrTextTooLong, got %v", err)
	}
}

func TestSynthesizeUnconfigured(t *testing.T) {
	svc := New("", "", newFakeStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	res, err := svc.Synthesize(context.Background(), "ciao", "")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !res.Pending {
		t.Error("expected pending result without an api key")
	}
}

func TestSynthesizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	svc := testService(t, srv, newFakeStore())

	_, err := svc.Synthesize(context.Background(), "ciao", "")
	if err == nil {
		t.Fatal("expected error on upstream failure")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("v", "ciao")
	if a != CacheKey("v", "ciao") {
		t.Error("cache key must be deterministic")
	}
	if len(a) != 40 {
		t.Errorf("expected 40-char key, got %d", len(a))
	}
	if a == CacheKey("w", "ciao") || a == CacheKey("v", "ciao!") {
		t.Error("key must depend on both voice and text")
	}
}
