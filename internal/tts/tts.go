// Package tts synthesizes speech through ElevenLabs, with a sqlite
// cache in front so repeated phrases never hit the API twice.
package tts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
)

const (
	baseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	modelID = "eleven_monolingual_v1"

	// MaxTextLen bounds a single synthesis request.
	MaxTextLen = 450

	cacheTTL = 7 * 24 * time.Hour
	// Responses past this size are served but not cached; the cache is
	// for short recurring phrases, not whole readings.
	maxCacheBytes = 800 * 1024

	requestTimeout = 30 * time.Second
)

// ErrTextTooLong is returned for requests past MaxTextLen.
var ErrTextTooLong = errors.New("tts: text too long")

// Store is the slice of the repository the synthesizer needs.
type Store interface {
	GetTTSEntry(ctx context.Context, id string) (*catalog.TTSEntry, error)
	PutTTSEntry(ctx context.Context, entry *catalog.TTSEntry) error
}

// Result is one synthesized utterance. Pending marks the stub reply
// served while no API key is configured.
type Result struct {
	AudioBase64 string `json:"audio_base64,omitempty"`
	Mime        string `json:"mime,omitempty"`
	Cached      bool   `json:"cached"`
	Pending     bool   `json:"pending,omitempty"`
}

type Service struct {
	apiKey  string
	voiceID string
	baseURL string
	repo    Store
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

func New(apiKey, voiceID string, repo Store, logger *slog.Logger) *Service {
	return &Service{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: baseURL,
		repo:    repo,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger.With(slog.String("component", "tts")),
		now:     time.Now,
	}
}

// CacheKey derives the cache row id for a voice/text pair.
func CacheKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "|" + text))
	return hex.EncodeToString(sum[:])[:40]
}

// Synthesize returns audio for text, preferring a fresh cache entry.
// An empty voice falls back to the configured default voice.
func (s *Service) Synthesize(ctx context.Context, text, voice string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts: empty text")
	}
	if len([]rune(text)) > MaxTextLen {
		return nil, ErrTextTooLong
	}
	if voice == "" {
		voice = s.voiceID
	}
	if s.apiKey == "" || voice == "" {
		return &Result{Pending: true}, nil
	}

	key := CacheKey(voice, text)
	if entry, err := s.repo.GetTTSEntry(ctx, key); err != nil {
		s.logger.Warn("tts cache lookup failed", slog.String("error", err.Error()))
	} else if entry != nil && s.now().Sub(entry.CreatedAt) < cacheTTL {
		return &Result{AudioBase64: entry.AudioBase64, Mime: entry.Mime, Cached: true}, nil
	}

	audio, mime, err := s.synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(audio)
	if len(audio) <= maxCacheBytes {
		entry := &catalog.TTSEntry{
			ID:          key,
			Voice:       voice,
			Text:        text,
			AudioBase64: encoded,
			Mime:        mime,
			CreatedAt:   s.now().UTC(),
		}
		if err := s.repo.PutTTSEntry(ctx, entry); err != nil {
			s.logger.Warn("tts cache store failed", slog.String("error", err.Error()))
		}
	}

	return &Result{AudioBase64: encoded, Mime: mime}, nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (s *Service) synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.45,
			SimilarityBoost: 0.85,
		},
	})
	if err != nil {
		return nil, "", err
	}

	url := fmt.Sprintf("%s/%s", s.baseURL, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("tts upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts read body: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return audio, mime, nil
}
