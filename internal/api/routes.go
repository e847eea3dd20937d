package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/arteregistrazioni/arte-server/internal/assistant"
	"github.com/arteregistrazioni/arte-server/internal/catalog"
	"github.com/arteregistrazioni/arte-server/internal/config"
	"github.com/arteregistrazioni/arte-server/internal/export"
	"github.com/arteregistrazioni/arte-server/internal/mailer"
	"github.com/arteregistrazioni/arte-server/internal/tts"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/artists", listArtistsHandler(cfg))
		r.Get("/artists/{id}", getArtistHandler(cfg))
		r.Get("/samples", listSamplesHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Post("/exports/voice-dataset", exportDatasetHandler(cfg))
		r.Post("/artists/{id}/albums/{index}/zip", exportAlbumHandler(cfg))
		r.Post("/contact", contactHandler(cfg))
		r.Post("/uploads/policy", uploadPolicyHandler(cfg))

		// Paid upstreams sit behind a shared token bucket.
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(rate.NewLimiter(rate.Every(time.Second), 5)))
			r.Post("/assistant/chat", chatHandler(cfg))
			r.Post("/assistant/chat/stream", chatStreamHandler(cfg))
			r.Post("/tts", ttsHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		artists, _ := cfg.CatalogService.GetArtists(ctx)
		samplesCount, _ := cfg.CatalogService.CountSamples(ctx)
		exports, _ := cfg.CatalogService.GetExports(ctx, 10)

		state := "idle"
		running := 0
		lastError := ""
		for _, e := range exports {
			if e.Status == catalog.ExportStatusRunning {
				state = "exporting"
				running++
			}
			if e.Status == catalog.ExportStatusFailed && lastError == "" {
				lastError = e.Error
			}
		}
		if lastError != "" && state == "idle" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:        state,
			ArtistsCount: len(artists),
			SamplesCount: samplesCount,
			ExportsOpen:  running,
			LastError:    lastError,
		})
	}
}

func listArtistsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artists, err := cfg.CatalogService.GetArtists(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list artists", "INTERNAL_ERROR")
			return
		}

		resp := ArtistsResponse{Artists: make([]ArtistResponse, len(artists))}
		for i, a := range artists {
			resp.Artists[i] = ArtistToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getArtistHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "artist id required", "BAD_REQUEST")
			return
		}

		artist, err := cfg.CatalogService.GetArtistDetail(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if artist == nil {
			WriteError(w, http.StatusNotFound, "artist not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, ArtistToResponse(artist))
	}
}

func listSamplesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		samples, err := cfg.CatalogService.GetSamples(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list samples", "INTERNAL_ERROR")
			return
		}

		resp := SamplesResponse{Samples: make([]SampleResponse, len(samples))}
		for i, s := range samples {
			resp.Samples[i] = SampleToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := cfg.CatalogService.GetExports(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportRecordResponse, len(exports))}
		for i, e := range exports {
			resp.Exports[i] = ExportToResponse(e)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func chatHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}

		reply, err := cfg.Assistant.Chat(r.Context(), req.Page, chatMessages(req))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "assistant error", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, reply)
	}
}

func chatStreamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		_, err := cfg.Assistant.ChatStream(r.Context(), req.Page, chatMessages(req), func(chunk string) error {
			payload, err := json.Marshal(map[string]string{"delta": chunk})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			// Headers are gone; end the stream with an error event.
			fmt.Fprint(w, "data: {\"error\":\"stream interrupted\"}\n\n")
			flusher.Flush()
			return
		}

		fmt.Fprint(w, "data: {\"done\":true}\n\n")
		flusher.Flush()
	}
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return nil, false
	}
	if len(req.Messages) == 0 {
		WriteError(w, http.StatusBadRequest, "messages must not be empty", "BAD_REQUEST")
		return nil, false
	}
	return &req, true
}

func chatMessages(req *ChatRequest) []assistant.Message {
	msgs := make([]assistant.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = assistant.Message{Role: m.Role, Text: m.Text}
	}
	return msgs
}

func contactHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		contact, err := cfg.Mailer.HandleContact(r.Context(), req.Email, req.Name, req.Message)
		if err != nil {
			if err == mailer.ErrInvalidEmail {
				WriteError(w, http.StatusBadRequest, "invalid email address", "BAD_REQUEST")
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, ContactResponse{ContactID: contact.ID, Status: "received"})
	}
}

func ttsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TTSRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		result, err := cfg.TTS.Synthesize(r.Context(), req.Text, req.Voice)
		if err != nil {
			if err == tts.ErrTextTooLong {
				WriteError(w, http.StatusBadRequest, "text too long", "BAD_REQUEST")
				return
			}
			WriteError(w, http.StatusBadGateway, "speech synthesis failed", "UPSTREAM_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func uploadPolicyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UploadPolicyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		filename := export.SanitizeName(req.Filename, 120)
		if filename == "" {
			WriteError(w, http.StatusBadRequest, "filename is required", "BAD_REQUEST")
			return
		}
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key := fmt.Sprintf("uploads/%s-%s", time.Now().UTC().Format("20060102T150405"), filename)
		policy, err := cfg.Store.SignUploadPolicy(r.Context(), key, contentType, cfg.UploadTTL)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to sign upload policy", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, UploadPolicyResponse{
			Key:    key,
			URL:    policy.URL,
			Fields: policy.Fields,
		})
	}
}
