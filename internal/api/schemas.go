package api

import (
	"time"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State        string `json:"state"`
	ArtistsCount int    `json:"artists_count"`
	SamplesCount int    `json:"samples_count"`
	ExportsOpen  int    `json:"exports_running"`
	LastError    string `json:"last_error,omitempty"`
}

type ArtistResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Bio       string          `json:"bio,omitempty"`
	Albums    []AlbumResponse `json:"albums,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type ArtistsResponse struct {
	Artists []ArtistResponse `json:"artists"`
}

type AlbumResponse struct {
	ID           string          `json:"id"`
	Position     int             `json:"position"`
	Title        string          `json:"title"`
	DownloadLink string          `json:"download_link,omitempty"`
	Tracks       []TrackResponse `json:"tracks,omitempty"`
}

type TrackResponse struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Title    string `json:"title"`
}

type SampleResponse struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	Transcript string   `json:"transcript,omitempty"`
	Tags       []string `json:"tags"`
	Size       int64    `json:"size"`
	Mime       string   `json:"mime"`
	Duration   *float64 `json:"duration,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

type SamplesResponse struct {
	Samples []SampleResponse `json:"samples"`
}

// DatasetExportRequest carries optional filter overrides; absent fields
// keep the advertised defaults.
type DatasetExportRequest struct {
	RequireTranscript *bool    `json:"requireTranscript,omitempty"`
	MinDuration       *float64 `json:"minDuration,omitempty"`
	MaxDuration       *float64 `json:"maxDuration,omitempty"`
}

// ExportResponse reports one finished export run. ArchiveURL is null
// when no item qualified.
type ExportResponse struct {
	ExportID   string  `json:"export_id"`
	Status     string  `json:"status"`
	ArchiveURL *string `json:"archiveUrl"`
	Included   int     `json:"included"`
	Skipped    int     `json:"skipped"`
	Total      int     `json:"total"`
}

type ExportRecordResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Included  int    `json:"included"`
	Skipped   int    `json:"skipped"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ExportsResponse struct {
	Exports []ExportRecordResponse `json:"exports"`
}

type ChatRequest struct {
	Page     string             `json:"page,omitempty"`
	Messages []ChatMessageInput `json:"messages"`
}

type ChatMessageInput struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type ContactRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

type ContactResponse struct {
	ContactID string `json:"contact_id"`
	Status    string `json:"status"`
}

type TTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type UploadPolicyRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
}

type UploadPolicyResponse struct {
	Key    string            `json:"key"`
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ArtistToResponse(a *catalog.Artist) ArtistResponse {
	resp := ArtistResponse{
		ID:        a.ID,
		Name:      a.Name,
		Slug:      a.Slug,
		Bio:       a.Bio,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	for _, album := range a.Albums {
		resp.Albums = append(resp.Albums, AlbumToResponse(album))
	}
	return resp
}

func AlbumToResponse(a *catalog.Album) AlbumResponse {
	resp := AlbumResponse{
		ID:           a.ID,
		Position:     a.Position,
		Title:        a.Title,
		DownloadLink: a.DownloadLink,
	}
	for _, t := range a.Tracks {
		resp.Tracks = append(resp.Tracks, TrackResponse{ID: t.ID, Position: t.Position, Title: t.Title})
	}
	return resp
}

func SampleToResponse(s *catalog.Sample) SampleResponse {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return SampleResponse{
		ID:         s.ID,
		Filename:   s.Filename,
		Transcript: s.Transcript,
		Tags:       tags,
		Size:       s.Size,
		Mime:       s.Mime,
		Duration:   s.Duration,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

func ExportToResponse(e *catalog.Export) ExportRecordResponse {
	return ExportRecordResponse{
		ID:        e.ID,
		Kind:      e.Kind,
		Status:    e.Status,
		Included:  e.Included,
		Skipped:   e.Skipped,
		Total:     e.Total,
		Error:     e.Error,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}
