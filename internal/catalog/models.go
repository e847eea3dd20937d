package catalog

import (
	"crypto/rand"
	"fmt"
	"time"
)

type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Bio       string    `json:"bio,omitempty"`
	Albums    []*Album  `json:"albums,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Album struct {
	ID           string    `json:"id"`
	ArtistID     string    `json:"artist_id"`
	Position     int       `json:"position"`
	Title        string    `json:"title"`
	DownloadLink string    `json:"download_link,omitempty"`
	Tracks       []*Track  `json:"tracks,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Track struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"album_id"`
	Position  int       `json:"position"`
	Title     string    `json:"title"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sample is one voice recording in the dataset catalog. Duration is nil
// when the upload pipeline could not measure it.
type Sample struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url,omitempty"`
	Path       string    `json:"path,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Tags       []string  `json:"tags"`
	Size       int64     `json:"size"`
	Mime       string    `json:"mime"`
	Duration   *float64  `json:"duration,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	ExportKindVoiceDataset = "voice_dataset"
	ExportKindAlbumZip     = "album_zip"

	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusEmpty     = "empty"
	ExportStatusFailed    = "failed"
)

// Export records one archive export run.
type Export struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	ObjectKey string    `json:"object_key,omitempty"`
	URL       string    `json:"url,omitempty"`
	Included  int       `json:"included"`
	Skipped   int       `json:"skipped"`
	Total     int       `json:"total"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Contact struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Interaction is one logged assistant exchange.
type Interaction struct {
	ID        string    `json:"id"`
	Page      string    `json:"page"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// TTSEntry is one cached text-to-speech response. ID is the cache key.
type TTSEntry struct {
	ID          string    `json:"id"`
	Voice       string    `json:"voice"`
	Text        string    `json:"text"`
	AudioBase64 string    `json:"audio_base64"`
	Mime        string    `json:"mime"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
