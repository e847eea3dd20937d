package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	CreateArtist(ctx context.Context, artist *Artist) error
	GetArtist(ctx context.Context, id string) (*Artist, error)
	ListArtists(ctx context.Context) ([]*Artist, error)
	CreateAlbum(ctx context.Context, album *Album) error
	CreateTrack(ctx context.Context, track *Track) error
	GetAlbums(ctx context.Context, artistID string) ([]*Album, error)
	GetTracks(ctx context.Context, albumID string) ([]*Track, error)
	UpdateAlbumDownloadLink(ctx context.Context, albumID, link string) error

	CreateSample(ctx context.Context, sample *Sample) error
	ListSamples(ctx context.Context) ([]*Sample, error)
	CountSamples(ctx context.Context) (int, error)

	CreateExport(ctx context.Context, export *Export) error
	GetExport(ctx context.Context, id string) (*Export, error)
	ListExports(ctx context.Context, limit int) ([]*Export, error)
	UpdateExport(ctx context.Context, export *Export) error

	CreateContact(ctx context.Context, contact *Contact) error

	CreateInteraction(ctx context.Context, interaction *Interaction) error
	ListRecentInteractions(ctx context.Context, limit int) ([]*Interaction, error)

	GetTTSEntry(ctx context.Context, id string) (*TTSEntry, error)
	PutTTSEntry(ctx context.Context, entry *TTSEntry) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateArtist(ctx context.Context, a *Artist) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO artists (id, name, slug, bio, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Slug, a.Bio, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetArtist(ctx context.Context, id string) (*Artist, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, bio, created_at FROM artists WHERE id = ?
	`, id)

	var a Artist
	var createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.Slug, &a.Bio, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) ListArtists(ctx context.Context) ([]*Artist, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, slug, bio, created_at FROM artists ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		var a Artist
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &a.Bio, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		artists = append(artists, &a)
	}
	return artists, rows.Err()
}

func (r *SQLiteRepository) CreateAlbum(ctx context.Context, a *Album) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO albums (id, artist_id, position, title, download_link, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.ArtistID, a.Position, a.Title, a.DownloadLink, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) CreateTrack(ctx context.Context, t *Track) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracks (id, album_id, position, title, link, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.AlbumID, t.Position, t.Title, t.Link, t.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAlbums(ctx context.Context, artistID string) ([]*Album, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, artist_id, position, title, download_link, created_at
		FROM albums WHERE artist_id = ? ORDER BY position
	`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		var a Album
		var createdAt string
		if err := rows.Scan(&a.ID, &a.ArtistID, &a.Position, &a.Title, &a.DownloadLink, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		albums = append(albums, &a)
	}
	return albums, rows.Err()
}

func (r *SQLiteRepository) GetTracks(ctx context.Context, albumID string) ([]*Track, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, album_id, position, title, link, created_at
		FROM tracks WHERE album_id = ? ORDER BY position
	`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		var t Track
		var createdAt string
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.Position, &t.Title, &t.Link, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		tracks = append(tracks, &t)
	}
	return tracks, rows.Err()
}

func (r *SQLiteRepository) UpdateAlbumDownloadLink(ctx context.Context, albumID, link string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE albums SET download_link = ? WHERE id = ?", link, albumID)
	return err
}

func (r *SQLiteRepository) CreateSample(ctx context.Context, s *Sample) error {
	tags, err := json.Marshal(s.Tags)
	if err != nil {
		return err
	}
	var duration any
	if s.Duration != nil {
		duration = *s.Duration
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO samples (id, filename, url, path, transcript, tags, size, mime, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Filename, s.URL, s.Path, s.Transcript, string(tags), s.Size, s.Mime, duration, s.CreatedAt.Format(time.RFC3339))
	return err
}

// ListSamples returns all voice samples in creation order. Export runs
// depend on this ordering being stable.
func (r *SQLiteRepository) ListSamples(ctx context.Context) ([]*Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, url, path, transcript, tags, size, mime, duration, created_at
		FROM samples ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*Sample
	for rows.Next() {
		var s Sample
		var tags, createdAt string
		var duration sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Filename, &s.URL, &s.Path, &s.Transcript, &tags, &s.Size, &s.Mime, &duration, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
			s.Tags = nil
		}
		if duration.Valid {
			d := duration.Float64
			s.Duration = &d
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}

func (r *SQLiteRepository) CountSamples(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, kind, status, object_key, url, included, skipped, total, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Kind, e.Status, e.ObjectKey, e.URL, e.Included, e.Skipped, e.Total, e.Error,
		e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*Export, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, status, object_key, url, included, skipped, total, error, created_at, updated_at
		FROM exports WHERE id = ?
	`, id)
	return scanExport(row)
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*Export, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, status, object_key, url, included, skipped, total, error, created_at, updated_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		var e Export
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Status, &e.ObjectKey, &e.URL, &e.Included, &e.Skipped, &e.Total, &e.Error, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		exports = append(exports, &e)
	}
	return exports, rows.Err()
}

func scanExport(row *sql.Row) (*Export, error) {
	var e Export
	var createdAt, updatedAt string
	err := row.Scan(&e.ID, &e.Kind, &e.Status, &e.ObjectKey, &e.URL, &e.Included, &e.Skipped, &e.Total, &e.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

func (r *SQLiteRepository) UpdateExport(ctx context.Context, e *Export) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, object_key = ?, url = ?, included = ?, skipped = ?, total = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, e.Status, e.ObjectKey, e.URL, e.Included, e.Skipped, e.Total, e.Error,
		time.Now().UTC().Format(time.RFC3339), e.ID)
	return err
}

func (r *SQLiteRepository) CreateContact(ctx context.Context, c *Contact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, email, name, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Email, c.Name, c.Message, c.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) CreateInteraction(ctx context.Context, i *Interaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ai_interactions (id, page, question, answer, category, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, i.ID, i.Page, i.Question, i.Answer, i.Category, i.Model, i.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) ListRecentInteractions(ctx context.Context, limit int) ([]*Interaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, page, question, answer, category, model, created_at
		FROM ai_interactions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []*Interaction
	for rows.Next() {
		var i Interaction
		var createdAt string
		if err := rows.Scan(&i.ID, &i.Page, &i.Question, &i.Answer, &i.Category, &i.Model, &createdAt); err != nil {
			return nil, err
		}
		i.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		interactions = append(interactions, &i)
	}
	return interactions, rows.Err()
}

func (r *SQLiteRepository) GetTTSEntry(ctx context.Context, id string) (*TTSEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, voice, text, audio_base64, mime, created_at FROM tts_cache WHERE id = ?
	`, id)

	var e TTSEntry
	var createdAt string
	err := row.Scan(&e.ID, &e.Voice, &e.Text, &e.AudioBase64, &e.Mime, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func (r *SQLiteRepository) PutTTSEntry(ctx context.Context, e *TTSEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tts_cache (id, voice, text, audio_base64, mime, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET audio_base64 = excluded.audio_base64, mime = excluded.mime, created_at = excluded.created_at
	`, e.ID, e.Voice, e.Text, e.AudioBase64, e.Mime, e.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
