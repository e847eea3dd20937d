package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arteregistrazioni/arte-server/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func seedArtist(t *testing.T, repo Repository, name string) *Artist {
	t.Helper()
	artist := &Artist{
		ID:        NewID(),
		Name:      name,
		Slug:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateArtist(context.Background(), artist); err != nil {
		t.Fatalf("CreateArtist() error = %v", err)
	}
	return artist
}

func seedAlbum(t *testing.T, repo Repository, artistID string, position int, title string, trackTitles ...string) *Album {
	t.Helper()
	ctx := context.Background()
	album := &Album{
		ID:        NewID(),
		ArtistID:  artistID,
		Position:  position,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateAlbum(ctx, album); err != nil {
		t.Fatalf("CreateAlbum() error = %v", err)
	}
	for i, tt := range trackTitles {
		track := &Track{
			ID:        NewID(),
			AlbumID:   album.ID,
			Position:  i + 1,
			Title:     tt,
			Link:      "https://cdn.example.com/" + tt + ".mp3",
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.CreateTrack(ctx, track); err != nil {
			t.Fatalf("CreateTrack() error = %v", err)
		}
	}
	return album
}

func TestService_GetArtistDetail(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	artist := seedArtist(t, repo, "asha-duo")
	seedAlbum(t, repo, artist.ID, 1, "Notturni", "Preludio", "Notturno")
	seedAlbum(t, repo, artist.ID, 2, "Diurni")

	got, err := svc.GetArtistDetail(context.Background(), artist.ID)
	if err != nil {
		t.Fatalf("GetArtistDetail() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetArtistDetail() returned nil artist")
	}
	if len(got.Albums) != 2 {
		t.Fatalf("albums = %d, want 2", len(got.Albums))
	}
	if got.Albums[0].Title != "Notturni" {
		t.Errorf("first album = %q, want Notturni (position order)", got.Albums[0].Title)
	}
	if len(got.Albums[0].Tracks) != 2 {
		t.Errorf("tracks = %d, want 2", len(got.Albums[0].Tracks))
	}
	if got.Albums[0].Tracks[0].Title != "Preludio" {
		t.Errorf("first track = %q, want Preludio", got.Albums[0].Tracks[0].Title)
	}
}

func TestService_GetArtistDetail_Missing(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	got, err := svc.GetArtistDetail(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetArtistDetail() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetArtistDetail() = %+v, want nil", got)
	}
}

func TestService_GetAlbumWithTracks(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	artist := seedArtist(t, repo, "asha-duo")
	seedAlbum(t, repo, artist.ID, 1, "Notturni", "Preludio")
	seedAlbum(t, repo, artist.ID, 2, "Diurni", "Alba", "Meriggio")

	gotArtist, album, err := svc.GetAlbumWithTracks(context.Background(), artist.ID, 1)
	if err != nil {
		t.Fatalf("GetAlbumWithTracks() error = %v", err)
	}
	if gotArtist == nil || album == nil {
		t.Fatal("expected artist and album")
	}
	if album.Title != "Diurni" {
		t.Errorf("album = %q, want Diurni", album.Title)
	}
	if len(album.Tracks) != 2 {
		t.Errorf("tracks = %d, want 2", len(album.Tracks))
	}
}

func TestService_GetAlbumWithTracks_IndexOutOfRange(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	artist := seedArtist(t, repo, "asha-duo")
	seedAlbum(t, repo, artist.ID, 1, "Notturni")

	gotArtist, album, err := svc.GetAlbumWithTracks(context.Background(), artist.ID, 5)
	if err != nil {
		t.Fatalf("GetAlbumWithTracks() error = %v", err)
	}
	if gotArtist == nil {
		t.Fatal("artist should still be returned for a bad index")
	}
	if album != nil {
		t.Fatalf("album = %+v, want nil", album)
	}
}

func TestRepository_UpdateAlbumDownloadLink(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	artist := seedArtist(t, repo, "asha-duo")
	album := seedAlbum(t, repo, artist.ID, 1, "Notturni")

	link := "https://storage.local/albums/notturni.zip?expires=1"
	if err := repo.UpdateAlbumDownloadLink(context.Background(), album.ID, link); err != nil {
		t.Fatalf("UpdateAlbumDownloadLink() error = %v", err)
	}

	albums, err := repo.GetAlbums(context.Background(), artist.ID)
	if err != nil {
		t.Fatalf("GetAlbums() error = %v", err)
	}
	if albums[0].DownloadLink != link {
		t.Errorf("download link = %q, want %q", albums[0].DownloadLink, link)
	}
}

func TestRepository_SamplesOrderedByCreation(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d := 1.5
	for i, name := range []string{"uno.wav", "due.wav", "tre.wav"} {
		sample := &Sample{
			ID:         NewID(),
			Filename:   name,
			URL:        "https://cdn.example.com/" + name,
			Transcript: name,
			Tags:       []string{"it"},
			Size:       100,
			Mime:       "audio/wav",
			Duration:   &d,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateSample(ctx, sample); err != nil {
			t.Fatalf("CreateSample() error = %v", err)
		}
	}

	samples, err := repo.ListSamples(ctx)
	if err != nil {
		t.Fatalf("ListSamples() error = %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(samples))
	}
	for i, want := range []string{"uno.wav", "due.wav", "tre.wav"} {
		if samples[i].Filename != want {
			t.Errorf("samples[%d] = %q, want %q", i, samples[i].Filename, want)
		}
	}
	if samples[0].Tags[0] != "it" {
		t.Errorf("tags not round-tripped: %v", samples[0].Tags)
	}
	if samples[0].Duration == nil || *samples[0].Duration != 1.5 {
		t.Errorf("duration not round-tripped: %v", samples[0].Duration)
	}

	count, err := repo.CountSamples(ctx)
	if err != nil || count != 3 {
		t.Errorf("CountSamples() = %d, %v, want 3", count, err)
	}
}

func TestRepository_NullDuration(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	sample := &Sample{
		ID:        NewID(),
		Filename:  "senza-durata.wav",
		Size:      10,
		Mime:      "audio/wav",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateSample(ctx, sample); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}

	samples, err := repo.ListSamples(ctx)
	if err != nil {
		t.Fatalf("ListSamples() error = %v", err)
	}
	if samples[0].Duration != nil {
		t.Errorf("duration = %v, want nil", samples[0].Duration)
	}
}

func TestService_ExportLifecycle(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	record, err := svc.BeginExport(ctx, ExportKindVoiceDataset)
	if err != nil {
		t.Fatalf("BeginExport() error = %v", err)
	}
	if record.Status != ExportStatusRunning {
		t.Fatalf("status = %q, want running", record.Status)
	}

	record.URL = "https://storage.local/exports/x.zip?expires=1"
	record.Included = 2
	record.Skipped = 1
	record.Total = 3
	if err := svc.CompleteExport(ctx, record); err != nil {
		t.Fatalf("CompleteExport() error = %v", err)
	}

	got, err := repo.GetExport(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if got.Status != ExportStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Included != 2 || got.Skipped != 1 || got.Total != 3 {
		t.Errorf("counters = %d/%d/%d, want 2/1/3", got.Included, got.Skipped, got.Total)
	}
}

func TestService_CompleteExport_EmptyRun(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	record, err := svc.BeginExport(ctx, ExportKindVoiceDataset)
	if err != nil {
		t.Fatalf("BeginExport() error = %v", err)
	}
	record.Total = 4
	record.Skipped = 4
	if err := svc.CompleteExport(ctx, record); err != nil {
		t.Fatalf("CompleteExport() error = %v", err)
	}

	got, _ := repo.GetExport(ctx, record.ID)
	if got.Status != ExportStatusEmpty {
		t.Errorf("status = %q, want empty", got.Status)
	}
}

func TestService_FailExport(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	record, err := svc.BeginExport(ctx, ExportKindAlbumZip)
	if err != nil {
		t.Fatalf("BeginExport() error = %v", err)
	}
	if err := svc.FailExport(ctx, record, "fetch audio: 502"); err != nil {
		t.Fatalf("FailExport() error = %v", err)
	}

	got, _ := repo.GetExport(ctx, record.ID)
	if got.Status != ExportStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error != "fetch audio: 502" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestRepository_InteractionsRecentFirst(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, answer := range []string{"prima", "seconda", "terza"} {
		it := &Interaction{
			ID:        NewID(),
			Page:      "musica",
			Question:  "q",
			Answer:    answer,
			Category:  "general",
			Model:     "gpt-4o-mini",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateInteraction(ctx, it); err != nil {
			t.Fatalf("CreateInteraction() error = %v", err)
		}
	}

	recent, err := repo.ListRecentInteractions(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecentInteractions() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d, want 2", len(recent))
	}
	if recent[0].Answer != "terza" || recent[1].Answer != "seconda" {
		t.Errorf("order = %q, %q, want terza, seconda", recent[0].Answer, recent[1].Answer)
	}
}

func TestRepository_TTSEntryUpsert(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	entry := &TTSEntry{
		ID:          "abc123",
		Voice:       "voce-1",
		Text:        "ciao",
		AudioBase64: "b2xk",
		Mime:        "audio/mpeg",
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.PutTTSEntry(ctx, entry); err != nil {
		t.Fatalf("PutTTSEntry() error = %v", err)
	}

	entry.AudioBase64 = "bmV3"
	if err := repo.PutTTSEntry(ctx, entry); err != nil {
		t.Fatalf("PutTTSEntry() upsert error = %v", err)
	}

	got, err := repo.GetTTSEntry(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetTTSEntry() error = %v", err)
	}
	if got.AudioBase64 != "bmV3" {
		t.Errorf("audio = %q, want bmV3", got.AudioBase64)
	}

	missing, err := repo.GetTTSEntry(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetTTSEntry(missing) = %v, %v, want nil, nil", missing, err)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	if err := repo.SetConfig(ctx, "auth_token", "secret"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	got, err := repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got != "secret" {
		t.Errorf("GetConfig() = %q, want secret", got)
	}
}
