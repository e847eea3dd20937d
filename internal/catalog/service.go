package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type CatalogService interface {
	GetArtists(ctx context.Context) ([]*Artist, error)
	GetArtistDetail(ctx context.Context, id string) (*Artist, error)
	GetAlbumWithTracks(ctx context.Context, artistID string, albumIndex int) (*Artist, *Album, error)
	GetSamples(ctx context.Context) ([]*Sample, error)
	CountSamples(ctx context.Context) (int, error)

	BeginExport(ctx context.Context, kind string) (*Export, error)
	CompleteExport(ctx context.Context, export *Export) error
	FailExport(ctx context.Context, export *Export, reason string) error
	GetExports(ctx context.Context, limit int) ([]*Export, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetArtists(ctx context.Context) ([]*Artist, error) {
	return s.repo.ListArtists(ctx)
}

// GetArtistDetail loads an artist with its albums and their tracks.
func (s *Service) GetArtistDetail(ctx context.Context, id string) (*Artist, error) {
	artist, err := s.repo.GetArtist(ctx, id)
	if err != nil || artist == nil {
		return artist, err
	}

	albums, err := s.repo.GetAlbums(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, album := range albums {
		tracks, err := s.repo.GetTracks(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		album.Tracks = tracks
	}
	artist.Albums = albums
	return artist, nil
}

// GetAlbumWithTracks resolves an album by its position within the
// artist's discography, matching how the storefront addresses albums.
func (s *Service) GetAlbumWithTracks(ctx context.Context, artistID string, albumIndex int) (*Artist, *Album, error) {
	artist, err := s.repo.GetArtist(ctx, artistID)
	if err != nil {
		return nil, nil, err
	}
	if artist == nil {
		return nil, nil, nil
	}

	albums, err := s.repo.GetAlbums(ctx, artistID)
	if err != nil {
		return nil, nil, err
	}
	if albumIndex < 0 || albumIndex >= len(albums) {
		return artist, nil, nil
	}

	album := albums[albumIndex]
	tracks, err := s.repo.GetTracks(ctx, album.ID)
	if err != nil {
		return nil, nil, err
	}
	album.Tracks = tracks
	return artist, album, nil
}

func (s *Service) GetSamples(ctx context.Context) ([]*Sample, error) {
	return s.repo.ListSamples(ctx)
}

func (s *Service) CountSamples(ctx context.Context) (int, error) {
	return s.repo.CountSamples(ctx)
}

func (s *Service) BeginExport(ctx context.Context, kind string) (*Export, error) {
	now := time.Now().UTC()
	export := &Export{
		ID:        NewID(),
		Kind:      kind,
		Status:    ExportStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateExport(ctx, export); err != nil {
		return nil, fmt.Errorf("create export record: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("export started", "export_id", export.ID, "kind", kind)
	}
	return export, nil
}

func (s *Service) CompleteExport(ctx context.Context, export *Export) error {
	if export.URL == "" {
		export.Status = ExportStatusEmpty
	} else {
		export.Status = ExportStatusCompleted
	}
	if err := s.repo.UpdateExport(ctx, export); err != nil {
		return fmt.Errorf("update export record: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("export finished",
			"export_id", export.ID,
			"status", export.Status,
			"included", export.Included,
			"skipped", export.Skipped,
			"total", export.Total,
		)
	}
	return nil
}

func (s *Service) FailExport(ctx context.Context, export *Export, reason string) error {
	export.Status = ExportStatusFailed
	export.Error = reason
	if err := s.repo.UpdateExport(ctx, export); err != nil {
		return fmt.Errorf("update export record: %w", err)
	}
	if s.logger != nil {
		s.logger.Error("export failed", "export_id", export.ID, "reason", reason)
	}
	return nil
}

func (s *Service) GetExports(ctx context.Context, limit int) ([]*Export, error) {
	return s.repo.ListExports(ctx, limit)
}
