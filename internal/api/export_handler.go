package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
	"github.com/arteregistrazioni/arte-server/internal/export"
	"github.com/arteregistrazioni/arte-server/internal/logging"
)

const (
	datasetURLTTL = time.Hour
	albumURLTTL   = 30 * 24 * time.Hour
)

// exportDatasetHandler runs the voice dataset export synchronously:
// filter the sample catalog, build the archive with its manifest, upload
// it and answer with a time-limited retrieval URL.
func exportDatasetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DatasetExportRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}

		runCfg := export.DefaultConfig()
		runCfg.MaxTotalBytes = cfg.ExportMaxBytes
		if req.RequireTranscript != nil {
			runCfg.RequireTranscript = *req.RequireTranscript
		}
		if req.MinDuration != nil {
			runCfg.MinDuration = *req.MinDuration
		}
		if req.MaxDuration != nil {
			runCfg.MaxDuration = *req.MaxDuration
		}
		if runCfg.MinDuration > runCfg.MaxDuration {
			WriteError(w, http.StatusBadRequest, "minDuration must not exceed maxDuration", "BAD_REQUEST")
			return
		}

		samples, err := cfg.CatalogService.GetSamples(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load samples", "INTERNAL_ERROR")
			return
		}

		record, err := cfg.CatalogService.BeginExport(r.Context(), catalog.ExportKindVoiceDataset)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to record export", "INTERNAL_ERROR")
			return
		}

		key := fmt.Sprintf("exports/voice-dataset-%s-%s.zip",
			time.Now().UTC().Format("20060102T150405"), record.ID[:8])

		result, err := cfg.Exporter.Run(r.Context(), export.Request{
			Key:          key,
			Items:        samplesToItems(samples),
			Config:       runCfg,
			Policy:       export.PolicySkipUnresolvable,
			Naming:       export.NameByFilename,
			EntryPrefix:  "audio/",
			WithManifest: true,
			SignedURLTTL: datasetURLTTL,
		})
		if err != nil {
			logging.WithExportID(cfg.Logger, record.ID).Error("voice dataset export failed", "error", err)
			cfg.CatalogService.FailExport(r.Context(), record, err.Error())
			WriteError(w, http.StatusBadGateway, "export failed", "EXPORT_FAILED")
			return
		}

		record.ObjectKey = key
		record.URL = result.ArchiveURL
		record.Included = result.Included
		record.Skipped = result.Skipped
		record.Total = result.Total
		record.UpdatedAt = time.Now().UTC()
		if err := cfg.CatalogService.CompleteExport(r.Context(), record); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to record export result", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, exportRunResponse(record))
	}
}

// exportAlbumHandler builds the downloadable album archive. A link
// minted by a previous run is reused; tracks are addressed by the
// album's position in the artist's discography.
func exportAlbumHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artistID := chi.URLParam(r, "id")
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if artistID == "" || err != nil || index < 0 {
			WriteError(w, http.StatusBadRequest, "artist id and album index required", "BAD_REQUEST")
			return
		}

		artist, album, err := cfg.CatalogService.GetAlbumWithTracks(r.Context(), artistID, index)
		if err != nil {
			cfg.Logger.Error("failed to load album", "artist_id", artistID, "index", index, "error", err)
			WriteError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
			return
		}
		if artist == nil {
			WriteError(w, http.StatusNotFound, "artist not found", "NOT_FOUND")
			return
		}
		if album == nil {
			WriteError(w, http.StatusNotFound, "album not found", "NOT_FOUND")
			return
		}

		if album.DownloadLink != "" {
			url := album.DownloadLink
			WriteJSON(w, http.StatusOK, ExportResponse{
				Status:     catalog.ExportStatusCompleted,
				ArchiveURL: &url,
				Included:   len(album.Tracks),
				Total:      len(album.Tracks),
			})
			return
		}

		// A track without a recorded link has no source to fetch; those
		// are counted as skipped rather than failing the whole album.
		items, linkless := linkedTrackItems(album.Tracks)
		if len(items) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "album has no downloadable tracks", "EMPTY_ALBUM")
			return
		}

		record, err := cfg.CatalogService.BeginExport(r.Context(), catalog.ExportKindAlbumZip)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to record export", "INTERNAL_ERROR")
			return
		}

		key := fmt.Sprintf("albums/%s-%s.zip", export.Slugify(artist.Name), export.Slugify(album.Title))

		result, err := cfg.Exporter.Run(r.Context(), export.Request{
			Key:   key,
			Items: items,
			Config: export.Config{
				MaxDuration:   math.MaxFloat64,
				MaxTotalBytes: cfg.ExportMaxBytes,
			},
			Policy:       export.PolicyAbort,
			Naming:       export.NameByIndex,
			SignedURLTTL: albumURLTTL,
		})
		if err != nil {
			logging.WithExportID(cfg.Logger, record.ID).Error("album export failed", "album_id", album.ID, "error", err)
			cfg.CatalogService.FailExport(r.Context(), record, err.Error())
			WriteError(w, http.StatusBadGateway, "export failed", "EXPORT_FAILED")
			return
		}

		record.ObjectKey = key
		record.URL = result.ArchiveURL
		record.Included = result.Included
		record.Skipped = result.Skipped + linkless
		record.Total = result.Total + linkless
		record.UpdatedAt = time.Now().UTC()
		if err := cfg.CatalogService.CompleteExport(r.Context(), record); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to record export result", "INTERNAL_ERROR")
			return
		}

		if result.ArchiveURL != "" {
			if err := cfg.Repository.UpdateAlbumDownloadLink(r.Context(), album.ID, result.ArchiveURL); err != nil {
				cfg.Logger.Warn("failed to persist album download link",
					"album_id", album.ID, "error", err)
			}
		}

		WriteJSON(w, http.StatusOK, exportRunResponse(record))
	}
}

func exportRunResponse(record *catalog.Export) ExportResponse {
	resp := ExportResponse{
		ExportID: record.ID,
		Status:   record.Status,
		Included: record.Included,
		Skipped:  record.Skipped,
		Total:    record.Total,
	}
	if record.URL != "" {
		url := record.URL
		resp.ArchiveURL = &url
	}
	return resp
}

func samplesToItems(samples []*catalog.Sample) []export.Item {
	items := make([]export.Item, len(samples))
	for i, s := range samples {
		items[i] = export.Item{
			ID:         s.ID,
			Title:      s.Filename,
			Filename:   s.Filename,
			URL:        s.URL,
			Path:       s.Path,
			Transcript: s.Transcript,
			Tags:       s.Tags,
			Size:       s.Size,
			Mime:       s.Mime,
			Duration:   s.Duration,
		}
	}
	return items
}

// linkedTrackItems converts the tracks that carry a source link and
// reports how many were dropped for lacking one.
func linkedTrackItems(tracks []*catalog.Track) ([]export.Item, int) {
	items := make([]export.Item, 0, len(tracks))
	linkless := 0
	for _, t := range tracks {
		if t.Link == "" {
			linkless++
			continue
		}
		items = append(items, export.Item{
			ID:    t.ID,
			Title: t.Title,
			URL:   t.Link,
		})
	}
	return items, linkless
}
