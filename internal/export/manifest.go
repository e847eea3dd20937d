package export

import "time"

// ManifestVersion is the manifest schema version.
const ManifestVersion = 2

// Manifest describes one archive run. It is embedded as the archive's
// first entry and mirrors the JSON shape dataset consumers rely on.
type Manifest struct {
	Version           int            `json:"version"`
	GeneratedAt       string         `json:"generatedAt"`
	Total             int            `json:"total"`
	Included          int            `json:"included"`
	Skipped           int            `json:"skipped"`
	RequireTranscript bool           `json:"requireTranscript"`
	MinDuration       float64        `json:"minDuration"`
	MaxDuration       float64        `json:"maxDuration"`
	Items             []ManifestItem `json:"items"`
}

// ManifestItem carries per-item metadata only, never binary data.
type ManifestItem struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	Transcript string   `json:"transcript"`
	Tags       []string `json:"tags"`
	Size       int64    `json:"size"`
	Mime       string   `json:"mime"`
	Duration   *float64 `json:"duration"`
}

// BuildManifest composes the manifest for a run from the final item set
// and the configuration that produced it. included+skipped always equals
// total.
func BuildManifest(items []Item, total int, cfg Config, now time.Time) Manifest {
	m := Manifest{
		Version:           ManifestVersion,
		GeneratedAt:       now.UTC().Format(time.RFC3339),
		Total:             total,
		Included:          len(items),
		Skipped:           total - len(items),
		RequireTranscript: cfg.RequireTranscript,
		MinDuration:       cfg.MinDuration,
		MaxDuration:       cfg.MaxDuration,
		Items:             make([]ManifestItem, 0, len(items)),
	}
	for _, item := range items {
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		m.Items = append(m.Items, ManifestItem{
			ID:         item.ID,
			Filename:   item.Filename,
			Transcript: item.Transcript,
			Tags:       tags,
			Size:       item.Size,
			Mime:       item.Mime,
			Duration:   item.Duration,
		})
	}
	return m
}
