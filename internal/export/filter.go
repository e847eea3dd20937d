package export

import "strings"

// Filter partitions candidates into included and skipped per the run
// configuration. Pure and deterministic; candidates arrive pre-sorted
// and are never reordered.
//
// Acceptance is per-item (transcript, then duration bounds), followed by
// the cumulative byte cap: items are accepted in order while the running
// total stays within MaxTotalBytes, and the walk stops at the first item
// that would overflow. Items after that point are excluded even if they
// would individually fit.
func Filter(candidates []Item, cfg Config) FilterResult {
	result := FilterResult{Total: len(candidates)}
	if len(candidates) == 0 {
		return result
	}

	precap := make([]Item, 0, len(candidates))
	for _, item := range candidates {
		if cfg.RequireTranscript && strings.TrimSpace(item.Transcript) == "" {
			continue
		}
		if item.Duration != nil && (*item.Duration < cfg.MinDuration || *item.Duration > cfg.MaxDuration) {
			continue
		}
		precap = append(precap, item)
	}

	var runningTotal int64
	for _, item := range precap {
		if runningTotal+item.Size > cfg.MaxTotalBytes {
			break
		}
		runningTotal += item.Size
		result.Included = append(result.Included, item)
	}

	result.Skipped = result.Total - len(result.Included)
	return result
}
