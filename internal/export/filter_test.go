package export

import (
	"testing"
)

func dur(v float64) *float64 {
	return &v
}

func testConfig() Config {
	return Config{
		RequireTranscript: true,
		MinDuration:       0.2,
		MaxDuration:       60,
		MaxTotalBytes:     4000,
	}
}

func testCandidates() []Item {
	return []Item{
		{ID: "a", Transcript: "hi", Duration: dur(1.0), Size: 1000},
		{ID: "b", Transcript: "", Duration: dur(1.0), Size: 2000},
		{ID: "c", Transcript: "yo", Duration: dur(1.0), Size: 3000},
	}
}

func includedIDs(r FilterResult) []string {
	ids := make([]string, len(r.Included))
	for i, item := range r.Included {
		ids[i] = item.ID
	}
	return ids
}

func TestFilter_TranscriptAndCap(t *testing.T) {
	result := Filter(testCandidates(), testConfig())

	if got := includedIDs(result); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("included = %v, want [a c]", got)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if result.Total != 3 {
		t.Errorf("total = %d, want 3", result.Total)
	}
}

func TestFilter_CapTruncation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTotalBytes = 3500

	result := Filter(testCandidates(), cfg)

	if got := includedIDs(result); len(got) != 1 || got[0] != "a" {
		t.Fatalf("included = %v, want [a]", got)
	}
	if result.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", result.Skipped)
	}
}

func TestFilter_CapStopsAtFirstOverflow(t *testing.T) {
	// The item after the overflowing one would fit but must stay excluded.
	items := []Item{
		{ID: "a", Transcript: "x", Size: 1000},
		{ID: "big", Transcript: "x", Size: 5000},
		{ID: "small", Transcript: "x", Size: 10},
	}
	cfg := testConfig()

	result := Filter(items, cfg)

	if got := includedIDs(result); len(got) != 1 || got[0] != "a" {
		t.Fatalf("included = %v, want [a]", got)
	}
}

func TestFilter_Empty(t *testing.T) {
	result := Filter(nil, testConfig())

	if result.Total != 0 || result.Skipped != 0 || len(result.Included) != 0 {
		t.Fatalf("empty input result = %+v, want all zero", result)
	}
}

func TestFilter_UnknownDurationNeverRejected(t *testing.T) {
	items := []Item{{ID: "a", Transcript: "x", Duration: nil, Size: 10}}

	result := Filter(items, testConfig())

	if len(result.Included) != 1 {
		t.Fatalf("item with unknown duration was rejected")
	}
}

func TestFilter_DurationBoundsInclusive(t *testing.T) {
	cfg := testConfig()
	items := []Item{
		{ID: "min", Transcript: "x", Duration: dur(cfg.MinDuration), Size: 10},
		{ID: "max", Transcript: "x", Duration: dur(cfg.MaxDuration), Size: 10},
		{ID: "under", Transcript: "x", Duration: dur(cfg.MinDuration / 2), Size: 10},
		{ID: "over", Transcript: "x", Duration: dur(cfg.MaxDuration + 1), Size: 10},
	}

	result := Filter(items, cfg)

	if got := includedIDs(result); len(got) != 2 || got[0] != "min" || got[1] != "max" {
		t.Fatalf("included = %v, want [min max]", got)
	}
}

func TestFilter_WhitespaceTranscriptRejected(t *testing.T) {
	items := []Item{{ID: "a", Transcript: " \t\n", Size: 10}}

	result := Filter(items, testConfig())

	if len(result.Included) != 0 {
		t.Fatal("whitespace-only transcript was accepted")
	}
}

func TestFilter_CountInvariant(t *testing.T) {
	for _, cap := range []int64{0, 500, 1000, 3000, 3500, 4000, 10000} {
		cfg := testConfig()
		cfg.MaxTotalBytes = cap
		result := Filter(testCandidates(), cfg)
		if len(result.Included)+result.Skipped != result.Total {
			t.Errorf("cap %d: included %d + skipped %d != total %d",
				cap, len(result.Included), result.Skipped, result.Total)
		}
	}
}

func TestFilter_CapMonotonicity(t *testing.T) {
	// The included set for a smaller cap is always a prefix of the
	// included set for a larger cap.
	items := testCandidates()
	var prev []string
	for _, cap := range []int64{0, 999, 1000, 3999, 4000, 100000} {
		cfg := testConfig()
		cfg.MaxTotalBytes = cap
		got := includedIDs(Filter(items, cfg))
		if len(got) < len(prev) {
			t.Fatalf("cap %d: included shrank from %v to %v", cap, prev, got)
		}
		for i := range prev {
			if got[i] != prev[i] {
				t.Fatalf("cap %d: %v is not a prefix of %v", cap, prev, got)
			}
		}
		prev = got
	}
}

func TestFilter_Deterministic(t *testing.T) {
	first := Filter(testCandidates(), testConfig())
	second := Filter(testCandidates(), testConfig())

	if len(first.Included) != len(second.Included) || first.Skipped != second.Skipped {
		t.Fatalf("filter is not deterministic: %+v vs %+v", first, second)
	}
}
