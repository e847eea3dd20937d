package export

// Item is one exportable unit: a voice sample or a store track. Optional
// fields use pointers; a nil Duration means unknown, never zero.
type Item struct {
	ID         string
	Title      string
	Filename   string
	URL        string
	Path       string
	Transcript string
	Tags       []string
	Size       int64
	Mime       string
	Duration   *float64
}

// Config holds the recognized run parameters. All bounds are inclusive.
type Config struct {
	RequireTranscript bool
	MinDuration       float64
	MaxDuration       float64
	MaxTotalBytes     int64
}

// DefaultConfig mirrors the defaults the dataset endpoint advertises.
func DefaultConfig() Config {
	return Config{
		RequireTranscript: true,
		MinDuration:       0.2,
		MaxDuration:       60,
		MaxTotalBytes:     180 * 1024 * 1024,
	}
}

// FilterResult partitions a candidate list. Included preserves the
// original relative order.
type FilterResult struct {
	Included []Item
	Skipped  int
	Total    int
}

// Policy controls how a run reacts to an item whose source cannot be
// resolved to any byte stream. A source that resolves but then fails
// mid-fetch always aborts the run regardless of policy.
type Policy int

const (
	// PolicyAbort fails the whole run on the first unresolvable item.
	PolicyAbort Policy = iota
	// PolicySkipUnresolvable drops unresolvable items from the run and
	// counts them as skipped.
	PolicySkipUnresolvable
)

// Naming selects how archive entry names are derived.
type Naming int

const (
	// NameByFilename uses the item's catalog filename, sanitized.
	NameByFilename Naming = iota
	// NameByIndex uses "NN - Title.ext" with a 1-based zero-padded index.
	NameByIndex
)

// Result is the run's external return value. ArchiveURL is empty when
// zero items qualified and no archive was built.
type Result struct {
	ArchiveURL string
	Included   int
	Skipped    int
	Total      int
}
