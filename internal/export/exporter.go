package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arteregistrazioni/arte-server/internal/storage"
)

// ErrUnresolvableSource marks an item whose locator points at neither a
// storage path nor a fetchable URL.
var ErrUnresolvableSource = errors.New("export: item source not resolvable")

// Request describes one archive export run.
type Request struct {
	// Key is the destination object key for the finished archive.
	Key string
	// Items are the pre-sorted candidates.
	Items []Item
	// Config holds the filter parameters.
	Config Config
	// Policy controls handling of unresolvable item sources.
	Policy Policy
	// Naming selects the entry-name scheme.
	Naming Naming
	// EntryPrefix is prepended to every entry name (e.g. "audio/").
	EntryPrefix string
	// WithManifest embeds a manifest as the archive's first entry.
	WithManifest bool
	// SignedURLTTL bounds the validity of the returned retrieval URL.
	SignedURLTTL time.Duration
}

// Exporter assembles remote audio assets into a single ZIP object and
// mints a retrieval URL for it. One run is strictly sequential: fetch
// item i, append it, then move to item i+1, so entry order is
// deterministic and at most one outbound connection is open.
type Exporter struct {
	store   storage.ObjectStore
	fetcher *Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

func NewExporter(store storage.ObjectStore, logger *slog.Logger) *Exporter {
	return &Exporter{
		store:   store,
		fetcher: NewFetcher(),
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the full pipeline: filter, manifest, fetch+append loop,
// finalize, upload, sign. Zero qualifying items is a normal outcome with
// an empty ArchiveURL; no sink or archive handle is opened for it. Any
// fetch or archive failure aborts the run and the partially written
// object is never committed.
func (e *Exporter) Run(ctx context.Context, req Request) (*Result, error) {
	total := len(req.Items)
	if total == 0 {
		return &Result{}, nil
	}

	filtered := Filter(req.Items, req.Config)
	final := filtered.Included
	if req.Policy == PolicySkipUnresolvable {
		resolvable := final[:0:len(final)]
		for _, item := range final {
			if e.resolvable(item) {
				resolvable = append(resolvable, item)
			} else if e.logger != nil {
				e.logger.Warn("skipping item with unresolvable source", "item_id", item.ID)
			}
		}
		final = resolvable
	}

	if len(final) == 0 {
		return &Result{Skipped: total, Total: total}, nil
	}

	if err := e.buildAndUpload(ctx, req, final, total); err != nil {
		return nil, err
	}

	signedURL, err := e.store.SignedURL(ctx, req.Key, req.SignedURLTTL)
	if err != nil {
		// The object is persisted but unreachable; surface the failure
		// rather than hiding it.
		return nil, fmt.Errorf("sign retrieval url: %w", err)
	}

	return &Result{
		ArchiveURL: signedURL,
		Included:   len(final),
		Skipped:    total - len(final),
		Total:      total,
	}, nil
}

// buildAndUpload connects the archive builder to the object store
// through an unbuffered pipe: the builder cannot outrun the upload, and
// an error on either side tears down the other. The object is committed
// only after the builder finished cleanly and the writer closed without
// error.
func (e *Exporter) buildAndUpload(ctx context.Context, req Request, items []Item, total int) error {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	// The writer gets its own cancelable context so a failed run can
	// abort the upload before Close; the store only commits an object
	// on a clean Close.
	wctx, abortWrite := context.WithCancel(gctx)
	defer abortWrite()

	g.Go(func() error {
		w := e.store.NewWriter(wctx, req.Key, "application/zip")
		if _, err := io.Copy(w, pr); err != nil {
			abortWrite()
			w.Close()
			pr.CloseWithError(err)
			return fmt.Errorf("upload archive: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("commit archive: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := e.build(gctx, pw, req, items, total); err != nil {
			pw.CloseWithError(err)
			return err
		}
		return pw.Close()
	})

	return g.Wait()
}

func (e *Exporter) build(ctx context.Context, w io.Writer, req Request, items []Item, total int) error {
	archive := NewArchive(w)

	if req.WithManifest {
		manifest := BuildManifest(items, total, req.Config, e.now())
		if err := archive.AddManifest(manifest); err != nil {
			return err
		}
	}

	for i, item := range items {
		name := req.EntryPrefix + e.entryName(item, i+1, req.Naming)

		src, err := e.open(ctx, item)
		if err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}

		appendErr := archive.AddEntry(name, src)
		src.Close()
		if appendErr != nil {
			return fmt.Errorf("item %s: %w", item.ID, appendErr)
		}

		if e.logger != nil {
			e.logger.Debug("appended archive entry", "item_id", item.ID, "entry", name)
		}
	}

	return archive.Close()
}

func (e *Exporter) entryName(item Item, index int, naming Naming) string {
	if naming == NameByIndex {
		return EntryName(item.Title, index, e.locator(item))
	}
	name := SanitizeName(item.Filename, maxEntryTitleRunes)
	if name == "" {
		name = EntryName(item.Title, index, e.locator(item))
	}
	return name
}

func (e *Exporter) locator(item Item) string {
	if item.Path != "" {
		return item.Path
	}
	return item.URL
}

// open resolves an item to a byte stream: a storage path (direct or
// re-derived from a recorded public URL) is read from the object store,
// anything else with an http(s) URL is fetched remotely.
func (e *Exporter) open(ctx context.Context, item Item) (io.ReadCloser, error) {
	if path := resolveStoragePath(item); path != "" {
		r, err := e.store.NewReader(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return r, nil
	}
	if isHTTPURL(item.URL) {
		return e.fetcher.Fetch(ctx, item.URL)
	}
	return nil, ErrUnresolvableSource
}

func (e *Exporter) resolvable(item Item) bool {
	return resolveStoragePath(item) != "" || isHTTPURL(item.URL)
}

// resolveStoragePath prefers the recorded storage path and otherwise
// re-derives one from a bucket-style public URL ("..../o/{path}?token=").
func resolveStoragePath(item Item) string {
	if item.Path != "" {
		return item.Path
	}
	_, after, found := strings.Cut(item.URL, "/o/")
	if !found {
		return ""
	}
	if i := strings.IndexByte(after, '?'); i >= 0 {
		after = after[:i]
	}
	decoded, err := url.QueryUnescape(after)
	if err != nil {
		return ""
	}
	return decoded
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
