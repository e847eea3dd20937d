package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

// ManifestEntryName is the fixed archive path of the manifest entry.
const ManifestEntryName = "manifest.json"

// ErrArchiveFinalized is returned when an entry is appended after Close.
var ErrArchiveFinalized = errors.New("export: archive already finalized")

// Archive is a streaming ZIP writer. Entries appear in the output in
// exactly the order they are appended; bytes reach the underlying writer
// incrementally, so large entries never need to fit in memory. The
// manifest is deflated (it is JSON); audio entries are stored unchanged
// since the codecs already compressed them.
type Archive struct {
	zw        *zip.Writer
	finalized bool
	now       func() time.Time
}

func NewArchive(w io.Writer) *Archive {
	return &Archive{zw: zip.NewWriter(w), now: time.Now}
}

// AddManifest writes the manifest entry. Call it first: consumers expect
// the archive to self-describe before any audio entry.
func (a *Archive) AddManifest(m Manifest) error {
	w, err := a.createEntry(ManifestEntryName, zip.Deflate)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// AddEntry streams content into a stored-mode entry under name.
func (a *Archive) AddEntry(name string, content io.Reader) error {
	w, err := a.createEntry(name, zip.Store)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, content); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

func (a *Archive) createEntry(name string, method uint16) (io.Writer, error) {
	if a.finalized {
		return nil, ErrArchiveFinalized
	}
	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: a.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create entry %s: %w", name, err)
	}
	return w, nil
}

// Close writes the central directory and ends the output stream. No
// entries may be appended afterwards.
func (a *Archive) Close() error {
	if a.finalized {
		return nil
	}
	a.finalized = true
	if err := a.zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
