// Package bundler combines several independent byte streams into a single
// addressable zip archive, preserving entry names.
//
// Policy: encrypt-then-bundle. Files are encrypted individually before they
// reach the bundler, so entry names stay readable in the container while the
// contents remain opaque to the storage tier. The server never unbundles;
// recipients unpack locally after decrypting per entry.
package bundler

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// Entry is one named byte stream inside a bundle.
type Entry struct {
	Name string
	Data []byte
}

// Bundle archives the given entries, in order, into a single zip blob.
// Entry names are preserved exactly; two entries may share a name (the zip
// format allows it, and deduplicating would silently drop data).
func Bundle(entries []Entry) ([]byte, string, error) {
	if len(entries) == 0 {
		return nil, "", common.ErrorNoFile
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			return nil, "", fmt.Errorf("creating archive entry %q: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, "", fmt.Errorf("writing archive entry %q: %w", e.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing archive: %w", err)
	}

	return buf.Bytes(), common.ZipContentType, nil
}

// Unbundle splits an archive produced by Bundle back into its entries.
// Only ever runs on the recipient side.
func Unbundle(archive []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening archive entry %q: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %q: %w", f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Data: data})
	}

	return entries, nil
}
