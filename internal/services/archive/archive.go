// Package archive unpacks uploaded archives into named entries.
//
// We use the standard library's archive/zip reader. Uploads are already
// fully buffered in memory (the handler caps their size), so zip.NewReader
// over a bytes.Reader gives us random access without touching disk.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// Entry is a single item inside an archive.
type Entry interface {
	Name() string
	IsDir() bool
	// Data returns the decompressed content of the entry.
	Data() ([]byte, error)
}

// Extractor opens raw archive bytes and lists every entry in it.
//
// Go Pattern: Small interfaces at the consumer boundary. The upload service
// only needs "give me the entries", so tests can swap in a fake archive.
type Extractor interface {
	Open(data []byte) ([]Entry, error)
}

// ZipExtractor reads ZIP archives.
type ZipExtractor struct{}

// NewZipExtractor creates a ZIP-backed Extractor.
func NewZipExtractor() *ZipExtractor {
	return &ZipExtractor{}
}

// Open parses the central directory and returns the entries in archive order.
func (z *ZipExtractor) Open(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, zipEntry{f: f})
	}
	return entries, nil
}

// zipEntry adapts *zip.File to Entry.
type zipEntry struct {
	f *zip.File
}

func (e zipEntry) Name() string { return e.f.Name }

func (e zipEntry) IsDir() bool { return e.f.FileInfo().IsDir() }

func (e zipEntry) Data() ([]byte, error) {
	rc, err := e.f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", e.f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", e.f.Name, err)
	}
	return data, nil
}
