package snapshot

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var deterministicTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Entry is one file inside an archive.
type Entry struct {
	Name string
	Data []byte
}

// WriteArchive writes entries to path as a deflated zip. Entries are sorted
// and carry a fixed timestamp, so equal input gives byte-equal archives.
// An existing file at path is replaced.
func WriteArchive(path string, entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	seen := make(map[string]bool, len(sorted))
	for _, entry := range sorted {
		if seen[entry.Name] {
			return errors.Errorf("duplicate archive entry %s", entry.Name)
		}
		seen[entry.Name] = true

		header := &zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: deterministicTimestamp,
		}
		header.SetMode(0o644)
		w, err := writer.CreateHeader(header)
		if err != nil {
			return errors.Wrapf(err, "create entry %s", entry.Name)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return errors.Wrapf(err, "write entry %s", entry.Name)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "close archive")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ReadArchive returns the entries of the zip at path keyed by name.
func ReadArchive(path string) (map[string][]byte, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer reader.Close()

	files := make(map[string][]byte, len(reader.File))
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open entry %s", file.Name)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read entry %s", file.Name)
		}
		files[file.Name] = buf.Bytes()
	}
	return files, nil
}
