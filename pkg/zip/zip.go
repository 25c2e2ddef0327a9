// Package zip streams groups of files into a single archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// Entry is one file to archive. Name is the path inside the archive.
type Entry struct {
	Name string
	Path string
}

// WriteArchive copies every entry into a zip written to w. Nothing is
// buffered in memory beyond the compressor window.
func WriteArchive(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := addFile(zw, e); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, e Entry) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("zip: open %s: %w", e.Name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("zip: stat %s: %w", e.Name, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip: header %s: %w", e.Name, err)
	}
	hdr.Name = e.Name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip: create %s: %w", e.Name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("zip: copy %s: %w", e.Name, err)
	}
	return nil
}
