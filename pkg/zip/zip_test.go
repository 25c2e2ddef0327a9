package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"a_voice.txt": "hola", "a_animated.txt": "frames"}
	var entries []Entry
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		entries = append(entries, Entry{Name: name, Path: path})
	}

	var buf bytes.Buffer
	if err := WriteArchive(&buf, entries); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != len(files) {
		t.Fatalf("expected %d entries, got %d", len(files), len(zr.File))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		got, _ := io.ReadAll(rc)
		rc.Close()
		if string(got) != files[f.Name] {
			t.Fatalf("%s: got %q", f.Name, got)
		}
	}
}

func TestWriteArchiveMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := WriteArchive(&buf, []Entry{{Name: "x", Path: filepath.Join(t.TempDir(), "missing")}})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
