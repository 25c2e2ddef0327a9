package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"narrator/internal/domain"
)

func TestNewFileStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if info, err := os.Stat(store.BasePath()); err != nil || !info.IsDir() {
		t.Fatalf("base path not created: %v", err)
	}
	if _, err := NewFileStore(dir); err != nil {
		t.Fatalf("NewFileStore() second call error: %v", err)
	}
}

func TestNewFileStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("NewFileStore() expected error for empty path")
	}
}

func TestWriteAndResolve(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	path, err := store.Write(context.Background(), "job_voice.txt", []byte("hola"))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if path != store.Path("job_voice.txt") {
		t.Fatalf("Write() path = %q", path)
	}
	resolved, info, err := store.Resolve("job_voice.txt")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if resolved != path || info.Size() != 4 {
		t.Fatalf("Resolve() = %q size %d", resolved, info.Size())
	}
}

func TestWriteReplacesWithoutLeftovers(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	ctx := context.Background()
	for _, body := range []string{"first draft", "final"} {
		if _, err := store.Write(ctx, "job_animated.txt", []byte(body)); err != nil {
			t.Fatalf("Write() error: %v", err)
		}
	}
	got, err := os.ReadFile(store.Path("job_animated.txt"))
	if err != nil || string(got) != "final" {
		t.Fatalf("content = %q, %v", got, err)
	}
	entries, err := os.ReadDir(store.BasePath())
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected files %v", names)
	}
	info, err := os.Stat(store.Path("job_animated.txt"))
	if err != nil || info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v, %v", info, err)
	}
}

func TestResolveRejectsTraversalAndMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	for _, name := range []string{"missing.mp3", "../etc/passwd", "a/b.png", "..", ""} {
		if _, _, err := store.Resolve(name); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Resolve(%q) error = %v, want ErrNotFound", name, err)
		}
	}
	if _, err := store.Write(context.Background(), "../escape.txt", nil); err == nil {
		t.Fatalf("Write() expected error for traversal")
	}
}

func TestFindArtifactPrefersEarlierExtension(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	ctx := context.Background()
	if _, ok := store.FindArtifact("j1", domain.ArtifactAnimated, domain.AnimatedExts); ok {
		t.Fatalf("FindArtifact() found artifact in empty store")
	}
	for _, name := range []string{"j1_animated.txt", "j1_animated.gif"} {
		if _, err := store.Write(ctx, name, []byte("x")); err != nil {
			t.Fatalf("Write(%q) error: %v", name, err)
		}
	}
	name, ok := store.FindArtifact("j1", domain.ArtifactAnimated, domain.AnimatedExts)
	if !ok || name != "j1_animated.gif" {
		t.Fatalf("FindArtifact() = %q, %v; want j1_animated.gif", name, ok)
	}
}
