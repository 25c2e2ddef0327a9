package character

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"narrator/internal/storage"
)

func newTestAcquirer(t *testing.T, client *http.Client) (*Acquirer, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	return NewAcquirer(Options{
		Store:        store,
		HTTPClient:   client,
		FetchTimeout: 2 * time.Second,
		Logger:       zerolog.New(io.Discard),
	}), store
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

func assertPlaceholder(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open placeholder: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("placeholder is not an image: %v", err)
	}
	if format != "png" || cfg.Width != PlaceholderSize || cfg.Height != PlaceholderSize {
		t.Fatalf("placeholder = %s %dx%d, want png 512x512", format, cfg.Width, cfg.Height)
	}
}

func TestAcquireDataURLRoundTrip(t *testing.T) {
	a, _ := newTestAcquirer(t, nil)
	original := samplePNG(t)
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(original)

	res, err := a.Acquire(context.Background(), ref, "job1")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if res.Tier != TierInline || !strings.HasSuffix(res.Path, "job1_character.png") {
		t.Fatalf("Acquire() = %+v", res)
	}
	written, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if !bytes.Equal(written, original) {
		t.Fatalf("decoded bytes differ from the original")
	}
}

func TestAcquireMalformedDataURLWritesPlaceholder(t *testing.T) {
	a, _ := newTestAcquirer(t, nil)
	for i, ref := range []string{
		"data:image/png;base64",
		"data:image/png;base64,@@@not-base64@@@",
		"data:image/png,plain-text-payload",
	} {
		jobID := "bad" + string(rune('a'+i))
		res, err := a.Acquire(context.Background(), ref, jobID)
		if err != nil {
			t.Fatalf("Acquire(%q) error: %v", ref, err)
		}
		if res.Tier != TierPlaceholder || !strings.HasSuffix(res.Path, jobID+"_character.png") {
			t.Fatalf("Acquire(%q) = %+v, want placeholder", ref, res)
		}
		assertPlaceholder(t, res.Path)
	}
}

func TestAcquireRemoteURL(t *testing.T) {
	original := samplePNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/char.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(original)
	}))
	defer srv.Close()

	a, _ := newTestAcquirer(t, srv.Client())

	res, err := a.Acquire(context.Background(), srv.URL+"/char.png", "job2")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if res.Tier != TierRemote {
		t.Fatalf("tier = %q, want remote", res.Tier)
	}
	written, _ := os.ReadFile(res.Path)
	if !bytes.Equal(written, original) {
		t.Fatalf("downloaded bytes differ from the served content")
	}

	res, err = a.Acquire(context.Background(), srv.URL+"/missing.png", "job3")
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if res.Tier != TierPlaceholder {
		t.Fatalf("tier = %q, want placeholder on 404", res.Tier)
	}
	assertPlaceholder(t, res.Path)
}

func TestAcquireUnreachableURLWritesPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	a, _ := newTestAcquirer(t, nil)
	for i, ref := range []string{addr + "/gone.png", "not a url", "ftp://example.invalid/x.png"} {
		jobID := "unreach" + string(rune('a'+i))
		res, err := a.Acquire(context.Background(), ref, jobID)
		if err != nil {
			t.Fatalf("Acquire(%q) error: %v", ref, err)
		}
		if res.Tier != TierPlaceholder {
			t.Fatalf("Acquire(%q) tier = %q, want placeholder", ref, res.Tier)
		}
		assertPlaceholder(t, res.Path)
	}
}

func TestPlaceholderIsGray(t *testing.T) {
	data, err := Placeholder()
	if err != nil {
		t.Fatalf("Placeholder() error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 128 || g>>8 != 128 || b>>8 != 128 {
		t.Fatalf("corner pixel = %d,%d,%d; want gray 128", r>>8, g>>8, b>>8)
	}
}
