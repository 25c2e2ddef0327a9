// Package character fetches the character image of a narration job.
package character

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"narrator/internal/domain"
	"narrator/internal/infra"
	"narrator/internal/pipeline"
	"narrator/internal/storage"
)

// Tier names.
const (
	TierInline      = "inline"
	TierRemote      = "remote"
	TierPlaceholder = "placeholder"
)

const (
	PlaceholderSize = 512
	placeholderText = "Error loading image"
	// maxImageBytes bounds remote downloads.
	maxImageBytes = 32 << 20
)

// Options wires an Acquirer.
type Options struct {
	Store        *storage.FileStore
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	Logger       infra.Logger
}

// Acquirer stores the character image of a job as {job}_character.png.
type Acquirer struct {
	store   *storage.FileStore
	client  *http.Client
	timeout time.Duration
	logger  infra.Logger
}

func NewAcquirer(opts Options) *Acquirer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Acquirer{store: opts.Store, client: client, timeout: timeout, logger: opts.Logger}
}

// Acquire writes the image referenced by ref, either a data URL or an HTTP(S)
// URL. Any failure is absorbed by writing a gray placeholder to the same path,
// so the returned path is always {job}_character.png.
func (a *Acquirer) Acquire(ctx context.Context, ref, jobID string) (pipeline.Result, error) {
	name := domain.ArtifactName(jobID, domain.ArtifactCharacter, domain.CanonicalCharacterExt)
	logger := a.logger.With().Str("job_id", jobID).Logger()

	var first pipeline.Tier
	if domain.ImageSourceKind(ref) == "inline" {
		first = pipeline.Tier{Name: TierInline, Run: func(ctx context.Context) (string, error) {
			data, err := DecodeDataURL(ref)
			if err != nil {
				return "", err
			}
			return a.store.Write(ctx, name, data)
		}}
	} else {
		first = pipeline.Tier{Name: TierRemote, Run: func(ctx context.Context) (string, error) {
			data, err := a.fetch(ctx, ref)
			if err != nil {
				return "", err
			}
			return a.store.Write(ctx, name, data)
		}}
	}

	chain := pipeline.NewChain("image", logger, first,
		pipeline.Tier{Name: TierPlaceholder, Run: func(ctx context.Context) (string, error) {
			data, err := Placeholder()
			if err != nil {
				return "", err
			}
			return a.store.Write(context.WithoutCancel(ctx), name, data)
		}},
	)

	res, err := chain.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("image: %w", err)
	}
	logger.Info().Str("tier", res.Tier).Str("path", res.Path).Msg("image: character ready")
	return res, nil
}

// DecodeDataURL returns the bytes after the first comma of a base64 data URL.
func DecodeDataURL(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(ref, ",")
	if !ok {
		return nil, errors.New("data url: missing payload")
	}
	if !strings.HasSuffix(strings.ToLower(header), ";base64") {
		return nil, fmt.Errorf("data url: unsupported encoding in %q", header)
	}
	payload = strings.Join(strings.Fields(payload), "")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("data url: decode: %w", err)
		}
		data = raw
	}
	if len(data) == 0 {
		return nil, errors.New("data url: empty payload")
	}
	return data, nil
}

func (a *Acquirer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("download image status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

// Placeholder renders the 512x512 gray stand-in image as PNG.
func Placeholder() ([]byte, error) {
	dc := gg.NewContext(PlaceholderSize, PlaceholderSize)
	dc.SetRGB255(128, 128, 128)
	dc.Clear()
	dc.SetRGB255(255, 255, 255)
	dc.DrawStringAnchored(placeholderText, 200, 250, 0, 1)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("placeholder: encode: %w", err)
	}
	return buf.Bytes(), nil
}
