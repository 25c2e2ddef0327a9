// Package animation turns a character image and a voice track into a video,
// or into the closest approximation the host can manage.
package animation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"narrator/internal/infra"
	"narrator/internal/pipeline"
	"narrator/internal/storage"
)

// Tier names.
const (
	TierFFmpeg     = "ffmpeg"
	TierProcedural = "procedural"
	TierText       = "text"
)

const (
	probeTimeout  = 5 * time.Second
	encodeTimeout = 30 * time.Second
	videoFilter   = "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2"
)

// Request names the inputs and the advertised output of one animation.
type Request struct {
	JobID      string
	ImagePath  string
	AudioPath  string
	OutputPath string
}

// Options wires an Animator.
type Options struct {
	Store     *storage.FileStore
	FFmpegBin string
	Delay     time.Duration
	Logger    infra.Logger
}

// Animator runs the animation stage.
type Animator struct {
	store     *storage.FileStore
	ffmpegBin string
	delay     time.Duration
	logger    infra.Logger
}

func NewAnimator(opts Options) *Animator {
	bin := opts.FFmpegBin
	if strings.TrimSpace(bin) == "" {
		bin = "ffmpeg"
	}
	return &Animator{store: opts.Store, ffmpegBin: bin, delay: opts.Delay, logger: opts.Logger}
}

// Animate produces the animated artifact for req. The result is only used for
// logging and bookkeeping; nothing is reported back to the HTTP caller.
func (a *Animator) Animate(ctx context.Context, req Request) (pipeline.Result, error) {
	logger := a.logger.With().Str("job_id", req.JobID).Logger()

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
		}
	}

	var lastErr error
	chain := pipeline.NewChain("animation", logger,
		pipeline.Tier{Name: TierFFmpeg, Run: func(ctx context.Context) (string, error) {
			path, err := a.encodeVideo(ctx, req)
			lastErr = err
			return path, err
		}},
		pipeline.Tier{Name: TierProcedural, Run: func(ctx context.Context) (string, error) {
			path, err := a.renderGIF(ctx, req)
			if err != nil {
				lastErr = err
			}
			return path, err
		}},
		pipeline.Tier{Name: TierText, Run: func(ctx context.Context) (string, error) {
			return a.writeStandIn(context.WithoutCancel(ctx), req, lastErr)
		}},
	)

	res, err := chain.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("animation: %w", err)
	}
	logger.Info().Str("tier", res.Tier).Str("path", res.Path).Msg("animation: artifact ready")
	return res, nil
}

func (a *Animator) encodeVideo(ctx context.Context, req Request) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := exec.CommandContext(probeCtx, a.ffmpegBin, "-version").Run(); err != nil {
		return "", fmt.Errorf("ffmpeg unavailable: %w", err)
	}

	out := withExt(req.OutputPath, ".mp4")
	// The encode goes to a side name so nothing looks finished until ffmpeg
	// exits cleanly; the unusual extension needs an explicit -f.
	part := partPath(out)
	encodeCtx, cancelEncode := context.WithTimeout(ctx, encodeTimeout)
	defer cancelEncode()
	cmd := exec.CommandContext(encodeCtx, a.ffmpegBin,
		"-y",
		"-loop", "1",
		"-i", req.ImagePath,
		"-i", req.AudioPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		"-vf", videoFilter,
		"-f", "mp4",
		part,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(part)
		if errors.Is(encodeCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ffmpeg timed out after %s", encodeTimeout)
		}
		return "", fmt.Errorf("ffmpeg encode: %w: %s", err, lastLine(stderr.String()))
	}
	if info, err := os.Stat(part); err != nil || info.Size() == 0 {
		_ = os.Remove(part)
		return "", fmt.Errorf("ffmpeg produced no video at %s", filepath.Base(part))
	}
	if err := os.Rename(part, out); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("publish video: %w", err)
	}
	return out, nil
}

// partPath maps {job}_animated.mp4 to {job}_animated.part.mp4.
func partPath(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + ".part" + ext
}

func (a *Animator) renderGIF(ctx context.Context, req Request) (string, error) {
	f, err := os.Open(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	base, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := EncodeGIF(&buf, RenderFrames(base)); err != nil {
		return "", fmt.Errorf("encode gif: %w", err)
	}
	gifName := filepath.Base(withExt(req.OutputPath, ".gif"))
	gifPath, err := a.store.Write(ctx, gifName, buf.Bytes())
	if err != nil {
		return "", err
	}

	manifest := fmt.Sprintf("Simulated animation created: %s\nBase image: %s\nAudio: %s\nLip movement drawn procedurally\n",
		gifName, filepath.Base(req.ImagePath), filepath.Base(req.AudioPath))
	if _, err := a.store.Write(ctx, filepath.Base(withExt(req.OutputPath, ".txt")), []byte(manifest)); err != nil {
		a.logger.Warn().Err(err).Str("job_id", req.JobID).Msg("animation: manifest not written")
	}
	return gifPath, nil
}

func (a *Animator) writeStandIn(ctx context.Context, req Request, cause error) (string, error) {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	body := fmt.Sprintf("Simulated animation - Image: %s, Audio: %s\nError: %s\n",
		filepath.Base(req.ImagePath), filepath.Base(req.AudioPath), reason)
	return a.store.Write(ctx, filepath.Base(withExt(req.OutputPath, ".txt")), []byte(body))
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
