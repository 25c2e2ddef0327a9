// Package voice turns narration text into an audio artifact, degrading from
// an offline engine to a cloud API, a synthetic tone and finally plain text.
package voice

import (
	"context"
	"errors"
	"fmt"
	"os"

	"narrator/internal/domain"
	"narrator/internal/infra"
	"narrator/internal/pipeline"
	"narrator/internal/storage"
)

// Tier names, in evaluation order.
const (
	TierOffline = "offline"
	TierCloud   = "cloud"
	TierTone    = "tone"
	TierText    = "text"
)

// standInRunes caps how much of the story the text stand-in keeps.
const standInRunes = 200

// CloudSpeaker synthesizes speech through a network API.
type CloudSpeaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Options wires a Synthesizer. Engine and Cloud may be nil, in which case the
// corresponding tier always falls through.
type Options struct {
	Engine Engine
	Cloud  CloudSpeaker
	Store  *storage.FileStore
	Logger infra.Logger
}

// Synthesizer produces the voice artifact of a narration job.
type Synthesizer struct {
	engine    Engine
	cloud     CloudSpeaker
	store     *storage.FileStore
	logger    infra.Logger
	writeTone func(path, text string) error
}

func NewSynthesizer(opts Options) *Synthesizer {
	return &Synthesizer{
		engine:    opts.Engine,
		cloud:     opts.Cloud,
		store:     opts.Store,
		logger:    opts.Logger,
		writeTone: writeTone,
	}
}

// Synthesize renders text for jobID and returns the artifact that was
// actually produced. Its extension depends on the tier: .mp3 for the engine
// and cloud tiers, .wav for the tone, .txt for the stand-in. Tier failures
// never escape; an error means not even the stand-in could be written.
func (s *Synthesizer) Synthesize(ctx context.Context, text, jobID string) (pipeline.Result, error) {
	mp3Path := s.store.ArtifactPath(jobID, domain.ArtifactVoice, ".mp3")
	logger := s.logger.With().Str("job_id", jobID).Logger()

	chain := pipeline.NewChain("voice", logger,
		pipeline.Tier{Name: TierOffline, Run: func(ctx context.Context) (string, error) {
			return s.renderOffline(ctx, logger, text, mp3Path)
		}},
		pipeline.Tier{Name: TierCloud, Run: func(ctx context.Context) (string, error) {
			return s.renderCloud(ctx, text, mp3Path)
		}},
		pipeline.Tier{Name: TierTone, Run: func(ctx context.Context) (string, error) {
			path := s.store.ArtifactPath(jobID, domain.ArtifactVoice, ".wav")
			if err := s.writeTone(path, text); err != nil {
				_ = os.Remove(path)
				return "", err
			}
			return path, nil
		}},
		pipeline.Tier{Name: TierText, Run: func(ctx context.Context) (string, error) {
			name := domain.ArtifactName(jobID, domain.ArtifactVoice, ".txt")
			return s.store.Write(context.WithoutCancel(ctx), name, []byte(truncateRunes(text, standInRunes)))
		}},
	)

	res, err := chain.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("voice: %w", err)
	}
	logger.Info().Str("tier", res.Tier).Str("path", res.Path).Msg("voice: audio ready")
	return res, nil
}

func (s *Synthesizer) renderOffline(ctx context.Context, logger infra.Logger, text, path string) (string, error) {
	if s.engine == nil {
		return "", errors.New("no offline engine configured")
	}
	voices, err := s.engine.Voices(ctx)
	if err != nil {
		return "", err
	}
	opts := RenderOptions{Rate: SpeechRate, Volume: SpeechVolume}
	if v, ok := SelectVoice(voices); ok {
		opts.VoiceID = v.ID
	} else {
		logger.Info().Int("voices", len(voices)).Msg("voice: no spanish voice installed, using engine default")
	}
	if err := s.engine.Render(ctx, text, opts, path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		_ = os.Remove(path)
		return "", fmt.Errorf("offline engine produced no audio at %s", path)
	}
	return path, nil
}

func (s *Synthesizer) renderCloud(ctx context.Context, text, path string) (string, error) {
	if s.cloud == nil {
		return "", errors.New("no cloud speech client configured")
	}
	data, err := s.cloud.Synthesize(ctx, text)
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write cloud audio: %w", err)
	}
	return path, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
