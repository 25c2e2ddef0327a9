// Package narration orchestrates a narration job: voice and image run while
// the client waits, the animation runs in the background.
package narration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"narrator/internal/adapter/repo"
	"narrator/internal/animation"
	"narrator/internal/domain"
	"narrator/internal/infra"
	"narrator/internal/pipeline"
	"narrator/internal/storage"
	"narrator/internal/worker"
)

// ProcessingMessage accompanies every accepted narration.
const ProcessingMessage = "Narración en proceso. Voz generada, animación facial en segundo plano."

// ledgerTimeout bounds every ledger call; the ledger never blocks a response
// for long.
const ledgerTimeout = 5 * time.Second

type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, jobID string) (pipeline.Result, error)
}

type ImageAcquirer interface {
	Acquire(ctx context.Context, ref, jobID string) (pipeline.Result, error)
}

type Animator interface {
	Animate(ctx context.Context, req animation.Request) (pipeline.Result, error)
}

// Options wires a Service. Ledger and NewID are optional.
type Options struct {
	Voice    VoiceSynthesizer
	Image    ImageAcquirer
	Animator Animator
	Executor worker.Executor
	Ledger   repo.NarrationLedger
	Store    *storage.FileStore
	BaseURL  string
	Logger   infra.Logger
	NewID    func() string
}

type Service struct {
	voice    VoiceSynthesizer
	image    ImageAcquirer
	animator Animator
	executor worker.Executor
	ledger   repo.NarrationLedger
	store    *storage.FileStore
	baseURL  string
	logger   infra.Logger
	newID    func() string
}

func NewService(opts Options) *Service {
	ledger := opts.Ledger
	if ledger == nil {
		ledger = repo.NopLedger{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{
		voice:    opts.Voice,
		image:    opts.Image,
		animator: opts.Animator,
		executor: opts.Executor,
		ledger:   ledger,
		store:    opts.Store,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		logger:   opts.Logger,
		newID:    newID,
	}
}

// Accepted is the response to a started narration.
type Accepted struct {
	NarrationID string `json:"narration_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	AudioURL    string `json:"audio_url"`
	VideoURL    string `json:"video_url"`
}

// ArtifactView is one file of a job as seen on disk.
type ArtifactView struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StatusView describes what a job has produced so far.
type StatusView struct {
	NarrationID string        `json:"narration_id"`
	Status      string        `json:"status"`
	Voice       *ArtifactView `json:"voice,omitempty"`
	Character   *ArtifactView `json:"character,omitempty"`
	Video       *ArtifactView `json:"video,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
}

// StartNarration runs the synchronous stages and schedules the animation.
// The advertised URLs always use the .mp3 and .mp4 names, whichever tier
// actually produced the files.
func (s *Service) StartNarration(ctx context.Context, story, imageRef string) (Accepted, error) {
	if strings.TrimSpace(story) == "" || strings.TrimSpace(imageRef) == "" {
		return Accepted{}, fmt.Errorf("story and character image are required: %w", domain.ErrInvalidInput)
	}
	jobID := s.newID()
	logger := s.logger.With().Str("job_id", jobID).Logger()

	voice, err := s.voice.Synthesize(ctx, story, jobID)
	if err != nil {
		return Accepted{}, fmt.Errorf("voice synthesis: %w", err)
	}
	img, err := s.image.Acquire(ctx, imageRef, jobID)
	if err != nil {
		return Accepted{}, fmt.Errorf("image acquisition: %w", err)
	}

	n := &domain.Narration{
		ID:        jobID,
		Story:     story,
		ImageRef:  imageRef,
		Status:    domain.NarrationProcessing,
		Voice:     toArtifact(domain.ArtifactVoice, voice),
		Character: toArtifact(domain.ArtifactCharacter, img),
		CreatedAt: time.Now().UTC(),
	}
	s.recordLedger(ctx, n)

	req := animation.Request{
		JobID:      jobID,
		ImagePath:  img.Path,
		AudioPath:  voice.Path,
		OutputPath: s.store.ArtifactPath(jobID, domain.ArtifactAnimated, domain.CanonicalAnimatedExt),
	}
	if err := s.executor.Submit("animate:"+jobID, func(taskCtx context.Context) {
		s.animate(taskCtx, req)
	}); err != nil {
		logger.Error().Err(err).Msg("narration: animation not scheduled")
	}

	logger.Info().
		Str("voice_tier", voice.Tier).
		Str("image_tier", img.Tier).
		Msg("narration: accepted")

	return Accepted{
		NarrationID: jobID,
		Status:      string(domain.NarrationProcessing),
		Message:     ProcessingMessage,
		AudioURL:    s.URL(domain.ArtifactName(jobID, domain.ArtifactVoice, domain.CanonicalVoiceExt)),
		VideoURL:    s.URL(domain.ArtifactName(jobID, domain.ArtifactAnimated, domain.CanonicalAnimatedExt)),
	}, nil
}

func (s *Service) animate(ctx context.Context, req animation.Request) {
	logger := s.logger.With().Str("job_id", req.JobID).Logger()
	res, err := s.animator.Animate(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("narration: animation failed")
		return
	}
	ledgerCtx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()
	if err := s.ledger.Complete(ledgerCtx, req.JobID, *toArtifact(domain.ArtifactAnimated, res)); err != nil && !repo.IsNotFound(err) {
		logger.Warn().Err(err).Msg("narration: ledger completion failed")
	}
}

func (s *Service) recordLedger(ctx context.Context, n *domain.Narration) {
	ledgerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := s.ledger.Record(ledgerCtx, n); err != nil {
		s.logger.Warn().Err(err).Str("job_id", n.ID).Msg("narration: ledger record failed")
	}
}

// GenerateVoice synthesizes text alone and returns the URL of the file that
// was actually written. voiceModel is accepted for compatibility only.
func (s *Service) GenerateVoice(ctx context.Context, text, voiceModel string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required: %w", domain.ErrInvalidInput)
	}
	jobID := s.newID()
	res, err := s.voice.Synthesize(ctx, text, jobID)
	if err != nil {
		return "", fmt.Errorf("voice synthesis: %w", err)
	}
	s.logger.Info().
		Str("job_id", jobID).
		Str("tier", res.Tier).
		Str("voice_model", voiceModel).
		Msg("narration: voice generated")
	return s.URL(filepath.Base(res.Path)), nil
}

// Status reports the artifacts of jobID found on disk. The ledger, when
// present, only adds the creation time.
func (s *Service) Status(ctx context.Context, jobID string) (StatusView, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return StatusView{}, fmt.Errorf("narration id %q: %w", jobID, domain.ErrInvalidInput)
	}
	view := StatusView{NarrationID: jobID, Status: string(domain.NarrationProcessing)}

	if name, ok := s.store.FindArtifact(jobID, domain.ArtifactVoice, domain.VoiceExts); ok {
		view.Voice = s.view(name)
	}
	if name, ok := s.store.FindArtifact(jobID, domain.ArtifactCharacter, []string{domain.CanonicalCharacterExt}); ok {
		view.Character = s.view(name)
	}
	if name, ok := s.store.FindArtifact(jobID, domain.ArtifactAnimated, domain.AnimatedExts); ok {
		view.Video = s.view(name)
		view.Status = string(domain.NarrationDone)
	}
	if view.Voice == nil && view.Character == nil && view.Video == nil {
		return StatusView{}, domain.ErrNotFound
	}

	n, err := s.ledger.Get(ctx, jobID)
	switch {
	case err == nil && n != nil && !n.CreatedAt.IsZero():
		created := n.CreatedAt
		view.CreatedAt = &created
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("narration: ledger lookup failed")
	}
	return view, nil
}

// URL returns the public address of an output file.
func (s *Service) URL(name string) string {
	return s.baseURL + "/output/" + name
}

func (s *Service) view(name string) *ArtifactView {
	return &ArtifactView{Name: name, URL: s.URL(name)}
}

func toArtifact(kind domain.ArtifactKind, res pipeline.Result) *domain.Artifact {
	return &domain.Artifact{Kind: kind, Name: filepath.Base(res.Path), Path: res.Path, Tier: res.Tier}
}
