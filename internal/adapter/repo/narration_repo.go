package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"narrator/internal/domain"
	"narrator/internal/infra"
	"narrator/internal/sqlinline"
)

// NarrationLedger is the audit trail of narration jobs.
type NarrationLedger interface {
	Record(ctx context.Context, n *domain.Narration) error
	Complete(ctx context.Context, jobID string, video domain.Artifact) error
	Get(ctx context.Context, jobID string) (*domain.Narration, error)
}

// NarrationRepositoryPG keeps the ledger in PostgreSQL.
type NarrationRepositoryPG struct {
	db infra.SQLExecutor
}

func NewNarrationRepository(db infra.SQLExecutor) *NarrationRepositoryPG {
	return &NarrationRepositoryPG{db: db}
}

// EnsureSchema creates the narrations table when it is missing.
func (r *NarrationRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QEnsureNarrationsTable); err != nil {
		return fmt.Errorf("ensure narrations table: %w", err)
	}
	return nil
}

// Record inserts the row written once the synchronous stages are done.
func (r *NarrationRepositoryPG) Record(ctx context.Context, n *domain.Narration) error {
	if n == nil {
		return fmt.Errorf("record narration: %w", domain.ErrInvalidInput)
	}
	voiceFile, voiceTier := artifactColumns(n.Voice)
	charFile, charTier := artifactColumns(n.Character)
	_, err := r.db.Exec(ctx, sqlinline.QInsertNarration,
		n.ID,
		n.Story,
		domain.ImageSourceKind(n.ImageRef),
		string(n.Status),
		voiceFile,
		voiceTier,
		charFile,
		charTier,
	)
	if err != nil {
		return fmt.Errorf("record narration: %w", err)
	}
	return nil
}

// Complete stores the animation outcome and marks the job done.
func (r *NarrationRepositoryPG) Complete(ctx context.Context, jobID string, video domain.Artifact) error {
	file, tier := artifactColumns(&video)
	tag, err := r.db.Exec(ctx, sqlinline.QCompleteNarration, jobID, string(domain.NarrationDone), file, tier)
	if err != nil {
		return fmt.Errorf("complete narration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete narration %s: %w", jobID, domain.ErrNotFound)
	}
	return nil
}

// Get loads a ledger row.
func (r *NarrationRepositoryPG) Get(ctx context.Context, jobID string) (*domain.Narration, error) {
	var (
		n                    domain.Narration
		imageSource, status  string
		voiceFile, voiceTier string
		charFile, charTier   string
		videoFile, videoTier string
	)
	err := r.db.QueryRow(ctx, sqlinline.QGetNarration, jobID).Scan(
		&n.ID,
		&n.Story,
		&imageSource,
		&status,
		&voiceFile,
		&voiceTier,
		&charFile,
		&charTier,
		&videoFile,
		&videoTier,
		&n.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get narration: %w", err)
	}
	n.ImageRef = imageSource
	n.Status = domain.NarrationStatus(status)
	n.Voice = artifactFromColumns(domain.ArtifactVoice, voiceFile, voiceTier)
	n.Character = artifactFromColumns(domain.ArtifactCharacter, charFile, charTier)
	n.Video = artifactFromColumns(domain.ArtifactAnimated, videoFile, videoTier)
	return &n, nil
}

func artifactColumns(a *domain.Artifact) (*string, *string) {
	if a == nil {
		return nil, nil
	}
	name := a.Name
	if name == "" && a.Path != "" {
		name = filepath.Base(a.Path)
	}
	var file, tier *string
	if name != "" {
		file = &name
	}
	if a.Tier != "" {
		t := a.Tier
		tier = &t
	}
	return file, tier
}

func artifactFromColumns(kind domain.ArtifactKind, file, tier string) *domain.Artifact {
	if file == "" {
		return nil
	}
	return &domain.Artifact{Kind: kind, Name: file, Tier: tier}
}

// NopLedger is used when no database is configured.
type NopLedger struct{}

func (NopLedger) Record(context.Context, *domain.Narration) error        { return nil }
func (NopLedger) Complete(context.Context, string, domain.Artifact) error { return nil }
func (NopLedger) Get(context.Context, string) (*domain.Narration, error) {
	return nil, domain.ErrNotFound
}

var (
	_ NarrationLedger = (*NarrationRepositoryPG)(nil)
	_ NarrationLedger = NopLedger{}
)

// IsNotFound reports whether err means the ledger has no such row.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
