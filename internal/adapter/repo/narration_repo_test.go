package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"narrator/internal/domain"
)

type stubExecutor struct {
	tag  string
	err  error
	row  []any
	exec struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.NewCommandTag(s.tag), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{values: s.row, err: s.err}
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("dest count mismatch")
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func TestRecordNarration(t *testing.T) {
	exec := &stubExecutor{tag: "INSERT 0 1"}
	r := NewNarrationRepository(exec)
	n := &domain.Narration{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		Story:     "Había una vez",
		ImageRef:  "data:image/png;base64,AAAA",
		Status:    domain.NarrationProcessing,
		Voice:     &domain.Artifact{Kind: domain.ArtifactVoice, Path: "/out/x_voice.wav", Tier: "tone"},
		Character: &domain.Artifact{Kind: domain.ArtifactCharacter, Name: "x_character.png", Tier: "inline"},
	}
	if err := r.Record(context.Background(), n); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.HasPrefix(exec.exec.query, "--sql ") || !strings.Contains(exec.exec.query, "insert into narrations") {
		t.Fatalf("unexpected query %q", exec.exec.query)
	}
	args := exec.exec.args
	if len(args) != 8 {
		t.Fatalf("expected 8 args, got %d", len(args))
	}
	if args[2] != "inline" || args[3] != "processing" {
		t.Fatalf("unexpected source/status args %v %v", args[2], args[3])
	}
	if f := args[4].(*string); f == nil || *f != "x_voice.wav" {
		t.Fatalf("voice file should fall back to path base, got %v", f)
	}
	if tier := args[5].(*string); tier == nil || *tier != "tone" {
		t.Fatalf("unexpected voice tier %v", tier)
	}
}

func TestRecordNarrationNil(t *testing.T) {
	r := NewNarrationRepository(&stubExecutor{})
	if err := r.Record(context.Background(), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompleteNarration(t *testing.T) {
	exec := &stubExecutor{tag: "UPDATE 1"}
	r := NewNarrationRepository(exec)
	err := r.Complete(context.Background(), "id-1", domain.Artifact{Kind: domain.ArtifactAnimated, Name: "id-1_animated.gif", Tier: "procedural"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if exec.exec.args[1] != "done" {
		t.Fatalf("expected status done, got %v", exec.exec.args[1])
	}
	if f := exec.exec.args[2].(*string); *f != "id-1_animated.gif" {
		t.Fatalf("unexpected video file %q", *f)
	}
}

func TestCompleteNarrationMissingRow(t *testing.T) {
	r := NewNarrationRepository(&stubExecutor{tag: "UPDATE 0"})
	err := r.Complete(context.Background(), "id-1", domain.Artifact{Name: "id-1_animated.txt"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetNarration(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	exec := &stubExecutor{row: []any{
		"id-1", "story", "remote", "done",
		"id-1_voice.mp3", "offline",
		"id-1_character.png", "placeholder",
		"", "",
		created,
	}}
	n, err := NewNarrationRepository(exec).Get(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n.Status != domain.NarrationDone || !n.CreatedAt.Equal(created) {
		t.Fatalf("unexpected narration %+v", n)
	}
	if n.Voice == nil || n.Voice.Tier != "offline" || n.Character.Tier != "placeholder" {
		t.Fatalf("unexpected artifacts %+v %+v", n.Voice, n.Character)
	}
	if n.Video != nil {
		t.Fatalf("expected no video, got %+v", n.Video)
	}
}

func TestGetNarrationNoRows(t *testing.T) {
	_, err := NewNarrationRepository(&stubExecutor{err: pgx.ErrNoRows}).Get(context.Background(), "x")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEnsureSchemaWrapsError(t *testing.T) {
	boom := errors.New("boom")
	err := NewNarrationRepository(&stubExecutor{err: boom}).EnsureSchema(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
