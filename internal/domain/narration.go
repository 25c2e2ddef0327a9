package domain

import (
	"fmt"
	"strings"
	"time"
)

// ArtifactKind names the pipeline stage that produced a file.
type ArtifactKind string

const (
	ArtifactVoice     ArtifactKind = "voice"
	ArtifactCharacter ArtifactKind = "character"
	ArtifactAnimated  ArtifactKind = "animated"
)

// NarrationStatus is the coarse lifecycle of a narration job. There is no
// explicit completion callback: a job is done once an animated artifact exists.
type NarrationStatus string

const (
	NarrationProcessing NarrationStatus = "processing"
	NarrationDone       NarrationStatus = "done"
)

// Canonical extensions advertised by the API, whatever tier actually ran.
const (
	CanonicalVoiceExt     = ".mp3"
	CanonicalCharacterExt = ".png"
	CanonicalAnimatedExt  = ".mp4"
)

// Extensions each stage may leave on disk, best tier first.
var (
	VoiceExts    = []string{".mp3", ".wav", ".txt"}
	AnimatedExts = []string{".mp4", ".gif", ".txt"}
)

// ArtifactName builds the file name for an artifact. It depends only on the
// job id and the stage so concurrent jobs never collide.
func ArtifactName(jobID string, kind ArtifactKind, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%s%s", jobID, kind, ext)
}

// Artifact is a file produced by one tier of a stage.
type Artifact struct {
	Kind ArtifactKind
	Name string
	Path string
	Tier string
}

// Narration is one request to turn a story and a character image into voice
// and video.
type Narration struct {
	ID        string
	Story     string
	ImageRef  string
	Status    NarrationStatus
	Voice     *Artifact
	Character *Artifact
	Video     *Artifact
	CreatedAt time.Time
}

// ImageSourceKind classifies a character image reference.
func ImageSourceKind(ref string) string {
	if strings.HasPrefix(ref, "data:image/") {
		return "inline"
	}
	return "remote"
}
