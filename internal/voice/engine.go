package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Narration delivery for somber stories: slow and a little quiet.
const (
	SpeechRate   = 150
	SpeechVolume = 0.8
)

// Voice is one voice installed in an offline speech engine.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// RenderOptions tune an offline render. An empty VoiceID keeps the engine default.
type RenderOptions struct {
	VoiceID string
	Rate    int
	Volume  float64
}

// Engine is a local, offline speech synthesizer.
type Engine interface {
	Voices(ctx context.Context) ([]Voice, error)
	Render(ctx context.Context, text string, opts RenderOptions, path string) error
}

// SelectVoice returns a voice whose name looks Spanish, using a case-folded
// substring test. A name containing "spanish" wins over one that merely
// contains "es": espeak-ng names such as Aragonese or Chinese_(Mandarin)
// match the loose rule and are often listed first.
func SelectVoice(voices []Voice) (Voice, bool) {
	fold := cases.Fold()
	for _, needle := range []string{"spanish", "es"} {
		for _, v := range voices {
			if strings.Contains(fold.String(v.Name), needle) {
				return v, true
			}
		}
	}
	return Voice{}, false
}

// ESpeak drives the espeak / espeak-ng command line synthesizer.
type ESpeak struct {
	bin     string
	timeout time.Duration
}

// DefaultEngineTimeout bounds each espeak invocation when none is configured.
const DefaultEngineTimeout = 15 * time.Second

// NewESpeak returns an engine that shells out to bin. timeout bounds each
// invocation (voice listing and render separately); <= 0 uses
// DefaultEngineTimeout.
func NewESpeak(bin string, timeout time.Duration) *ESpeak {
	if strings.TrimSpace(bin) == "" {
		bin = "espeak"
	}
	if timeout <= 0 {
		timeout = DefaultEngineTimeout
	}
	return &ESpeak{bin: bin, timeout: timeout}
}

func (e *ESpeak) Voices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, e.bin, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("espeak: list voices: %w", err)
	}
	return parseVoices(out), nil
}

func (e *ESpeak) Render(ctx context.Context, text string, opts RenderOptions, path string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := make([]string, 0, 9)
	if opts.VoiceID != "" {
		args = append(args, "-v", opts.VoiceID)
	}
	if opts.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(opts.Rate))
	}
	if opts.Volume > 0 {
		// espeak amplitude runs 0-200 with 100 as the default level.
		args = append(args, "-a", strconv.Itoa(int(opts.Volume*100)))
	}
	args = append(args, "-w", path, "--stdin")

	cmd := exec.CommandContext(ctx, e.bin, args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("espeak: render: %w: %s", err, msg)
		}
		return fmt.Errorf("espeak: render: %w", err)
	}
	return nil
}

// parseVoices reads the table printed by `espeak --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  es              --/M      Spanish_(Spain)    roa/es
func parseVoices(out []byte) []Voice {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(out))
	header := true
	for scanner.Scan() {
		line := scanner.Text()
		if header {
			header = false
			if strings.HasPrefix(strings.TrimSpace(line), "Pty") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, Voice{
			ID:       fields[1],
			Language: fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
		})
	}
	return voices
}

var _ Engine = (*ESpeak)(nil)
