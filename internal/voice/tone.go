package voice

import (
	"fmt"
	"math"
	"os"
	"unicode/utf8"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	toneSampleRate  = 44100
	toneBitDepth    = 16
	toneFrequency   = 220.0
	toneMaxLevel    = 0.3
	toneMinSeconds  = 2.0
	toneSecsPerRune = 0.1
)

// ToneDuration is how long the stand-in tone lasts for text, in seconds.
func ToneDuration(text string) float64 {
	secs := toneSecsPerRune * float64(utf8.RuneCountInString(text))
	if secs < toneMinSeconds {
		secs = toneMinSeconds
	}
	return secs
}

// writeTone writes a mono 16-bit 44.1kHz WAV: a sine whose amplitude ramps
// linearly from silence to 30% of full scale. It is not speech.
func writeTone(path, text string) error {
	total := int(toneSampleRate * ToneDuration(text))
	samples := make([]int, total)
	for i := range samples {
		level := toneMaxLevel * float64(i) / float64(total)
		phase := 2 * math.Pi * toneFrequency * float64(i) / toneSampleRate
		samples[i] = int(math.MaxInt16 * level * math.Sin(phase))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tone: create: %w", err)
	}
	enc := wav.NewEncoder(f, toneSampleRate, toneBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: toneSampleRate},
		Data:           samples,
		SourceBitDepth: toneBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("tone: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("tone: finalize: %w", err)
	}
	return f.Close()
}
