package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"narrator/internal/infra"
)

// maxChunkRunes is the longest text the translate endpoint speaks per request.
const maxChunkRunes = 100

// CloudOptions controls how the cloud speech client is configured.
type CloudOptions struct {
	BaseURL    string
	Locale     string
	HTTPClient *http.Client
	// Timeout bounds a whole Synthesize call, all chunks included.
	Timeout time.Duration
	Logger  *infra.Logger
}

// CloudClient speaks text through the Google Translate TTS endpoint. The
// regional host picks the accent, so the default translate.google.com.mx gives
// Latin-American Spanish.
type CloudClient struct {
	baseURL    string
	lang       string
	httpClient *http.Client
	timeout    time.Duration
	logger     *infra.Logger
}

// NewCloudClient constructs a client with sane defaults. Callers may provide a
// nil HTTP client; one with a 60 second timeout is created. A zero Timeout
// defaults to 60 seconds as well.
func NewCloudClient(opts CloudOptions) (*CloudClient, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://translate.google.com.mx"
	}

	locale := strings.TrimSpace(opts.Locale)
	if locale == "" {
		locale = "es-419"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("cloud tts: parse locale %q: %w", locale, err)
	}
	base, _ := tag.Base()

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &CloudClient{
		baseURL:    baseURL,
		lang:       base.String(),
		httpClient: client,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// Language returns the language code sent as the tl parameter.
func (c *CloudClient) Language() string {
	return c.lang
}

// Synthesize returns MP3 bytes for text. Long text is spoken in chunks whose
// MP3 frames are concatenated.
func (c *CloudClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, errors.New("cloud tts: no text to speak")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out bytes.Buffer
	for i, chunk := range chunks {
		data, err := c.fetchChunk(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("cloud tts: chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out.Write(data)
	}

	c.logger.Debug().
		Str("lang", c.lang).
		Int("chunks", len(chunks)).
		Int("bytes", out.Len()).
		Msg("cloud tts: synthesized audio")

	return out.Bytes(), nil
}

func (c *CloudClient) fetchChunk(ctx context.Context, chunk string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", c.lang)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
	q.Set("client", "tw-ob")
	q.Set("ttsspeed", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio response")
	}
	return data, nil
}

// splitText breaks text into chunks of at most max runes, preferring word
// boundaries. Words longer than max are cut.
func splitText(text string, max int) []string {
	var chunks []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > max {
			flush()
			chunks = append(chunks, string(w[:max]))
			w = w[max:]
		}
		if len(current) > 0 && len(current)+1+len(w) > max {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)
	}
	flush()
	return chunks
}
