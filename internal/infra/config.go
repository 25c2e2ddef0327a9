package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	PublicBaseURL      string
	OutputDir          string
	CORSAllowedOrigins []string
	DatabaseURL        string

	SpeechEngineBin     string
	SpeechEngineTimeout time.Duration
	CloudTTSBaseURL     string
	CloudTTSLocale      string
	CloudTTSTimeout     time.Duration
	FFmpegBin           string
	ImageFetchTimeout   time.Duration
	AnimationDelay      time.Duration
	AnimationPoolSize   int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	TrustProxy       bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8000")
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                port,
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		OutputDir:           getEnv("OUTPUT_DIR", "output"),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SpeechEngineBin:     getEnv("SPEECH_ENGINE_BIN", "espeak"),
		SpeechEngineTimeout: time.Second * time.Duration(getEnvInt("SPEECH_ENGINE_TIMEOUT_SECONDS", 15)),
		CloudTTSBaseURL:     getEnv("CLOUD_TTS_BASE_URL", "https://translate.google.com.mx"),
		CloudTTSLocale:      getEnv("CLOUD_TTS_LOCALE", "es-419"),
		CloudTTSTimeout:     time.Second * time.Duration(getEnvInt("CLOUD_TTS_TIMEOUT_SECONDS", 60)),
		FFmpegBin:           getEnv("FFMPEG_BIN", "ffmpeg"),
		ImageFetchTimeout:   time.Second * time.Duration(getEnvInt("IMAGE_FETCH_TIMEOUT_SECONDS", 10)),
		AnimationDelay:      time.Millisecond * time.Duration(getEnvInt("ANIMATION_DELAY_MS", 2000)),
		AnimationPoolSize:   getEnvInt("ANIMATION_POOL_SIZE", 0),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustProxy:          getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	if cfg.AnimationDelay < 0 {
		return nil, fmt.Errorf("ANIMATION_DELAY_MS must not be negative")
	}
	if cfg.ImageFetchTimeout <= 0 {
		return nil, fmt.Errorf("IMAGE_FETCH_TIMEOUT_SECONDS must be positive")
	}
	if cfg.SpeechEngineTimeout <= 0 || cfg.CloudTTSTimeout <= 0 {
		return nil, fmt.Errorf("SPEECH_ENGINE_TIMEOUT_SECONDS and CLOUD_TTS_TIMEOUT_SECONDS must be positive")
	}
	if budget := cfg.SynchronousBudget(); cfg.HTTPWriteTimeout <= budget {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT_SECONDS (%s) must exceed the worst-case voice and image time (%s)",
			cfg.HTTPWriteTimeout, budget)
	}

	return cfg, nil
}

// SynchronousBudget is the longest the voice and image stages can keep a
// narration request waiting: two espeak calls, the cloud call and the image
// fetch. The tone and text tiers are local and not counted.
func (c *Config) SynchronousBudget() time.Duration {
	return 2*c.SpeechEngineTimeout + c.CloudTTSTimeout + c.ImageFetchTimeout
}

// LedgerEnabled reports whether narration jobs are recorded in Postgres.
func (c *Config) LedgerEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
