package infra

import (
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "PORT", "PUBLIC_BASE_URL", "OUTPUT_DIR", "CORS_ALLOWED_ORIGINS", "DATABASE_URL",
		"ANIMATION_DELAY_MS", "ANIMATION_POOL_SIZE", "IMAGE_FETCH_TIMEOUT_SECONDS",
		"SPEECH_ENGINE_TIMEOUT_SECONDS", "CLOUD_TTS_TIMEOUT_SECONDS", "HTTP_WRITE_TIMEOUT_SECONDS",
		"TRUST_PROXY_HEADERS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Fatalf("Port mismatch: got %q want 8000", cfg.Port)
	}
	if cfg.PublicBaseURL != "http://localhost:8000" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("OutputDir mismatch: got %q", cfg.OutputDir)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.AnimationDelay != 2*time.Second {
		t.Fatalf("AnimationDelay mismatch: got %s", cfg.AnimationDelay)
	}
	if cfg.ImageFetchTimeout != 10*time.Second {
		t.Fatalf("ImageFetchTimeout mismatch: got %s", cfg.ImageFetchTimeout)
	}
	if cfg.AnimationPoolSize != 0 {
		t.Fatalf("AnimationPoolSize mismatch: got %d", cfg.AnimationPoolSize)
	}
	if cfg.LedgerEnabled() {
		t.Fatalf("ledger should be disabled without DATABASE_URL")
	}
}

func TestLoadConfigInheritsPortInBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "1919")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:1919" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
}

func TestLoadConfigHonorsExplicitBaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PUBLIC_BASE_URL", "https://narrator.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:3000 ,")
	t.Setenv("DATABASE_URL", "postgres://example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "https://narrator.example.com" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
	want := []string{"https://app.example.com", "http://localhost:3000"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if !cfg.LedgerEnabled() {
		t.Fatalf("ledger should be enabled with DATABASE_URL")
	}
}

func TestLoadConfigRejectsNegativeDelay(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ANIMATION_DELAY_MS", "-5")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error for negative delay")
	}
}

func TestLoadConfigDefaultBudgetFitsWriteTimeout(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SpeechEngineTimeout != 15*time.Second {
		t.Fatalf("SpeechEngineTimeout mismatch: got %s", cfg.SpeechEngineTimeout)
	}
	if cfg.TrustProxy {
		t.Fatalf("TrustProxy should default to false")
	}
	if cfg.SynchronousBudget() != 100*time.Second {
		t.Fatalf("SynchronousBudget = %s, want 100s", cfg.SynchronousBudget())
	}
	if cfg.HTTPWriteTimeout <= cfg.SynchronousBudget() {
		t.Fatalf("write timeout %s does not cover %s", cfg.HTTPWriteTimeout, cfg.SynchronousBudget())
	}
}

func TestLoadConfigRejectsWriteTimeoutBelowBudget(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SPEECH_ENGINE_TIMEOUT_SECONDS", "60")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error when voice tiers can outlast the write timeout")
	}

	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "300")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig returned error with a larger write timeout: %v", err)
	}
}
