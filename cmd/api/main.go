package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"narrator/internal/adapter/repo"
	"narrator/internal/animation"
	"narrator/internal/character"
	"narrator/internal/http/handlers"
	httpapi "narrator/internal/http/httpapi"
	"narrator/internal/infra"
	"narrator/internal/narration"
	"narrator/internal/storage"
	"narrator/internal/voice"
	"narrator/internal/worker"
)

const taskDrainTimeout = 45 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	ctx := context.Background()

	var ledger repo.NarrationLedger = repo.NopLedger{}
	if cfg.LedgerEnabled() {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		pgLedger := repo.NewNarrationRepository(infra.NewSQLRunner(dbpool, logger))
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare narration ledger")
		}
		ledger = pgLedger
		logger.Info().Msg("narration ledger enabled")
	}

	var cloud voice.CloudSpeaker
	cloudClient, err := voice.NewCloudClient(voice.CloudOptions{
		BaseURL:    cfg.CloudTTSBaseURL,
		Locale:     cfg.CloudTTSLocale,
		HTTPClient: &http.Client{Timeout: cfg.CloudTTSTimeout},
		Timeout:    cfg.CloudTTSTimeout,
		Logger:     &logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("cloud speech disabled")
	} else {
		cloud = cloudClient
	}

	synth := voice.NewSynthesizer(voice.Options{
		Engine: voice.NewESpeak(cfg.SpeechEngineBin, cfg.SpeechEngineTimeout),
		Cloud:  cloud,
		Store:  store,
		Logger: logger,
	})
	acquirer := character.NewAcquirer(character.Options{
		Store:        store,
		FetchTimeout: cfg.ImageFetchTimeout,
		Logger:       logger,
	})
	animator := animation.NewAnimator(animation.Options{
		Store:     store,
		FFmpegBin: cfg.FFmpegBin,
		Delay:     cfg.AnimationDelay,
		Logger:    logger,
	})

	pool, err := worker.NewPool(cfg.AnimationPoolSize, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create worker pool")
	}

	svc := narration.NewService(narration.Options{
		Voice:    synth,
		Image:    acquirer,
		Animator: animator,
		Executor: pool,
		Ledger:   ledger,
		Store:    store,
		BaseURL:  cfg.PublicBaseURL,
		Logger:   logger,
	})

	app := handlers.NewApp(svc, store, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMin,
		Logger:             logger,
		TrustProxyHeaders:  cfg.TrustProxy,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("output_dir", store.BasePath()).
			Str("base_url", cfg.PublicBaseURL).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if !pool.Shutdown(taskDrainTimeout) {
		logger.Warn().Msg("background animations abandoned")
	}
	logger.Info().Msg("server stopped")
}
