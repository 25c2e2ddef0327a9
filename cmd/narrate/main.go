package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"narrator/internal/animation"
	"narrator/internal/character"
	"narrator/internal/infra"
	"narrator/internal/narration"
	"narrator/internal/storage"
	"narrator/internal/voice"
	"narrator/internal/worker"
)

// narrate runs one narration end to end on the local machine, animation
// included, and prints where the artifacts ended up.
func main() {
	var (
		storyFlag     string
		storyFileFlag string
		imageFlag     string
		outFlag       string
		keepDelayFlag bool
	)
	flag.StringVar(&storyFlag, "story", "", "story text to narrate")
	flag.StringVar(&storyFileFlag, "story-file", "", "read the story from a file instead of -story")
	flag.StringVar(&imageFlag, "image", "", "character image: http(s) URL or data:image/... URL")
	flag.StringVar(&outFlag, "out", "", "output directory (defaults to OUTPUT_DIR)")
	flag.BoolVar(&keepDelayFlag, "keep-delay", false, "keep the artificial animation delay")
	flag.Parse()

	_ = godotenv.Load()

	story := strings.TrimSpace(storyFlag)
	if path := strings.TrimSpace(storyFileFlag); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			exitWithError(fmt.Errorf("read story: %w", err))
		}
		story = strings.TrimSpace(string(data))
	}
	if story == "" {
		exitWithError(errors.New("-story or -story-file is required"))
	}
	image := strings.TrimSpace(imageFlag)
	if image == "" {
		exitWithError(errors.New("-image is required"))
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	if out := strings.TrimSpace(outFlag); out != "" {
		cfg.OutputDir = out
	}
	if !keepDelayFlag {
		cfg.AnimationDelay = 0
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "narrate").Logger()

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		exitWithError(err)
	}

	var cloud voice.CloudSpeaker
	if c, err := voice.NewCloudClient(voice.CloudOptions{
		BaseURL:    cfg.CloudTTSBaseURL,
		Locale:     cfg.CloudTTSLocale,
		HTTPClient: &http.Client{Timeout: cfg.CloudTTSTimeout},
		Timeout:    cfg.CloudTTSTimeout,
		Logger:     &logger,
	}); err == nil {
		cloud = c
	}

	svc := narration.NewService(narration.Options{
		Voice: voice.NewSynthesizer(voice.Options{
			Engine: voice.NewESpeak(cfg.SpeechEngineBin, cfg.SpeechEngineTimeout),
			Cloud:  cloud,
			Store:  store,
			Logger: logger,
		}),
		Image: character.NewAcquirer(character.Options{
			Store:        store,
			FetchTimeout: cfg.ImageFetchTimeout,
			Logger:       logger,
		}),
		Animator: animation.NewAnimator(animation.Options{
			Store:     store,
			FFmpegBin: cfg.FFmpegBin,
			Delay:     cfg.AnimationDelay,
			Logger:    logger,
		}),
		Executor: worker.Inline{Logger: logger},
		Store:    store,
		BaseURL:  "file://" + store.BasePath(),
		Logger:   logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	accepted, err := svc.StartNarration(ctx, story, image)
	if err != nil {
		exitWithError(err)
	}
	status, err := svc.Status(ctx, accepted.NarrationID)
	if err != nil {
		exitWithError(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
