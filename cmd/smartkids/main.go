package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"smartkids/internal/audio"
	"smartkids/internal/config"
	"smartkids/internal/games"
	"smartkids/internal/logging"
	"smartkids/internal/service"
	"smartkids/internal/store"
)

// phrases narrated in every session, fetched ahead when using TTS
var commonPhrases = []string{
	"答对了！真棒！",
	"再想想哦！",
	"再数数看！",
}

func main() {
	player := flag.String("player", "", "Player name (default: last player)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *player); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Smart Kids stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, playerName string) error {
	progress, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("Failed to close progress store")
		}
	}()

	narrator := audio.NewNarrator(newSpeechPlayer(ctx, cfg))
	narrator.SetEnabled(cfg.Narrator != config.NarratorOff && cfg.Settings.Audio.NarrationEnabled)
	defer narrator.Stop()

	manager := service.NewGameManager(progress, service.Options{
		RoundsPerSession: cfg.Settings.Game.RoundsPerSession,
		PassThreshold:    cfg.Settings.Game.PassThreshold,
		HistoryRetention: cfg.HistoryRetention,
	})

	if fs, ok := progress.(*store.FileStore); ok {
		go watchProfiles(ctx, fs, manager)
	}

	runner := games.NewRunner(manager, narrator, os.Stdin, os.Stdout, games.Options{})
	sh := &shell{cfg: cfg, manager: manager, runner: runner, narrator: narrator, out: os.Stdout}

	if playerName == "" {
		playerName = cfg.Settings.LastPlayer
	}
	if err := sh.choosePlayer(ctx, playerName); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	defer sh.close(context.WithoutCancel(ctx))

	return sh.menu(ctx)
}

// newSpeechPlayer returns the configured narration backend, falling back
// to silence when it is unavailable
func newSpeechPlayer(ctx context.Context, cfg *config.Config) audio.Player {
	switch cfg.Narrator {
	case config.NarratorTTS:
		playerCmd := cfg.TTSPlayer
		if playerCmd == "" {
			playerCmd = "mpg123"
		}
		tts, err := audio.NewTTSPlayer(audio.TTSOptions{CacheDir: cfg.TTSCacheDir, PlayerCmd: playerCmd})
		if err != nil {
			log.Warn().Err(err).Msg("Text-to-speech unavailable, narration disabled")
			return audio.NopPlayer{}
		}
		go func() {
			if err := tts.Prefetch(ctx, commonPhrases); err != nil {
				log.Debug().Err(err).Msg("Prefetch incomplete")
			}
		}()
		return tts
	case config.NarratorSystem:
		p, err := audio.NewSystemPlayer(cfg.NarratorVoice)
		if err != nil {
			log.Warn().Err(err).Msg("No speech program found, narration disabled")
			return audio.NopPlayer{}
		}
		return p
	default:
		return audio.NopPlayer{}
	}
}

// watchProfiles reloads the current profile when its file is changed
// outside a session, e.g. by progressctl import
func watchProfiles(ctx context.Context, fs *store.FileStore, manager *service.GameManager) {
	err := fs.Watch(ctx, func(name string) {
		current, err := manager.Profile()
		if err != nil || current.Name != name {
			return
		}
		if err := manager.ReloadProfile(ctx); err != nil {
			log.Debug().Err(err).Str("player", name).Msg("Profile not reloaded")
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("Profile watcher stopped")
	}
}
