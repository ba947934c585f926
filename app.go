package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"github.com/tmm22/voicedeck/internal/artifacts"
	"github.com/tmm22/voicedeck/internal/audio"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/config"
	"github.com/tmm22/voicedeck/internal/credentials"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/transport"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/tts/providers"
	"github.com/tmm22/voicedeck/internal/update"
)

// updateCheckTimeout bounds the background release lookup so it never
// delays a command.
const updateCheckTimeout = 5 * time.Second

// app wires the core components for one command invocation.
type app struct {
	cfg       config.Config
	bus       *events.Bus
	creds     *credentials.EnvStore
	transport *transport.Client
	synth     *tts.Synthesizer

	notice chan string
}

func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	creds, err := credentials.NewEnvStore(cfg.Credentials.EnvFile, log.Default().WithPrefix("credentials"))
	if err != nil {
		return nil, err
	}

	tcfg := cfg.Transport(userAgent())
	tcfg.Logger = log.Default().WithPrefix("http")
	client := transport.New(tcfg)

	bus := events.New()
	synth, err := tts.NewSynthesizer(tts.Options{
		Registry:    providers.NewRegistry(cfg.Providers()),
		Transport:   client,
		Credentials: creds,
		Bus:         bus,
		Logger:      log.Default().WithPrefix("tts"),
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		bus:       bus,
		creds:     creds,
		transport: client,
		synth:     synth,
	}, nil
}

// watchCredentials reloads API keys while ctx is alive when configured.
func (a *app) watchCredentials(ctx context.Context) {
	if !a.cfg.Credentials.Watch {
		return
	}
	go func() {
		if err := a.creds.Watch(ctx); err != nil {
			log.Warn("credential watcher stopped", "error", err)
		}
	}()
}

func (a *app) store() (*artifacts.FileStore, error) {
	return artifacts.NewFileStore(a.cfg.Storage.DocumentsDir)
}

// newEngine opens the audio device and returns an idle playback engine
// at the given volume.
func (a *app) newEngine(volume float64) (*audio.Engine, error) {
	out, err := audio.NewOtoOutput(audio.PlayerConfig{
		SampleRate: a.cfg.Playback.SampleRate,
		BufferSize: a.cfg.Playback.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}
	return audio.NewEngine(audio.EngineConfig{
		Output:           out,
		ProgressInterval: a.cfg.Playback.ProgressInterval,
		Volume:           &volume,
		Bus:              a.bus,
		Logger:           log.Default().WithPrefix("audio"),
	})
}

func (a *app) newRunner() (*batch.Runner, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	return batch.NewRunner(batch.Config{
		Synthesizer: a.synth,
		Credentials: a.creds,
		Store:       store,
		Pacing:      a.cfg.Batch.Pacing,
		Dir:         a.cfg.Batch.Dir,
		Bus:         a.bus,
		Logger:      log.Default().WithPrefix("batch"),
	})
}

func (a *app) newChecker() (*update.Checker, error) {
	stateFile := ""
	if dir, err := gap.NewScope(gap.User, "voicedeck").DataPath(""); err == nil {
		stateFile = filepath.Join(dir, "update.json")
	}
	return update.NewChecker(update.Config{
		Repo:           a.cfg.Update.Repo,
		CurrentVersion: Version,
		Transport:      a.transport,
		StateFile:      stateFile,
		Interval:       a.cfg.Update.Interval,
		Logger:         log.Default().WithPrefix("update"),
	})
}

// checkForUpdates runs the throttled release check in the background.
// The result, if any, is read with updateNotice.
func (a *app) checkForUpdates(ctx context.Context) {
	if !a.cfg.Update.Enabled {
		return
	}
	checker, err := a.newChecker()
	if err != nil {
		log.Debug("update check disabled", "error", err)
		return
	}

	a.notice = make(chan string, 1)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
		defer cancel()

		status, checked, err := checker.CheckIfDue(ctx)
		switch {
		case errors.Is(err, update.ErrNoReleases):
			return
		case err != nil:
			log.Debug("update check failed", "error", err)
			return
		case checked && status.Available:
			a.notice <- updateMessage(status)
		}
	}()
}

// updateNotice returns the update message if the background check has
// already found one.
func (a *app) updateNotice() string {
	select {
	case msg := <-a.notice:
		return msg
	default:
		return ""
	}
}

func updateMessage(status update.Status) string {
	msg := fmt.Sprintf("A new version of voicedeck is available: %s (you have %s)", status.Version, status.Current)
	if status.Latest != nil && status.Latest.HTMLURL != "" {
		msg += "\n" + status.Latest.HTMLURL
	}
	return msg
}

func userAgent() string {
	return "voicedeck/" + Version
}
