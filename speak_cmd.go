package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tmm22/voicedeck/internal/audio"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/ttypes"
	"github.com/tmm22/voicedeck/ui"
)

var (
	speakProvider string
	speakVoice    string
	speakSpeed    float64
	speakPitch    float64
	speakVolume   float64
	speakEmotion  string
	speakOut      string
	speakNoTUI    bool
	speakNoPlay   bool
	speakMarkdown bool

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT|-]",
		Short: "Synthesize text and play it",
		Long: paragraph(fmt.Sprintf("\n%s text with the selected provider and voice, then play it back. "+
			"Text is read from stdin when it is piped in or when the argument is %s.", keyword("Speak"), keyword("-"))),
		Example: paragraph("voicedeck speak --provider openai --voice nova \"Hello there\"\n" +
			"echo \"Hello\" | voicedeck speak --emotion happy\n" +
			"voicedeck speak --out hello.mp3 --no-play \"Hello\"\n" +
			"voicedeck speak --markdown - < README.md"),
		RunE: runSpeak,
	}
)

func init() {
	speakCmd.Flags().StringVarP(&speakProvider, "provider", "p", "", "provider: elevenlabs, openai or google")
	speakCmd.Flags().StringVarP(&speakVoice, "voice", "v", "", "voice id or name")
	speakCmd.Flags().Float64Var(&speakSpeed, "speed", 1.0, "speaking rate, clamped to the provider's range")
	speakCmd.Flags().Float64Var(&speakPitch, "pitch", 1.0, "pitch (0.5 to 2.0)")
	speakCmd.Flags().Float64Var(&speakVolume, "volume", 1.0, "volume (0.0 to 1.0)")
	speakCmd.Flags().StringVarP(&speakEmotion, "emotion", "e", "", "emotion preset")
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "also save the audio to this file")
	speakCmd.Flags().BoolVar(&speakNoTUI, "no-tui", false, "play without the interactive player")
	speakCmd.Flags().BoolVar(&speakNoPlay, "no-play", false, "only save the audio (requires --out)")
	speakCmd.Flags().BoolVarP(&speakMarkdown, "markdown", "m", false, "treat the text as markdown and speak only its prose")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	piped := false
	if len(args) == 0 {
		var err error
		if piped, err = stdinIsPipe(); err != nil {
			return err
		}
	}
	text, err := readText(args, os.Stdin, piped)
	if err != nil {
		return err
	}
	if speakMarkdown {
		text = tts.SpeakableText(text)
	}
	if speakNoPlay && speakOut == "" {
		return errors.New("--no-play requires --out")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	a.checkForUpdates(ctx)

	req, err := buildRequest(cmd, a, text)
	if err != nil {
		return errors.New(tts.UserMessage(err))
	}
	log.Debug("speak", "provider", req.Provider, "voice", req.Voice.ID, "chars", len(req.Text))

	save := saveFunc(speakOut)
	switch {
	case speakNoPlay:
		err = synthesizeAndSave(ctx, a, req, save)
	case speakNoTUI || !isTerminal(os.Stdout):
		err = playHeadless(ctx, a, req, save)
	default:
		err = playTUI(a, req, save)
	}
	if err != nil {
		return err
	}

	if msg := a.updateNotice(); msg != "" {
		fmt.Fprintln(os.Stderr, subtle(msg))
	}
	return nil
}

// buildRequest merges configured defaults with the flags that were set.
func buildRequest(cmd *cobra.Command, a *app, text string) (ttypes.SynthesisRequest, error) {
	p, err := tts.SelectProvider(speakProvider, a.cfg.ProviderTag())
	if err != nil {
		return ttypes.SynthesisRequest{}, err
	}

	voiceArg := speakVoice
	if voiceArg == "" && p == a.cfg.ProviderTag() {
		voiceArg = a.cfg.Voice
	}
	voice, err := a.synth.ResolveVoice(p, voiceArg)
	if err != nil {
		return ttypes.SynthesisRequest{}, err
	}

	controls := a.cfg.VoiceControls()
	flags := cmd.Flags()
	if flags.Changed("speed") {
		controls.Speed = speakSpeed
	}
	if flags.Changed("pitch") {
		controls.Pitch = speakPitch
	}
	if flags.Changed("volume") {
		controls.Volume = speakVolume
	}
	if speakEmotion != "" {
		e, err := ttypes.ParseEmotion(speakEmotion)
		if err != nil {
			return ttypes.SynthesisRequest{}, err
		}
		controls.Emotion = e
	}

	req := ttypes.NewSynthesisRequest(text, voice, controls.Normalize(p))
	if err := req.Validate(); err != nil {
		return ttypes.SynthesisRequest{}, err
	}
	return req, nil
}

// saveFunc writes audio to path, creating parent directories. It returns
// nil when path is empty.
func saveFunc(path string) func([]byte) (string, error) {
	if path == "" {
		return nil
	}
	return func(data []byte) (string, error) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("unable to resolve %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil { //nolint:gosec
			return "", fmt.Errorf("unable to create directory: %w", err)
		}
		if err := os.WriteFile(abs, data, 0o644); err != nil { //nolint:gosec
			return "", fmt.Errorf("unable to write audio file: %w", err)
		}
		log.Debug("saved audio", "path", abs, "size", humanize.Bytes(uint64(len(data))))
		return abs, nil
	}
}

func synthesizeAndSave(ctx context.Context, a *app, req ttypes.SynthesisRequest, save func([]byte) (string, error)) error {
	data, err := a.synth.Synthesize(ctx, req)
	if err != nil {
		return errors.New(tts.UserMessage(err))
	}
	path, err := save(data)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s to %s\n", humanize.Bytes(uint64(len(data))), path)
	return nil
}

// playHeadless plays the clip to the end without a UI. Ctrl-C stops it.
func playHeadless(ctx context.Context, a *app, req ttypes.SynthesisRequest, save func([]byte) (string, error)) error {
	data, err := a.synth.Synthesize(ctx, req)
	if err != nil {
		return errors.New(tts.UserMessage(err))
	}
	if save != nil {
		path, err := save(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, subtle("Saved to "+path))
	}

	engine, err := a.newEngine(req.Controls.Volume)
	if err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	finished, unsubscribeFinished, err := events.Chan[audio.Snapshot](a.bus, events.PlaybackFinished, 1)
	if err != nil {
		return err
	}
	defer unsubscribeFinished()
	states, unsubscribeStates, err := events.Chan[audio.Snapshot](a.bus, events.PlaybackState, 8)
	if err != nil {
		return err
	}
	defer unsubscribeStates()

	if s := engine.Load(data); s.State == audio.StateError {
		return s.Err
	}

	for {
		select {
		case <-ctx.Done():
			engine.Stop()
			return nil
		case <-finished:
			return nil
		case s := <-states:
			if s.State == audio.StateError {
				return s.Err
			}
		}
	}
}

func playTUI(a *app, req ttypes.SynthesisRequest, save func([]byte) (string, error)) error {
	// Read environment to get the TUI tuning knobs
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	engine, err := a.newEngine(req.Controls.Volume)
	if err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	p, err := ui.NewPlayerProgram(ui.PlayerOptions{
		Config:      cfg,
		Synthesizer: a.synth,
		Player:      engine,
		Bus:         a.bus,
		Request:     req,
		Save:        save,
	})
	if err != nil {
		return err
	}
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}
