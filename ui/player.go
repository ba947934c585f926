package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/tmm22/voicedeck/internal/audio"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// Player is the playback surface the player view drives. *audio.Engine
// satisfies it.
type Player interface {
	Load(data []byte) audio.Snapshot
	TogglePause() audio.Snapshot
	Stop() audio.Snapshot
	Seek(pos time.Duration) audio.Snapshot
	SetRate(rate float64) audio.Snapshot
	SetVolume(volume float64) audio.Snapshot
	Snapshot() audio.Snapshot
}

// PlayerOptions configures the player view.
type PlayerOptions struct {
	Config      Config
	Synthesizer ttypes.Synthesizer
	Player      Player
	Bus         *events.Bus
	Request     ttypes.SynthesisRequest

	// Save, when set, receives the synthesized audio before playback and
	// returns where it was written.
	Save func(data []byte) (string, error)
}

type playerModel struct {
	cfg     Config
	synth   ttypes.Synthesizer
	player  Player
	req     ttypes.SynthesisRequest
	save    func([]byte) (string, error)
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup []func()

	progressCh <-chan audio.Snapshot
	stateCh    <-chan audio.Snapshot
	finishedCh <-chan audio.Snapshot

	spinner  spinner.Model
	progress progress.Model
	status   *PlaybackStatus

	audio     []byte
	savedPath string
	saveErr   error
	fatalErr  error
	width     int
	quitting  bool
}

func newPlayerModel(opts PlayerOptions) (playerModel, error) {
	if opts.Synthesizer == nil || opts.Player == nil {
		return playerModel{}, errors.New("player view needs a synthesizer and a player")
	}
	cfg := opts.Config.withDefaults()

	m := playerModel{
		cfg:    cfg,
		synth:  opts.Synthesizer,
		player: opts.Player,
		req:    opts.Request,
		save:   opts.Save,
		status: NewPlaybackStatus(),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	subs := []struct {
		topic string
		ch    *<-chan audio.Snapshot
	}{
		{events.PlaybackProgress, &m.progressCh},
		{events.PlaybackState, &m.stateCh},
		{events.PlaybackFinished, &m.finishedCh},
	}
	for _, s := range subs {
		ch, unsubscribe, err := events.Chan[audio.Snapshot](opts.Bus, s.topic, 16)
		if err != nil {
			m.close()
			return playerModel{}, err
		}
		*s.ch = ch
		m.cleanup = append(m.cleanup, unsubscribe)
	}

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(busyColor)))
	m.progress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(cfg.ProgressWidth))
	m.status.Update(opts.Player.Snapshot())
	m.status.SetSynthesizing(true)
	return m, nil
}

func (m playerModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.synthesize(),
		m.listen(m.progressCh, events.PlaybackProgress),
		m.listen(m.stateCh, events.PlaybackState),
		m.listen(m.finishedCh, events.PlaybackFinished),
	)
}

func (m playerModel) synthesize() tea.Cmd {
	ctx, synth, req := m.ctx, m.synth, m.req
	return func() tea.Msg {
		data, err := synth.Synthesize(ctx, req)
		if err != nil {
			return errMsg{err}
		}
		return synthesizedMsg{data: data}
	}
}

func (m playerModel) listen(ch <-chan audio.Snapshot, topic string) tea.Cmd {
	return waitFor(ch, func(s audio.Snapshot) tea.Msg {
		return playbackMsg{topic: topic, snap: s}
	})
}

func (m playerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 6
		if w > m.cfg.ProgressWidth {
			w = m.cfg.ProgressWidth
		}
		if w > 10 {
			m.progress.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.status.synthesizing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case synthesizedMsg:
		m.audio = msg.data
		m.status.SetSynthesizing(false)
		log.Debug("synthesized audio", "bytes", len(msg.data))
		if m.save != nil {
			m.savedPath, m.saveErr = m.save(msg.data)
		}
		m.status.Update(m.player.Load(msg.data))
		return m, nil

	case errMsg:
		// Nothing to play without audio.
		log.Debug("synthesis failed", "error", msg.err, "missing_key", tts.IsMissingKey(msg.err))
		m.status.SetError(msg.err)
		m.fatalErr = errors.New(tts.UserMessage(msg.err))
		return m, nil

	case playbackMsg:
		switch msg.topic {
		case events.PlaybackFinished:
			m.status.Update(msg.snap)
			if m.cfg.ExitOnFinish {
				return m.quit()
			}
			return m, m.listen(m.finishedCh, msg.topic)
		case events.PlaybackProgress:
			// Samples queued before a pause or stop are stale.
			if m.player.Snapshot().State == audio.StatePlaying {
				m.status.Update(msg.snap)
			}
			return m, m.listen(m.progressCh, msg.topic)
		default:
			if msg.snap.State != audio.StateIdle || !m.status.Finished() {
				m.status.Update(msg.snap)
			}
			return m, m.listen(m.stateCh, msg.topic)
		}
	}

	return m, nil
}

func (m playerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fatalErr != nil {
		return m.quit()
	}

	snap := m.player.Snapshot()
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m.quit()

	case " ", "p":
		if m.audio == nil {
			return m, nil
		}
		if snap.State == audio.StateIdle {
			snap = m.player.Load(m.audio)
		} else {
			snap = m.player.TogglePause()
		}

	case "left", "h":
		snap = m.player.Seek(snap.Position - m.cfg.SeekStep)

	case "right", "l":
		snap = m.player.Seek(snap.Position + m.cfg.SeekStep)

	case "+", "=":
		snap = m.player.SetRate(audio.StepRate(snap.Rate, true))

	case "-", "_":
		snap = m.player.SetRate(audio.StepRate(snap.Rate, false))

	case "up", "k":
		snap = m.player.SetVolume(snap.Volume + m.cfg.VolumeStep)

	case "down", "j":
		snap = m.player.SetVolume(snap.Volume - m.cfg.VolumeStep)

	case "s":
		m.status.finished = false
		snap = m.player.Stop()

	case "r":
		if m.audio == nil {
			return m, nil
		}
		snap = m.player.Load(m.audio)

	default:
		return m, nil
	}

	m.status.Update(snap)
	return m, nil
}

func (m playerModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.player.Stop()
	m.close()
	return m, tea.Quit
}

func (m playerModel) close() {
	if m.cancel != nil {
		m.cancel()
	}
	for _, fn := range m.cleanup {
		fn()
	}
}

func (m playerModel) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("voicedeck"))
	b.WriteString(" ")
	b.WriteString(subtleStyle.Render(m.voiceLine()))
	b.WriteString("\n\n")

	if m.status.synthesizing {
		fmt.Fprintf(&b, "%s Synthesizing with %s%s\n", m.spinner.View(), m.req.Provider.DisplayName(), ellipsis)
	} else {
		b.WriteString(m.progress.ViewAs(m.status.Progress()))
		b.WriteString("\n\n")
		b.WriteString(m.status.DetailedStatus(m.width))
		b.WriteString("\n")
	}

	switch {
	case m.saveErr != nil:
		b.WriteString(failStyle.Render("Could not save audio: " + m.saveErr.Error()))
		b.WriteString("\n")
	case m.savedPath != "":
		b.WriteString(subtleStyle.Render("Saved to " + m.savedPath))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space play/pause • ←/→ seek • +/- speed • ↑/↓ volume • s stop • r replay • q quit"))
	return indent(b.String(), 2)
}

func (m playerModel) voiceLine() string {
	line := fmt.Sprintf("%s (%s)", voiceName(m.req.Voice), m.req.Provider.DisplayName())
	if m.req.Controls.Emotion != "" {
		line += " · " + m.req.Controls.Emotion.DisplayName()
	}
	return line
}
