package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// BatchRunner is the part of *batch.Runner the batch view drives.
type BatchRunner interface {
	Start(ctx context.Context, p ttypes.Provider, voice ttypes.Voice) error
	Stop()
	Snapshot() batch.Snapshot
}

// BatchOptions configures the batch view.
type BatchOptions struct {
	Config   Config
	Runner   BatchRunner
	Bus      *events.Bus
	Provider ttypes.Provider
	Voice    ttypes.Voice

	// Total presets in the sweep (defaults to every preset)
	Total int

	// Context bounds the run; Ctrl-C stops it between presets instead.
	Context context.Context
}

type batchModel struct {
	cfg      Config
	runner   BatchRunner
	ctx      context.Context
	provider ttypes.Provider
	voice    ttypes.Voice
	total    int
	cleanup  []func()

	progressCh <-chan batch.Snapshot
	doneCh     <-chan batch.Snapshot
	logCh      <-chan batch.LogEntry

	spinner  spinner.Model
	progress progress.Model

	snap     batch.Snapshot
	started  bool
	done     bool
	stopping bool
	fatalErr error
	width    int
}

func newBatchModel(opts BatchOptions) (batchModel, error) {
	if opts.Runner == nil {
		return batchModel{}, errors.New("batch view needs a runner")
	}
	cfg := opts.Config.withDefaults()
	total := opts.Total
	if total <= 0 {
		total = len(ttypes.AllPresets())
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	m := batchModel{
		cfg:      cfg,
		runner:   opts.Runner,
		ctx:      ctx,
		provider: opts.Provider,
		voice:    opts.Voice,
		total:    total,
	}

	var err error
	var unsubscribe func()
	if m.progressCh, unsubscribe, err = events.Chan[batch.Snapshot](opts.Bus, events.BatchProgress, 32); err != nil {
		return batchModel{}, err
	}
	m.cleanup = append(m.cleanup, unsubscribe)
	if m.doneCh, unsubscribe, err = events.Chan[batch.Snapshot](opts.Bus, events.BatchDone, 1); err != nil {
		m.close()
		return batchModel{}, err
	}
	m.cleanup = append(m.cleanup, unsubscribe)
	if m.logCh, unsubscribe, err = events.Chan[batch.LogEntry](opts.Bus, events.BatchLog, 64); err != nil {
		m.close()
		return batchModel{}, err
	}
	m.cleanup = append(m.cleanup, unsubscribe)

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(busyColor)))
	m.progress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(cfg.ProgressWidth))
	return m, nil
}

func (m batchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.start(),
		m.listenSnapshots(m.progressCh, events.BatchProgress),
		m.listenSnapshots(m.doneCh, events.BatchDone),
		m.listenLog(),
	)
}

func (m batchModel) start() tea.Cmd {
	ctx, runner, p, voice := m.ctx, m.runner, m.provider, m.voice
	return func() tea.Msg {
		if err := runner.Start(ctx, p, voice); err != nil {
			return errMsg{err}
		}
		return batchStartedMsg{}
	}
}

func (m batchModel) listenSnapshots(ch <-chan batch.Snapshot, topic string) tea.Cmd {
	return waitFor(ch, func(s batch.Snapshot) tea.Msg {
		return batchEventMsg{topic: topic, snap: s}
	})
}

// Log entries only signal a change; the view reads the runner's copy so
// it never depends on delivery order across topics.
func (m batchModel) listenLog() tea.Cmd {
	runner := m.runner
	return waitFor(m.logCh, func(batch.LogEntry) tea.Msg {
		return batchEventMsg{topic: events.BatchLog, snap: runner.Snapshot()}
	})
}

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		if m.done || m.fatalErr != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case batchStartedMsg:
		m.started = true
		m.snap = m.runner.Snapshot()
		return m, nil

	case errMsg:
		m.fatalErr = errors.New(tts.UserMessage(msg.err))
		return m, nil

	case batchEventMsg:
		if !m.done || msg.topic == events.BatchDone {
			m.snap = msg.snap
		}
		switch msg.topic {
		case events.BatchDone:
			m.done = true
			m.snap = m.runner.Snapshot()
			if m.cfg.ExitOnFinish {
				return m.quit()
			}
			return m, nil
		case events.BatchLog:
			return m, m.listenLog()
		default:
			return m, m.listenSnapshots(m.progressCh, msg.topic)
		}
	}

	return m, nil
}

func (m batchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fatalErr != nil {
		return m.quit()
	}
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m.quit()
	case "s":
		if !m.done {
			m.stopping = true
			m.runner.Stop()
		}
	}
	return m, nil
}

func (m batchModel) quit() (tea.Model, tea.Cmd) {
	if !m.done {
		m.runner.Stop()
	}
	m.close()
	return m, tea.Quit
}

func (m batchModel) close() {
	for _, fn := range m.cleanup {
		fn()
	}
}

func (m batchModel) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Emotion Tests"))
	b.WriteString(" ")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("%s · %s", m.provider.DisplayName(), voiceName(m.voice))))
	b.WriteString("\n\n")

	switch {
	case m.done:
		fmt.Fprintf(&b, "%s %d/%d emotions tested successfully\n",
			okStyle.Render("✓"), m.snap.Succeeded(), len(m.snap.Results))
	case m.stopping:
		fmt.Fprintf(&b, "%s Stopping%s\n", m.spinner.View(), ellipsis)
	case !m.started || m.snap.Current == "":
		fmt.Fprintf(&b, "%s Starting%s\n", m.spinner.View(), ellipsis)
	default:
		fmt.Fprintf(&b, "%s Testing %s %s\n", m.spinner.View(),
			labelStyle.Render(m.snap.Current.DisplayName()),
			subtleStyle.Render(fmt.Sprintf("(%d/%d)", len(m.snap.Results)+1, m.total)))
	}
	b.WriteString(m.progress.ViewAs(m.snap.Progress))
	b.WriteString("\n\n")

	if len(m.snap.Results) > 0 {
		b.WriteString(m.resultsView())
		b.WriteString("\n")
	}

	if logs := m.logView(); logs != "" {
		b.WriteString(logs)
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(helpStyle.Render("q quit"))
	} else {
		b.WriteString(helpStyle.Render("s stop • q quit"))
	}
	return indent(b.String(), 2)
}

func (m batchModel) resultsView() string {
	width := m.width - 30
	if width < 20 {
		width = 40
	}
	var lines []string
	for _, r := range m.snap.Results {
		icon := okStyle.Render("✓")
		if !r.Success {
			icon = failStyle.Render("✗")
		}
		line := fmt.Sprintf("%s %-10s %6.2fs", icon, r.Emotion.DisplayName(), r.Duration.Seconds())
		if r.Error != "" {
			line += " " + failStyle.Render(truncate.StringWithTail(r.Error, uint(width), ellipsis)) //nolint:gosec
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m batchModel) logView() string {
	entries := m.snap.Log
	if n := len(entries) - m.cfg.LogLines; n > 0 {
		entries = entries[n:]
	}
	if len(entries) == 0 {
		return ""
	}
	width := m.width - 4
	if width < 20 {
		width = 80
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, truncate.StringWithTail(e.String(), uint(width), ellipsis)) //nolint:gosec
	}
	return subtleStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func voiceName(v ttypes.Voice) string {
	if v.Name != "" {
		return v.Name
	}
	return v.ID
}
