package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/tmm22/voicedeck/internal/audio"
)

// PlaybackStatus renders playback engine snapshots for the UI.
type PlaybackStatus struct {
	state        audio.State
	position     time.Duration
	duration     time.Duration
	progress     float64
	volume       float64
	rate         float64
	synthesizing bool
	finished     bool
	errorMessage string
}

// NewPlaybackStatus creates an idle status display.
func NewPlaybackStatus() *PlaybackStatus {
	return &PlaybackStatus{
		state:  audio.StateIdle,
		volume: 1.0,
		rate:   1.0,
	}
}

// Update replaces the display state with an engine snapshot.
func (s *PlaybackStatus) Update(snap audio.Snapshot) {
	s.state = snap.State
	s.position = snap.Position
	s.duration = snap.Duration
	s.progress = snap.Progress()
	s.volume = snap.Volume
	s.rate = snap.Rate

	switch snap.State {
	case audio.StateFinished:
		s.finished = true
	case audio.StatePlaying, audio.StatePaused:
		s.finished = false
	}

	if snap.State != audio.StateError {
		s.errorMessage = ""
	} else if snap.Err != nil {
		s.errorMessage = snap.Err.Error()
	}
}

// SetSynthesizing marks a synthesis call in flight.
func (s *PlaybackStatus) SetSynthesizing(v bool) {
	s.synthesizing = v
	if v {
		s.errorMessage = ""
		s.finished = false
	}
}

// SetError shows err without changing the playback state.
func (s *PlaybackStatus) SetError(err error) {
	s.synthesizing = false
	if err != nil {
		s.errorMessage = err.Error()
	}
}

// Finished reports whether the last session played to the end.
func (s *PlaybackStatus) Finished() bool {
	return s.finished
}

// CompactStatus returns a one-line status for the status bar.
func (s *PlaybackStatus) CompactStatus() string {
	if s.state == audio.StateIdle && !s.synthesizing && !s.finished && s.errorMessage == "" {
		return ""
	}

	color := s.getStateColor()
	statusStyle := lipgloss.NewStyle().Foreground(color)
	status := statusStyle.Render(fmt.Sprintf("%s %s", s.getStateIcon(), s.stateText()))

	if s.duration > 0 && (s.state == audio.StatePlaying || s.state == audio.StatePaused) {
		counterStyle := lipgloss.NewStyle().Foreground(idleColor)
		status += counterStyle.Render(fmt.Sprintf(" %s/%s", formatDuration(s.position), formatDuration(s.duration)))
	}
	return status
}

// DetailedStatus returns a multi-line status for the player panel.
func (s *PlaybackStatus) DetailedStatus(width int) string {
	var lines []string

	stateStyle := lipgloss.NewStyle().Foreground(s.getStateColor())
	lines = append(lines, stateStyle.Render(fmt.Sprintf("%s %s", s.getStateIcon(), s.stateText())))

	if s.duration > 0 {
		lines = append(lines, fmt.Sprintf("Position: %s / %s", formatDuration(s.position), formatDuration(s.duration)))
	}

	lines = append(lines, subtleStyle.Render(fmt.Sprintf("Rate: %s · Volume: %d%%",
		audio.RateLabel(s.rate), int(s.volume*100+0.5))))

	if s.errorMessage != "" {
		w := width - 9
		if w < 10 {
			w = 10
		}
		errorLine := truncate.StringWithTail(s.errorMessage, uint(w), ellipsis) //nolint:gosec
		lines = append(lines, failStyle.Render("Error: "+errorLine))
	}

	return strings.Join(lines, "\n")
}

// Progress returns the played fraction of the current session.
func (s *PlaybackStatus) Progress() float64 {
	if s.finished && s.state == audio.StateIdle {
		return 1
	}
	return s.progress
}

func (s *PlaybackStatus) stateText() string {
	switch {
	case s.synthesizing:
		return "Synthesizing"
	case s.state == audio.StatePlaying:
		return "Playing"
	case s.state == audio.StatePaused:
		return "Paused"
	case s.state == audio.StateError:
		return "Error"
	case s.errorMessage != "":
		return "Failed"
	case s.finished:
		return "Finished"
	default:
		return "Stopped"
	}
}

// getStateColor returns the appropriate color for the current state.
func (s *PlaybackStatus) getStateColor() lipgloss.Color {
	switch {
	case s.synthesizing:
		return busyColor
	case s.state == audio.StatePlaying:
		return playingColor
	case s.state == audio.StatePaused:
		return pausedColor
	case s.state == audio.StateError, s.errorMessage != "":
		return errorColor
	default:
		return idleColor
	}
}

// getStateIcon returns an icon for the current state.
func (s *PlaybackStatus) getStateIcon() string {
	switch {
	case s.synthesizing:
		return "⟳"
	case s.state == audio.StatePlaying:
		return "▶"
	case s.state == audio.StatePaused:
		return "⏸"
	case s.state == audio.StateError, s.errorMessage != "":
		return "✗"
	case s.finished:
		return "✓"
	default:
		return "■"
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
