package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tmm22/voicedeck/internal/audio"
	"github.com/tmm22/voicedeck/internal/batch"
)

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// synthesizedMsg carries the audio returned by a synthesis call.
type synthesizedMsg struct {
	data []byte
}

// playbackMsg wraps an engine snapshot received from the event bus.
type playbackMsg struct {
	topic string
	snap  audio.Snapshot
}

// batchEventMsg wraps a batch runner publication.
type batchEventMsg struct {
	topic string
	snap  batch.Snapshot
}

type batchStartedMsg struct{}

// waitFor returns a command that delivers the next value from ch. It
// returns nil once ch is closed.
func waitFor[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}
