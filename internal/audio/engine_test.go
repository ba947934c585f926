package audio

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

var clip = []byte{0xff, 0xfb, 0x90, 0x64}

// newTestEngine uses a long progress interval so tests drive Poll themselves.
func newTestEngine(t *testing.T, out *MockOutput, bus *events.Bus) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{
		Output:           out,
		ProgressInterval: time.Hour,
		Bus:              bus,
		Logger:           log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestLoadStartsPlayback(t *testing.T) {
	out := NewMockOutput(4 * time.Second)
	e := newTestEngine(t, out, nil)
	e.SetVolume(0.4)
	e.SetRate(1.5)

	s := e.Load(clip)

	assert.Equal(t, StatePlaying, s.State)
	assert.Equal(t, 4*time.Second, s.Duration)
	assert.Zero(t, s.Position)
	assert.NoError(t, s.Err)

	track := out.Last()
	require.NotNil(t, track)
	assert.True(t, track.IsPlaying())
	assert.Equal(t, 0.4, track.Volume(), "configured volume is applied on load")
	assert.Equal(t, 1.5, track.Rate(), "configured rate is applied on load")
}

func TestLoadReplacesSession(t *testing.T) {
	out := NewMockOutput(time.Second)
	e := newTestEngine(t, out, nil)

	e.Load(clip)
	first := out.Last()
	e.Load(clip)

	assert.True(t, first.Closed(), "previous session is torn down")
	assert.Len(t, out.Tracks(), 2)
	assert.Equal(t, StatePlaying, e.Snapshot().State)
}

func TestLoadDecodeError(t *testing.T) {
	out := NewMockOutput(time.Second)
	out.OpenErr = errors.New("bad frame header")
	e := newTestEngine(t, out, nil)

	s := e.Load(clip)

	assert.Equal(t, StateError, s.State)
	assert.ErrorIs(t, s.Err, ttypes.ErrDecodeAudio)
	assert.Contains(t, s.Err.Error(), "Audio decode error")
	assert.Zero(t, s.Duration)

	s = e.Stop()
	assert.Equal(t, StateIdle, s.State)
	assert.Error(t, s.Err, "error stays retrievable after stop")
}

func TestLoadPlaybackStartFailed(t *testing.T) {
	out := NewMockOutput(time.Second)
	out.PlayErr = errors.New("device busy")
	e := newTestEngine(t, out, nil)

	s := e.Load(clip)

	assert.Equal(t, StateError, s.State)
	assert.ErrorIs(t, s.Err, ttypes.ErrPlaybackStartFailed)
	assert.True(t, out.Last().Closed(), "no dangling session after a failed start")
}

func TestLoadClearsPreviousError(t *testing.T) {
	out := NewMockOutput(time.Second)
	out.OpenErr = errors.New("bad")
	e := newTestEngine(t, out, nil)
	e.Load(clip)

	out.OpenErr = nil
	s := e.Load(clip)
	assert.Equal(t, StatePlaying, s.State)
	assert.NoError(t, s.Err)
}

func TestStopFromAnyState(t *testing.T) {
	setups := map[string]func(e *Engine, out *MockOutput){
		"idle":    func(e *Engine, out *MockOutput) {},
		"playing": func(e *Engine, out *MockOutput) { e.Load(clip) },
		"paused": func(e *Engine, out *MockOutput) {
			e.Load(clip)
			out.Last().Advance(time.Second)
			e.Pause()
		},
		"error": func(e *Engine, out *MockOutput) {
			out.OpenErr = errors.New("bad")
			e.Load(clip)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			out := NewMockOutput(5 * time.Second)
			e := newTestEngine(t, out, nil)
			setup(e, out)

			s := e.Stop()
			assert.Equal(t, StateIdle, s.State)
			assert.Zero(t, s.Position)
			assert.Zero(t, s.Duration)
		})
	}
}

func TestPauseResume(t *testing.T) {
	out := NewMockOutput(5 * time.Second)
	e := newTestEngine(t, out, nil)
	e.Load(clip)
	track := out.Last()
	track.Advance(2 * time.Second)

	s := e.Pause()
	assert.Equal(t, StatePaused, s.State)
	assert.Equal(t, 2*time.Second, s.Position)
	assert.False(t, track.IsPlaying())

	// Pausing again is a no-op.
	assert.Equal(t, s, e.Pause())

	s = e.Resume()
	assert.Equal(t, StatePlaying, s.State)
	assert.True(t, track.IsPlaying())

	// Resuming while playing is a no-op.
	assert.Equal(t, 2, track.PlayCount())
	e.Resume()
	assert.Equal(t, 2, track.PlayCount())
}

func TestPauseWhileIdleIsNoop(t *testing.T) {
	e := newTestEngine(t, NewMockOutput(time.Second), nil)
	before := e.Snapshot()

	assert.Equal(t, before, e.Pause())
	assert.Equal(t, before, e.Resume())
	assert.Equal(t, StateIdle, e.Snapshot().State)
}

func TestTogglePause(t *testing.T) {
	e := newTestEngine(t, NewMockOutput(time.Second), nil)
	e.Load(clip)

	assert.Equal(t, StatePaused, e.TogglePause().State)
	assert.Equal(t, StatePlaying, e.TogglePause().State)
}

func TestSeek(t *testing.T) {
	out := NewMockOutput(8 * time.Second)
	e := newTestEngine(t, out, nil)

	before := e.Snapshot()
	assert.Equal(t, before, e.Seek(3*time.Second), "seek without a session is a no-op")

	e.Load(clip)
	s := e.Seek(4 * time.Second)
	assert.Equal(t, 4*time.Second, s.Position, "position updates without waiting for a tick")

	s = e.Seek(time.Minute)
	assert.Equal(t, 8*time.Second, s.Position, "seek clamps to the track length")

	s = e.Seek(-time.Second)
	assert.Zero(t, s.Position)
}

func TestSetRateForcesStalledPlayback(t *testing.T) {
	out := NewMockOutput(5 * time.Second)
	e := newTestEngine(t, out, nil)
	e.Load(clip)
	track := out.Last()

	track.Stall()
	require.False(t, track.IsPlaying())

	s := e.SetRate(1.75)
	assert.Equal(t, 1.75, s.Rate)
	assert.Equal(t, 1.75, track.Rate())
	assert.True(t, track.IsPlaying(), "a changed rate restarts stalled output")
}

func TestSetRateWhilePausedDoesNotResume(t *testing.T) {
	out := NewMockOutput(5 * time.Second)
	e := newTestEngine(t, out, nil)
	e.Load(clip)
	e.Pause()

	e.SetRate(2)
	assert.False(t, out.Last().IsPlaying())
	assert.Equal(t, StatePaused, e.Snapshot().State)
}

func TestSetRateAndVolumeClamp(t *testing.T) {
	e := newTestEngine(t, NewMockOutput(time.Second), nil)

	assert.Equal(t, MaxRate, e.SetRate(10).Rate)
	assert.Equal(t, MinRate, e.SetRate(0.1).Rate)
	assert.Equal(t, 1.0, e.SetVolume(3).Volume)
	assert.Equal(t, 0.0, e.SetVolume(-1).Volume)
}

func TestPollPublishesProgress(t *testing.T) {
	bus := events.New()
	out := NewMockOutput(10 * time.Second)
	e := newTestEngine(t, out, bus)

	var mu sync.Mutex
	var samples []Snapshot
	_, err := events.On(bus, events.PlaybackProgress, func(s Snapshot) {
		mu.Lock()
		samples = append(samples, s)
		mu.Unlock()
	})
	require.NoError(t, err)

	e.Load(clip)
	out.Last().Advance(time.Second)
	e.Poll()
	out.Last().Advance(time.Second)
	e.Poll()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, samples, 2)
	assert.Equal(t, time.Second, samples[0].Position)
	assert.Equal(t, 2*time.Second, samples[1].Position)
}

func TestPollFinished(t *testing.T) {
	bus := events.New()
	out := NewMockOutput(2 * time.Second)
	e := newTestEngine(t, out, bus)

	var finished []Snapshot
	_, err := events.On(bus, events.PlaybackFinished, func(s Snapshot) { finished = append(finished, s) })
	require.NoError(t, err)

	e.Load(clip)
	out.Last().Advance(3 * time.Second)
	s := e.Poll()

	assert.Equal(t, StateIdle, s.State)
	assert.Zero(t, s.Position, "finishing resets progress")
	require.Len(t, finished, 1)
	assert.Equal(t, StateFinished, finished[0].State)
	assert.Equal(t, 2*time.Second, finished[0].Position)
	assert.True(t, out.Last().Closed())
}

func TestPollDecodeErrorDuringPlayback(t *testing.T) {
	out := NewMockOutput(5 * time.Second)
	e := newTestEngine(t, out, nil)
	e.Load(clip)

	out.Last().Fail(errors.New("corrupt frame"))
	s := e.Poll()

	assert.Equal(t, StateError, s.State)
	assert.ErrorIs(t, s.Err, ttypes.ErrDecodeAudio)
	assert.True(t, out.Last().Closed())
}

func TestPollIgnoredWhenNotPlaying(t *testing.T) {
	out := NewMockOutput(time.Second)
	e := newTestEngine(t, out, nil)
	e.Load(clip)
	e.Pause()
	out.Last().Fail(errors.New("late"))

	assert.Equal(t, StatePaused, e.Poll().State)
}

func TestProgressTicker(t *testing.T) {
	bus := events.New()
	out := NewMockOutput(time.Minute)
	e, err := NewEngine(EngineConfig{
		Output:           out,
		ProgressInterval: 10 * time.Millisecond,
		Bus:              bus,
		Logger:           log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel}),
	})
	require.NoError(t, err)
	defer e.Close() //nolint:errcheck

	ticks, unsubscribe, err := events.Chan[Snapshot](bus, events.PlaybackProgress, 64)
	require.NoError(t, err)
	defer unsubscribe()

	e.Load(clip)

	select {
	case s := <-ticks:
		assert.Equal(t, StatePlaying, s.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no progress sample while playing")
	}

	e.Pause()
	time.Sleep(30 * time.Millisecond)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, ticks, 0, "no samples while paused")
}

func TestEndToEndPlayback(t *testing.T) {
	out := NewMockOutput(6 * time.Second)
	e := newTestEngine(t, out, nil)

	s := e.Load(clip)
	require.Equal(t, StatePlaying, s.State)

	s = e.Seek(s.Duration / 2)
	assert.Equal(t, 3*time.Second, s.Position)

	s = e.Stop()
	assert.Equal(t, StateIdle, s.State)
	assert.Zero(t, s.Duration)
}

func TestNewEngineRequiresOutput(t *testing.T) {
	_, err := NewEngine(EngineConfig{})
	assert.Error(t, err)
}

func TestNewEngineVolume(t *testing.T) {
	quiet := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	muted := 0.0
	tests := []struct {
		name   string
		volume *float64
		want   float64
	}{
		{"unset is full volume", nil, 1.0},
		{"zero mutes", &muted, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewMockOutput(time.Second)
			e, err := NewEngine(EngineConfig{Output: out, ProgressInterval: time.Hour, Volume: tt.volume, Logger: quiet})
			require.NoError(t, err)
			defer e.Close() //nolint:errcheck

			s := e.Load(clip)
			assert.Equal(t, tt.want, s.Volume)
			assert.Equal(t, tt.want, out.Last().Volume())
		})
	}
}
