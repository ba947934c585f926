package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// DefaultProgressInterval is how often position samples are published
// while playing.
const DefaultProgressInterval = 100 * time.Millisecond

// Rate bounds accepted by SetRate.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// State is the playback engine state.
type State int

const (
	// StateIdle means no session is loaded
	StateIdle State = iota

	// StateLoaded means a session exists but has not started
	StateLoaded

	// StatePlaying means audio is being output
	StatePlaying

	// StatePaused means the session is held at a position
	StatePaused

	// StateFinished is reported once when a session plays to the end
	StateFinished

	// StateError means decoding or starting failed; Stop or Load leaves it
	StateError
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	State    State
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Rate     float64
	Err      error
}

// Progress returns the played fraction in [0,1].
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	p := float64(s.Position) / float64(s.Duration)
	if p > 1 {
		return 1
	}
	return p
}

// Output is the system audio primitive the engine drives.
type Output interface {
	// Open decodes data into a playable track.
	Open(data []byte) (Track, error)
}

// Track is one decoded, playable audio clip.
type Track interface {
	Play() error
	Pause()
	IsPlaying() bool
	Duration() time.Duration
	Position() time.Duration
	// Seek moves to pos, clamped to [0, Duration], and returns the new position.
	Seek(pos time.Duration) time.Duration
	SetVolume(v float64)
	SetRate(r float64)
	// Done reports that the track played to its end.
	Done() bool
	// Err reports a failure raised while playing.
	Err() error
	Close() error
}

// EngineConfig holds configuration for the playback engine.
type EngineConfig struct {
	// Output is the audio backend (required)
	Output Output

	// ProgressInterval between position samples (defaults to 100ms)
	ProgressInterval time.Duration

	// Volume applied to every new session; nil means full volume and a
	// zero value mutes
	Volume *float64

	// Rate applied to every new session (default 1.0)
	Rate float64

	// Bus receives playback events (optional)
	Bus *events.Bus

	// Logger for debug output (optional)
	Logger *log.Logger
}

// Engine is the playback state machine. One session is active at a time;
// loading new audio replaces the current session. Operations complete
// immediately and never return errors: failures move the engine to
// StateError with a retrievable message.
type Engine struct {
	output   Output
	interval time.Duration
	bus      *events.Bus
	logger   *log.Logger

	mu       sync.Mutex
	state    State
	track    Track
	position time.Duration
	duration time.Duration
	volume   float64
	rate     float64
	err      error

	// Closed to stop the progress goroutine of the current Playing span
	tickerStop chan struct{}
}

// NewEngine creates an idle engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Output == nil {
		return nil, fmt.Errorf("audio output cannot be nil")
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	volume := 1.0
	if cfg.Volume != nil {
		volume = *cfg.Volume
	}
	if cfg.Rate == 0 {
		cfg.Rate = 1.0
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("audio")
	}

	return &Engine{
		output:   cfg.Output,
		interval: cfg.ProgressInterval,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
		state:    StateIdle,
		volume:   clampFloat(volume, 0, 1),
		rate:     clampFloat(cfg.Rate, MinRate, MaxRate),
	}, nil
}

// Load replaces any current session with data and starts playing it.
// Decode and start failures are reported through the returned snapshot.
func (e *Engine) Load(data []byte) Snapshot {
	e.mu.Lock()
	e.teardownLocked()
	e.err = nil

	track, err := e.output.Open(data)
	if err != nil {
		e.failLocked(ttypes.NewTTSError(ttypes.ErrorCodeDecodeAudio, ttypes.ErrDecodeAudio.Message, err))
		return e.unlockAndPublish(events.PlaybackState)
	}

	track.SetVolume(e.volume)
	track.SetRate(e.rate)
	e.track = track
	e.duration = track.Duration()
	e.position = 0
	e.state = StateLoaded

	if err := track.Play(); err != nil {
		e.failLocked(ttypes.NewTTSError(ttypes.ErrorCodePlaybackStartFailed, ttypes.ErrPlaybackStartFailed.Message, err))
		return e.unlockAndPublish(events.PlaybackState)
	}

	e.state = StatePlaying
	e.startTickerLocked()
	e.logger.Debug("playback started", "duration", e.duration.Round(time.Millisecond))
	return e.unlockAndPublish(events.PlaybackState)
}

// Pause holds playback. It is a no-op unless the engine is playing.
func (e *Engine) Pause() Snapshot {
	e.mu.Lock()
	if e.state != StatePlaying {
		return e.unlock()
	}
	e.stopTickerLocked()
	e.track.Pause()
	e.position = e.track.Position()
	e.state = StatePaused
	return e.unlockAndPublish(events.PlaybackState)
}

// Resume continues playback. It is a no-op unless the engine is paused.
func (e *Engine) Resume() Snapshot {
	e.mu.Lock()
	if e.state != StatePaused {
		return e.unlock()
	}
	if err := e.track.Play(); err != nil {
		e.failLocked(ttypes.NewTTSError(ttypes.ErrorCodePlaybackStartFailed, ttypes.ErrPlaybackStartFailed.Message, err))
		return e.unlockAndPublish(events.PlaybackState)
	}
	e.state = StatePlaying
	e.startTickerLocked()
	return e.unlockAndPublish(events.PlaybackState)
}

// TogglePause pauses when playing and resumes when paused.
func (e *Engine) TogglePause() Snapshot {
	if e.Snapshot().State == StatePlaying {
		return e.Pause()
	}
	return e.Resume()
}

// Stop tears down the session from any state and returns to idle with
// position and duration reset. The last error stays retrievable.
func (e *Engine) Stop() Snapshot {
	e.mu.Lock()
	wasIdle := e.state == StateIdle && e.track == nil
	e.teardownLocked()
	if wasIdle {
		return e.unlock()
	}
	return e.unlockAndPublish(events.PlaybackState)
}

// Seek moves the current session to pos. With no session it is a no-op.
// The reported position updates immediately.
func (e *Engine) Seek(pos time.Duration) Snapshot {
	e.mu.Lock()
	if e.track == nil {
		return e.unlock()
	}
	e.position = e.track.Seek(pos)
	return e.unlockAndPublish(events.PlaybackProgress)
}

// SetRate changes the playback rate, clamped to [MinRate, MaxRate]. If
// the session should be playing but the output has stalled, playback is
// restarted so the new rate takes effect.
func (e *Engine) SetRate(rate float64) Snapshot {
	e.mu.Lock()
	e.rate = clampFloat(rate, MinRate, MaxRate)
	if e.track == nil {
		return e.unlock()
	}
	e.track.SetRate(e.rate)
	if e.state == StatePlaying && !e.track.IsPlaying() && !e.track.Done() {
		if err := e.track.Play(); err != nil {
			e.failLocked(ttypes.NewTTSError(ttypes.ErrorCodePlaybackStartFailed, ttypes.ErrPlaybackStartFailed.Message, err))
			return e.unlockAndPublish(events.PlaybackState)
		}
	}
	return e.unlock()
}

// SetVolume changes the output level, clamped to [0,1].
func (e *Engine) SetVolume(volume float64) Snapshot {
	e.mu.Lock()
	e.volume = clampFloat(volume, 0, 1)
	if e.track != nil {
		e.track.SetVolume(e.volume)
	}
	return e.unlock()
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Close stops playback and releases the session.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	return nil
}

// Poll samples the session once: it publishes progress while playing and
// raises the terminal Finished or Error transitions. The progress ticker
// calls it; tests may call it directly.
func (e *Engine) Poll() Snapshot {
	e.mu.Lock()
	if e.state != StatePlaying || e.track == nil {
		return e.unlock()
	}

	if err := e.track.Err(); err != nil {
		e.failLocked(ttypes.NewTTSError(ttypes.ErrorCodeDecodeAudio, ttypes.ErrDecodeAudio.Message, err))
		return e.unlockAndPublish(events.PlaybackState)
	}

	if e.track.Done() {
		e.position = e.duration
		e.state = StateFinished
		finished := e.snapshotLocked()
		e.teardownLocked()
		idle := e.snapshotLocked()
		e.mu.Unlock()

		e.logger.Debug("playback finished")
		e.bus.Publish(events.PlaybackFinished, finished)
		e.bus.Publish(events.PlaybackState, idle)
		return idle
	}

	e.position = e.track.Position()
	return e.unlockAndPublish(events.PlaybackProgress)
}

func (e *Engine) snapshotLocked() Snapshot {
	pos := e.position
	if e.state == StatePlaying && e.track != nil {
		pos = e.track.Position()
	}
	return Snapshot{
		State:    e.state,
		Position: pos,
		Duration: e.duration,
		Volume:   e.volume,
		Rate:     e.rate,
		Err:      e.err,
	}
}

// failLocked records err, releases the session and enters StateError.
func (e *Engine) failLocked(err error) {
	e.logger.Debug("playback error", "error", err)
	e.teardownLocked()
	e.err = err
	e.state = StateError
}

// teardownLocked releases the session and returns to idle.
func (e *Engine) teardownLocked() {
	e.stopTickerLocked()
	if e.track != nil {
		if err := e.track.Close(); err != nil {
			e.logger.Debug("failed to close track", "error", err)
		}
		e.track = nil
	}
	e.position = 0
	e.duration = 0
	e.state = StateIdle
}

func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	stop := make(chan struct{})
	e.tickerStop = stop

	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.pollFor(stop)
			}
		}
	}()
}

// pollFor polls unless the ticker that owns stop was cancelled meanwhile.
func (e *Engine) pollFor(stop chan struct{}) {
	e.mu.Lock()
	current := e.tickerStop == stop
	e.mu.Unlock()
	if current {
		e.Poll()
	}
}

// stopTickerLocked never waits for the goroutine, which may be blocked on mu.
func (e *Engine) stopTickerLocked() {
	if e.tickerStop != nil {
		close(e.tickerStop)
		e.tickerStop = nil
	}
}

func (e *Engine) unlock() Snapshot {
	s := e.snapshotLocked()
	e.mu.Unlock()
	return s
}

// unlockAndPublish releases mu before publishing so handlers may call back in.
func (e *Engine) unlockAndPublish(topic string) Snapshot {
	s := e.unlock()
	e.bus.Publish(topic, s)
	return s
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
