package audio

import (
	"errors"
	"sync"
	"time"
)

// MockOutput implements Output for testing purposes.
// It simulates playback without producing sound; time only advances when
// a test calls Advance on the track.
type MockOutput struct {
	// Duration assigned to every opened track (defaults to 10s)
	Duration time.Duration

	// OpenErr makes Open fail, simulating undecodable data
	OpenErr error

	// PlayErr makes Track.Play fail, simulating a device that cannot start
	PlayErr error

	mu     sync.Mutex
	tracks []*MockTrack
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay  func()
	OnPause func()
	OnClose func()
}

// NewMockOutput creates a mock output with the given track duration.
func NewMockOutput(duration time.Duration) *MockOutput {
	return &MockOutput{Duration: duration}
}

// Open implements Output.
func (m *MockOutput) Open(data []byte) (Track, error) {
	if len(data) == 0 {
		return nil, errors.New("audio data is empty")
	}
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	d := m.Duration
	if d == 0 {
		d = 10 * time.Second
	}
	t := &MockTrack{
		data:     append([]byte(nil), data...),
		duration: d,
		volume:   1.0,
		rate:     1.0,
		playErr:  m.PlayErr,
	}

	m.mu.Lock()
	m.tracks = append(m.tracks, t)
	m.mu.Unlock()
	return t, nil
}

// Tracks returns every track opened so far.
func (m *MockOutput) Tracks() []*MockTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockTrack(nil), m.tracks...)
}

// Last returns the most recently opened track, or nil.
func (m *MockOutput) Last() *MockTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tracks) == 0 {
		return nil
	}
	return m.tracks[len(m.tracks)-1]
}

// MockTrack implements Track for tests.
type MockTrack struct {
	mu        sync.Mutex
	data      []byte
	duration  time.Duration
	position  time.Duration
	volume    float64
	rate      float64
	playing   bool
	done      bool
	closed    bool
	err       error
	playErr   error
	callbacks MockCallbacks

	// Metrics for testing
	playCount  int
	pauseCount int
}

// SetCallbacks installs test hooks.
func (t *MockTrack) SetCallbacks(cb MockCallbacks) {
	t.mu.Lock()
	t.callbacks = cb
	t.mu.Unlock()
}

// Play implements Track.
func (t *MockTrack) Play() error {
	t.mu.Lock()
	if t.playErr != nil {
		t.mu.Unlock()
		return t.playErr
	}
	if t.closed {
		t.mu.Unlock()
		return errors.New("track is closed")
	}
	t.playing = true
	t.playCount++
	cb := t.callbacks.OnPlay
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Pause implements Track.
func (t *MockTrack) Pause() {
	t.mu.Lock()
	t.playing = false
	t.pauseCount++
	cb := t.callbacks.OnPause
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// IsPlaying implements Track.
func (t *MockTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Duration implements Track.
func (t *MockTrack) Duration() time.Duration {
	return t.duration
}

// Position implements Track.
func (t *MockTrack) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Seek implements Track.
func (t *MockTrack) Seek(pos time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > t.duration {
		pos = t.duration
	}
	t.position = pos
	t.done = false
	return pos
}

// SetVolume implements Track.
func (t *MockTrack) SetVolume(v float64) {
	t.mu.Lock()
	t.volume = v
	t.mu.Unlock()
}

// SetRate implements Track.
func (t *MockTrack) SetRate(r float64) {
	t.mu.Lock()
	t.rate = r
	t.mu.Unlock()
}

// Done implements Track.
func (t *MockTrack) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Err implements Track.
func (t *MockTrack) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close implements Track.
func (t *MockTrack) Close() error {
	t.mu.Lock()
	t.closed = true
	t.playing = false
	cb := t.callbacks.OnClose
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Advance simulates d of wall-clock playback at the current rate.
// Reaching the end marks the track done and stops it.
func (t *MockTrack) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	t.position += time.Duration(float64(d) * t.rate)
	if t.position >= t.duration {
		t.position = t.duration
		t.done = true
		t.playing = false
	}
}

// Stall stops output without the engine asking, like a starved device.
func (t *MockTrack) Stall() {
	t.mu.Lock()
	t.playing = false
	t.mu.Unlock()
}

// Fail injects a mid-playback decode error.
func (t *MockTrack) Fail(err error) {
	t.mu.Lock()
	t.err = err
	t.playing = false
	t.mu.Unlock()
}

// Volume returns the last volume set.
func (t *MockTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Rate returns the last rate set.
func (t *MockTrack) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// Closed reports whether Close was called.
func (t *MockTrack) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// PlayCount returns how many times Play succeeded.
func (t *MockTrack) PlayCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playCount
}

// PauseCount returns how many times Pause was called.
func (t *MockTrack) PauseCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseCount
}
