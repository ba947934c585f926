package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit little-endian stereo.
const (
	channels      = 2
	bytesPerFrame = 4
)

// PlayerConfig contains configuration for the oto output.
type PlayerConfig struct {
	SampleRate int           // 44100 or 48000 Hz only
	BufferSize time.Duration // device buffer; 0 lets oto decide
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100, // CD quality
		BufferSize: 100 * time.Millisecond,
	}
}

// oto allows a single context per process, so it is initialized once and reused.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

// OtoOutput implements Output on the system audio device.
// MP3 data is decoded with go-mp3 and resampled to the device rate.
type OtoOutput struct {
	context    *oto.Context
	sampleRate int
}

// NewOtoOutput opens the audio device. Later calls reuse the first
// context regardless of config.
func NewOtoOutput(config PlayerConfig) (*OtoOutput, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   config.BufferSize,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = config.SampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}

	return &OtoOutput{context: otoCtx, sampleRate: otoRate}, nil
}

// validateConfig validates the player configuration.
func validateConfig(config PlayerConfig) error {
	// OTO only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.BufferSize < 0 {
		return errors.New("buffer size cannot be negative")
	}
	return nil
}

// Open implements Output. The whole clip is decoded up front so decode
// failures surface here rather than mid-playback.
func (o *OtoOutput) Open(data []byte) (Track, error) {
	stream, err := decodeMP3(data, o.sampleRate)
	if err != nil {
		return nil, err
	}
	if o.context == nil {
		return nil, errors.New("audio device not initialized")
	}
	return &otoTrack{
		player: o.context.NewPlayer(stream),
		stream: stream,
	}, nil
}

func decodeMP3(data []byte, dstRate int) (*pcmStream, error) {
	if len(data) == 0 {
		return nil, errors.New("audio data is empty")
	}
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid mp3 stream: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode failed: %w", err)
	}
	if len(pcm) < bytesPerFrame {
		return nil, errors.New("mp3 stream contains no audio frames")
	}
	return newPCMStream(pcm, dec.SampleRate(), dstRate), nil
}

// otoTrack implements Track over an oto player.
type otoTrack struct {
	player *oto.Player

	// CRITICAL: keeps the decoded audio alive during playback
	stream *pcmStream
}

func (t *otoTrack) Play() error {
	t.player.Play()
	return t.player.Err()
}

func (t *otoTrack) Pause() {
	t.player.Pause()
}

func (t *otoTrack) IsPlaying() bool {
	return t.player.IsPlaying()
}

func (t *otoTrack) Duration() time.Duration {
	return t.stream.duration()
}

// Position accounts for audio already handed to the device but not yet heard.
func (t *otoTrack) Position() time.Duration {
	buffered := t.player.BufferedSize() / bytesPerFrame
	return t.stream.position(buffered)
}

func (t *otoTrack) Seek(pos time.Duration) time.Duration {
	offset := t.stream.frameAt(pos) * bytesPerFrame
	if _, err := t.player.Seek(int64(offset), io.SeekStart); err != nil {
		return t.Position()
	}
	return t.stream.position(0)
}

func (t *otoTrack) SetVolume(v float64) {
	t.player.SetVolume(v)
}

func (t *otoTrack) SetRate(r float64) {
	t.stream.setRate(r)
}

func (t *otoTrack) Done() bool {
	return t.stream.ended() && !t.player.IsPlaying()
}

func (t *otoTrack) Err() error {
	return t.player.Err()
}

func (t *otoTrack) Close() error {
	return t.player.Close()
}

// pcmStream is a frame-stepping reader over decoded stereo PCM. It
// converts the source sample rate to the device rate and applies the
// playback rate by advancing a fractional source position, linearly
// interpolating between neighbouring frames.
type pcmStream struct {
	mu      sync.Mutex
	pcm     []byte
	frames  int
	srcRate int
	dstRate int
	rate    float64
	pos     float64 // source frame index
}

func newPCMStream(pcm []byte, srcRate, dstRate int) *pcmStream {
	if srcRate <= 0 {
		srcRate = dstRate
	}
	return &pcmStream{
		pcm:     pcm,
		frames:  len(pcm) / bytesPerFrame,
		srcRate: srcRate,
		dstRate: dstRate,
		rate:    1.0,
	}
}

func (s *pcmStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := float64(s.srcRate) / float64(s.dstRate) * s.rate
	n := 0
	for n+bytesPerFrame <= len(p) {
		i := int(s.pos)
		if i >= s.frames {
			break
		}
		frac := s.pos - float64(i)
		for ch := 0; ch < channels; ch++ {
			a := s.sample(i, ch)
			b := a
			if i+1 < s.frames {
				b = s.sample(i+1, ch)
			}
			v := float64(a) + (float64(b)-float64(a))*frac
			binary.LittleEndian.PutUint16(p[n+2*ch:], uint16(int16(v)))
		}
		n += bytesPerFrame
		s.pos += step
	}

	if n == 0 && int(s.pos) >= s.frames {
		return 0, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker in source-PCM byte offsets so oto can
// discard its buffer on seek.
func (s *pcmStream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var frame float64
	switch whence {
	case io.SeekStart:
		frame = float64(offset / bytesPerFrame)
	case io.SeekCurrent:
		frame = s.pos + float64(offset/bytesPerFrame)
	case io.SeekEnd:
		frame = float64(s.frames) + float64(offset/bytesPerFrame)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	s.pos = clampFloat(frame, 0, float64(s.frames))
	return int64(s.pos) * bytesPerFrame, nil
}

func (s *pcmStream) sample(frame, ch int) int16 {
	off := frame*bytesPerFrame + 2*ch
	return int16(binary.LittleEndian.Uint16(s.pcm[off:]))
}

func (s *pcmStream) setRate(r float64) {
	s.mu.Lock()
	s.rate = r
	s.mu.Unlock()
}

func (s *pcmStream) duration() time.Duration {
	return time.Duration(float64(s.frames) / float64(s.srcRate) * float64(time.Second))
}

// position converts the read head, less buffered device frames, to time.
func (s *pcmStream) position(bufferedDstFrames int) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := float64(s.srcRate) / float64(s.dstRate) * s.rate
	frame := clampFloat(s.pos-float64(bufferedDstFrames)*step, 0, float64(s.frames))
	return time.Duration(frame / float64(s.srcRate) * float64(time.Second))
}

func (s *pcmStream) frameAt(pos time.Duration) int {
	f := int(pos.Seconds() * float64(s.srcRate))
	if f < 0 {
		return 0
	}
	if f > s.frames {
		return s.frames
	}
	return f
}

func (s *pcmStream) ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.pos) >= s.frames
}
