package batch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// TestPhrase is synthesized once per preset with {emotion} replaced by
// the preset's lowercase name.
const TestPhrase = "This is a test of the {emotion} voice emotion. The quick brown fox jumps over the lazy dog."

const (
	// DefaultPacing is the delay between presets.
	DefaultPacing = 500 * time.Millisecond

	// DefaultDir is the artifact directory under the store root.
	DefaultDir = "EmotionTests"

	logTimeFormat = "15:04:05"
)

// ErrRunActive is returned when a run is started while another is active,
// or when results are cleared during a run.
var ErrRunActive = errors.New("an emotion test run is already active")

// PhraseFor returns the test text for preset.
func PhraseFor(preset ttypes.EmotionPreset) string {
	return strings.ReplaceAll(TestPhrase, "{emotion}", strings.ToLower(preset.DisplayName()))
}

// ArtifactName is the file name a preset's clip is saved under.
func ArtifactName(preset ttypes.EmotionPreset, p ttypes.Provider) string {
	return fmt.Sprintf("%s_test_%s.mp3", preset, strings.ToLower(string(p)))
}

// Result is the outcome of one preset.
type Result struct {
	Emotion  ttypes.EmotionPreset `json:"emotion"`
	Success  bool                 `json:"success"`
	Duration time.Duration        `json:"duration"`

	// Parameters is set only for providers that consume voice settings
	Parameters *ttypes.VoiceSettings `json:"parameters,omitempty"`

	Error    string `json:"error,omitempty"`
	Artifact string `json:"artifact,omitempty"`
}

// LogEntry is one timestamped line of the run log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(logTimeFormat), e.Message)
}

// Snapshot is a copy of the runner state.
type Snapshot struct {
	RunID    string               `json:"run_id,omitempty"`
	Provider ttypes.Provider      `json:"provider,omitempty"`
	Voice    ttypes.Voice         `json:"voice"`
	Running  bool                 `json:"running"`
	Current  ttypes.EmotionPreset `json:"current,omitempty"`
	Progress float64              `json:"progress"`
	Results  []Result             `json:"results"`
	Log      []LogEntry           `json:"log"`
	Err      string               `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded counts successful results.
func (s Snapshot) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Failed returns the display names of failed presets in run order.
func (s Snapshot) Failed() []string {
	var names []string
	for _, r := range s.Results {
		if !r.Success {
			names = append(names, r.Emotion.DisplayName())
		}
	}
	return names
}

// Config holds the runner's collaborators.
type Config struct {
	// Synthesizer performs each call (required)
	Synthesizer ttypes.Synthesizer

	// Credentials is checked before a run starts (required)
	Credentials ttypes.CredentialStore

	// Store receives the clips; nil disables saving
	Store ttypes.ArtifactStore

	// Pacing between presets (defaults to 500ms, negative means none)
	Pacing time.Duration

	// Dir under the store root (defaults to EmotionTests)
	Dir string

	// Presets to sweep (defaults to every preset in declaration order)
	Presets []ttypes.EmotionPreset

	Bus    *events.Bus
	Logger *log.Logger
}

// Runner executes one sweep at a time.
type Runner struct {
	synth   ttypes.Synthesizer
	creds   ttypes.CredentialStore
	store   ttypes.ArtifactStore
	pacing  time.Duration
	dir     string
	presets []ttypes.EmotionPreset
	bus     *events.Bus
	logger  *log.Logger

	mu    sync.Mutex
	state Snapshot
	stop  chan struct{}
	done  chan struct{}
}

// NewRunner creates an idle runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Synthesizer == nil {
		return nil, errors.New("synthesizer cannot be nil")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("credential store cannot be nil")
	}
	switch {
	case cfg.Pacing == 0:
		cfg.Pacing = DefaultPacing
	case cfg.Pacing < 0:
		cfg.Pacing = 0
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if len(cfg.Presets) == 0 {
		cfg.Presets = ttypes.AllPresets()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("batch")
	}

	return &Runner{
		synth:   cfg.Synthesizer,
		creds:   cfg.Credentials,
		store:   cfg.Store,
		pacing:  cfg.Pacing,
		dir:     cfg.Dir,
		presets: append([]ttypes.EmotionPreset(nil), cfg.Presets...),
		bus:     cfg.Bus,
		logger:  cfg.Logger,
	}, nil
}

// Start validates the credential for p and launches a sweep in the
// background. It returns ErrRunActive, leaving the active run untouched,
// if a sweep is in progress. Cancelling ctx ends the run like Stop and
// also aborts the in-flight call.
func (r *Runner) Start(ctx context.Context, p ttypes.Provider, voice ttypes.Voice) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return ErrRunActive
	}

	if !p.Valid() {
		r.mu.Unlock()
		_, err := ttypes.ParseProvider(string(p))
		return err
	}
	if voice.Provider == "" {
		voice.Provider = p
	}

	if !r.creds.HasKey(p) {
		err := ttypes.NewTTSError(ttypes.ErrorCodeNoAPIKey,
			fmt.Sprintf("%s API key is required for testing", p.DisplayName()), nil).
			WithContext("provider", string(p))
		r.state.Err = err.Error()
		r.mu.Unlock()
		return err
	}

	r.state = Snapshot{
		RunID:     uuid.NewString(),
		Provider:  p,
		Voice:     voice,
		Running:   true,
		Results:   []Result{},
		Log:       []LogEntry{},
		StartedAt: time.Now(),
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	r.stop = stop
	r.done = done
	runID := r.state.RunID
	r.mu.Unlock()

	name := voice.Name
	if name == "" {
		name = voice.ID
	}
	r.addLog(fmt.Sprintf("Starting emotion tests for %s with voice: %s", p.DisplayName(), name))
	r.addLog("Test phrase: " + TestPhrase)
	r.logger.Debug("emotion run started", "run", runID, "provider", p, "voice", voice.ID, "presets", len(r.presets))

	go r.run(ctx, stop, done)
	return nil
}

// Run starts a sweep and waits for it to end.
func (r *Runner) Run(ctx context.Context, p ttypes.Provider, voice ttypes.Voice) (Snapshot, error) {
	if err := r.Start(ctx, p, voice); err != nil {
		return r.Snapshot(), err
	}
	r.Wait()
	return r.Snapshot(), nil
}

// Stop asks the active run to halt before its next preset. An in-flight
// call runs to completion and its result is discarded.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stop == nil {
		r.mu.Unlock()
		return
	}
	select {
	case <-r.stop:
		r.mu.Unlock()
		return
	default:
	}
	close(r.stop)
	r.state.Current = ""
	r.mu.Unlock()

	r.addLog("Tests stopped by user")
}

// Wait blocks until the active run, if any, has ended.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a sweep is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done != nil
}

// Clear discards results, log, error and progress.
func (r *Runner) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return ErrRunActive
	}
	r.state = Snapshot{}
	return nil
}

// Snapshot returns a copy of the current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// VerifyParameters reports whether preset's voice settings are in range.
func (r *Runner) VerifyParameters(preset ttypes.EmotionPreset) bool {
	return preset.Settings().Valid()
}

// Report renders the current results as plain text.
func (r *Runner) Report() string {
	return Report(r.Snapshot())
}

func (r *Runner) run(ctx context.Context, stop, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.state.Running = false
		r.state.Current = ""
		r.state.FinishedAt = time.Now()
		r.stop = nil
		r.done = nil
		final := r.snapshotLocked()
		r.mu.Unlock()

		r.bus.Publish(events.BatchDone, final)
		close(done)
	}()

	snap := r.Snapshot()
	p, voice := snap.Provider, snap.Voice
	total := len(r.presets)
	var savedDir string

	for i, preset := range r.presets {
		if halted(ctx, stop) {
			r.logCancel(ctx)
			return
		}

		r.mu.Lock()
		r.state.Current = preset
		r.state.Progress = float64(i) / float64(total)
		progress := r.snapshotLocked()
		r.mu.Unlock()
		r.bus.Publish(events.BatchProgress, progress)

		r.addLog("Testing emotion: " + preset.DisplayName())
		if p.UsesVoiceSettings() {
			s := preset.Settings()
			r.addLog(fmt.Sprintf("%s parameters - Stability: %g, Similarity Boost: %g, Style: %g, Speaker Boost: %t",
				p.DisplayName(), s.Stability, s.SimilarityBoost, s.Style, s.SpeakerBoost))
		}

		result, audio := r.testPreset(ctx, p, voice, preset)

		if halted(ctx, stop) {
			r.logCancel(ctx)
			return
		}

		if result.Success {
			r.addLog(preset.DisplayName() + " test completed successfully")
			if saved := r.save(snap.RunID, p, preset, audio); saved != "" {
				result.Artifact = saved
				savedDir = filepath.Dir(saved)
			}
		} else {
			r.addLog(fmt.Sprintf("%s test failed: %s", preset.DisplayName(), result.Error))
		}

		r.mu.Lock()
		r.state.Results = append(r.state.Results, result)
		progress = r.snapshotLocked()
		r.mu.Unlock()
		r.bus.Publish(events.BatchProgress, progress)

		if i < total-1 && !r.pause(ctx, stop) {
			r.logCancel(ctx)
			return
		}
	}

	r.mu.Lock()
	r.state.Progress = 1.0
	r.state.Current = ""
	final := r.snapshotLocked()
	r.mu.Unlock()

	r.addLog(fmt.Sprintf("Testing completed! %d/%d emotions tested successfully", final.Succeeded(), len(final.Results)))
	if failed := final.Failed(); len(failed) > 0 {
		r.addLog("Failed emotions: " + strings.Join(failed, ", "))
	}
	if savedDir != "" {
		r.addLog("Audio files saved to: " + savedDir)
	}
}

func (r *Runner) testPreset(ctx context.Context, p ttypes.Provider, voice ttypes.Voice, preset ttypes.EmotionPreset) (Result, []byte) {
	controls := ttypes.DefaultControls()
	controls.Emotion = preset
	req := ttypes.SynthesisRequest{
		Text:     PhraseFor(preset),
		Voice:    voice,
		Provider: p,
		Controls: controls,
	}

	start := time.Now()
	audio, err := r.synth.Synthesize(ctx, req)
	result := Result{
		Emotion:  preset,
		Success:  err == nil,
		Duration: time.Since(start),
	}
	if p.UsesVoiceSettings() {
		s := preset.Settings()
		result.Parameters = &s
	}
	if err != nil {
		result.Error = err.Error()
		r.logger.Debug("preset failed", "emotion", preset, "error", err)
	}
	return result, audio
}

// save persists a clip. Failures are logged and never fail the result.
func (r *Runner) save(runID string, p ttypes.Provider, preset ttypes.EmotionPreset, audio []byte) string {
	if r.store == nil {
		return ""
	}
	name := ArtifactName(preset, p)
	saved, err := r.store.WriteFile(path.Join(r.dir, runID, name), audio)
	if err != nil {
		r.addLog(fmt.Sprintf("Failed to save audio file for %s: %v", preset.DisplayName(), err))
		return ""
	}
	r.addLog(fmt.Sprintf("Saved audio file: %s (%s)", name, humanize.Bytes(uint64(len(audio)))))
	return saved
}

// pause waits out the pacing delay. It returns false if the run was
// stopped meanwhile.
func (r *Runner) pause(ctx context.Context, stop chan struct{}) bool {
	if r.pacing <= 0 {
		return !halted(ctx, stop)
	}
	timer := time.NewTimer(r.pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// logCancel records why the run ended early. Stop logs for itself.
func (r *Runner) logCancel(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		r.addLog(fmt.Sprintf("Tests canceled: %v", err))
	}
}

func (r *Runner) addLog(msg string) {
	entry := LogEntry{Time: time.Now(), Message: msg}
	r.mu.Lock()
	r.state.Log = append(r.state.Log, entry)
	r.mu.Unlock()
	r.logger.Debug(msg)
	r.bus.Publish(events.BatchLog, entry)
}

func (r *Runner) snapshotLocked() Snapshot {
	s := r.state
	s.Results = append([]Result(nil), r.state.Results...)
	s.Log = append([]LogEntry(nil), r.state.Log...)
	return s
}

func halted(ctx context.Context, stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
