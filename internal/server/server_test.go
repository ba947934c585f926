package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/credentials"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

type fakeSynth struct {
	mu      sync.Mutex
	last    ttypes.SynthesisRequest
	err     error
	voices  []ttypes.Voice
	loadErr error
}

func (f *fakeSynth) Synthesize(_ context.Context, req ttypes.SynthesisRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return []byte("ID3-audio"), nil
}

func (f *fakeSynth) Voices() []ttypes.Voice { return f.voices }

func (f *fakeSynth) VoicesFor(p ttypes.Provider) []ttypes.Voice {
	var out []ttypes.Voice
	for _, v := range f.voices {
		if v.Provider == p {
			out = append(out, v)
		}
	}
	return out
}

func (f *fakeSynth) LoadCatalog(_ context.Context, p ttypes.Provider) ([]ttypes.Voice, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.VoicesFor(p), nil
}

func (f *fakeSynth) ResolveVoice(p ttypes.Provider, id string) (ttypes.Voice, error) {
	for _, v := range f.VoicesFor(p) {
		if id == "" || v.ID == id {
			return v, nil
		}
	}
	return ttypes.Voice{}, ttypes.NewTTSError(ttypes.ErrorCodeInvalidInput, "unknown voice "+id, nil)
}

func (f *fakeSynth) request() ttypes.SynthesisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

func newTestServer(t *testing.T, synth *fakeSynth, runner BatchRunner) *Server {
	t.Helper()
	if synth.voices == nil {
		synth.voices = []ttypes.Voice{
			{ID: "alloy", Name: "Alloy", Provider: ttypes.ProviderOpenAI},
			{ID: "echo", Name: "Echo", Provider: ttypes.ProviderOpenAI},
			{ID: "kore", Name: "Kore", Provider: ttypes.ProviderGoogle},
		}
	}
	s, err := New(Options{Synthesizer: synth, Batch: runner, Logger: quietLogger()})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSynthesize(t *testing.T) {
	synth := &fakeSynth{}
	s := newTestServer(t, synth, nil)

	rec := do(t, s, http.MethodPost, "/v1/synthesize", map[string]interface{}{
		"text":     "Hello world",
		"provider": "openai",
		"voice":    "echo",
		"controls": map[string]interface{}{"speed": 1.5, "emotion": "calm"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-audio", rec.Body.String())
	assert.Equal(t, "echo", rec.Header().Get("X-Voice-Id"))

	req := synth.request()
	assert.Equal(t, ttypes.ProviderOpenAI, req.Provider)
	assert.Equal(t, "Hello world", req.Text)
	assert.Equal(t, 1.5, req.Controls.Speed)
	assert.Equal(t, 1.0, req.Controls.Volume, "omitted controls keep their defaults")
	assert.Equal(t, ttypes.EmotionCalm, req.Controls.Emotion)
}

func TestSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		err    error
		status int
	}{
		{"missing text", map[string]string{"provider": "openai"}, nil, http.StatusBadRequest},
		{"unknown provider", map[string]string{"text": "hi", "provider": "polly"}, nil, http.StatusBadRequest},
		{"unknown voice", map[string]string{"text": "hi", "provider": "openai", "voice": "zzz"}, nil, http.StatusBadRequest},
		{"bad emotion", map[string]interface{}{"text": "hi", "provider": "openai", "controls": map[string]string{"emotion": "sleepy"}}, nil, http.StatusBadRequest},
		{"missing key", map[string]string{"text": "hi", "provider": "openai"}, ttypes.NoAPIKeyError(ttypes.ProviderOpenAI), http.StatusPreconditionFailed},
		{"provider status", map[string]string{"text": "hi", "provider": "openai"},
			ttypes.NewTTSError(ttypes.ErrorCodeProviderStatus, "OpenAI request failed", &ttypes.StatusError{StatusCode: 500}), http.StatusBadGateway},
		{"timeout", map[string]string{"text": "hi", "provider": "openai"},
			ttypes.NewTransportError(ttypes.TransportTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"offline", map[string]string{"text": "hi", "provider": "openai"},
			ttypes.NewTransportError(ttypes.TransportNotConnected, errors.New("dial")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeSynth{err: tt.err}, nil)
			rec := do(t, s, http.MethodPost, "/v1/synthesize", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestMissingKeyMessage(t *testing.T) {
	s := newTestServer(t, &fakeSynth{err: ttypes.NoAPIKeyError(ttypes.ProviderOpenAI)}, nil)
	rec := do(t, s, http.MethodPost, "/v1/synthesize", map[string]string{"text": "hi", "provider": "openai"})
	assert.Equal(t, "OpenAI API key not provided", decode(t, rec).Message)
}

func TestVoices(t *testing.T) {
	s := newTestServer(t, &fakeSynth{}, nil)

	rec := do(t, s, http.MethodGet, "/v1/voices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec).Data, 3)

	rec = do(t, s, http.MethodGet, "/v1/voices?provider=gemini", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec).Data, 1)

	rec = do(t, s, http.MethodGet, "/v1/voices?provider=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, &fakeSynth{}, nil)
	rec := do(t, s, http.MethodPost, "/v1/voices/openai/refresh", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := newTestServer(t, &fakeSynth{loadErr: ttypes.NoAPIKeyError(ttypes.ProviderElevenLabs)}, nil)
	rec = do(t, failing, http.MethodPost, "/v1/voices/elevenlabs/refresh", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t, &fakeSynth{}, nil)
	rec := do(t, s, http.MethodGet, "/v1/batch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "batch routes are absent without a runner")
}

func TestBatchLifecycle(t *testing.T) {
	synth := &fakeSynth{}
	runner, err := batch.NewRunner(batch.Config{
		Synthesizer: synth,
		Credentials: credentials.StaticStore{ttypes.ProviderOpenAI: "sk"},
		Pacing:      time.Millisecond,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	s := newTestServer(t, synth, runner)

	rec := do(t, s, http.MethodPost, "/v1/batch", map[string]string{"provider": "openai", "voice": "alloy"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	runner.Wait()

	rec = do(t, s, http.MethodGet, "/v1/batch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Data batch.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Data.Results, len(ttypes.AllPresets()))
	assert.Equal(t, 1.0, snap.Data.Progress)

	rec = do(t, s, http.MethodGet, "/v1/batch/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Emotion Test Results")
	assert.Contains(t, rec.Body.String(), "Successful tests: 8")

	rec = do(t, s, http.MethodDelete, "/v1/batch", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBatchConflictAndMissingKey(t *testing.T) {
	gate := make(chan struct{})
	synth := &blockingSynth{fakeSynth: &fakeSynth{}, gate: gate}
	runner, err := batch.NewRunner(batch.Config{
		Synthesizer: synth,
		Credentials: credentials.StaticStore{ttypes.ProviderOpenAI: "sk"},
		Pacing:      time.Millisecond,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	s := newTestServer(t, synth.fakeSynth, runner)

	rec := do(t, s, http.MethodPost, "/v1/batch", map[string]string{"provider": "google"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "no Google key configured")

	rec = do(t, s, http.MethodPost, "/v1/batch", map[string]string{"provider": "openai"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/batch", map[string]string{"provider": "openai"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodDelete, "/v1/batch", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	close(gate)
	runner.Wait()
	assert.False(t, runner.Running())
}

type blockingSynth struct {
	*fakeSynth
	gate chan struct{}
}

func (b *blockingSynth) Synthesize(ctx context.Context, req ttypes.SynthesisRequest) ([]byte, error) {
	select {
	case <-b.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.fakeSynth.Synthesize(ctx, req)
}
