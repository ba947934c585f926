package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/tts/providers"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// Options holds the collaborators of a Synthesizer.
type Options struct {
	// Registry maps provider tags to adapters (required)
	Registry *providers.Registry

	// Transport performs the HTTP exchanges (required)
	Transport ttypes.Transport

	// Credentials supplies API keys (required)
	Credentials ttypes.CredentialStore

	// Bus receives catalog and failure events (optional)
	Bus *events.Bus

	// Logger for debug output (optional)
	Logger *log.Logger
}

// Synthesizer is the provider-agnostic synthesis orchestrator.
// Synthesize calls are independent and may run concurrently. The only
// shared state is the voice catalog, which is swapped atomically.
type Synthesizer struct {
	registry    *providers.Registry
	transport   ttypes.Transport
	credentials ttypes.CredentialStore
	bus         *events.Bus
	logger      *log.Logger

	// Voice catalog snapshot; readers never see a partial update
	catalog   atomic.Pointer[[]ttypes.Voice]
	catalogMu sync.Mutex

	// Error handling
	lastError error
	errorMu   sync.RWMutex
}

var _ ttypes.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer creates a synthesizer seeded with the compiled-in catalogs.
func NewSynthesizer(opts Options) (*Synthesizer, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential store cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("tts")
	}

	s := &Synthesizer{
		registry:    opts.Registry,
		transport:   opts.Transport,
		credentials: opts.Credentials,
		bus:         opts.Bus,
		logger:      opts.Logger,
	}

	var seed []ttypes.Voice
	for _, p := range s.registry.Providers() {
		a, _ := s.registry.Adapter(p)
		seed = append(seed, a.Voices()...)
	}
	s.catalog.Store(&seed)

	return s, nil
}

// Synthesize sends req to its provider and returns the audio bytes.
// Every call performs a live exchange; results are never cached.
func (s *Synthesizer) Synthesize(ctx context.Context, req ttypes.SynthesisRequest) ([]byte, error) {
	s.setError(nil)

	audio, err := s.synthesize(ctx, req)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	return audio, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, req ttypes.SynthesisRequest) ([]byte, error) {
	if req.Provider == "" {
		req.Provider = req.Voice.Provider
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Adapter(req.Provider)
	if err != nil {
		return nil, err
	}

	key := s.credentials.Key(req.Provider)
	if !ttypes.KeyPresent(key) {
		return nil, ttypes.NoAPIKeyError(req.Provider)
	}

	httpReq, err := adapter.Encode(req, key)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("synthesizing",
		"provider", req.Provider,
		"voice", req.Voice.ID,
		"emotion", req.Controls.Emotion,
		"chars", len(req.Text))

	resp, err := s.transport.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if err := providers.CheckStatus(req.Provider, resp); err != nil {
		return nil, err
	}

	audio, err := adapter.Decode(resp)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("synthesis complete", "provider", req.Provider, "size", humanize.Bytes(uint64(len(audio))))
	return audio, nil
}

// LoadCatalog returns the voices for p. Providers with a network catalog
// are fetched; on success their previous entries are replaced and the
// combined catalog is published. On failure the catalog is left untouched
// and the error is also kept for LastError.
func (s *Synthesizer) LoadCatalog(ctx context.Context, p ttypes.Provider) ([]ttypes.Voice, error) {
	adapter, err := s.registry.Adapter(p)
	if err != nil {
		return nil, err
	}

	fetcher, ok := adapter.(ttypes.CatalogFetcher)
	if !ok {
		return s.VoicesFor(p), nil
	}

	s.setError(nil)
	voices, err := s.fetchCatalog(ctx, p, fetcher)
	if err != nil {
		err = fmt.Errorf("Failed to load %s voices: %w", p.DisplayName(), err) //nolint:stylecheck
		s.fail(err)
		return nil, err
	}

	combined := s.replaceCatalog(p, voices)
	s.logger.Debug("catalog updated", "provider", p, "voices", len(voices), "total", len(combined))
	s.bus.Publish(events.CatalogUpdated, combined)

	return append([]ttypes.Voice(nil), voices...), nil
}

func (s *Synthesizer) fetchCatalog(ctx context.Context, p ttypes.Provider, fetcher ttypes.CatalogFetcher) ([]ttypes.Voice, error) {
	key := s.credentials.Key(p)
	if !ttypes.KeyPresent(key) {
		return nil, ttypes.NoAPIKeyError(p)
	}

	httpReq, err := fetcher.CatalogRequest(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.transport.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	if err := providers.CheckStatus(p, resp); err != nil {
		return nil, err
	}
	return fetcher.DecodeCatalog(resp)
}

// replaceCatalog drops every entry of p and appends voices, keeping the
// relative order of the other providers' entries.
func (s *Synthesizer) replaceCatalog(p ttypes.Provider, voices []ttypes.Voice) []ttypes.Voice {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	old := *s.catalog.Load()
	next := make([]ttypes.Voice, 0, len(old)+len(voices))
	for _, v := range old {
		if v.Provider != p {
			next = append(next, v)
		}
	}
	next = append(next, voices...)
	s.catalog.Store(&next)

	return append([]ttypes.Voice(nil), next...)
}

// Voices returns a copy of the combined catalog.
func (s *Synthesizer) Voices() []ttypes.Voice {
	return append([]ttypes.Voice(nil), *s.catalog.Load()...)
}

// VoicesFor returns the catalog entries of one provider.
func (s *Synthesizer) VoicesFor(p ttypes.Provider) []ttypes.Voice {
	var out []ttypes.Voice
	for _, v := range *s.catalog.Load() {
		if v.Provider == p {
			out = append(out, v)
		}
	}
	return out
}

// FindVoice looks a voice up by provider and ID, falling back to a
// case-insensitive name match.
func (s *Synthesizer) FindVoice(p ttypes.Provider, idOrName string) (ttypes.Voice, bool) {
	voices := s.VoicesFor(p)
	for _, v := range voices {
		if v.ID == idOrName {
			return v, true
		}
	}
	for _, v := range voices {
		if strings.EqualFold(v.Name, idOrName) {
			return v, true
		}
	}
	return ttypes.Voice{}, false
}

// HasKey reports whether a credential is configured for p.
func (s *Synthesizer) HasKey(p ttypes.Provider) bool {
	return s.credentials.HasKey(p)
}

// LastError returns the error of the most recent failed attempt, or nil
// once a new attempt has started.
func (s *Synthesizer) LastError() error {
	s.errorMu.RLock()
	defer s.errorMu.RUnlock()
	return s.lastError
}

func (s *Synthesizer) fail(err error) {
	s.setError(err)
	if !errors.Is(err, context.Canceled) {
		s.logger.Debug("request failed", "error", err)
	}
	s.bus.Publish(events.SynthesisFailed, err)
}

func (s *Synthesizer) setError(err error) {
	s.errorMu.Lock()
	s.lastError = err
	s.errorMu.Unlock()
}
