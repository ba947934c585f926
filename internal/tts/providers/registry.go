package providers

import (
	"fmt"

	"github.com/tmm22/voicedeck/internal/ttypes"
)

// maxErrorBody bounds how much of a failed response is kept in errors.
const maxErrorBody = 512

// Config bundles the per-provider adapter settings.
type Config struct {
	ElevenLabs ElevenLabsConfig
	OpenAI     OpenAIConfig
	Google     GoogleConfig
}

// Registry maps provider tags to adapters.
type Registry struct {
	adapters map[ttypes.Provider]ttypes.Adapter
}

// NewRegistry creates a registry holding the three built-in adapters.
func NewRegistry(cfg Config) *Registry {
	return NewRegistryWith(
		NewElevenLabs(cfg.ElevenLabs),
		NewOpenAI(cfg.OpenAI),
		NewGoogle(cfg.Google),
	)
}

// NewRegistryWith creates a registry from explicit adapters.
// A later adapter for the same provider replaces an earlier one.
func NewRegistryWith(adapters ...ttypes.Adapter) *Registry {
	r := &Registry{adapters: make(map[ttypes.Provider]ttypes.Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Adapter returns the adapter registered for p.
func (r *Registry) Adapter(p ttypes.Provider) (ttypes.Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeUnknownProvider,
			fmt.Sprintf("no adapter registered for provider %q", p), nil)
	}
	return a, nil
}

// Providers lists registered providers in display order.
func (r *Registry) Providers() []ttypes.Provider {
	var out []ttypes.Provider
	for _, p := range ttypes.AllProviders() {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// CheckStatus converts a non-2xx response into a PROVIDER_STATUS error.
func CheckStatus(p ttypes.Provider, resp *ttypes.HTTPResponse) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body := string(resp.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return ttypes.NewTTSError(ttypes.ErrorCodeProviderStatus,
		fmt.Sprintf("%s request failed", p.DisplayName()),
		&ttypes.StatusError{StatusCode: resp.StatusCode, Body: body}).
		WithContext("provider", string(p)).
		WithContext("status", resp.StatusCode)
}

func rawAudio(p ttypes.Provider, resp *ttypes.HTTPResponse) ([]byte, error) {
	if len(resp.Body) == 0 {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeDecoding, ttypes.ErrDecoding.Message,
			fmt.Errorf("empty audio body from %s", p.DisplayName()))
	}
	return resp.Body, nil
}
