package providers

import (
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

const (
	// DefaultElevenLabsBaseURL is the public ElevenLabs API root.
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// DefaultElevenLabsModel is the model sent with every synthesis request.
	DefaultElevenLabsModel = "eleven_monolingual_v1"
)

// ElevenLabsConfig holds configuration for the ElevenLabs adapter.
type ElevenLabsConfig struct {
	// BaseURL overrides the API root (defaults to DefaultElevenLabsBaseURL)
	BaseURL string

	// ModelID overrides the synthesis model (defaults to DefaultElevenLabsModel)
	ModelID string
}

// ElevenLabs implements ttypes.Adapter and ttypes.CatalogFetcher.
// The voice catalog is fetched from the network.
type ElevenLabs struct {
	baseURL string
	modelID string
}

type elevenLabsRequest struct {
	Text          string               `json:"text"`
	ModelID       string               `json:"model_id"`
	VoiceSettings ttypes.VoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceList struct {
	Voices []struct {
		VoiceID  string `json:"voice_id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"voices"`
}

// NewElevenLabs creates an ElevenLabs adapter.
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultElevenLabsBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultElevenLabsModel
	}
	return &ElevenLabs{baseURL: cfg.BaseURL, modelID: cfg.ModelID}
}

// Provider implements ttypes.Adapter.
func (a *ElevenLabs) Provider() ttypes.Provider {
	return ttypes.ProviderElevenLabs
}

// Encode implements ttypes.Adapter. The emotion preset's settings tuple
// is sent verbatim as voice_settings.
func (a *ElevenLabs) Encode(req ttypes.SynthesisRequest, apiKey string) (*ttypes.HTTPRequest, error) {
	if req.Voice.ID == "" {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, ttypes.ErrInvalidURL.Message, nil).
			WithContext("provider", string(ttypes.ProviderElevenLabs))
	}
	endpoint, err := url.JoinPath(a.baseURL, "text-to-speech", url.PathEscape(req.Voice.ID))
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, ttypes.ErrInvalidURL.Message, err)
	}

	body, err := sonic.Marshal(elevenLabsRequest{
		Text:          req.Text,
		ModelID:       a.modelID,
		VoiceSettings: req.Controls.Emotion.Settings(),
	})
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeEncoding, ttypes.ErrEncoding.Message, err)
	}

	header := http.Header{}
	header.Set("xi-api-key", apiKey)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "audio/mpeg")

	return &ttypes.HTTPRequest{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: header,
		Body:   body,
	}, nil
}

// Decode implements ttypes.Adapter. The response body is the MP3 stream.
func (a *ElevenLabs) Decode(resp *ttypes.HTTPResponse) ([]byte, error) {
	return rawAudio(ttypes.ProviderElevenLabs, resp)
}

// Voices implements ttypes.Adapter. ElevenLabs has no compiled-in voices.
func (a *ElevenLabs) Voices() []ttypes.Voice {
	return nil
}

// CatalogRequest implements ttypes.CatalogFetcher.
func (a *ElevenLabs) CatalogRequest(apiKey string) (*ttypes.HTTPRequest, error) {
	endpoint, err := url.JoinPath(a.baseURL, "voices")
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, ttypes.ErrInvalidURL.Message, err)
	}

	header := http.Header{}
	header.Set("xi-api-key", apiKey)
	header.Set("Accept", "application/json")

	return &ttypes.HTTPRequest{
		Method: http.MethodGet,
		URL:    endpoint,
		Header: header,
	}, nil
}

// DecodeCatalog implements ttypes.CatalogFetcher.
func (a *ElevenLabs) DecodeCatalog(resp *ttypes.HTTPResponse) ([]ttypes.Voice, error) {
	var list elevenLabsVoiceList
	if err := sonic.Unmarshal(resp.Body, &list); err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeDecoding, "Failed to decode ElevenLabs voice list", err)
	}

	voices := make([]ttypes.Voice, 0, len(list.Voices))
	for _, v := range list.Voices {
		if v.VoiceID == "" {
			continue
		}
		voices = append(voices, ttypes.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: ttypes.ProviderElevenLabs,
		})
	}
	return voices, nil
}
