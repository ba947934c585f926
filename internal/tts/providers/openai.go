package providers

import (
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

const (
	// DefaultOpenAIBaseURL is the public OpenAI API root.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the speech model sent with every request.
	DefaultOpenAIModel = string(openai.TTSModel1)
)

// OpenAIConfig holds configuration for the OpenAI adapter.
type OpenAIConfig struct {
	BaseURL string
	Model   string
}

// OpenAI implements ttypes.Adapter for the audio/speech endpoint.
type OpenAI struct {
	baseURL string
	model   string
}

var openAIVoices = []ttypes.Voice{
	{ID: string(openai.VoiceAlloy), Name: "Alloy", Provider: ttypes.ProviderOpenAI},
	{ID: string(openai.VoiceEcho), Name: "Echo", Provider: ttypes.ProviderOpenAI},
	{ID: string(openai.VoiceFable), Name: "Fable", Provider: ttypes.ProviderOpenAI},
	{ID: string(openai.VoiceOnyx), Name: "Onyx", Provider: ttypes.ProviderOpenAI},
	{ID: string(openai.VoiceNova), Name: "Nova", Provider: ttypes.ProviderOpenAI},
	{ID: string(openai.VoiceShimmer), Name: "Shimmer", Provider: ttypes.ProviderOpenAI},
}

// NewOpenAI creates an OpenAI adapter.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	return &OpenAI{baseURL: cfg.BaseURL, model: cfg.Model}
}

// Provider implements ttypes.Adapter.
func (a *OpenAI) Provider() ttypes.Provider {
	return ttypes.ProviderOpenAI
}

// Encode implements ttypes.Adapter. Speed is silently clamped to [0.25, 4.0].
func (a *OpenAI) Encode(req ttypes.SynthesisRequest, apiKey string) (*ttypes.HTTPRequest, error) {
	endpoint, err := url.JoinPath(a.baseURL, "audio", "speech")
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, ttypes.ErrInvalidURL.Message, err)
	}

	body, err := sonic.Marshal(openai.CreateSpeechRequest{
		Model: openai.SpeechModel(a.model),
		Input: req.Text,
		Voice: openai.SpeechVoice(req.Voice.ID),
		Speed: req.Controls.ClampSpeed(ttypes.ProviderOpenAI),
	})
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeEncoding, ttypes.ErrEncoding.Message, err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("Content-Type", "application/json")

	return &ttypes.HTTPRequest{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: header,
		Body:   body,
	}, nil
}

// Decode implements ttypes.Adapter. The response body is the MP3 stream.
func (a *OpenAI) Decode(resp *ttypes.HTTPResponse) ([]byte, error) {
	return rawAudio(ttypes.ProviderOpenAI, resp)
}

// Voices implements ttypes.Adapter.
func (a *OpenAI) Voices() []ttypes.Voice {
	return append([]ttypes.Voice(nil), openAIVoices...)
}
