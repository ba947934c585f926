package providers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

const (
	// DefaultGoogleBaseURL is the generative language API root.
	DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGoogleModel is the model whose generateContent method returns audio.
	DefaultGoogleModel = "gemini-exp-1121"
)

// GoogleConfig holds configuration for the Google adapter.
type GoogleConfig struct {
	BaseURL string
	Model   string
}

// Google implements ttypes.Adapter over the generateContent endpoint.
// Audio comes back base64-encoded inside a JSON envelope.
type Google struct {
	baseURL string
	model   string
}

var googleVoices = []ttypes.Voice{
	{ID: "aoede", Name: "Aoede", Provider: ttypes.ProviderGoogle},
	{ID: "zephyr", Name: "Zephyr", Provider: ttypes.ProviderGoogle},
	{ID: "kore", Name: "Kore", Provider: ttypes.ProviderGoogle},
	{ID: "leda", Name: "Leda", Provider: ttypes.ProviderGoogle},
	{ID: "algenib", Name: "Algenib", Provider: ttypes.ProviderGoogle},
	{ID: "callirrhoe", Name: "Callirrhoe", Provider: ttypes.ProviderGoogle},
	{ID: "charon", Name: "Charon", Provider: ttypes.ProviderGoogle},
	{ID: "fenrir", Name: "Fenrir", Provider: ttypes.ProviderGoogle},
	{ID: "puck", Name: "Puck", Provider: ttypes.ProviderGoogle},
	{ID: "orus", Name: "Orus", Provider: ttypes.ProviderGoogle},
	{ID: "umbriel", Name: "Umbriel", Provider: ttypes.ProviderGoogle},
	{ID: "sadachbia", Name: "Sadachbia", Provider: ttypes.ProviderGoogle},
}

type googleRequest struct {
	Contents         []googleContent        `json:"contents"`
	GenerationConfig googleGenerationConfig `json:"generationConfig"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *googleInlineData `json:"inlineData,omitempty"`
}

type googleInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type googleGenerationConfig struct {
	ResponseMimeType string `json:"response_mime_type"`
}

type googleResponse struct {
	Candidates []struct {
		Content *googleContent `json:"content"`
	} `json:"candidates"`
}

// NewGoogle creates a Google adapter.
func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGoogleModel
	}
	return &Google{baseURL: cfg.BaseURL, model: cfg.Model}
}

// Provider implements ttypes.Adapter.
func (a *Google) Provider() ttypes.Provider {
	return ttypes.ProviderGoogle
}

// Encode implements ttypes.Adapter. The key travels as a query parameter.
func (a *Google) Encode(req ttypes.SynthesisRequest, apiKey string) (*ttypes.HTTPRequest, error) {
	endpoint, err := url.Parse(a.baseURL + "/models/" + url.PathEscape(a.model) + ":generateContent")
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, ttypes.ErrInvalidURL.Message, err)
	}
	q := endpoint.Query()
	q.Set("key", apiKey)
	endpoint.RawQuery = q.Encode()

	prompt := fmt.Sprintf("Generate speech for the following text with voice '%s': %s", req.Voice.ID, req.Text)
	body, err := sonic.Marshal(googleRequest{
		Contents:         []googleContent{{Parts: []googlePart{{Text: prompt}}}},
		GenerationConfig: googleGenerationConfig{ResponseMimeType: "audio/mp3"},
	})
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeEncoding, ttypes.ErrEncoding.Message, err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return &ttypes.HTTPRequest{
		Method: http.MethodPost,
		URL:    endpoint.String(),
		Header: header,
		Body:   body,
	}, nil
}

// Decode implements ttypes.Adapter. Audio is read from
// candidates[0].content.parts[0].inlineData.data and base64-decoded.
func (a *Google) Decode(resp *ttypes.HTTPResponse) ([]byte, error) {
	var env googleResponse
	if err := sonic.Unmarshal(resp.Body, &env); err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeDecoding, ttypes.ErrDecoding.Message, err)
	}

	missing := func(path string) error {
		return ttypes.NewTTSError(ttypes.ErrorCodeDecoding, ttypes.ErrDecoding.Message,
			fmt.Errorf("response has no %s", path))
	}
	switch {
	case len(env.Candidates) == 0:
		return nil, missing("candidates[0]")
	case env.Candidates[0].Content == nil:
		return nil, missing("candidates[0].content")
	case len(env.Candidates[0].Content.Parts) == 0:
		return nil, missing("candidates[0].content.parts[0]")
	case env.Candidates[0].Content.Parts[0].InlineData == nil:
		return nil, missing("candidates[0].content.parts[0].inlineData")
	}

	encoded := env.Candidates[0].Content.Parts[0].InlineData.Data
	if encoded == "" {
		return nil, missing("candidates[0].content.parts[0].inlineData.data")
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeDecoding, ttypes.ErrDecoding.Message, err)
	}
	return audio, nil
}

// Voices implements ttypes.Adapter.
func (a *Google) Voices() []ttypes.Voice {
	return append([]ttypes.Voice(nil), googleVoices...)
}
