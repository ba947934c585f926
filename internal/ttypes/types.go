// Package ttypes contains shared types and interfaces for the TTS system.
// This package is used to break import cycles between tts, providers, audio, and batch packages.
package ttypes

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Provider identifies a speech-synthesis vendor.
type Provider string

const (
	// ProviderElevenLabs is the ElevenLabs text-to-speech API.
	ProviderElevenLabs Provider = "elevenlabs"

	// ProviderOpenAI is the OpenAI audio/speech API.
	ProviderOpenAI Provider = "openai"

	// ProviderGoogle is the Google generative language API.
	ProviderGoogle Provider = "google"
)

// AllProviders returns every supported provider in display order.
func AllProviders() []Provider {
	return []Provider{ProviderElevenLabs, ProviderOpenAI, ProviderGoogle}
}

// String returns the provider tag.
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns the vendor name as shown to users.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderElevenLabs:
		return "ElevenLabs"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderGoogle:
		return "Google"
	default:
		return string(p)
	}
}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderElevenLabs, ProviderOpenAI, ProviderGoogle:
		return true
	default:
		return false
	}
}

// UsesVoiceSettings reports whether the provider consumes the emotion settings tuple.
func (p Provider) UsesVoiceSettings() bool {
	return p == ProviderElevenLabs
}

// SpeedRange returns the speed multipliers accepted by the provider.
func (p Provider) SpeedRange() SpeedRange {
	if p == ProviderOpenAI {
		return SpeedRange{Min: 0.25, Max: 4.0}
	}
	return SpeedRange{Min: 0.5, Max: 2.0}
}

// ParseProvider converts user input into a Provider. Matching is case-insensitive.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elevenlabs", "eleven", "11labs":
		return ProviderElevenLabs, nil
	case "openai":
		return ProviderOpenAI, nil
	case "google", "gemini":
		return ProviderGoogle, nil
	default:
		return "", NewTTSError(ErrorCodeUnknownProvider, fmt.Sprintf("unknown provider %q (supported: elevenlabs, openai, google)", s), nil)
	}
}

// SpeedRange is an inclusive range of speed multipliers.
type SpeedRange struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (r SpeedRange) Clamp(v float64) float64 {
	return clamp(v, r.Min, r.Max)
}

// Voice is a provider-scoped synthetic speaker.
// IDs are unique within a provider only.
type Voice struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Provider Provider `json:"provider"`
}

// Key returns an identifier that is unique across providers.
func (v Voice) Key() string {
	return string(v.Provider) + "/" + v.ID
}

// EmotionPreset is a named bundle of synthesis-shaping parameters.
type EmotionPreset string

const (
	EmotionNeutral  EmotionPreset = "neutral"
	EmotionHappy    EmotionPreset = "happy"
	EmotionSad      EmotionPreset = "sad"
	EmotionExcited  EmotionPreset = "excited"
	EmotionCalm     EmotionPreset = "calm"
	EmotionAngry    EmotionPreset = "angry"
	EmotionWhisper  EmotionPreset = "whisper"
	EmotionDramatic EmotionPreset = "dramatic"
)

// AllPresets returns every emotion preset in declaration order.
func AllPresets() []EmotionPreset {
	return []EmotionPreset{
		EmotionNeutral,
		EmotionHappy,
		EmotionSad,
		EmotionExcited,
		EmotionCalm,
		EmotionAngry,
		EmotionWhisper,
		EmotionDramatic,
	}
}

// String returns the raw preset name.
func (e EmotionPreset) String() string {
	return string(e)
}

// DisplayName returns the capitalized preset name.
func (e EmotionPreset) DisplayName() string {
	return cases.Title(language.English).String(string(e))
}

// Valid reports whether e is a known preset.
func (e EmotionPreset) Valid() bool {
	_, ok := emotionSettings[e]
	return ok
}

// Settings returns the voice settings tuple for the preset.
// Unknown presets map to the neutral settings.
func (e EmotionPreset) Settings() VoiceSettings {
	if s, ok := emotionSettings[e]; ok {
		return s
	}
	return emotionSettings[EmotionNeutral]
}

// ParseEmotion converts user input into an EmotionPreset.
func ParseEmotion(s string) (EmotionPreset, error) {
	e := EmotionPreset(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return "", NewTTSError(ErrorCodeInvalidInput, fmt.Sprintf("unknown emotion %q", s), nil)
	}
	return e, nil
}

// VoiceSettings shapes ElevenLabs-class synthesis.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// Valid reports whether the fractional fields lie within [0,1].
func (s VoiceSettings) Valid() bool {
	in := func(v float64) bool { return v >= 0 && v <= 1 }
	return in(s.Stability) && in(s.SimilarityBoost) && in(s.Style)
}

// String formats the settings the way reports print them.
func (s VoiceSettings) String() string {
	return fmt.Sprintf("Stability=%g, SimilarityBoost=%g, Style=%g, SpeakerBoost=%t",
		s.Stability, s.SimilarityBoost, s.Style, s.SpeakerBoost)
}

var emotionSettings = map[EmotionPreset]VoiceSettings{
	EmotionNeutral:  {Stability: 0.5, SimilarityBoost: 0.5, Style: 0.0, SpeakerBoost: false},
	EmotionHappy:    {Stability: 0.3, SimilarityBoost: 0.8, Style: 0.3, SpeakerBoost: true},
	EmotionSad:      {Stability: 0.8, SimilarityBoost: 0.3, Style: 0.0, SpeakerBoost: false},
	EmotionExcited:  {Stability: 0.2, SimilarityBoost: 0.9, Style: 0.5, SpeakerBoost: true},
	EmotionCalm:     {Stability: 0.9, SimilarityBoost: 0.2, Style: 0.0, SpeakerBoost: false},
	EmotionAngry:    {Stability: 0.4, SimilarityBoost: 0.7, Style: 0.4, SpeakerBoost: true},
	EmotionWhisper:  {Stability: 0.9, SimilarityBoost: 0.1, Style: 0.0, SpeakerBoost: false},
	EmotionDramatic: {Stability: 0.3, SimilarityBoost: 0.6, Style: 0.6, SpeakerBoost: true},
}

// Pitch and volume bounds for VoiceControls.
const (
	MinPitch  = 0.5
	MaxPitch  = 2.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// VoiceControls holds the user-adjustable synthesis controls.
type VoiceControls struct {
	Speed   float64       `json:"speed"`
	Pitch   float64       `json:"pitch"`
	Volume  float64       `json:"volume"`
	Emotion EmotionPreset `json:"emotion"`
}

// DefaultControls returns controls at unity speed, pitch and volume with the neutral preset.
func DefaultControls() VoiceControls {
	return VoiceControls{
		Speed:   1.0,
		Pitch:   1.0,
		Volume:  1.0,
		Emotion: EmotionNeutral,
	}
}

// ClampSpeed returns the speed limited to the provider's accepted range.
func (c VoiceControls) ClampSpeed(p Provider) float64 {
	return p.SpeedRange().Clamp(c.Speed)
}

// Normalize clamps every control into its valid range for the provider.
func (c VoiceControls) Normalize(p Provider) VoiceControls {
	c.Speed = c.ClampSpeed(p)
	c.Pitch = clamp(c.Pitch, MinPitch, MaxPitch)
	c.Volume = clamp(c.Volume, MinVolume, MaxVolume)
	if !c.Emotion.Valid() {
		c.Emotion = EmotionNeutral
	}
	return c
}

// SynthesisRequest is the input to one synthesis call.
type SynthesisRequest struct {
	Text     string        `json:"text"`
	Voice    Voice         `json:"voice"`
	Provider Provider      `json:"provider"`
	Controls VoiceControls `json:"controls"`
}

// NewSynthesisRequest builds a request whose provider follows the voice.
func NewSynthesisRequest(text string, voice Voice, controls VoiceControls) SynthesisRequest {
	return SynthesisRequest{
		Text:     text,
		Voice:    voice,
		Provider: voice.Provider,
		Controls: controls,
	}
}

// Validate checks the request can be sent to a provider.
func (r SynthesisRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return NewTTSError(ErrorCodeInvalidInput, "text cannot be empty", nil)
	}
	if !r.Provider.Valid() {
		return NewTTSError(ErrorCodeUnknownProvider, fmt.Sprintf("unknown provider %q", r.Provider), nil)
	}
	if r.Voice.ID == "" {
		return NewTTSError(ErrorCodeInvalidInput, "voice cannot be empty", nil)
	}
	if r.Voice.Provider != "" && r.Voice.Provider != r.Provider {
		return NewTTSError(ErrorCodeInvalidInput,
			fmt.Sprintf("voice %s belongs to %s, not %s", r.Voice.ID, r.Voice.Provider.DisplayName(), r.Provider.DisplayName()), nil)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
