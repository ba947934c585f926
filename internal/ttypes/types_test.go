package ttypes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmotionSettingsTable(t *testing.T) {
	tests := []struct {
		emotion EmotionPreset
		want    VoiceSettings
	}{
		{EmotionNeutral, VoiceSettings{0.5, 0.5, 0.0, false}},
		{EmotionHappy, VoiceSettings{0.3, 0.8, 0.3, true}},
		{EmotionSad, VoiceSettings{0.8, 0.3, 0.0, false}},
		{EmotionExcited, VoiceSettings{0.2, 0.9, 0.5, true}},
		{EmotionCalm, VoiceSettings{0.9, 0.2, 0.0, false}},
		{EmotionAngry, VoiceSettings{0.4, 0.7, 0.4, true}},
		{EmotionWhisper, VoiceSettings{0.9, 0.1, 0.0, false}},
		{EmotionDramatic, VoiceSettings{0.3, 0.6, 0.6, true}},
	}

	for _, tt := range tests {
		t.Run(tt.emotion.String(), func(t *testing.T) {
			got := tt.emotion.Settings()
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	assert.Len(t, AllPresets(), len(tests), "every preset must have a table entry")
}

func TestAllPresetsOrder(t *testing.T) {
	want := []string{"neutral", "happy", "sad", "excited", "calm", "angry", "whisper", "dramatic"}
	var got []string
	for _, p := range AllPresets() {
		got = append(got, p.String())
	}
	assert.Equal(t, want, got)
}

func TestEmotionDisplayName(t *testing.T) {
	assert.Equal(t, "Neutral", EmotionNeutral.DisplayName())
	assert.Equal(t, "Dramatic", EmotionDramatic.DisplayName())
}

func TestParseEmotion(t *testing.T) {
	e, err := ParseEmotion("  Whisper ")
	require.NoError(t, err)
	assert.Equal(t, EmotionWhisper, e)

	_, err = ParseEmotion("bored")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestUnknownPresetFallsBackToNeutral(t *testing.T) {
	assert.Equal(t, EmotionNeutral.Settings(), EmotionPreset("bored").Settings())
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"elevenlabs", ProviderElevenLabs, false},
		{"11labs", ProviderElevenLabs, false},
		{"OpenAI", ProviderOpenAI, false},
		{"gemini", ProviderGoogle, false},
		{"google", ProviderGoogle, false},
		{"polly", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpeedRange(t *testing.T) {
	tests := []struct {
		provider Provider
		in       float64
		want     float64
	}{
		{ProviderOpenAI, 10.0, 4.0},
		{ProviderOpenAI, -1.0, 0.25},
		{ProviderOpenAI, 1.5, 1.5},
		{ProviderElevenLabs, 3.0, 2.0},
		{ProviderGoogle, 0.1, 0.5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%g", tt.provider, tt.in), func(t *testing.T) {
			c := DefaultControls()
			c.Speed = tt.in
			assert.Equal(t, tt.want, c.ClampSpeed(tt.provider))
		})
	}
}

func TestNormalizeControls(t *testing.T) {
	c := VoiceControls{Speed: 9, Pitch: 0.1, Volume: 3, Emotion: "unknown"}
	got := c.Normalize(ProviderElevenLabs)

	assert.Equal(t, 2.0, got.Speed)
	assert.Equal(t, MinPitch, got.Pitch)
	assert.Equal(t, MaxVolume, got.Volume)
	assert.Equal(t, EmotionNeutral, got.Emotion)
}

func TestDefaultControls(t *testing.T) {
	c := DefaultControls()
	assert.Equal(t, VoiceControls{Speed: 1, Pitch: 1, Volume: 1, Emotion: EmotionNeutral}, c)
}

func TestSynthesisRequestValidate(t *testing.T) {
	alloy := Voice{ID: "alloy", Name: "Alloy", Provider: ProviderOpenAI}

	tests := []struct {
		name    string
		req     SynthesisRequest
		wantErr bool
	}{
		{"valid", NewSynthesisRequest("Hello world", alloy, DefaultControls()), false},
		{"empty text", NewSynthesisRequest("", alloy, DefaultControls()), true},
		{"whitespace text", NewSynthesisRequest(" \n\t", alloy, DefaultControls()), true},
		{"no voice", SynthesisRequest{Text: "hi", Provider: ProviderOpenAI}, true},
		{"provider mismatch", SynthesisRequest{Text: "hi", Voice: alloy, Provider: ProviderGoogle}, true},
		{"unknown provider", SynthesisRequest{Text: "hi", Voice: Voice{ID: "x"}, Provider: "polly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVoiceKey(t *testing.T) {
	v := Voice{ID: "alloy", Provider: ProviderOpenAI}
	assert.Equal(t, "openai/alloy", v.Key())
}
