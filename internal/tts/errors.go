package tts

import (
	"errors"
	"strings"

	"github.com/tmm22/voicedeck/internal/ttypes"
)

// Common orchestrator errors
var (
	// ErrNoProviderConfigured indicates no provider has been selected
	ErrNoProviderConfigured = errors.New("no TTS provider configured")

	// ErrNoVoices indicates the catalog has no entries for a provider
	ErrNoVoices = errors.New("no voices available")
)

// UserMessage renders err the way it is surfaced to users. A bare
// missing-key error names the provider.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if te, ok := err.(*ttypes.TTSError); ok && te.Code == ttypes.ErrorCodeNoAPIKey { //nolint:errorlint
		if p, ok := te.Context["provider"].(string); ok {
			return ttypes.Provider(p).DisplayName() + " API key not provided"
		}
	}
	return strings.TrimSpace(err.Error())
}
