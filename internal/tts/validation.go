package tts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmm22/voicedeck/internal/ttypes"
)

// SelectProvider picks the provider from the CLI argument first, then the
// configured default. An explicit choice is required.
func SelectProvider(cliArg string, configured ttypes.Provider) (ttypes.Provider, error) {
	// 1. CLI argument takes precedence
	name := cliArg

	// 2. Use config if no CLI arg
	if name == "" {
		name = string(configured)
	}

	// 3. Require explicit selection
	if name == "" {
		return "", fmt.Errorf("%w\n\nPlease specify a provider:\n  voicedeck speak --provider openai \"Hello\"\n\nOr set a default in voicedeck.yml:\n  provider: openai  # or \"elevenlabs\", \"google\"", ErrNoProviderConfigured)
	}

	return ttypes.ParseProvider(name)
}

// ResolveVoice finds a voice for p by ID or display name. ElevenLabs
// accepts raw voice IDs that are not in the catalog yet, since its list
// is only known after a fetch. An empty idOrName selects the provider's
// first voice.
func (s *Synthesizer) ResolveVoice(p ttypes.Provider, idOrName string) (ttypes.Voice, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		voices := s.VoicesFor(p)
		if len(voices) == 0 {
			return ttypes.Voice{}, fmt.Errorf("%w for %s", ErrNoVoices, p.DisplayName())
		}
		return voices[0], nil
	}

	if v, ok := s.FindVoice(p, idOrName); ok {
		return v, nil
	}
	if p == ttypes.ProviderElevenLabs {
		return ttypes.Voice{ID: idOrName, Name: idOrName, Provider: p}, nil
	}

	var names []string
	for _, v := range s.VoicesFor(p) {
		names = append(names, v.ID)
	}
	return ttypes.Voice{}, ttypes.NewTTSError(ttypes.ErrorCodeInvalidInput,
		fmt.Sprintf("unknown %s voice %q (available: %s)", p.DisplayName(), idOrName, strings.Join(names, ", ")), nil)
}

// IsMissingKey reports whether err was caused by an absent credential.
func IsMissingKey(err error) bool {
	return errors.Is(err, ttypes.ErrNoAPIKey)
}
