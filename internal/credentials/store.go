// Package credentials supplies provider API keys from the environment and
// an optional dotenv file. Keys are opaque; empty or whitespace-only keys
// count as absent.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// Keys is the set of provider credentials read from the environment.
type Keys struct {
	ElevenLabs string `env:"ELEVENLABS_API_KEY"`
	OpenAI     string `env:"OPENAI_API_KEY"`
	Google     string `env:"GOOGLE_API_KEY"`
}

// For returns the key for p.
func (k Keys) For(p ttypes.Provider) string {
	switch p {
	case ttypes.ProviderElevenLabs:
		return k.ElevenLabs
	case ttypes.ProviderOpenAI:
		return k.OpenAI
	case ttypes.ProviderGoogle:
		return k.Google
	default:
		return ""
	}
}

// EnvStore implements ttypes.CredentialStore. Non-empty process
// environment values win over the dotenv file.
type EnvStore struct {
	envFile string
	logger  *log.Logger

	mu   sync.RWMutex
	keys Keys
}

var _ ttypes.CredentialStore = (*EnvStore)(nil)

// NewEnvStore creates a store and performs the first load. envFile may be
// empty, and a missing file is not an error.
func NewEnvStore(envFile string, logger *log.Logger) (*EnvStore, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("credentials")
	}
	s := &EnvStore{envFile: envFile, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the dotenv file and the process environment.
func (s *EnvStore) Reload() error {
	environ := map[string]string{}
	if s.envFile != "" {
		fileEnv, err := godotenv.Read(s.envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Debug("env file not found", "path", s.envFile)
		case err != nil:
			return fmt.Errorf("failed to read %s: %w", s.envFile, err)
		default:
			environ = fileEnv
		}
	}
	for k, v := range env.ToMap(os.Environ()) {
		if v != "" {
			environ[k] = v
		}
	}

	keys, err := env.ParseAsWithOptions[Keys](env.Options{Environment: environ})
	if err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()

	s.logger.Debug("credentials loaded",
		"elevenlabs", ttypes.KeyPresent(keys.ElevenLabs),
		"openai", ttypes.KeyPresent(keys.OpenAI),
		"google", ttypes.KeyPresent(keys.Google))
	return nil
}

// Key implements ttypes.CredentialStore.
func (s *EnvStore) Key(p ttypes.Provider) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.TrimSpace(s.keys.For(p))
}

// HasKey implements ttypes.CredentialStore.
func (s *EnvStore) HasKey(p ttypes.Provider) bool {
	return ttypes.KeyPresent(s.Key(p))
}

// EnvFile returns the dotenv path the store reads.
func (s *EnvStore) EnvFile() string {
	return s.envFile
}

// StaticStore is a fixed in-memory credential store.
type StaticStore map[ttypes.Provider]string

// Key implements ttypes.CredentialStore.
func (s StaticStore) Key(p ttypes.Provider) string {
	return strings.TrimSpace(s[p])
}

// HasKey implements ttypes.CredentialStore.
func (s StaticStore) HasKey(p ttypes.Provider) bool {
	return ttypes.KeyPresent(s[p])
}
