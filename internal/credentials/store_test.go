package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

func TestEnvStoreReadsDotenv(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-file\nGOOGLE_API_KEY=\"   \"\n"), 0o600))

	s, err := NewEnvStore(path, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "sk-file", s.Key(ttypes.ProviderOpenAI))
	assert.True(t, s.HasKey(ttypes.ProviderOpenAI))
	assert.False(t, s.HasKey(ttypes.ProviderGoogle), "whitespace-only key counts as absent")
	assert.False(t, s.HasKey(ttypes.ProviderElevenLabs))
}

func TestEnvStoreProcessEnvWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-file\n"), 0o600))

	s, err := NewEnvStore(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "sk-env", s.Key(ttypes.ProviderOpenAI))
}

func TestEnvStoreMissingFile(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "el-key")

	s, err := NewEnvStore(filepath.Join(t.TempDir(), "missing.env"), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "el-key", s.Key(ttypes.ProviderElevenLabs))
}

func TestEnvStoreReload(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := NewEnvStore(path, quietLogger())
	require.NoError(t, err)
	assert.False(t, s.HasKey(ttypes.ProviderGoogle))

	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_API_KEY=g-key\n"), 0o600))
	require.NoError(t, s.Reload())
	assert.Equal(t, "g-key", s.Key(ttypes.ProviderGoogle))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := NewEnvStore(path, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_API_KEY=watched\n"), 0o600))

	assert.Eventually(t, func() bool {
		return s.Key(ttypes.ProviderGoogle) == "watched"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestStaticStore(t *testing.T) {
	s := StaticStore{ttypes.ProviderOpenAI: " sk ", ttypes.ProviderGoogle: "\t"}
	assert.Equal(t, "sk", s.Key(ttypes.ProviderOpenAI))
	assert.True(t, s.HasKey(ttypes.ProviderOpenAI))
	assert.False(t, s.HasKey(ttypes.ProviderGoogle))
	assert.False(t, s.HasKey(ttypes.ProviderElevenLabs))
}
