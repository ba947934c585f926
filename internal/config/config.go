// Package config loads voicedeck settings from viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/transport"
	"github.com/tmm22/voicedeck/internal/tts/providers"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// Config is the full application configuration.
type Config struct {
	// Default provider and voice for speak and batch
	Provider string `mapstructure:"provider"`
	Voice    string `mapstructure:"voice"`

	Controls    Controls    `mapstructure:"controls"`
	HTTP        HTTP        `mapstructure:"http"`
	ElevenLabs  ElevenLabs  `mapstructure:"elevenlabs"`
	OpenAI      OpenAI      `mapstructure:"openai"`
	Google      Google      `mapstructure:"google"`
	Batch       Batch       `mapstructure:"batch"`
	Playback    Playback    `mapstructure:"playback"`
	Storage     Storage     `mapstructure:"storage"`
	Credentials Credentials `mapstructure:"credentials"`
	Server      Server      `mapstructure:"server"`
	Update      Update      `mapstructure:"update"`
}

// Controls are the default voice controls.
type Controls struct {
	Speed   float64 `mapstructure:"speed"`
	Pitch   float64 `mapstructure:"pitch"`
	Volume  float64 `mapstructure:"volume"`
	Emotion string  `mapstructure:"emotion"`
}

// HTTP configures the provider transport.
type HTTP struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // 0 = unlimited
}

type ElevenLabs struct {
	BaseURL string `mapstructure:"base_url"`
	ModelID string `mapstructure:"model_id"`
}

type OpenAI struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type Google struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Batch configures the emotion sweep.
type Batch struct {
	Pacing time.Duration `mapstructure:"pacing"`
	Dir    string        `mapstructure:"dir"`
}

// Playback configures the audio engine.
type Playback struct {
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	SampleRate       int           `mapstructure:"sample_rate"`
	BufferSize       time.Duration `mapstructure:"buffer_size"`
}

// Storage configures where artifacts are written.
type Storage struct {
	DocumentsDir string `mapstructure:"documents_dir"` // "" = platform documents dir
}

// Credentials configures API key loading.
type Credentials struct {
	EnvFile string `mapstructure:"env_file"`
	Watch   bool   `mapstructure:"watch"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Update configures the release check.
type Update struct {
	Enabled  bool          `mapstructure:"enabled"`
	Repo     string        `mapstructure:"repo"`
	Interval time.Duration `mapstructure:"interval"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", "")
	v.SetDefault("voice", "")

	def := ttypes.DefaultControls()
	v.SetDefault("controls.speed", def.Speed)
	v.SetDefault("controls.pitch", def.Pitch)
	v.SetDefault("controls.volume", def.Volume)
	v.SetDefault("controls.emotion", def.Emotion.String())

	v.SetDefault("http.timeout", transport.DefaultTimeout)
	v.SetDefault("http.requests_per_minute", 0)

	v.SetDefault("elevenlabs.base_url", providers.DefaultElevenLabsBaseURL)
	v.SetDefault("elevenlabs.model_id", providers.DefaultElevenLabsModel)
	v.SetDefault("openai.base_url", providers.DefaultOpenAIBaseURL)
	v.SetDefault("openai.model", providers.DefaultOpenAIModel)
	v.SetDefault("google.base_url", providers.DefaultGoogleBaseURL)
	v.SetDefault("google.model", providers.DefaultGoogleModel)

	v.SetDefault("batch.pacing", batch.DefaultPacing)
	v.SetDefault("batch.dir", batch.DefaultDir)

	v.SetDefault("playback.progress_interval", 100*time.Millisecond)
	v.SetDefault("playback.sample_rate", 44100)
	v.SetDefault("playback.buffer_size", 100*time.Millisecond)

	v.SetDefault("storage.documents_dir", "")

	v.SetDefault("credentials.env_file", ".env")
	v.SetDefault("credentials.watch", true)

	v.SetDefault("server.addr", ":8088")

	v.SetDefault("update.enabled", true)
	v.SetDefault("update.repo", "tmm22/voicedeck")
	v.SetDefault("update.interval", 24*time.Hour)
}

// Load applies defaults, decodes v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs []error

	if c.Provider != "" {
		if _, err := ttypes.ParseProvider(c.Provider); err != nil {
			errs = append(errs, fmt.Errorf("provider: %w", err))
		}
	}
	if _, err := ttypes.ParseEmotion(c.Controls.Emotion); err != nil {
		errs = append(errs, fmt.Errorf("controls.emotion: %w", err))
	}
	if c.Controls.Speed <= 0 {
		errs = append(errs, fmt.Errorf("controls.speed must be positive, got %g", c.Controls.Speed))
	}
	if c.Controls.Pitch < ttypes.MinPitch || c.Controls.Pitch > ttypes.MaxPitch {
		errs = append(errs, fmt.Errorf("controls.pitch must be between %g and %g, got %g", ttypes.MinPitch, ttypes.MaxPitch, c.Controls.Pitch))
	}
	if c.Controls.Volume < ttypes.MinVolume || c.Controls.Volume > ttypes.MaxVolume {
		errs = append(errs, fmt.Errorf("controls.volume must be between %g and %g, got %g", ttypes.MinVolume, ttypes.MaxVolume, c.Controls.Volume))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout))
	}
	if c.HTTP.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("http.requests_per_minute cannot be negative, got %d", c.HTTP.RequestsPerMinute))
	}
	if c.Batch.Pacing < 0 {
		errs = append(errs, fmt.Errorf("batch.pacing cannot be negative, got %s", c.Batch.Pacing))
	}
	if c.Batch.Dir == "" {
		errs = append(errs, errors.New("batch.dir cannot be empty"))
	}
	if c.Playback.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("playback.progress_interval must be positive, got %s", c.Playback.ProgressInterval))
	}
	if c.Playback.SampleRate != 44100 && c.Playback.SampleRate != 48000 {
		errs = append(errs, fmt.Errorf("playback.sample_rate must be 44100 or 48000, got %d", c.Playback.SampleRate))
	}
	if c.Update.Enabled && c.Update.Repo == "" {
		errs = append(errs, errors.New("update.repo cannot be empty when update checks are enabled"))
	}

	return errors.Join(errs...)
}

// ProviderTag returns the configured default provider, or "" if none.
func (c Config) ProviderTag() ttypes.Provider {
	p, err := ttypes.ParseProvider(c.Provider)
	if err != nil {
		return ""
	}
	return p
}

// VoiceControls converts the configured defaults.
func (c Config) VoiceControls() ttypes.VoiceControls {
	ctl := ttypes.DefaultControls()
	ctl.Speed = c.Controls.Speed
	ctl.Pitch = c.Controls.Pitch
	ctl.Volume = c.Controls.Volume
	if e, err := ttypes.ParseEmotion(c.Controls.Emotion); err == nil {
		ctl.Emotion = e
	}
	return ctl
}

// Providers returns the adapter settings.
func (c Config) Providers() providers.Config {
	return providers.Config{
		ElevenLabs: providers.ElevenLabsConfig{BaseURL: c.ElevenLabs.BaseURL, ModelID: c.ElevenLabs.ModelID},
		OpenAI:     providers.OpenAIConfig{BaseURL: c.OpenAI.BaseURL, Model: c.OpenAI.Model},
		Google:     providers.GoogleConfig{BaseURL: c.Google.BaseURL, Model: c.Google.Model},
	}
}

// Transport returns the HTTP client settings. The caller sets the logger.
func (c Config) Transport(userAgent string) transport.Config {
	return transport.Config{
		Timeout:           c.HTTP.Timeout,
		RequestsPerMinute: c.HTTP.RequestsPerMinute,
		UserAgent:         userAgent,
	}
}
