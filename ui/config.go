package ui

import "time"

// Config contains TUI-specific configuration. Fields tagged with env are
// read by the caller via caarlos0/env; the rest are set from flags.
type Config struct {
	// Width of the progress bars
	ProgressWidth int `env:"VOICEDECK_PROGRESS_WIDTH" envDefault:"40"`

	// Step sizes for the seek and volume keys
	SeekStep   time.Duration `env:"VOICEDECK_SEEK_STEP"   envDefault:"5s"`
	VolumeStep float64       `env:"VOICEDECK_VOLUME_STEP" envDefault:"0.1"`

	// Number of batch log lines kept on screen
	LogLines int `env:"VOICEDECK_LOG_LINES" envDefault:"8"`

	AltScreen bool `env:"VOICEDECK_ALT_SCREEN"`

	// Quit once playback finishes instead of waiting for a key
	ExitOnFinish bool
}

func (c Config) withDefaults() Config {
	if c.ProgressWidth <= 0 {
		c.ProgressWidth = 40
	}
	if c.SeekStep <= 0 {
		c.SeekStep = 5 * time.Second
	}
	if c.VolumeStep <= 0 {
		c.VolumeStep = 0.1
	}
	if c.LogLines <= 0 {
		c.LogLines = 8
	}
	return c
}
