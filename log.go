package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "voicedeck").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "voicedeck.log"), nil
}

// setupLog sends logs to the log file when debugging is enabled and to
// stderr at warning level otherwise, so they do not corrupt the TUI.
func setupLog(debug bool) (func() error, error) {
	log.SetReportTimestamp(true)
	if !debug {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.WarnLevel)
		return func() error { return nil }, nil
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.Debug("logging to file", "path", logFile)
	return f.Close, nil
}

