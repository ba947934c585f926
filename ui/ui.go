// Package ui provides the terminal front end for voicedeck: a player view
// for a single synthesis and a progress view for emotion test runs.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// NewPlayerProgram returns a Tea program that synthesizes the request and
// plays the result.
func NewPlayerProgram(opts PlayerOptions) (*tea.Program, error) {
	log.Debug(
		"Starting player",
		"provider",
		opts.Request.Provider,
		"voice",
		opts.Request.Voice.ID,
	)

	m, err := newPlayerModel(opts)
	if err != nil {
		return nil, err
	}
	return tea.NewProgram(m, programOptions(opts.Config)...), nil
}

// NewBatchProgram returns a Tea program that starts an emotion test run
// and follows it to completion.
func NewBatchProgram(opts BatchOptions) (*tea.Program, error) {
	log.Debug("Starting batch view", "provider", opts.Provider, "voice", opts.Voice.ID)

	m, err := newBatchModel(opts)
	if err != nil {
		return nil, err
	}
	return tea.NewProgram(m, programOptions(opts.Config)...), nil
}

func programOptions(cfg Config) []tea.ProgramOption {
	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return opts
}
