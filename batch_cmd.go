package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/events"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/ttypes"
	"github.com/tmm22/voicedeck/ui"
)

var (
	batchProvider string
	batchVoice    string
	batchReport   string
	batchCopy     bool
	batchNoTUI    bool

	batchCmd = &cobra.Command{
		Use:   "batch",
		Short: "Test every emotion preset with one voice",
		Long: paragraph(fmt.Sprintf("\nSynthesize a test phrase once per %s with the selected provider and voice. "+
			"Each clip is saved under the documents directory and a report is printed at the end.", keyword("emotion preset"))),
		Example: paragraph("voicedeck batch --provider elevenlabs --voice Rachel\n" +
			"voicedeck batch --report results.txt --copy"),
		Args: cobra.NoArgs,
		RunE: runBatch,
	}
)

func init() {
	batchCmd.Flags().StringVarP(&batchProvider, "provider", "p", "", "provider: elevenlabs, openai or google")
	batchCmd.Flags().StringVarP(&batchVoice, "voice", "v", "", "voice id or name")
	batchCmd.Flags().StringVar(&batchReport, "report", "", "write the results report to this file")
	batchCmd.Flags().BoolVar(&batchCopy, "copy", false, "copy the results report to the clipboard")
	batchCmd.Flags().BoolVar(&batchNoTUI, "no-tui", false, "print log lines instead of the progress view")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	p, err := tts.SelectProvider(batchProvider, a.cfg.ProviderTag())
	if err != nil {
		return err
	}
	voiceArg := batchVoice
	if voiceArg == "" && p == a.cfg.ProviderTag() {
		voiceArg = a.cfg.Voice
	}
	voice, err := a.synth.ResolveVoice(p, voiceArg)
	if err != nil {
		return errors.New(tts.UserMessage(err))
	}

	runner, err := a.newRunner()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.watchCredentials(ctx)
	a.checkForUpdates(ctx)

	if batchNoTUI || !isTerminal(os.Stdout) {
		err = runBatchHeadless(ctx, a, runner, p, voice)
	} else {
		err = runBatchTUI(ctx, a, runner, p, voice)
	}
	if err != nil {
		return err
	}
	runner.Wait()

	snap := runner.Snapshot()
	if len(snap.Results) == 0 {
		return nil
	}
	if err := exportReport(snap); err != nil {
		return err
	}
	if msg := a.updateNotice(); msg != "" {
		fmt.Fprintln(os.Stderr, subtle(msg))
	}
	return nil
}

func runBatchTUI(ctx context.Context, a *app, runner *batch.Runner, p ttypes.Provider, voice ttypes.Voice) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	prog, err := ui.NewBatchProgram(ui.BatchOptions{
		Config:   cfg,
		Runner:   runner,
		Bus:      a.bus,
		Provider: p,
		Voice:    voice,
		Context:  ctx,
	})
	if err != nil {
		return err
	}
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	if s := runner.Snapshot(); s.Err != "" && len(s.Results) == 0 {
		return errors.New(s.Err)
	}
	return nil
}

// runBatchHeadless prints the run log as it happens. The first Ctrl-C
// stops the run between presets; a second one aborts the call in flight.
func runBatchHeadless(ctx context.Context, a *app, runner *batch.Runner, p ttypes.Provider, voice ttypes.Voice) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe, err := events.On(a.bus, events.BatchLog, func(e batch.LogEntry) {
		fmt.Println(e.String())
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		stopped := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if stopped {
					cancel()
					return
				}
				stopped = true
				runner.Stop()
			}
		}
	}()

	if _, err := runner.Run(ctx, p, voice); err != nil {
		return errors.New(tts.UserMessage(err))
	}
	return nil
}

// exportReport prints the report and writes or copies it when asked.
func exportReport(snap batch.Snapshot) error {
	report := batch.Report(snap)

	if batchReport != "" {
		f, err := os.Create(batchReport)
		if err != nil {
			return fmt.Errorf("unable to create report: %w", err)
		}
		defer f.Close() //nolint:errcheck
		if err := batch.WriteReport(f, snap); err != nil {
			return fmt.Errorf("unable to write report: %w", err)
		}
		log.Info("report written", "path", batchReport)
	}

	if batchCopy {
		if err := clipboard.WriteAll(report); err != nil {
			log.Warn("could not copy report to clipboard", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, subtle("Report copied to clipboard"))
		}
	}

	return printReport(os.Stdout, report, isTerminal(os.Stdout))
}

// printReport renders the report as a fenced block when w is a terminal.
func printReport(w io.Writer, report string, styled bool) error {
	out := report
	if styled {
		r, err := glamour.NewTermRenderer(
			glamour.WithColorProfile(lipgloss.ColorProfile()),
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(0),
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}
		out, err = r.Render("```\n" + strings.TrimRight(report, "\n") + "\n```\n")
		if err != nil {
			return fmt.Errorf("unable to render report: %w", err)
		}
	}
	if _, err := fmt.Fprint(w, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}
