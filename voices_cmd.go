package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/ttypes"
	"golang.org/x/sync/errgroup"
)

var (
	voicesProvider string
	voicesRefresh  bool

	voicesCmd = &cobra.Command{
		Use:   "voices [QUERY]",
		Short: "List available voices",
		Long: paragraph(fmt.Sprintf("\nList the voice catalog, optionally %s by a query. "+
			"ElevenLabs voices are fetched from your account with --refresh.", keyword("fuzzy filtered"))),
		Example: paragraph("voicedeck voices\nvoicedeck voices --provider openai\nvoicedeck voices --refresh rach"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runVoices,
	}
)

func init() {
	voicesCmd.Flags().StringVarP(&voicesProvider, "provider", "p", "", "only list voices of this provider")
	voicesCmd.Flags().BoolVarP(&voicesRefresh, "refresh", "r", false, "fetch live catalogs before listing")
}

func runVoices(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a.checkForUpdates(ctx)

	var only ttypes.Provider
	if voicesProvider != "" {
		if only, err = ttypes.ParseProvider(voicesProvider); err != nil {
			return err
		}
	}

	if voicesRefresh {
		if err := refreshCatalogs(ctx, a.synth, only); err != nil {
			fmt.Fprintln(os.Stderr, tts.UserMessage(err))
		}
	}

	voices := a.synth.Voices()
	if only != "" {
		voices = a.synth.VoicesFor(only)
	}
	if len(args) == 1 {
		voices = filterVoices(voices, args[0])
	}
	if len(voices) == 0 {
		return fmt.Errorf("%w matching %q", tts.ErrNoVoices, strings.Join(args, " "))
	}

	if err := writeVoices(os.Stdout, voices); err != nil {
		return err
	}
	if msg := a.updateNotice(); msg != "" {
		fmt.Fprintln(os.Stderr, subtle(msg))
	}
	return nil
}

// refreshCatalogs fetches every live catalog concurrently. A provider
// without a key is skipped; other failures leave its catalog in place.
func refreshCatalogs(ctx context.Context, synth *tts.Synthesizer, only ttypes.Provider) error {
	targets := []ttypes.Provider{ttypes.ProviderElevenLabs, ttypes.ProviderOpenAI, ttypes.ProviderGoogle}
	if only != "" {
		targets = []ttypes.Provider{only}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range targets {
		g.Go(func() error {
			voices, err := synth.LoadCatalog(ctx, p)
			if err != nil {
				if tts.IsMissingKey(err) {
					log.Warn("skipping catalog refresh", "provider", p, "reason", tts.UserMessage(err))
					return nil
				}
				return err
			}
			log.Debug("catalog refreshed", "provider", p, "voices", len(voices))
			return nil
		})
	}
	return g.Wait()
}

// voiceSource adapts a voice list to fuzzy.Source.
type voiceSource []ttypes.Voice

func (v voiceSource) String(i int) string {
	return v[i].Name + " " + v[i].ID + " " + v[i].Provider.DisplayName()
}

func (v voiceSource) Len() int { return len(v) }

// filterVoices returns the voices that fuzzy match query, best first.
func filterVoices(voices []ttypes.Voice, query string) []ttypes.Voice {
	query = strings.TrimSpace(query)
	if query == "" {
		return voices
	}
	matches := fuzzy.FindFrom(query, voiceSource(voices))
	out := make([]ttypes.Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

// writeVoices prints an aligned table. Widths are measured in terminal
// cells so non-ASCII voice names line up.
func writeVoices(w io.Writer, voices []ttypes.Voice) error {
	header := []string{"PROVIDER", "ID", "NAME"}
	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		rows = append(rows, []string{v.Provider.DisplayName(), v.ID, v.Name})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if cw := runewidth.StringWidth(c); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) string {
		var b strings.Builder
		for i, c := range cells {
			if i == len(cells)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]+2))
		}
		return b.String()
	}

	if _, err := fmt.Fprintln(w, subtle(line(header))); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, line(r)); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}
