package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/tmm22/voicedeck/internal/server"
)

var (
	serveAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the synthesis API over HTTP",
		Long: paragraph(fmt.Sprintf("\nStart an %s exposing synthesis, the voice catalog and emotion test runs.",
			keyword("HTTP API"))),
		Example: paragraph("voicedeck serve --addr :8088\n" +
			"curl -X POST localhost:8088/v1/synthesize -d '{\"text\":\"Hello\",\"provider\":\"openai\"}' > hello.mp3"),
		Args: cobra.NoArgs,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	runner, err := a.newRunner()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Synthesizer: a.synth,
		Batch:       runner,
		Controls:    a.cfg.VoiceControls(),
		Debug:       debug,
		Logger:      log.Default().WithPrefix("api"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	a.watchCredentials(ctx)

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	defer func() {
		runner.Stop()
		runner.Wait()
	}()
	return srv.Run(ctx, addr)
}
