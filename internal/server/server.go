// Package server exposes synthesis, the voice catalog and the emotion
// sweep over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

const shutdownTimeout = 10 * time.Second

// Synthesizer is the orchestrator surface the API needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req ttypes.SynthesisRequest) ([]byte, error)
	Voices() []ttypes.Voice
	VoicesFor(p ttypes.Provider) []ttypes.Voice
	LoadCatalog(ctx context.Context, p ttypes.Provider) ([]ttypes.Voice, error)
	ResolveVoice(p ttypes.Provider, idOrName string) (ttypes.Voice, error)
}

// BatchRunner is the emotion sweep surface the API needs.
type BatchRunner interface {
	Start(ctx context.Context, p ttypes.Provider, voice ttypes.Voice) error
	Stop()
	Snapshot() batch.Snapshot
	Report() string
}

// Options configures the API.
type Options struct {
	Synthesizer Synthesizer // required
	Batch       BatchRunner // nil disables the /v1/batch routes

	// Controls fills fields a synthesis request leaves out
	Controls ttypes.VoiceControls

	// Debug enables gin's debug mode
	Debug bool

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	engine   *gin.Engine
	synth    Synthesizer
	batch    BatchRunner
	controls ttypes.VoiceControls
	logger   *log.Logger
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Synthesizer == nil {
		return nil, errors.New("server requires a synthesizer")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("http")
	}
	if opts.Controls == (ttypes.VoiceControls{}) {
		opts.Controls = ttypes.DefaultControls()
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:   gin.New(),
		synth:    opts.Synthesizer,
		batch:    opts.Batch,
		controls: opts.Controls,
		logger:   opts.Logger,
	}
	s.engine.Use(gin.Recovery())
	s.engine.Use(loggingMiddleware(s.logger))
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})

	v1 := s.engine.Group("/v1")
	v1.POST("/synthesize", s.handleSynthesize)
	v1.GET("/voices", s.handleVoices)
	v1.POST("/voices/:provider/refresh", s.handleRefresh)

	if s.batch != nil {
		v1.GET("/batch", s.handleBatchSnapshot)
		v1.POST("/batch", s.handleBatchStart)
		v1.DELETE("/batch", s.handleBatchStop)
		v1.GET("/batch/report", s.handleBatchReport)
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func loggingMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.Last().Err)
		}
		logger.Debug("request", kv...)
	}
}
