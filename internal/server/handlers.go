package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// controlsBody lets a request override individual controls.
type controlsBody struct {
	Speed   *float64 `json:"speed"`
	Pitch   *float64 `json:"pitch"`
	Volume  *float64 `json:"volume"`
	Emotion string   `json:"emotion"`
}

type synthesizeBody struct {
	Text     string        `json:"text" binding:"required"`
	Provider string        `json:"provider" binding:"required"`
	Voice    string        `json:"voice"`
	Controls *controlsBody `json:"controls"`
}

type batchBody struct {
	Provider string `json:"provider" binding:"required"`
	Voice    string `json:"voice"`
}

func (s *Server) handleSynthesize(c *gin.Context) {
	var body synthesizeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ttypes.NewTTSError(ttypes.ErrorCodeInvalidInput, "invalid request body", err))
		return
	}

	p, err := ttypes.ParseProvider(body.Provider)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	voice, err := s.synth.ResolveVoice(p, body.Voice)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	controls, err := s.mergeControls(body.Controls)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	audio, err := s.synth.Synthesize(c.Request.Context(), ttypes.SynthesisRequest{
		Text:     body.Text,
		Voice:    voice,
		Provider: p,
		Controls: controls,
	})
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	c.Header("X-Voice-Id", voice.ID)
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (s *Server) mergeControls(body *controlsBody) (ttypes.VoiceControls, error) {
	ctl := s.controls
	if body == nil {
		return ctl, nil
	}
	if body.Speed != nil {
		ctl.Speed = *body.Speed
	}
	if body.Pitch != nil {
		ctl.Pitch = *body.Pitch
	}
	if body.Volume != nil {
		ctl.Volume = *body.Volume
	}
	if body.Emotion != "" {
		e, err := ttypes.ParseEmotion(body.Emotion)
		if err != nil {
			return ctl, err
		}
		ctl.Emotion = e
	}
	return ctl, nil
}

func (s *Server) handleVoices(c *gin.Context) {
	q := strings.TrimSpace(c.Query("provider"))
	if q == "" {
		respondSuccess(c, http.StatusOK, s.synth.Voices())
		return
	}
	p, err := ttypes.ParseProvider(q)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, s.synth.VoicesFor(p))
}

func (s *Server) handleRefresh(c *gin.Context) {
	p, err := ttypes.ParseProvider(c.Param("provider"))
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	voices, err := s.synth.LoadCatalog(c.Request.Context(), p)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, voices)
}

func (s *Server) handleBatchSnapshot(c *gin.Context) {
	respondSuccess(c, http.StatusOK, s.batch.Snapshot())
}

func (s *Server) handleBatchStart(c *gin.Context) {
	var body batchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ttypes.NewTTSError(ttypes.ErrorCodeInvalidInput, "invalid request body", err))
		return
	}
	p, err := ttypes.ParseProvider(body.Provider)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	voice, err := s.synth.ResolveVoice(p, body.Voice)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	// The run outlives the request.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := s.batch.Start(ctx, p, voice); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusAccepted, s.batch.Snapshot())
}

func (s *Server) handleBatchStop(c *gin.Context) {
	s.batch.Stop()
	respondSuccess(c, http.StatusOK, s.batch.Snapshot())
}

func (s *Server) handleBatchReport(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(s.batch.Report()))
}
