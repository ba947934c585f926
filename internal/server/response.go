package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tmm22/voicedeck/internal/batch"
	"github.com/tmm22/voicedeck/internal/tts"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

// APIResponse is the JSON envelope for every non-audio reply.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, APIResponse{
		Success: true,
		Data:    data,
		Message: "ok",
		Code:    status,
	})
}

func respondError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	resp := APIResponse{
		Success: false,
		Message: tts.UserMessage(err),
		Code:    status,
	}
	var te *ttypes.TTSError
	if errors.As(err, &te) {
		resp.Data = gin.H{"code": te.Code}
		if cat, ok := ttypes.TransportCategoryOf(err); ok {
			resp.Data = gin.H{"code": te.Code, "category": cat}
		}
	}
	c.JSON(status, resp)
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrRunActive):
		return http.StatusConflict
	case errors.Is(err, ttypes.ErrInvalidInput),
		errors.Is(err, ttypes.ErrUnknownProvider),
		errors.Is(err, ttypes.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ttypes.ErrNoAPIKey):
		return http.StatusPreconditionFailed
	case errors.Is(err, tts.ErrNoVoices):
		return http.StatusNotFound
	case errors.Is(err, ttypes.ErrTransport):
		if cat, _ := ttypes.TransportCategoryOf(err); cat == ttypes.TransportTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, ttypes.ErrProviderStatus),
		errors.Is(err, ttypes.ErrDecoding):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
