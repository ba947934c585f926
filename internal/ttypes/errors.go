package ttypes

import (
	"errors"
	"fmt"
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Request construction errors
	ErrorCodeInvalidURL      ErrorCode = "INVALID_URL"
	ErrorCodeEncoding        ErrorCode = "ENCODING_ERROR"
	ErrorCodeNoAPIKey        ErrorCode = "NO_API_KEY"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorCodeUnknownProvider ErrorCode = "UNKNOWN_PROVIDER"

	// Response errors
	ErrorCodeDecoding       ErrorCode = "DECODING_ERROR"
	ErrorCodeProviderStatus ErrorCode = "PROVIDER_STATUS"
	ErrorCodeTransport      ErrorCode = "TRANSPORT"

	// Playback errors
	ErrorCodeDecodeAudio         ErrorCode = "DECODE_AUDIO"
	ErrorCodePlaybackStartFailed ErrorCode = "PLAYBACK_START_FAILED"
)

// Sentinel errors for errors.Is checks. Matching is by code only.
var (
	ErrInvalidURL          = &TTSError{Code: ErrorCodeInvalidURL, Message: "Invalid URL"}
	ErrEncoding            = &TTSError{Code: ErrorCodeEncoding, Message: "Failed to encode request"}
	ErrDecoding            = &TTSError{Code: ErrorCodeDecoding, Message: "Failed to decode response"}
	ErrNoAPIKey            = &TTSError{Code: ErrorCodeNoAPIKey, Message: "API key not provided"}
	ErrInvalidInput        = &TTSError{Code: ErrorCodeInvalidInput, Message: "invalid input"}
	ErrUnknownProvider     = &TTSError{Code: ErrorCodeUnknownProvider, Message: "unknown provider"}
	ErrProviderStatus      = &TTSError{Code: ErrorCodeProviderStatus, Message: "provider returned an error status"}
	ErrTransport           = &TTSError{Code: ErrorCodeTransport, Message: "network error"}
	ErrDecodeAudio         = &TTSError{Code: ErrorCodeDecodeAudio, Message: "Audio decode error"}
	ErrPlaybackStartFailed = &TTSError{Code: ErrorCodePlaybackStartFailed, Message: "Failed to start audio playback"}
)

// TTSError represents a TTS-specific error with additional context
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewTTSError creates a new TTS error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// Is matches any TTSError carrying the same code.
func (e *TTSError) Is(target error) bool {
	var t *TTSError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NoAPIKeyError reports a missing credential for p.
func NoAPIKeyError(p Provider) *TTSError {
	return NewTTSError(ErrorCodeNoAPIKey, ErrNoAPIKey.Message, nil).WithContext("provider", string(p))
}

// StatusError is the cause attached to PROVIDER_STATUS errors.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// TransportCategory classifies network failures for display.
type TransportCategory string

const (
	TransportNotConnected    TransportCategory = "not_connected"
	TransportTimeout         TransportCategory = "timeout"
	TransportHostUnreachable TransportCategory = "host_unreachable"
	TransportCannotConnect   TransportCategory = "cannot_connect"
	TransportConnectionLost  TransportCategory = "connection_lost"
	TransportCanceled        TransportCategory = "canceled"
	TransportOther           TransportCategory = "other"
)

// Message returns the user-facing description of the category.
func (c TransportCategory) Message() string {
	switch c {
	case TransportNotConnected:
		return "No internet connection"
	case TransportHostUnreachable:
		return "Cannot connect to server. Check your network connection and ensure the app has network permissions."
	case TransportTimeout:
		return "Request timed out"
	case TransportCannotConnect:
		return "Cannot connect to host"
	case TransportConnectionLost:
		return "Network connection lost"
	case TransportCanceled:
		return "Request canceled"
	default:
		return "Network error"
	}
}

// TransportError is the cause attached to TRANSPORT errors.
type TransportError struct {
	Category TransportCategory
	Err      error
}

func (e *TransportError) Error() string {
	if e.Category == TransportOther && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Category.Message(), e.Err)
	}
	return e.Category.Message()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a classified network failure.
func NewTransportError(category TransportCategory, err error) *TTSError {
	return &TTSError{
		Code:    ErrorCodeTransport,
		Cause:   &TransportError{Category: category, Err: err},
		Context: map[string]interface{}{"category": string(category)},
	}
}

// TransportCategoryOf extracts the transport category from err, if any.
func TransportCategoryOf(err error) (TransportCategory, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Category, true
	}
	return "", false
}
