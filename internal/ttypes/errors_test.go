package ttypes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTTSErrorIsMatchesCode(t *testing.T) {
	err := NoAPIKeyError(ProviderOpenAI)

	assert.True(t, errors.Is(err, ErrNoAPIKey))
	assert.False(t, errors.Is(err, ErrDecoding))
	assert.Equal(t, "openai", err.Context["provider"])

	wrapped := fmt.Errorf("synthesize: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNoAPIKey))
}

func TestTTSErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := NewTTSError(ErrorCodeEncoding, "Failed to encode request", cause)

	assert.Equal(t, "Failed to encode request: boom", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestTransportErrorMessages(t *testing.T) {
	tests := []struct {
		category TransportCategory
		cause    error
		want     string
	}{
		{TransportNotConnected, nil, "No internet connection"},
		{TransportTimeout, context.DeadlineExceeded, "Request timed out"},
		{TransportConnectionLost, nil, "Network connection lost"},
		{TransportCannotConnect, nil, "Cannot connect to host"},
		{TransportOther, errors.New("tls handshake"), "Network error: tls handshake"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := NewTransportError(tt.category, tt.cause)
			assert.Equal(t, tt.want, err.Error())
			assert.ErrorIs(t, err, ErrTransport)

			got, ok := TransportCategoryOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.category, got)
		})
	}
}

func TestTransportErrorUnwrapsContext(t *testing.T) {
	err := NewTransportError(TransportCanceled, context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusError(t *testing.T) {
	err := NewTTSError(ErrorCodeProviderStatus, "OpenAI request failed", &StatusError{StatusCode: 401, Body: "unauthorized"})
	assert.Equal(t, "OpenAI request failed: HTTP 401: unauthorized", err.Error())

	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 401, se.StatusCode)
}
