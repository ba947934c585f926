package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

func TestDoRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		assert.Equal(t, "voicedeck-test", r.Header.Get("User-Agent"))
		assert.Equal(t, `{"text":"hi"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "voicedeck-test"})
	resp, err := c.Do(context.Background(), &ttypes.HTTPRequest{
		Method: http.MethodPost,
		URL:    srv.URL + "/v1/x",
		Header: http.Header{"Xi-Api-Key": []string{"secret"}},
		Body:   []byte(`{"text":"hi"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []byte("audio"), resp.Body)
}

func TestDoReturnsErrorStatusesAsResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := New(Config{}).Do(context.Background(), &ttypes.HTTPRequest{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Config{Timeout: 50 * time.Millisecond})
	_, err := c.Do(context.Background(), &ttypes.HTTPRequest{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)

	cat, ok := ttypes.TransportCategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, ttypes.TransportTimeout, cat)
	assert.Equal(t, "Request timed out", err.Error())
}

func TestDoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Do(ctx, &ttypes.HTTPRequest{Method: http.MethodGet, URL: "http://127.0.0.1:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoInvalidURL(t *testing.T) {
	_, err := New(Config{}).Do(context.Background(), &ttypes.HTTPRequest{Method: http.MethodGet, URL: "://nope"})
	assert.ErrorIs(t, err, ttypes.ErrInvalidURL)
}

func TestClassify(t *testing.T) {
	dial := func(errno syscall.Errno) error {
		return &net.OpError{Op: "dial", Net: "tcp", Err: errno}
	}

	tests := []struct {
		name string
		err  error
		want ttypes.TransportCategory
	}{
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), ttypes.TransportCanceled},
		{"deadline", context.DeadlineExceeded, ttypes.TransportTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid", IsNotFound: true}, ttypes.TransportHostUnreachable},
		{"refused", dial(syscall.ECONNREFUSED), ttypes.TransportCannotConnect},
		{"network down", dial(syscall.ENETUNREACH), ttypes.TransportNotConnected},
		{"host down", dial(syscall.EHOSTUNREACH), ttypes.TransportHostUnreachable},
		{"reset", dial(syscall.ECONNRESET), ttypes.TransportConnectionLost},
		{"eof", io.ErrUnexpectedEOF, ttypes.TransportConnectionLost},
		{"other", errors.New("tls: bad certificate"), ttypes.TransportOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.err)
			assert.ErrorIs(t, err, ttypes.ErrTransport)
			got, ok := ttypes.TransportCategoryOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.NoError(t, Classify(nil))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://x.test/models/m:generateContent", redact("https://x.test/models/m:generateContent?key=secret"))
}

func TestClassifyRedactsURL(t *testing.T) {
	err := Classify(&url.Error{
		Op:  "Post",
		URL: "https://x.test/models/m:generateContent?key=SECRET-KEY",
		Err: errors.New("tls: bad certificate"),
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY")
	assert.Contains(t, err.Error(), "https://x.test/models/m:generateContent")
}

func TestDoFailureHidesQueryKey(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte("not http at all\r\n\r\n"))
			_ = conn.Close()
		}
	}()

	c := New(Config{Timeout: 5 * time.Second})
	_, err = c.Do(context.Background(), &ttypes.HTTPRequest{
		Method: http.MethodPost,
		URL:    "http://" + ln.Addr().String() + "/v1beta/models/m:generateContent?key=SECRET-GOOGLE-KEY",
		Body:   []byte(`{}`),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ttypes.ErrTransport)
	assert.False(t, strings.Contains(err.Error(), "SECRET-GOOGLE-KEY"), err.Error())
}

func TestRateLimiter(t *testing.T) {
	c := New(Config{RequestsPerMinute: 60})
	require.NotNil(t, c.rateLimiter)
	assert.Nil(t, New(Config{}).rateLimiter)
}
