// Package transport performs the single request/response HTTP exchanges
// used by the provider adapters and the update checker.
package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/tmm22/voicedeck/internal/ttypes"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a whole exchange when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the HTTP client.
type Config struct {
	// Timeout for the whole exchange (defaults to DefaultTimeout)
	Timeout time.Duration

	// RequestsPerMinute throttles outgoing calls; 0 disables throttling
	RequestsPerMinute int

	// UserAgent is sent when the request does not set one
	UserAgent string

	// HTTPClient overrides the underlying client (optional)
	HTTPClient *http.Client

	// Logger receives debug output (defaults to the package logger)
	Logger *log.Logger
}

// Client implements ttypes.Transport over net/http.
type Client struct {
	http        *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
	logger      *log.Logger
}

var _ ttypes.Transport = (*Client)(nil)

// New creates a transport client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("http")
	}

	c := &Client{
		http:      hc,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
	if cfg.RequestsPerMinute > 0 {
		c.rateLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// Do performs one exchange. Non-2xx statuses are not errors here; the
// caller decides what a status means.
func (c *Client) Do(ctx context.Context, req *ttypes.HTTPRequest) (*ttypes.HTTPResponse, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, Classify(err)
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, ttypes.ErrInvalidURL.Message, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		err = Classify(err)
		c.logger.Debug("request failed", "method", req.Method, "url", redact(req.URL), "err", err)
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(err)
	}

	c.logger.Debug("request complete",
		"method", req.Method,
		"url", redact(req.URL),
		"status", resp.StatusCode,
		"size", humanize.Bytes(uint64(len(data))),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &ttypes.HTTPResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Classify maps a network failure onto a transport category. The query
// string of a failed request URL is removed since it can carry an API key.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redact(ue.URL)
	}
	return ttypes.NewTransportError(category(err), err)
}

func category(err error) ttypes.TransportCategory {
	if errors.Is(err, context.Canceled) {
		return ttypes.TransportCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ttypes.TransportTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ttypes.TransportTimeout
		}
		return ttypes.TransportHostUnreachable
	}

	switch {
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.ENETDOWN):
		return ttypes.TransportNotConnected
	case errors.Is(err, syscall.EHOSTUNREACH):
		return ttypes.TransportHostUnreachable
	case errors.Is(err, syscall.ECONNREFUSED):
		return ttypes.TransportCannotConnect
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return ttypes.TransportConnectionLost
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ttypes.TransportTimeout
	}
	return ttypes.TransportOther
}

// redact drops the query string so keys passed as parameters stay out of logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
