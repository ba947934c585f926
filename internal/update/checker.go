// Package update checks GitHub for a newer release.
package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/tmm22/voicedeck/internal/ttypes"
)

const (
	// DefaultAPIBase is the GitHub REST root.
	DefaultAPIBase = "https://api.github.com"

	// DefaultInterval is the minimum time between automatic checks.
	DefaultInterval = 24 * time.Hour
)

// ErrNoReleases is returned when the repository has no published release.
var ErrNoReleases = errors.New("no releases found")

// Release is the subset of the GitHub release object we use.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Status is the outcome of a check.
type Status struct {
	Current   Version
	Latest    *Release
	Version   Version // parsed from Latest.TagName
	Available bool
	CheckedAt time.Time
}

// Config holds the checker settings.
type Config struct {
	// Repo is "owner/name" (required)
	Repo string

	// CurrentVersion is the running build's version (required)
	CurrentVersion string

	// Transport performs the request (required)
	Transport ttypes.Transport

	// APIBase overrides the GitHub API root
	APIBase string

	// StateFile records the last check time; empty disables throttling
	StateFile string

	// Interval between automatic checks (defaults to 24h)
	Interval time.Duration

	Logger *log.Logger
}

// Checker looks up the latest release of a repository.
type Checker struct {
	repo      string
	current   Version
	transport ttypes.Transport
	apiBase   string
	stateFile string
	interval  time.Duration
	logger    *log.Logger

	now func() time.Time
}

type state struct {
	LastCheck time.Time `json:"last_check"`
}

// NewChecker validates cfg. It fails when the running version cannot be
// parsed, which is the case for development builds.
func NewChecker(cfg Config) (*Checker, error) {
	if cfg.Repo == "" {
		return nil, errors.New("repository cannot be empty")
	}
	if cfg.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}
	current, err := ParseVersion(cfg.CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("update")
	}

	return &Checker{
		repo:      cfg.Repo,
		current:   current,
		transport: cfg.Transport,
		apiBase:   cfg.APIBase,
		stateFile: cfg.StateFile,
		interval:  cfg.Interval,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// Current returns the running version.
func (c *Checker) Current() Version {
	return c.current
}

// Latest fetches the newest published release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	endpoint, err := url.JoinPath(c.apiBase, "repos", c.repo, "releases", "latest")
	if err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeInvalidURL, "Invalid GitHub API URL", err)
	}

	header := http.Header{}
	header.Set("Accept", "application/vnd.github.v3+json")
	header.Set("User-Agent", "voicedeck/"+c.current.String())

	resp, err := c.transport.Do(ctx, &ttypes.HTTPRequest{
		Method: http.MethodGet,
		URL:    endpoint,
		Header: header,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to check for updates: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoReleases
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("Failed to check for updates: %w", &ttypes.StatusError{StatusCode: resp.StatusCode})
	}

	var rel Release
	if err := sonic.Unmarshal(resp.Body, &rel); err != nil {
		return nil, ttypes.NewTTSError(ttypes.ErrorCodeDecoding, "Failed to decode release", err)
	}
	return &rel, nil
}

// Check fetches the latest release, compares it with the running version
// and records the check time. Drafts and prereleases never count as
// available updates.
func (c *Checker) Check(ctx context.Context) (Status, error) {
	status := Status{Current: c.current}

	rel, err := c.Latest(ctx)
	if err != nil {
		return status, err
	}

	status.CheckedAt = c.now()
	if err := c.saveState(state{LastCheck: status.CheckedAt}); err != nil {
		c.logger.Debug("unable to record update check", "error", err)
	}

	status.Latest = rel
	if rel.Draft || rel.Prerelease {
		return status, nil
	}

	v, err := ParseVersion(rel.TagName)
	if err != nil {
		return status, fmt.Errorf("Unable to parse release version: %s", rel.TagName)
	}
	status.Version = v
	status.Available = c.current.Less(v)

	c.logger.Debug("update check", "current", c.current, "latest", v, "available", status.Available)
	return status, nil
}

// Due reports whether the interval has passed since the last recorded check.
func (c *Checker) Due() bool {
	if c.stateFile == "" {
		return true
	}
	st, err := c.loadState()
	if err != nil || st.LastCheck.IsZero() {
		return true
	}
	return c.now().Sub(st.LastCheck) >= c.interval
}

// CheckIfDue runs Check only when Due. The boolean reports whether a
// check was made.
func (c *Checker) CheckIfDue(ctx context.Context) (Status, bool, error) {
	if !c.Due() {
		return Status{Current: c.current}, false, nil
	}
	status, err := c.Check(ctx)
	return status, true, err
}

func (c *Checker) loadState() (state, error) {
	var st state
	data, err := os.ReadFile(c.stateFile)
	if err != nil {
		return st, err
	}
	if err := sonic.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("unable to parse %s: %w", c.stateFile, err)
	}
	return st, nil
}

func (c *Checker) saveState(st state) error {
	if c.stateFile == "" {
		return nil
	}
	data, err := sonic.Marshal(st)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.stateFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.stateFile, data, 0o644)
}
