package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmm22/voicedeck/internal/transport"
)

func ver(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"1.2.3", ver(1, 2, 3), false},
		{"v2.0.1", ver(2, 0, 1), false},
		{"v3.4", ver(3, 4, 0), false},
		{"7", ver(7, 0, 0), false},
		{"1.4.0-rc1", Version{Major: 1, Minor: 4, Prerelease: "-rc1"}, false},
		{"v1.2.3+build.5", ver(1, 2, 3), false},
		{"1.5.rc1", Version{}, true},
		{"v1.x.3", Version{}, true},
		{"1.2.3.4", Version{}, true},
		{"", Version{}, true},
		{"unknown (built from source)", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCompare(t *testing.T) {
	rc := Version{Major: 1, Minor: 4, Prerelease: "-rc1"}
	tests := []struct {
		a, b Version
		want int
	}{
		{ver(1, 0, 0), ver(1, 0, 0), 0},
		{ver(1, 0, 0), ver(2, 0, 0), -1},
		{ver(1, 10, 0), ver(1, 9, 9), 1},
		{ver(1, 2, 3), ver(1, 2, 4), -1},
		{rc, ver(1, 4, 0), -1},
		{rc, ver(1, 3, 9), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Compare(tt.b), "%s vs %s", tt.a, tt.b)
	}
	assert.True(t, ver(1, 2, 3).Less(ver(1, 3, 0)))
	assert.Equal(t, "1.2.3", ver(1, 2, 3).String())
	assert.Equal(t, "1.4.0-rc1", rc.String())
}

type fakeGitHub struct {
	*httptest.Server
	calls   atomic.Int32
	status  int
	release string
}

func newFakeGitHub(t *testing.T, release string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{status: http.StatusOK, release: release}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "/repos/tmm22/voicedeck/releases/latest", r.URL.Path)
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(t, "voicedeck/1.2.0", r.Header.Get("User-Agent"))
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.release))
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestChecker(t *testing.T, api *fakeGitHub, stateFile string) *Checker {
	t.Helper()
	c, err := NewChecker(Config{
		Repo:           "tmm22/voicedeck",
		CurrentVersion: "v1.2.0",
		Transport:      transport.New(transport.Config{}),
		APIBase:        api.URL,
		StateFile:      stateFile,
		Logger:         log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel}),
	})
	require.NoError(t, err)
	return c
}

func TestCheckUpdateAvailable(t *testing.T) {
	api := newFakeGitHub(t, `{"tag_name":"v1.3.0","name":"Spring","html_url":"https://github.com/tmm22/voicedeck/releases/tag/v1.3.0","draft":false,"prerelease":false,"published_at":"2024-05-01T10:00:00Z"}`)
	c := newTestChecker(t, api, "")

	s, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Available)
	assert.Equal(t, ver(1, 3, 0), s.Version)
	assert.Equal(t, ver(1, 2, 0), s.Current)
	require.NotNil(t, s.Latest)
	assert.Equal(t, "Spring", s.Latest.Name)
	assert.Equal(t, 2024, s.Latest.PublishedAt.Year())
}

func TestCheckUpToDate(t *testing.T) {
	api := newFakeGitHub(t, `{"tag_name":"1.2.0"}`)
	c := newTestChecker(t, api, "")

	s, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Available)
}

func TestCheckSkipsPrerelease(t *testing.T) {
	for name, body := range map[string]string{
		"draft":      `{"tag_name":"v9.0.0","draft":true}`,
		"prerelease": `{"tag_name":"v9.0.0","prerelease":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestChecker(t, newFakeGitHub(t, body), "")
			s, err := c.Check(context.Background())
			require.NoError(t, err)
			assert.False(t, s.Available)
		})
	}
}

func TestCheckErrors(t *testing.T) {
	t.Run("no releases", func(t *testing.T) {
		api := newFakeGitHub(t, `{"message":"Not Found"}`)
		api.status = http.StatusNotFound
		_, err := newTestChecker(t, api, "").Check(context.Background())
		assert.ErrorIs(t, err, ErrNoReleases)
	})

	t.Run("rate limited", func(t *testing.T) {
		api := newFakeGitHub(t, `{}`)
		api.status = http.StatusForbidden
		_, err := newTestChecker(t, api, "").Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 403")
	})

	t.Run("bad tag", func(t *testing.T) {
		_, err := newTestChecker(t, newFakeGitHub(t, `{"tag_name":"nightly"}`), "").Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unable to parse release version: nightly")
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := newTestChecker(t, newFakeGitHub(t, `not json`), "").Check(context.Background())
		assert.Error(t, err)
	})
}

func TestCheckIfDue(t *testing.T) {
	api := newFakeGitHub(t, `{"tag_name":"v1.2.1"}`)
	stateFile := filepath.Join(t.TempDir(), "state", "update.json")
	c := newTestChecker(t, api, stateFile)

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	s, checked, err := c.CheckIfDue(context.Background())
	require.NoError(t, err)
	assert.True(t, checked)
	assert.True(t, s.Available)
	assert.FileExists(t, stateFile)

	now = now.Add(23 * time.Hour)
	_, checked, err = c.CheckIfDue(context.Background())
	require.NoError(t, err)
	assert.False(t, checked, "at most one check per day")

	now = now.Add(time.Hour)
	_, checked, err = c.CheckIfDue(context.Background())
	require.NoError(t, err)
	assert.True(t, checked)

	assert.Equal(t, int32(2), api.calls.Load())
}

func TestNewCheckerValidation(t *testing.T) {
	_, err := NewChecker(Config{Repo: "a/b", CurrentVersion: "unknown (built from source)", Transport: transport.New(transport.Config{})})
	assert.Error(t, err, "development builds cannot be compared")

	_, err = NewChecker(Config{CurrentVersion: "1.0.0", Transport: transport.New(transport.Config{})})
	assert.Error(t, err)

	_, err = NewChecker(Config{Repo: "a/b", CurrentVersion: "1.0.0"})
	assert.Error(t, err)
}
