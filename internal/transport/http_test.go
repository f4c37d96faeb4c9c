package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
	"survival-tracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRangeServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logs/server.log" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		if r.Method == http.MethodHead {
			return
		}
		http.ServeContent(w, r, "server.log", time.Time{}, strings.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStat(t *testing.T) {
	srv := newRangeServer(t, "hello\nworld\n")
	c := NewHTTPClient(&config.Config{RemoteBaseURL: srv.URL})

	size, err := c.Stat(context.Background(), "/logs/server.log")
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
}

func TestStatMissingFile(t *testing.T) {
	srv := newRangeServer(t, "")
	c := NewHTTPClient(&config.Config{RemoteBaseURL: srv.URL})

	_, err := c.Stat(context.Background(), "/logs/missing.log")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchRange(t *testing.T) {
	srv := newRangeServer(t, "hello\nworld\n")
	c := NewHTTPClient(&config.Config{RemoteBaseURL: srv.URL})

	got, err := c.FetchRange(context.Background(), "/logs/server.log", 6, 12)
	require.NoError(t, err)
	assert.Equal(t, "world\n", string(got))
}

func TestFetchRangeServerIgnoresRangeHeader(t *testing.T) {
	const content = "old line\nnew line\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always replies 200 with the whole file, Range or not.
		w.Write([]byte(content))
	}))
	t.Cleanup(srv.Close)
	c := NewHTTPClient(&config.Config{RemoteBaseURL: srv.URL})

	got, err := c.FetchRange(context.Background(), "/logs/server.log", 9, 18)
	require.NoError(t, err)
	assert.Equal(t, "new line\n", string(got), "a full-file reply must be cut down to the requested window")
}

func TestFetchRangeFullReplyTooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("old line\n"))
	}))
	t.Cleanup(srv.Close)
	c := NewHTTPClient(&config.Config{RemoteBaseURL: srv.URL})

	_, err := c.FetchRange(context.Background(), "/logs/server.log", 9, 18)
	assert.Error(t, err)
}

func TestFetchRangeEmpty(t *testing.T) {
	c := NewHTTPClient(&config.Config{RemoteBaseURL: "http://unreachable.invalid"})

	// A degenerate range never goes to the wire.
	got, err := c.FetchRange(context.Background(), "/logs/server.log", 10, 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchRangeMissingFile(t *testing.T) {
	srv := newRangeServer(t, "hello\n")
	c := NewHTTPClient(&config.Config{RemoteBaseURL: srv.URL})

	_, err := c.FetchRange(context.Background(), "/logs/missing.log", 0, 6)
	assert.ErrorIs(t, err, ErrNotFound)
}
