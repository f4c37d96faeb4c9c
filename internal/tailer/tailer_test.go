package tailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"survival-tracker/internal/config"
	"survival-tracker/internal/store"
	"survival-tracker/internal/transport"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	path       string
	start, end int64
}

type fakeTransport struct {
	mu      sync.Mutex
	files   map[string]string
	statErr error
	fetches []fetchCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{files: map[string]string{}}
}

func (f *fakeTransport) set(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
}

func (f *fakeTransport) Stat(_ context.Context, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statErr != nil {
		return 0, f.statErr
	}
	content, ok := f.files[path]
	if !ok {
		return 0, transport.ErrNotFound
	}
	return int64(len(content)), nil
}

func (f *fakeTransport) FetchRange(_ context.Context, path string, start, end int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return nil, transport.ErrNotFound
	}
	f.fetches = append(f.fetches, fetchCall{path: path, start: start, end: end})
	if end > int64(len(content)) {
		return nil, fmt.Errorf("range beyond size")
	}
	return []byte(content[start:end]), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StateDir:     t.TempDir(),
		WatchedFiles: []config.WatchedFile{{Label: "gameplay", Path: "Logs/gameplay.log"}},
	}
}

func newTestTailer(t *testing.T, cfg *config.Config, tp transport.Transport) (*Tailer, *store.CursorStore) {
	t.Helper()
	cursors := store.NewCursorStore(cfg, zerolog.Nop())
	return New(cfg, tp, cursors, zerolog.Nop()), cursors
}

func TestPollColdStartEmitsNothing(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	tp.set("Logs/gameplay.log", "pre-existing line one\npre-existing line two\n")

	tl, cursors := newTestTailer(t, cfg, tp)

	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks, "first-ever observation must not replay history")
	assert.Empty(t, tp.fetches, "nothing should be downloaded on cold start")

	off, ok := cursors.Offset("gameplay")
	require.True(t, ok)
	assert.Equal(t, int64(len("pre-existing line one\npre-existing line two\n")), off)
}

func TestPollEmitsOnlyAppendedBytes(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	tp.set("Logs/gameplay.log", "old\n")

	tl, _ := newTestTailer(t, cfg, tp)

	_, err := tl.Poll(context.Background())
	require.NoError(t, err)

	tp.set("Logs/gameplay.log", "old\nfirst new\nsecond new\n")

	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"first new", "second new"}, chunks[0].Lines)
	assert.False(t, chunks[0].Rotated)

	require.Len(t, tp.fetches, 1)
	assert.Equal(t, int64(4), tp.fetches[0].start)
	assert.Equal(t, int64(len("old\nfirst new\nsecond new\n")), tp.fetches[0].end)
}

func TestPollResumesFromPersistedCursor(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	content := "before restart\n"
	tp.set("Logs/gameplay.log", content)

	seed := store.NewCursorStore(cfg, zerolog.Nop())
	seed.SetOffset("gameplay", int64(len(content)))
	require.NoError(t, seed.Save())

	tp.set("Logs/gameplay.log", content+"while offline\n")

	tl, _ := newTestTailer(t, cfg, tp)

	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"while offline"}, chunks[0].Lines,
		"a persisted cursor must catch up on bytes appended while offline")

	require.Len(t, tp.fetches, 1)
	assert.Equal(t, int64(len(content)), tp.fetches[0].start, "exactly the trailing bytes, never the whole file")
}

func TestPollOffsetsAreMonotonic(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	tp.set("Logs/gameplay.log", "")

	tl, cursors := newTestTailer(t, cfg, tp)

	var last int64
	content := ""
	for i := 0; i < 5; i++ {
		content += fmt.Sprintf("line %d\n", i)
		tp.set("Logs/gameplay.log", content)

		_, err := tl.Poll(context.Background())
		require.NoError(t, err)

		off, ok := cursors.Offset("gameplay")
		require.True(t, ok)
		assert.GreaterOrEqual(t, off, last)
		last = off
	}
}

func TestPollDetectsRotation(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	tp.set("Logs/gameplay.log", "a long pre-rotation file body\n")

	tl, cursors := newTestTailer(t, cfg, tp)

	_, err := tl.Poll(context.Background())
	require.NoError(t, err)

	// The file shrank: it was rotated. The fresh content is genuinely new.
	tp.set("Logs/gameplay.log", "fresh\n")

	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Rotated)
	assert.Equal(t, []string{"fresh"}, chunks[0].Lines)

	off, _ := cursors.Offset("gameplay")
	assert.Equal(t, int64(len("fresh\n")), off)
}

func TestPollCarriesPartialLineAcrossChunks(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	tp.set("Logs/gameplay.log", "")

	tl, _ := newTestTailer(t, cfg, tp)

	_, err := tl.Poll(context.Background())
	require.NoError(t, err)

	tp.set("Logs/gameplay.log", "one logical li")
	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Lines, "an unterminated fragment is not a line yet")

	tp.set("Logs/gameplay.log", "one logical line\n")
	chunks, err = tl.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"one logical line"}, chunks[0].Lines,
		"a line split across two fetches parses exactly once")
}

func TestPollSkipsMissingFile(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()

	tl, _ := newTestTailer(t, cfg, tp)

	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err, "a file that does not exist yet is not an error")
	assert.Empty(t, chunks)

	// The file appears later; its pre-existing content is history.
	tp.set("Logs/gameplay.log", "created at last\n")
	chunks, err = tl.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPollTransportErrorAbortsCycle(t *testing.T) {
	cfg := testConfig(t)
	tp := newFakeTransport()
	tp.set("Logs/gameplay.log", "content\n")

	tl, cursors := newTestTailer(t, cfg, tp)

	_, err := tl.Poll(context.Background())
	require.NoError(t, err)
	before, _ := cursors.Offset("gameplay")

	tp.set("Logs/gameplay.log", "content\nmore\n")
	tp.statErr = errors.New("connection refused")

	_, err = tl.Poll(context.Background())
	require.Error(t, err)

	after, _ := cursors.Offset("gameplay")
	assert.Equal(t, before, after, "a failed cycle must leave cursors unchanged")

	// Connectivity returns; the same range is retried, nothing lost.
	tp.statErr = nil
	chunks, err := tl.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"more"}, chunks[0].Lines)
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		lines   []string
		partial string
	}{
		{"empty", "", nil, ""},
		{"single terminated", "abc\n", []string{"abc"}, ""},
		{"crlf", "abc\r\ndef\r\n", []string{"abc", "def"}, ""},
		{"trailing fragment", "abc\ndef", []string{"abc"}, "def"},
		{"only fragment", "abc", nil, "abc"},
		{"blank lines dropped", "\n\nabc\n", []string{"abc"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, partial := splitLines(tt.in)
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, tt.partial, partial)
		})
	}
}
