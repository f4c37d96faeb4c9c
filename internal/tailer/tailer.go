package tailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"survival-tracker/internal/config"
	"survival-tracker/internal/store"
	"survival-tracker/internal/transport"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Cursor tracks consumption of one remote file. Offset is monotonic except
// on rotation, when it resets to zero and the partial-line carry is cleared.
type Cursor struct {
	Label       string
	Path        string
	Offset      int64
	Initialized bool
	partial     string
}

// FileChunk is the outcome of one file's poll: complete lines in file
// order, plus whether a rotation was detected this cycle.
type FileChunk struct {
	Label   string
	Lines   []string
	Rotated bool
}

// Tailer fetches only the bytes appended since the persisted cursor of each
// watched file. A file observed for the very first time, with no persisted
// cursor, starts at its current size: no history replay on a cold start.
type Tailer struct {
	transport transport.Transport
	cursors   *store.CursorStore
	files     []*Cursor
	logger    zerolog.Logger
}

func New(cfg *config.Config, tp transport.Transport, cursors *store.CursorStore, logger zerolog.Logger) *Tailer {
	t := &Tailer{
		transport: tp,
		cursors:   cursors,
		logger:    logger.With().Str("component", "tailer").Logger(),
	}

	for _, f := range cfg.WatchedFiles {
		cur := &Cursor{Label: f.Label, Path: f.Path}
		if off, ok := cursors.Offset(f.Label); ok {
			cur.Offset = off
			cur.Initialized = true
			t.logger.Info().Str("file", f.Label).Int64("offset", off).Msg("resuming from persisted cursor")
		}
		t.files = append(t.files, cur)
	}
	return t
}

// Poll runs one tail cycle over every watched file. Files that do not exist
// yet are skipped silently; any other transport error fails the whole cycle
// with every cursor unchanged, so the next cycle retries the same ranges.
func (t *Tailer) Poll(ctx context.Context) ([]FileChunk, error) {
	sizes := make([]int64, len(t.files))

	g, gCtx := errgroup.WithContext(ctx)
	for i, cur := range t.files {
		i, cur := i, cur
		g.Go(func() error {
			size, err := t.transport.Stat(gCtx, cur.Path)
			if errors.Is(err, transport.ErrNotFound) {
				sizes[i] = -1
				return nil
			}
			if err != nil {
				return err
			}
			sizes[i] = size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stat cycle: %w", err)
	}

	var chunks []FileChunk
	for i, cur := range t.files {
		size := sizes[i]
		if size < 0 {
			t.logger.Debug().Str("file", cur.Label).Msg("remote file not present yet")
			continue
		}

		chunk, err := t.pollFile(ctx, cur, size)
		if errors.Is(err, transport.ErrNotFound) {
			// Vanished between stat and fetch; pick it up next cycle.
			t.logger.Debug().Str("file", cur.Label).Msg("remote file vanished mid-cycle")
			continue
		}
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			chunks = append(chunks, *chunk)
		}
	}
	return chunks, nil
}

func (t *Tailer) pollFile(ctx context.Context, cur *Cursor, size int64) (*FileChunk, error) {
	if !cur.Initialized {
		// First-ever observation: everything already in the file is
		// history, not news. Start watching from here.
		cur.Offset = size
		cur.Initialized = true
		t.cursors.SetOffset(cur.Label, size)
		t.logger.Info().Str("file", cur.Label).Int64("size", size).Msg("file observed for the first time")
		return nil, nil
	}

	rotated := false
	if size < cur.Offset {
		t.logger.Info().
			Str("file", cur.Label).
			Int64("old_offset", cur.Offset).
			Int64("size", size).
			Msg("rotation detected")
		cur.Offset = 0
		cur.partial = ""
		rotated = true
	}

	if size == cur.Offset {
		if rotated {
			t.cursors.SetOffset(cur.Label, cur.Offset)
			return &FileChunk{Label: cur.Label, Rotated: true}, nil
		}
		return nil, nil
	}

	data, err := t.transport.FetchRange(ctx, cur.Path, cur.Offset, size)
	if err != nil {
		return nil, err
	}

	// The cursor only advances after a successful download.
	cur.Offset = size
	t.cursors.SetOffset(cur.Label, size)

	var lines []string
	lines, cur.partial = splitLines(cur.partial + string(data))

	return &FileChunk{Label: cur.Label, Lines: lines, Rotated: rotated}, nil
}

// splitLines splits buf on line breaks and returns the complete lines plus
// the unterminated trailing fragment, which callers carry into the next
// chunk. Raw byte ranges do not align with line boundaries.
func splitLines(buf string) (lines []string, partial string) {
	for {
		idx := strings.IndexByte(buf, '\n')
		if idx < 0 {
			return lines, buf
		}
		line := strings.TrimSuffix(buf[:idx], "\r")
		if line != "" {
			lines = append(lines, line)
		}
		buf = buf[idx+1:]
	}
}
