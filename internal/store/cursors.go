package store

import (
	"path/filepath"
	"time"
	"survival-tracker/internal/config"

	"github.com/rs/zerolog"
)

type cursorEntry struct {
	ByteOffset int64 `json:"byteOffset"`
}

type cursorFile struct {
	Files   map[string]cursorEntry `json:"files"`
	SavedAt time.Time              `json:"savedAt"`
}

// CursorStore persists per-file byte offsets across restarts. Offsets are
// keyed by the watched file's label, not its path, so the remote layout can
// move without losing position.
type CursorStore struct {
	path    string
	offsets map[string]int64
	dirty   bool
	logger  zerolog.Logger
}

func NewCursorStore(cfg *config.Config, logger zerolog.Logger) *CursorStore {
	s := &CursorStore{
		path:    filepath.Join(cfg.StateDir, "cursors.json"),
		offsets: make(map[string]int64),
		logger:  logger.With().Str("component", "cursor-store").Logger(),
	}

	var file cursorFile
	found, err := LoadJSON(s.path, &file)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cursor file unreadable, starting fresh")
		return s
	}
	if found {
		for label, entry := range file.Files {
			s.offsets[label] = entry.ByteOffset
		}
		s.logger.Info().Int("cursors", len(s.offsets)).Msg("cursors restored")
	}
	return s
}

// Offset returns the persisted offset for label, if one exists.
func (s *CursorStore) Offset(label string) (int64, bool) {
	off, ok := s.offsets[label]
	return off, ok
}

func (s *CursorStore) SetOffset(label string, offset int64) {
	if cur, ok := s.offsets[label]; ok && cur == offset {
		return
	}
	s.offsets[label] = offset
	s.dirty = true
}

// Save persists the cursors when anything changed since the last save.
func (s *CursorStore) Save() error {
	if !s.dirty {
		return nil
	}

	file := cursorFile{Files: make(map[string]cursorEntry, len(s.offsets)), SavedAt: time.Now().UTC()}
	for label, off := range s.offsets {
		file.Files[label] = cursorEntry{ByteOffset: off}
	}
	if err := SaveJSON(s.path, file); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
