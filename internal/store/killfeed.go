package store

import (
	"path/filepath"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// KillFeed is the persisted ring of the most recent attributed PvP kills.
// Append-only up to the cap; the oldest records fall off the front.
type KillFeed struct {
	path    string
	cap     int
	records []domain.PvpKillRecord
	dirty   bool
	logger  zerolog.Logger
}

func NewKillFeed(cfg *config.Config, logger zerolog.Logger) *KillFeed {
	f := &KillFeed{
		path:   filepath.Join(cfg.StateDir, "pvp-kills.json"),
		cap:    cfg.KillHistoryCap,
		logger: logger.With().Str("component", "kill-feed").Logger(),
	}

	var records []domain.PvpKillRecord
	found, err := LoadJSON(f.path, &records)
	if err != nil {
		f.logger.Warn().Err(err).Msg("kill history unreadable, starting fresh")
		return f
	}
	if found {
		if f.cap > 0 && len(records) > f.cap {
			records = records[len(records)-f.cap:]
		}
		f.records = records
		f.logger.Info().Int("kills", len(f.records)).Msg("kill history restored")
	}
	return f
}

func (f *KillFeed) Append(rec domain.PvpKillRecord) {
	f.records = append(f.records, rec)
	if f.cap > 0 && len(f.records) > f.cap {
		f.records = f.records[len(f.records)-f.cap:]
	}
	f.dirty = true
}

// Records returns the current ring, oldest first.
func (f *KillFeed) Records() []domain.PvpKillRecord {
	out := make([]domain.PvpKillRecord, len(f.records))
	copy(out, f.records)
	return out
}

func (f *KillFeed) Save() error {
	if !f.dirty {
		return nil
	}
	if err := SaveJSON(f.path, f.records); err != nil {
		return err
	}
	f.dirty = false
	return nil
}
