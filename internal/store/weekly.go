package store

import (
	"path/filepath"
	"sync"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type weeklyFile struct {
	WeekStart time.Time                  `json:"weekStart"`
	Players   map[string]domain.Counters `json:"players"`
}

// WeeklyStore holds the per-player all-time baselines taken at the start of
// the current week; weekly deltas are all-time minus baseline. The calendar
// rollover resets it, the reconciler seeds it, so access is locked.
type WeeklyStore struct {
	mu        sync.Mutex
	path      string
	weekStart time.Time
	players   map[string]domain.Counters
	dirty     bool
	logger    zerolog.Logger
}

func NewWeeklyStore(cfg *config.Config, logger zerolog.Logger) *WeeklyStore {
	s := &WeeklyStore{
		path:    filepath.Join(cfg.StateDir, "weekly-baseline.json"),
		players: make(map[string]domain.Counters),
		logger:  logger.With().Str("component", "weekly-store").Logger(),
	}

	var file weeklyFile
	found, err := LoadJSON(s.path, &file)
	if err != nil {
		s.logger.Warn().Err(err).Msg("weekly baseline unreadable, starting fresh")
		return s
	}
	if found {
		s.weekStart = file.WeekStart
		if file.Players != nil {
			s.players = file.Players
		}
		s.logger.Info().Time("week_start", s.weekStart).Int("players", len(s.players)).Msg("weekly baseline restored")
	}
	return s
}

func (s *WeeklyStore) WeekStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weekStart
}

// Reset drops every baseline and begins a new week at start.
func (s *WeeklyStore) Reset(start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weekStart = start
	s.players = make(map[string]domain.Counters)
	s.dirty = true
	s.logger.Info().Time("week_start", start).Msg("weekly baseline reset")
}

// Baseline returns the stored week-start counters for playerID.
func (s *WeeklyStore) Baseline(playerID string) (domain.Counters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.players[playerID]
	return c, ok
}

// SetBaseline records playerID's counters as of the start of this week. The
// first observation within a week wins; later calls are ignored.
func (s *WeeklyStore) SetBaseline(playerID string, c domain.Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[playerID]; ok {
		return
	}
	s.players[playerID] = c
	s.dirty = true
}

func (s *WeeklyStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := SaveJSON(s.path, weeklyFile{WeekStart: s.weekStart, Players: s.players}); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
