package pvp

import (
	"path/filepath"
	"strings"
	"sync"
	"survival-tracker/internal/config"
	"survival-tracker/internal/store"

	"github.com/rs/zerolog"
)

type ledgerFile struct {
	Deaths map[string]int `json:"deaths"`
}

// DeathLedger counts every observed death per player, keyed by lowercased
// display name. It is the authoritative death signal for the reconciler:
// the polled save is too stale to detect deaths reliably, whereas the log
// reports each one. The counts are persisted with the other state files so
// a restart cannot rewind them below the high-water marks stored on the
// kill accounts. The watcher writes, the reconciler reads, on independent
// timers.
type DeathLedger struct {
	mu     sync.Mutex
	path   string
	deaths map[string]int
	dirty  bool
	logger zerolog.Logger
}

func NewDeathLedger(cfg *config.Config, logger zerolog.Logger) *DeathLedger {
	l := &DeathLedger{
		path:   filepath.Join(cfg.StateDir, "death-ledger.json"),
		deaths: make(map[string]int),
		logger: logger.With().Str("component", "death-ledger").Logger(),
	}

	var file ledgerFile
	found, err := store.LoadJSON(l.path, &file)
	if err != nil {
		l.logger.Warn().Err(err).Msg("death ledger unreadable, starting fresh")
		return l
	}
	if found && file.Deaths != nil {
		l.deaths = file.Deaths
		l.logger.Info().Int("players", len(l.deaths)).Msg("death ledger restored")
	}
	return l
}

// Record counts one death for player.
func (l *DeathLedger) Record(player string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deaths[strings.ToLower(player)]++
	l.dirty = true
}

// Deaths returns the running death count for player.
func (l *DeathLedger) Deaths(player string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deaths[strings.ToLower(player)]
}

func (l *DeathLedger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	if err := store.SaveJSON(l.path, ledgerFile{Deaths: l.deaths}); err != nil {
		return err
	}
	l.dirty = false
	return nil
}
