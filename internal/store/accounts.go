package store

import (
	"path/filepath"
	"strings"
	"sync"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type accountFile struct {
	Players map[string]*domain.PlayerKillAccount `json:"players"`
}

// AccountStore holds the durable per-player kill accounts. Accounts are
// created on first observation and never deleted. The watcher loop and the
// snapshot reconciler both touch it, on independent timers, hence the lock.
type AccountStore struct {
	mu      sync.Mutex
	path    string
	players map[string]*domain.PlayerKillAccount
	dirty   bool
	logger  zerolog.Logger
}

func NewAccountStore(cfg *config.Config, logger zerolog.Logger) *AccountStore {
	s := &AccountStore{
		path:    filepath.Join(cfg.StateDir, "kill-accounts.json"),
		players: make(map[string]*domain.PlayerKillAccount),
		logger:  logger.With().Str("component", "account-store").Logger(),
	}

	var file accountFile
	found, err := LoadJSON(s.path, &file)
	if err != nil {
		s.logger.Warn().Err(err).Msg("account file unreadable, starting fresh")
		return s
	}
	if found && file.Players != nil {
		for id, acct := range file.Players {
			if acct.PlayerID == "" {
				acct.PlayerID = id
			}
			s.players[id] = acct
		}
		s.logger.Info().Int("accounts", len(s.players)).Msg("kill accounts restored")
	}
	return s
}

// Get returns the account for playerID, creating it on first sight.
func (s *AccountStore) Get(playerID string) *domain.PlayerKillAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.players[playerID]
	if !ok {
		acct = &domain.PlayerKillAccount{PlayerID: playerID}
		s.players[playerID] = acct
		s.dirty = true
	}
	return acct
}

// Touch records the latest display name seen for an id. Display names are
// free text and drift over time; the id is the durable key.
func (s *AccountStore) Touch(playerID, name string) {
	if playerID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.players[playerID]
	if !ok {
		acct = &domain.PlayerKillAccount{PlayerID: playerID}
		s.players[playerID] = acct
		s.dirty = true
	}
	if name != "" && acct.Name != name {
		acct.Name = name
		s.dirty = true
	}
}

// NameToID resolves a display name to a platform id, case-insensitively.
func (s *AccountStore) NameToID(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, acct := range s.players {
		if strings.EqualFold(acct.Name, name) {
			return id, true
		}
	}
	return "", false
}

// MarkDirty flags the store for the next Save. Mutations happen directly on
// the account pointers handed out by Get.
func (s *AccountStore) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

func (s *AccountStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := SaveJSON(s.path, accountFile{Players: s.players}); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
