package calendar

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"
	"survival-tracker/internal/sink"
	"survival-tracker/internal/store"

	"github.com/rs/zerolog"
)

// DayBucket is one calendar day's event tallies plus the distinct player
// identities seen that day.
type DayBucket struct {
	Date     string          `json:"date"`
	Counters map[string]int  `json:"counters"`
	Players  map[string]bool `json:"players,omitempty"`
}

func newDayBucket(date string) DayBucket {
	return DayBucket{
		Date:     date,
		Counters: make(map[string]int),
		Players:  make(map[string]bool),
	}
}

func (b DayBucket) empty() bool {
	return len(b.Counters) == 0
}

// Bucketer routes events into timezone-aware daily buckets. Rollover fires
// either when an event's date key differs from the open bucket or when the
// proactive tick notices the date changed, so a quiet night still closes
// out the previous day. A day rollover that crosses the weekly reset
// boundary also resets the weekly baseline. The watcher and the rollover
// timer both call in, hence the lock.
type Bucketer struct {
	mu       sync.Mutex
	loc      *time.Location
	resetDay time.Weekday
	path     string
	bucket   DayBucket
	dirty    bool
	weekly   *store.WeeklyStore
	accounts *store.AccountStore
	sink     sink.Sink
	logger   zerolog.Logger
}

func NewBucketer(cfg *config.Config, weekly *store.WeeklyStore, accounts *store.AccountStore, snk sink.Sink, logger zerolog.Logger) *Bucketer {
	b := &Bucketer{
		loc:      cfg.SourceTZ,
		resetDay: cfg.WeeklyResetDay,
		path:     filepath.Join(cfg.StateDir, "day-bucket.json"),
		weekly:   weekly,
		accounts: accounts,
		sink:     snk,
		logger:   logger.With().Str("component", "bucketer").Logger(),
	}

	var persisted DayBucket
	found, err := store.LoadJSON(b.path, &persisted)
	if err != nil {
		b.logger.Warn().Err(err).Msg("day bucket unreadable, starting fresh")
		found = false
	}
	if found && persisted.Date != "" {
		// A restart within the same day keeps its counts; a stale date
		// is closed out by the first tick.
		if persisted.Counters == nil {
			persisted.Counters = make(map[string]int)
		}
		if persisted.Players == nil {
			persisted.Players = make(map[string]bool)
		}
		b.bucket = persisted
		b.logger.Info().Str("date", persisted.Date).Msg("day bucket restored")
	} else {
		b.bucket = newDayBucket(DateKey(time.Now(), b.loc))
	}
	return b
}

// Observe tallies ev into the bucket matching its own timestamp's date.
func (b *Bucketer) Observe(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := DateKey(ev.OccurredAt(), b.loc)
	if key != b.bucket.Date {
		b.rollover(key, ev.OccurredAt())
	}

	b.bucket.Counters[string(ev.EventKind())]++
	if id := b.identityOf(ev); id != "" {
		b.bucket.Players[id] = true
	}
	b.dirty = true
}

// Tick re-evaluates the current date independent of event arrival.
func (b *Bucketer) Tick(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := DateKey(now, b.loc)
	if key != b.bucket.Date {
		b.rollover(key, now)
	}
}

// rollover closes the open bucket, summarizing it when non-empty, opens a
// fresh one, and resets the weekly baseline when the reset weekday boundary
// was crossed. Callers hold the lock.
func (b *Bucketer) rollover(newKey string, at time.Time) {
	closed := b.bucket
	if !closed.empty() {
		b.sink.Post(sink.GroupDaily, renderDaySummary(closed))
	}
	b.logger.Info().Str("closed", closed.Date).Str("opened", newKey).Msg("day bucket rolled over")

	b.bucket = newDayBucket(newKey)
	b.dirty = true

	if WeekStale(b.weekly.WeekStart(), at, b.resetDay, b.loc) {
		b.weekly.Reset(WeekBoundary(at, b.resetDay, b.loc))
	}
}

// Current returns a copy of the open bucket.
func (b *Bucketer) Current() DayBucket {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := newDayBucket(b.bucket.Date)
	for k, v := range b.bucket.Counters {
		out.Counters[k] = v
	}
	for k := range b.bucket.Players {
		out.Players[k] = true
	}
	return out
}

// Save persists the open bucket so a restart within the same day keeps its
// counts.
func (b *Bucketer) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return nil
	}
	if err := store.SaveJSON(b.path, b.bucket); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

func renderDaySummary(bucket DayBucket) string {
	kinds := make([]string, 0, len(bucket.Counters))
	for k := range bucket.Counters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, bucket.Counters[k]))
	}

	return fmt.Sprintf("Daily summary for %s: %s (%d unique players)",
		bucket.Date, strings.Join(parts, ", "), len(bucket.Players))
}

// identityOf picks the durable identity an event carries: the platform id
// when the line has one, else the display name resolved through the account
// registry. Without the resolution a player seen on both id-bearing and
// name-only lines would count as two distinct players.
func (b *Bucketer) identityOf(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.Death:
		return b.resolveName(e.Player)
	case domain.DamageTaken:
		return b.resolveName(e.Victim)
	case domain.Build:
		return e.PlayerID
	case domain.Loot:
		return e.LooterID
	case domain.RaidHit:
		if e.AttackerID != "" {
			return e.AttackerID
		}
		return b.resolveName(e.Attacker)
	case domain.AdminAccess:
		return b.resolveName(e.Player)
	case domain.CheatFlag:
		return e.PlayerID
	case domain.Connect:
		return e.PlayerID
	case domain.Disconnect:
		return e.PlayerID
	default:
		return ""
	}
}

func (b *Bucketer) resolveName(name string) string {
	if id, ok := b.accounts.NameToID(name); ok {
		return id
	}
	return name
}
