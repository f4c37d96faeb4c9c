package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"survival-tracker/internal/calendar"
	"survival-tracker/internal/coalesce"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"
	"survival-tracker/internal/parser"
	"survival-tracker/internal/pvp"
	"survival-tracker/internal/sink"
	"survival-tracker/internal/store"
	"survival-tracker/internal/tailer"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Watcher drives the line-level poll loop: tail the remote logs, parse new
// lines into events and dispatch them to the correlator, the coalescer, the
// calendar bucketer and the sink, then persist dirty state. One cycle runs
// to completion before the next is scheduled; cycles never overlap.
type Watcher struct {
	interval   time.Duration
	tailer     *tailer.Tailer
	parser     *parser.Parser
	correlator *pvp.Correlator
	ledger     *pvp.DeathLedger
	bucketer   *calendar.Bucketer
	accounts   *store.AccountStore
	killFeed   *store.KillFeed
	cursors    *store.CursorStore
	sink       sink.Sink
	batcher    *coalesce.Batcher
	deathLoops *coalesce.RepeatSuppressor
	now        func() time.Time
	logger     zerolog.Logger
}

func NewWatcher(
	cfg *config.Config,
	tl *tailer.Tailer,
	ps *parser.Parser,
	correlator *pvp.Correlator,
	ledger *pvp.DeathLedger,
	bucketer *calendar.Bucketer,
	accounts *store.AccountStore,
	killFeed *store.KillFeed,
	cursors *store.CursorStore,
	snk sink.Sink,
	logger zerolog.Logger,
) *Watcher {
	w := &Watcher{
		interval:   cfg.PollInterval,
		tailer:     tl,
		parser:     ps,
		correlator: correlator,
		ledger:     ledger,
		bucketer:   bucketer,
		accounts:   accounts,
		killFeed:   killFeed,
		cursors:    cursors,
		sink:       snk,
		now:        time.Now,
		logger:     logger.With().Str("component", "watcher").Logger(),
	}

	w.batcher = coalesce.NewBatcher(cfg.CoalesceDelay, w.flushBatch)
	w.deathLoops = coalesce.NewRepeatSuppressor(cfg.RepeatWindow, cfg.RepeatThreshold, func(subject string, count int) {
		snk.Post(sink.GroupDeaths, fmt.Sprintf("%s is stuck in a death loop: died %d times in quick succession", subject, count))
	})
	return w
}

// Run executes cycles on a fixed interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Cycle(ctx); err != nil {
				w.logger.Warn().Err(err).Msg("poll cycle failed, retrying next interval")
			}
		}
	}
}

// Stop flushes every pending coalescer batch; it never drops one.
func (w *Watcher) Stop() {
	w.batcher.Stop()
	w.deathLoops.Stop()
	w.persist()
}

// Cycle runs one complete tail-parse-dispatch pass. A transport error
// aborts the whole cycle with cursors already persisted from the prior
// successful cycle, so the next run retries the same byte ranges.
func (w *Watcher) Cycle(ctx context.Context) error {
	cycleID := uuid.New().String()
	logger := w.logger.With().Str("cycle_id", cycleID).Logger()
	start := w.now()

	chunks, err := w.tailer.Poll(ctx)
	if err != nil {
		return fmt.Errorf("tail poll: %w", err)
	}

	var parsed, dropped int
	for _, chunk := range chunks {
		if chunk.Rotated {
			logger.Info().Str("file", chunk.Label).Msg("file rotated")
		}
		for _, line := range chunk.Lines {
			ev, ok := w.parser.ParseLine(line)
			if !ok {
				dropped++
				continue
			}
			parsed++
			w.dispatch(ev)
		}
	}

	swept := w.correlator.Sweep(w.now())
	w.persist()

	logger.Debug().
		Int("files", len(chunks)).
		Int("events", parsed).
		Int("unmatched_lines", dropped).
		Int("swept_damage_records", swept).
		Dur("duration", w.now().Sub(start)).
		Msg("poll cycle complete")
	return nil
}

func (w *Watcher) dispatch(ev domain.Event) {
	switch e := ev.(type) {
	case domain.DamageTaken:
		w.correlator.ObserveDamage(e)

	case domain.Death:
		w.ledger.Record(e.Player)
		if kill, ok := w.correlator.ObserveDeath(e); ok {
			w.killFeed.Append(kill)
			if w.deathLoops.Allow(e.Player, e.TS) {
				w.sink.Post(sink.GroupKills, fmt.Sprintf("%s killed %s (%.0f damage)", kill.Killer, kill.Victim, kill.Damage))
			}
		} else if w.deathLoops.Allow(e.Player, e.TS) {
			w.sink.Post(sink.GroupDeaths, fmt.Sprintf("%s died", e.Player))
		}

	case domain.Loot:
		w.accounts.Touch(e.LooterID, e.Looter)
		w.batcher.Add(
			strings.Join([]string{"loot", e.LooterID, e.OwnerID}, "|"),
			fmt.Sprintf("%s looted containers owned by %s", e.Looter, w.ownerName(e.OwnerID)),
			e.ContainerKind,
		)

	case domain.RaidHit:
		w.accounts.Touch(e.AttackerID, e.Attacker)
		label := fmt.Sprintf("%s destroyed unowned structures", e.Attacker)
		if e.OwnerID != "" {
			label = fmt.Sprintf("%s raided structures owned by %s", e.Attacker, w.ownerName(e.OwnerID))
		}
		// Unowned-structure lines may carry no platform id; key on the
		// display name then so distinct attackers batch separately.
		attackerKey := e.AttackerID
		if attackerKey == "" {
			attackerKey = e.Attacker
		}
		w.batcher.Add(
			strings.Join([]string{"raid", attackerKey, e.OwnerID}, "|"),
			label,
			e.StructureKind,
		)

	case domain.Build:
		w.accounts.Touch(e.PlayerID, e.Player)
		w.batcher.Add(
			strings.Join([]string{"build", e.PlayerID}, "|"),
			fmt.Sprintf("%s placed structures", e.Player),
			e.Item,
		)

	case domain.Connect:
		w.accounts.Touch(e.PlayerID, e.Player)
		w.sink.Post(sink.GroupPresence, fmt.Sprintf("%s joined the server", e.Player))

	case domain.Disconnect:
		w.accounts.Touch(e.PlayerID, e.Player)
		w.sink.Post(sink.GroupPresence, fmt.Sprintf("%s left the server", e.Player))

	case domain.AdminAccess:
		w.sink.Post(sink.GroupModeration, fmt.Sprintf("%s accessed admin commands", e.Player))

	case domain.CheatFlag:
		w.accounts.Touch(e.PlayerID, e.Player)
		w.sink.Post(sink.GroupModeration, fmt.Sprintf("anti-cheat flagged %s: %s", e.Player, e.Reason))
	}

	// After Touch, so the bucketer can resolve names registered this cycle.
	w.bucketer.Observe(ev)
}

func (w *Watcher) flushBatch(s coalesce.Summary) {
	group := sink.GroupLoot
	switch {
	case strings.HasPrefix(s.Key, "raid|"):
		group = sink.GroupRaids
	case strings.HasPrefix(s.Key, "build|"):
		group = sink.GroupBuilds
	}

	msg := fmt.Sprintf("%s: %d times", s.Label, s.Count)
	if len(s.Kinds) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(s.Kinds, ", "))
	}
	w.sink.Post(group, msg)
}

func (w *Watcher) ownerName(ownerID string) string {
	if acct := w.accounts.Get(ownerID); acct.Name != "" {
		return acct.Name
	}
	return ownerID
}

// persist flushes every dirty store. Failures are logged, not fatal: the
// in-memory state is still correct and the next cycle retries the write.
func (w *Watcher) persist() {
	if err := w.cursors.Save(); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist cursors")
	}
	if err := w.killFeed.Save(); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist kill history")
	}
	if err := w.ledger.Save(); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist death ledger")
	}
	if err := w.accounts.Save(); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist kill accounts")
	}
	if err := w.bucketer.Save(); err != nil {
		w.logger.Error().Err(err).Msg("failed to persist day bucket")
	}
}
