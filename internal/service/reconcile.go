package service

import (
	"context"
	"fmt"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/constants"
	"survival-tracker/internal/snapshot"
	"survival-tracker/internal/stats"
	"survival-tracker/internal/store"

	"github.com/rs/zerolog"
)

// SnapshotPoller drives the save-snapshot reconciliation loop on its own,
// slower cadence, decoupled from line tailing.
type SnapshotPoller struct {
	interval   time.Duration
	source     *snapshot.HTTPSource
	reconciler *stats.Reconciler
	accounts   *store.AccountStore
	weekly     *store.WeeklyStore
	logger     zerolog.Logger
}

func NewSnapshotPoller(
	cfg *config.Config,
	source *snapshot.HTTPSource,
	reconciler *stats.Reconciler,
	accounts *store.AccountStore,
	weekly *store.WeeklyStore,
	logger zerolog.Logger,
) *SnapshotPoller {
	return &SnapshotPoller{
		interval:   cfg.SnapshotPollInterval,
		source:     source,
		reconciler: reconciler,
		accounts:   accounts,
		weekly:     weekly,
		logger:     logger.With().Str("component", "snapshot-poller").Logger(),
	}
}

func (p *SnapshotPoller) Run(ctx context.Context) {
	if !p.source.Enabled() {
		p.logger.Info().Msg("no snapshot endpoint configured, reconciler disabled")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Cycle(ctx); err != nil {
				p.logger.Warn().Err(err).Msg("snapshot poll failed, retrying next interval")
			}
		}
	}
}

// Cycle fetches the latest save snapshot and reconciles it into the kill
// accounts.
func (p *SnapshotPoller) Cycle(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	snaps, err := p.source.FetchLatest(fetchCtx)
	if err != nil {
		return fmt.Errorf("snapshot cycle: %w", err)
	}

	p.reconciler.Apply(snaps)

	if err := p.accounts.Save(); err != nil {
		p.logger.Error().Err(err).Msg("failed to persist kill accounts")
	}
	if err := p.weekly.Save(); err != nil {
		p.logger.Error().Err(err).Msg("failed to persist weekly baseline")
	}

	p.logger.Debug().Int("players", len(snaps)).Msg("snapshot reconciled")
	return nil
}
