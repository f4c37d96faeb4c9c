package service

import (
	"context"
	"time"
	"survival-tracker/internal/calendar"
	"survival-tracker/internal/config"
	"survival-tracker/internal/store"

	"github.com/rs/zerolog"
)

// RolloverChecker proactively re-evaluates the calendar date on a fast
// timer, so a day with zero events still closes out and summarizes
// promptly at the timezone's midnight.
type RolloverChecker struct {
	interval time.Duration
	bucketer *calendar.Bucketer
	weekly   *store.WeeklyStore
	logger   zerolog.Logger
}

func NewRolloverChecker(cfg *config.Config, bucketer *calendar.Bucketer, weekly *store.WeeklyStore, logger zerolog.Logger) *RolloverChecker {
	return &RolloverChecker{
		interval: cfg.RolloverInterval,
		bucketer: bucketer,
		weekly:   weekly,
		logger:   logger.With().Str("component", "rollover-checker").Logger(),
	}
}

func (c *RolloverChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.bucketer.Tick(time.Now())
			if err := c.bucketer.Save(); err != nil {
				c.logger.Error().Err(err).Msg("failed to persist day bucket")
			}
			if err := c.weekly.Save(); err != nil {
				c.logger.Error().Err(err).Msg("failed to persist weekly baseline")
			}
		}
	}
}
