package main

import (
	"context"
	"sync"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/constants"
	fxmodules "survival-tracker/internal/fx"
	"survival-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runTracker),
	).Run()
}

func runTracker(
	lc fx.Lifecycle,
	watcher *service.Watcher,
	snapshots *service.SnapshotPoller,
	rollover *service.RolloverChecker,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())

			logger.Info().
				Dur("poll_interval", cfg.PollInterval).
				Dur("snapshot_poll_interval", cfg.SnapshotPollInterval).
				Dur("rollover_interval", cfg.RolloverInterval).
				Msg("tracker starting")

			// Three independent timer loops; each serializes its own work.
			wg.Add(3)
			go func() { defer wg.Done(); watcher.Run(runCtx) }()
			go func() { defer wg.Done(); snapshots.Run(runCtx) }()
			go func() { defer wg.Done(); rollover.Run(runCtx) }()
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Info().Msg("shutting down tracker")
			cancel()

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(constants.ShutdownTimeout):
				logger.Warn().Msg("poll loops did not stop before the shutdown deadline")
			}

			// Pending coalescer batches are flushed, never dropped.
			watcher.Stop()

			logger.Info().Msg("tracker stopped gracefully")
			return nil
		},
	})
}
