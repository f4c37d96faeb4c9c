package fx

import (
	"survival-tracker/internal/calendar"
	"survival-tracker/internal/config"
	"survival-tracker/internal/logger"
	"survival-tracker/internal/parser"
	"survival-tracker/internal/pvp"
	"survival-tracker/internal/service"
	"survival-tracker/internal/sink"
	"survival-tracker/internal/snapshot"
	"survival-tracker/internal/stats"
	"survival-tracker/internal/store"
	"survival-tracker/internal/tailer"
	"survival-tracker/internal/transport"

	"go.uber.org/fx"
)

func ProvideParser(cfg *config.Config) *parser.Parser {
	return parser.New(cfg.SourceTZ)
}

func ProvideTransport(client *transport.HTTPClient) transport.Transport {
	return client
}

func ProvideSink(logSink *sink.LogSink) sink.Sink {
	return logSink
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	// remote access
	fx.Provide(transport.NewHTTPClient),
	fx.Provide(ProvideTransport),
	fx.Provide(snapshot.NewHTTPSource),
	// sink
	fx.Provide(sink.NewLogSink),
	fx.Provide(ProvideSink),
	// state stores
	fx.Provide(store.NewCursorStore),
	fx.Provide(store.NewAccountStore),
	fx.Provide(store.NewKillFeed),
	fx.Provide(store.NewWeeklyStore),
	// pipeline
	fx.Provide(ProvideParser),
	fx.Provide(tailer.New),
	fx.Provide(pvp.NewCorrelator),
	fx.Provide(pvp.NewDeathLedger),
	fx.Provide(calendar.NewBucketer),
	fx.Provide(stats.NewReconciler),
	// poll services
	fx.Provide(service.NewWatcher),
	fx.Provide(service.NewSnapshotPoller),
	fx.Provide(service.NewRolloverChecker),
)
