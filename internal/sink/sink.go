package sink

import (
	"github.com/rs/zerolog"
)

// Sink receives rendered narrative events, grouped by feed key. Posting is
// fire-and-forget: implementations log failures and never retry.
type Sink interface {
	Post(groupKey, message string)
}

// Well-known feed group keys.
const (
	GroupKills      = "kills"
	GroupDeaths     = "deaths"
	GroupRaids      = "raids"
	GroupLoot       = "loot"
	GroupBuilds     = "builds"
	GroupPresence   = "presence"
	GroupModeration = "moderation"
	GroupActivity   = "activity"
	GroupDaily      = "daily"
)

// LogSink writes every posted message to the process log. It is the default
// sink when no chat integration is wired in.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "sink").Logger()}
}

func (s *LogSink) Post(groupKey, message string) {
	s.logger.Info().Str("group", groupKey).Str("message", message).Msg("event posted")
}
