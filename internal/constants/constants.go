package constants

import "time"

const (
	DefaultPollInterval         = 60 * time.Second
	DefaultSnapshotPollInterval = 5 * time.Minute
	DefaultRolloverInterval     = 1 * time.Minute
	DefaultAttributionWindow    = 5 * time.Minute
	DefaultCoalesceDelay        = 30 * time.Second
	DefaultRepeatWindow         = 10 * time.Minute
)

const (
	DefaultRepeatThreshold = 5
	DefaultKillHistoryCap  = 200
)

const (
	TransportTimeout   = 10 * time.Second
	ExternalAPITimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// PlatformIDLength is the digit count of a platform account id; a
	// numeric token of exactly this length is the durable player key.
	PlatformIDLength = 17
)
