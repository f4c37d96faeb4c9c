package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"survival-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// WatchedFile is one remote log file to tail, addressed by a stable label
// used as the cursor key.
type WatchedFile struct {
	Label string
	Path  string
}

type Config struct {
	RemoteBaseURL string
	WatchedFiles  []WatchedFile
	SnapshotURL   string
	SnapshotKey   string
	StateDir      string

	// SourceTZ is the timezone the game server writes its timestamps in.
	// The log format never states a zone, so this is required.
	SourceTZ *time.Location

	PollInterval         time.Duration
	SnapshotPollInterval time.Duration
	RolloverInterval     time.Duration
	AttributionWindow    time.Duration
	CoalesceDelay        time.Duration
	RepeatWindow         time.Duration

	RepeatThreshold int
	KillHistoryCap  int

	WeeklyResetDay time.Weekday
	LogLevel       string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		RemoteBaseURL:        getEnv("REMOTE_BASE_URL", ""),
		SnapshotURL:          getEnv("SNAPSHOT_URL", ""),
		SnapshotKey:          getEnv("SNAPSHOT_API_KEY", ""),
		StateDir:             getEnv("STATE_DIR", "state"),
		PollInterval:         getEnvDuration("POLL_INTERVAL", constants.DefaultPollInterval),
		SnapshotPollInterval: getEnvDuration("SNAPSHOT_POLL_INTERVAL", constants.DefaultSnapshotPollInterval),
		RolloverInterval:     getEnvDuration("ROLLOVER_INTERVAL", constants.DefaultRolloverInterval),
		AttributionWindow:    getEnvDuration("ATTRIBUTION_WINDOW", constants.DefaultAttributionWindow),
		CoalesceDelay:        getEnvDuration("COALESCE_DELAY", constants.DefaultCoalesceDelay),
		RepeatWindow:         getEnvDuration("REPEAT_WINDOW", constants.DefaultRepeatWindow),
		RepeatThreshold:      getEnvInt("REPEAT_THRESHOLD", constants.DefaultRepeatThreshold),
		KillHistoryCap:       getEnvInt("KILL_HISTORY_CAP", constants.DefaultKillHistoryCap),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	if cfg.RemoteBaseURL == "" {
		return nil, fmt.Errorf("REMOTE_BASE_URL is required")
	}

	tzName := getEnv("SOURCE_TZ", "")
	if tzName == "" {
		return nil, fmt.Errorf("SOURCE_TZ is required")
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_TZ %q: %w", tzName, err)
	}
	cfg.SourceTZ = loc

	files, err := parseWatchedFiles(getEnv("LOG_FILES", "gameplay:Logs/gameplay.log"))
	if err != nil {
		return nil, err
	}
	cfg.WatchedFiles = files

	day, err := parseWeekday(getEnv("WEEKLY_RESET_DAY", "Monday"))
	if err != nil {
		return nil, err
	}
	cfg.WeeklyResetDay = day

	logger.Info().
		Str("remote_base_url", cfg.RemoteBaseURL).
		Str("source_tz", tzName).
		Int("watched_files", len(cfg.WatchedFiles)).
		Dur("poll_interval", cfg.PollInterval).
		Dur("snapshot_poll_interval", cfg.SnapshotPollInterval).
		Dur("attribution_window", cfg.AttributionWindow).
		Str("weekly_reset_day", cfg.WeeklyResetDay.String()).
		Str("state_dir", cfg.StateDir).
		Msg("configuration loaded")

	return cfg, nil
}

// parseWatchedFiles parses "label:remote/path" entries separated by commas.
func parseWatchedFiles(raw string) ([]WatchedFile, error) {
	var files []WatchedFile
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		label, path, ok := strings.Cut(entry, ":")
		if !ok || label == "" || path == "" {
			return nil, fmt.Errorf("invalid LOG_FILES entry %q, want label:path", entry)
		}
		files = append(files, WatchedFile{Label: label, Path: path})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("LOG_FILES must name at least one file")
	}
	return files, nil
}

func parseWeekday(raw string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(raw, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid WEEKLY_RESET_DAY %q", raw)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
