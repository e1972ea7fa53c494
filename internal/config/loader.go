// Package config loads engine settings from defaults, an optional YAML file and
// ROOMBOOK_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/example/reservation-engine/internal/logging"
	"github.com/example/reservation-engine/internal/scheduler"
)

// EnvPrefix prefixes every environment override, e.g. ROOMBOOK_STORAGE_DRIVER.
const EnvPrefix = "ROOMBOOK"

// Config captures the settings of a reservation engine process.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Booking BookingConfig `yaml:"booking"`
	Log     LogConfig     `yaml:"log"`
	Import  ImportConfig  `yaml:"import"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Driver is memory, file or sqlite.
	Driver       string `yaml:"driver" split_words:"true"`
	SnapshotPath string `yaml:"snapshot_path" split_words:"true"`
	// JournalPath defaults to SnapshotPath + ".journal".
	JournalPath string `yaml:"journal_path" split_words:"true"`
	// Codec is json or cbor.
	Codec     string `yaml:"codec" split_words:"true"`
	SQLiteDSN string `yaml:"sqlite_dsn" envconfig:"SQLITE_DSN"`
}

// BookingConfig configures the admission pipeline.
type BookingConfig struct {
	Strategy         string `yaml:"strategy" split_words:"true"`
	Quorum           int    `yaml:"quorum" split_words:"true"`
	HistoryLimit     int    `yaml:"history_limit" split_words:"true"`
	MaxShiftAttempts int    `yaml:"max_shift_attempts" split_words:"true"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// ImportConfig configures the periodic calendar import. An empty Schedule disables it.
type ImportConfig struct {
	Schedule string        `yaml:"schedule" split_words:"true"`
	Source   string        `yaml:"source" split_words:"true"`
	Window   time.Duration `yaml:"window" split_words:"true"`
	// ActorID is the manager account scheduled imports act as. It also owns ICS
	// events that carry no X-USER-ID.
	ActorID uint64 `yaml:"actor_id" split_words:"true"`
	// DefaultRoom receives ICS events without a room.
	DefaultRoom uint64 `yaml:"default_room" split_words:"true"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:       "file",
			SnapshotPath: "roombook.snapshot",
			Codec:        "json",
			SQLiteDSN:    "roombook.db",
		},
		Booking: BookingConfig{
			Strategy:         "reject",
			HistoryLimit:     300,
			MaxShiftAttempts: scheduler.DefaultMaxShiftPasses,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Import: ImportConfig{
			Window:  24 * time.Hour,
			ActorID: 1,
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Fields without a matching variable keep their current value. An explicit
	// envconfig name on a leaf would also match the unprefixed variable.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid key at once.
func (c Config) Validate() error {
	var invalid []string

	switch c.Storage.Driver {
	case "memory":
	case "file":
		if strings.TrimSpace(c.Storage.SnapshotPath) == "" {
			invalid = append(invalid, "storage.snapshot_path")
		}
		switch strings.ToLower(c.Storage.Codec) {
		case "", "json", "cbor":
		default:
			invalid = append(invalid, "storage.codec")
		}
	case "sqlite":
		if strings.TrimSpace(c.Storage.SQLiteDSN) == "" {
			invalid = append(invalid, "storage.sqlite_dsn")
		}
	default:
		invalid = append(invalid, "storage.driver")
	}

	if _, err := c.Strategy(); err != nil {
		if strings.EqualFold(c.Booking.Strategy, "quorum") {
			invalid = append(invalid, "booking.quorum")
		} else {
			invalid = append(invalid, "booking.strategy")
		}
	}
	if c.Booking.HistoryLimit <= 0 {
		invalid = append(invalid, "booking.history_limit")
	}
	if c.Booking.MaxShiftAttempts <= 0 {
		invalid = append(invalid, "booking.max_shift_attempts")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		invalid = append(invalid, "log.format")
	}

	if c.Import.Schedule != "" {
		if _, err := cronParser.Parse(c.Import.Schedule); err != nil {
			invalid = append(invalid, "import.schedule")
		}
		if strings.TrimSpace(c.Import.Source) == "" {
			invalid = append(invalid, "import.source")
		}
		if c.Import.Window <= 0 {
			invalid = append(invalid, "import.window")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// cronParser matches the parser used by cron.New(cron.WithSeconds()).
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Strategy builds the configured conflict strategy.
func (c Config) Strategy() (scheduler.Strategy, error) {
	return scheduler.NewStrategy(c.Booking.Strategy, scheduler.StrategyOptions{
		Quorum:         c.Booking.Quorum,
		MaxShiftPasses: c.Booking.MaxShiftAttempts,
	})
}
