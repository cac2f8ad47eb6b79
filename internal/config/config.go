// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	GSC       GSCConfig       `mapstructure:"gsc"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Reaper    ReaperConfig    `mapstructure:"reaper"`
	Email     EmailConfig     `mapstructure:"email"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Events    EventsConfig    `mapstructure:"events"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store, which is only useful for local development.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// FetchConfig configures the outbound HTTP fetcher.
type FetchConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	AgentDelayMs   int `mapstructure:"agent_delay_ms"`
}

// GSCConfig governs Search Console and Indexing API access.
type GSCConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	StatusBatchSize int    `mapstructure:"status_batch_size"`
	BatchIntervalMs int    `mapstructure:"batch_interval_ms"`
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	SettleDelaySeconds  int `mapstructure:"settle_delay_seconds"`
	ResubmitWindowHours int `mapstructure:"resubmit_window_hours"`
}

// QueueConfig bounds the serial job queue.
type QueueConfig struct {
	Depth int `mapstructure:"depth"`
}

// SchedulerConfig holds the daily trigger cron expression.
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// ReaperConfig controls recovery of jobs orphaned in in_progress.
type ReaperConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MaxAgeHours int    `mapstructure:"max_age_hours"`
	Cron        string `mapstructure:"cron"`
}

// EmailConfig configures the SMTP notifier. Notifications are skipped when
// Host is empty.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// ArchiveConfig selects where raw fetched sitemaps are archived.
// Backend is "none", "local", or "gcs".
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig selects the job event publisher. Backend is "none", "memory",
// or "pubsub".
type EventsConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.agent_delay_ms", 750)
	v.SetDefault("gsc.status_batch_size", 100)
	v.SetDefault("gsc.batch_interval_ms", 1000)
	v.SetDefault("pipeline.settle_delay_seconds", 20)
	v.SetDefault("pipeline.resubmit_window_hours", 24)
	v.SetDefault("queue.depth", 64)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "0 0 * * *")
	v.SetDefault("reaper.enabled", true)
	v.SetDefault("reaper.max_age_hours", 6)
	v.SetDefault("reaper.cron", "30 * * * *")
	v.SetDefault("email.port", 587)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "sitemaps")
	v.SetDefault("events.backend", "none")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.GSC.StatusBatchSize <= 0 {
		return fmt.Errorf("gsc.status_batch_size must be > 0")
	}
	if c.Pipeline.SettleDelaySeconds < 0 {
		return fmt.Errorf("pipeline.settle_delay_seconds must be >= 0")
	}
	if c.Queue.Depth <= 0 {
		return fmt.Errorf("queue.depth must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Backend {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of none, local, gcs")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.backend is gcs")
	}
	if c.Archive.Backend == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir must be set when archive.backend is local")
	}
	switch c.Events.Backend {
	case "none", "memory", "pubsub":
	default:
		return fmt.Errorf("events.backend must be one of none, memory, pubsub")
	}
	if c.Events.Backend == "pubsub" && (c.Events.ProjectID == "" || c.Events.Topic == "") {
		return fmt.Errorf("events.project_id and events.topic must be set when events.backend is pubsub")
	}
	return nil
}

// FetchTimeout converts the fetch timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// AgentDelay is the pause between user-agent attempts.
func (c Config) AgentDelay() time.Duration {
	return time.Duration(c.Fetch.AgentDelayMs) * time.Millisecond
}

// BatchInterval is the pause between status-inspection batches.
func (c Config) BatchInterval() time.Duration {
	return time.Duration(c.GSC.BatchIntervalMs) * time.Millisecond
}

// SettleDelay is the wait between submission and the status re-check.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Pipeline.SettleDelaySeconds) * time.Second
}

// ResubmitWindow is how long an indexed page stays exempt from re-submission.
func (c Config) ResubmitWindow() time.Duration {
	return time.Duration(c.Pipeline.ResubmitWindowHours) * time.Hour
}

// ReaperMaxAge is how long a job may stay in_progress before being reaped.
func (c Config) ReaperMaxAge() time.Duration {
	return time.Duration(c.Reaper.MaxAgeHours) * time.Hour
}
