// Package config provides configuration management for livemanager using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultSweepInterval   = time.Minute
	defaultTriggerInterval = time.Minute
	defaultGracePeriod     = 2 * time.Second

	defaultVideoBitrate      = "500k"
	defaultMaxBitrate        = "800k"
	defaultBufferSize        = "1200k"
	defaultResolution        = "640x360"
	defaultKeyframeInterval  = 60
	defaultAudioBitrate      = "96k"
	defaultReconnectDelayMax = 2
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// StorageConfig holds media file storage configuration.
type StorageConfig struct {
	// MediaDir is the directory holding uploaded video files.
	MediaDir string `mapstructure:"media_dir"`
}

// FFmpegConfig holds FFmpeg binary and broadcast pipeline configuration.
type FFmpegConfig struct {
	// BinaryPath is the path to the ffmpeg binary (empty = auto-detect).
	BinaryPath string `mapstructure:"binary_path"`

	// GracePeriod is how long a graceful stop waits before force-killing.
	GracePeriod time.Duration `mapstructure:"grace_period"`

	Broadcast BroadcastConfig `mapstructure:"broadcast"`
}

// BroadcastConfig holds the encoding ladder used for outgoing RTMP streams.
// The defaults are tuned for continuous low-bandwidth streaming.
type BroadcastConfig struct {
	VideoBitrate      string `mapstructure:"video_bitrate"`
	MaxBitrate        string `mapstructure:"max_bitrate"`
	BufferSize        string `mapstructure:"buffer_size"`
	Resolution        string `mapstructure:"resolution"`
	KeyframeInterval  int    `mapstructure:"keyframe_interval"`
	AudioBitrate      string `mapstructure:"audio_bitrate"`
	ReconnectDelayMax int    `mapstructure:"reconnect_delay_max"`
}

// SchedulerConfig holds background job configuration.
type SchedulerConfig struct {
	// SweepInterval is how often running sessions are reconciled against
	// live OS processes.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// TriggerInterval is how often due scheduled sessions are started.
	TriggerInterval time.Duration `mapstructure:"trigger_interval"`
}

// NotifyConfig holds email notification configuration.
type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SMTPHost   string `mapstructure:"smtp_host"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	From       string `mapstructure:"from"`
	AdminEmail string `mapstructure:"admin_email"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with LIVEMANAGER_ and use underscores
// for nesting. Example: LIVEMANAGER_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/livemanager")
		v.AddConfigPath("$HOME/.livemanager")
	}

	v.SetEnvPrefix("LIVEMANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults sets default configuration values on the provided viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "livemanager.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.media_dir", "media")

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.grace_period", defaultGracePeriod)
	v.SetDefault("ffmpeg.broadcast.video_bitrate", defaultVideoBitrate)
	v.SetDefault("ffmpeg.broadcast.max_bitrate", defaultMaxBitrate)
	v.SetDefault("ffmpeg.broadcast.buffer_size", defaultBufferSize)
	v.SetDefault("ffmpeg.broadcast.resolution", defaultResolution)
	v.SetDefault("ffmpeg.broadcast.keyframe_interval", defaultKeyframeInterval)
	v.SetDefault("ffmpeg.broadcast.audio_bitrate", defaultAudioBitrate)
	v.SetDefault("ffmpeg.broadcast.reconnect_delay_max", defaultReconnectDelayMax)

	v.SetDefault("scheduler.sweep_interval", defaultSweepInterval)
	v.SetDefault("scheduler.trigger_interval", defaultTriggerInterval)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.smtp_port", 25)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.FFmpeg.GracePeriod <= 0 {
		return errors.New("ffmpeg grace period must be positive")
	}
	if c.FFmpeg.Broadcast.KeyframeInterval <= 0 {
		return errors.New("keyframe interval must be positive")
	}

	if c.Scheduler.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if c.Scheduler.TriggerInterval <= 0 {
		return errors.New("trigger interval must be positive")
	}

	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" {
			return errors.New("smtp host is required when notifications are enabled")
		}
		if c.Notify.From == "" {
			return errors.New("notify from address is required when notifications are enabled")
		}
	}

	return nil
}
