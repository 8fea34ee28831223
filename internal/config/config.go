package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported sync modes.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	Port     int    `mapstructure:"port"`

	SourcesFile    string `mapstructure:"sources_file"`
	SourceID       string `mapstructure:"source_id"`
	PublishersFile string `mapstructure:"publishers_file"`
	DBPath         string `mapstructure:"db_path"`
	UpdatePages    int    `mapstructure:"update_pages"`

	IGDBClientID      string `mapstructure:"igdb_client_id"`
	IGDBClientSecret  string `mapstructure:"igdb_client_secret"`
	IGDBTokenURL      string `mapstructure:"igdb_token_url"`
	IGDBAPIURL        string `mapstructure:"igdb_api_url"`
	IGDBImageTemplate string `mapstructure:"igdb_image_template"`
	IGDBDelayMs       int    `mapstructure:"igdb_delay_ms"`
	IGDBPauseEvery    int    `mapstructure:"igdb_pause_every"`
	IGDBPauseMs       int    `mapstructure:"igdb_pause_ms"`

	SyncIntervalSeconds int64         `mapstructure:"sync_interval"`
	SyncInterval        time.Duration `mapstructure:"-"`
	SyncOnStale         bool          `mapstructure:"sync_on_stale"`

	StorageType            string        `mapstructure:"storage_type"`
	RunsDBPath             string        `mapstructure:"runs_db_path"`
	RunTTLSeconds          int64         `mapstructure:"run_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	RunTTL                 time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env", ".env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "repackdex")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 4000)

	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("source_id", "fitgirl")
	v.SetDefault("publishers_file", "")
	v.SetDefault("db_path", "./data/db.json")
	v.SetDefault("update_pages", 5)

	v.SetDefault("igdb_client_id", "")
	v.SetDefault("igdb_client_secret", "")
	v.SetDefault("igdb_token_url", "https://id.twitch.tv/oauth2/token")
	v.SetDefault("igdb_api_url", "https://api.igdb.com/v4")
	v.SetDefault("igdb_image_template", "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg")
	v.SetDefault("igdb_delay_ms", 250)
	v.SetDefault("igdb_pause_every", 4)
	v.SetDefault("igdb_pause_ms", 1000)

	v.SetDefault("sync_interval", int64((6*time.Hour)/time.Second))
	v.SetDefault("sync_on_stale", true)

	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("runs_db_path", "./data/runs.db")
	v.SetDefault("run_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

// finalize validates raw values and derives duration fields.
func (c *Config) finalize() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SourcesFile, validation.Required),
		validation.Field(&c.SourceID, validation.Required),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.UpdatePages, validation.Required, validation.Min(1)),
		validation.Field(&c.IGDBTokenURL, validation.Required),
		validation.Field(&c.IGDBAPIURL, validation.Required),
		validation.Field(&c.IGDBImageTemplate, validation.Required),
		validation.Field(&c.IGDBDelayMs, validation.Min(0)),
		validation.Field(&c.IGDBPauseEvery, validation.Min(0)),
		validation.Field(&c.IGDBPauseMs, validation.Min(0)),
		validation.Field(&c.SyncIntervalSeconds, validation.Min(int64(0))),
		validation.Field(&c.StorageType, validation.In("bbolt", "none", "disabled")),
	); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.RunTTLSeconds <= 0 {
		return fmt.Errorf("invalid run_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}

	c.SyncInterval = time.Duration(c.SyncIntervalSeconds) * time.Second
	c.RunTTL = time.Duration(c.RunTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second
	return nil
}

// IGDBEnabled reports whether metadata credentials are configured.
func (c *Config) IGDBEnabled() bool {
	return c.IGDBClientID != "" && c.IGDBClientSecret != ""
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Summary returns a loggable view of the config without secrets.
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"app_name":        c.AppName,
		"env":             c.Env,
		"port":            c.Port,
		"sources_file":    c.SourcesFile,
		"source_id":       c.SourceID,
		"publishers_file": c.PublishersFile,
		"db_path":         c.DBPath,
		"update_pages":    c.UpdatePages,
		"igdb_enabled":    c.IGDBEnabled(),
		"sync_interval":   c.SyncInterval.String(),
		"sync_on_stale":   c.SyncOnStale,
		"storage_type":    c.StorageType,
		"runs_db_path":    c.RunsDBPath,
	}
}
