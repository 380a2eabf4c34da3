package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the polywatch daemon.
type Config struct {
	Storage    Storage        `yaml:"storage"`
	Server     Server         `yaml:"server"`
	Feed       Feed           `yaml:"feed"`
	Watchlist  Watchlist      `yaml:"watchlist"`
	Monitor    Monitor        `yaml:"monitor"`
	Notify     Notify         `yaml:"notify"`
	Logging    Logging        `yaml:"logging"`
	Categories []CategoryRule `yaml:"categories"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds the local API listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Feed configures the read-only market event feed.
type Feed struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Watchlist configures the remote watchlist service and the subscriber
// identity used to address it. An empty subscriber ID disables remote
// sync entirely; the watchlist then degrades to local-only.
type Watchlist struct {
	BaseURL        string `yaml:"base_url"`
	SubscriberID   string `yaml:"subscriber_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Monitor controls the polling cycle.
type Monitor struct {
	IntervalSeconds     int     `yaml:"interval_seconds"`
	FetchLimit          int     `yaml:"fetch_limit"`
	MaxEventAgeHours    int     `yaml:"max_event_age_hours"`
	HighVolumeThreshold float64 `yaml:"high_volume_threshold"`
}

// Notify configures the notification sink.
type Notify struct {
	WebhookURL     string `yaml:"webhook_url"`
	ClickURL       string `yaml:"click_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CategoryRule is one entry of the ordered keyword-to-category table.
// Rules are evaluated in order; the first rule with a matching keyword
// wins.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into
// a Config struct, applies environment variable overrides, and fills in
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration with all defaults applied and no file
// read. Used when the daemon starts without a config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("FEED_BASE_URL"); v != "" {
		cfg.Feed.BaseURL = v
	}
	if v := os.Getenv("WATCHLIST_BASE_URL"); v != "" {
		cfg.Watchlist.BaseURL = v
	}
	if v := os.Getenv("SUBSCRIBER_ID"); v != "" {
		cfg.Watchlist.SubscriberID = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Monitor.IntervalSeconds = n
		}
	}
}

// applyDefaults fills zero-valued fields with the design defaults.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/polywatch.db"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Feed.BaseURL == "" {
		cfg.Feed.BaseURL = "https://gamma-api.polymarket.com"
	}
	if cfg.Feed.TimeoutSeconds == 0 {
		cfg.Feed.TimeoutSeconds = 30
	}
	if cfg.Watchlist.TimeoutSeconds == 0 {
		cfg.Watchlist.TimeoutSeconds = 15
	}
	if cfg.Monitor.IntervalSeconds == 0 {
		cfg.Monitor.IntervalSeconds = 300 // 5 minutes
	}
	if cfg.Monitor.FetchLimit == 0 {
		cfg.Monitor.FetchLimit = 10
	}
	if cfg.Monitor.MaxEventAgeHours == 0 {
		cfg.Monitor.MaxEventAgeHours = 48
	}
	if cfg.Monitor.HighVolumeThreshold == 0 {
		cfg.Monitor.HighVolumeThreshold = 50000
	}
	if cfg.Notify.ClickURL == "" {
		cfg.Notify.ClickURL = "https://polymarket.com/markets?_s=start_date:desc"
	}
	if cfg.Notify.TimeoutSeconds == 0 {
		cfg.Notify.TimeoutSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
