// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source kinds understood by the adapter catalog.
const (
	SourceMarkdown = "markdown"
	SourceDOM      = "dom"
	SourceJSON     = "jsonapi"
	SourceFeed     = "feed"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Fetcher     FetcherConfig     `mapstructure:"fetcher"`
	Acquisition AcquisitionConfig `mapstructure:"acquisition"`
	Apply       ApplyConfig       `mapstructure:"apply"`
	Headless    HeadlessConfig    `mapstructure:"headless"`
	Storage     StorageConfig     `mapstructure:"storage"`
	DB          DBConfig          `mapstructure:"db"`
	Cache       CacheConfig       `mapstructure:"cache"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FetcherConfig configures outbound HTTP for source adapters.
type FetcherConfig struct {
	UserAgents     []string      `mapstructure:"user_agents"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	JitterMin      time.Duration `mapstructure:"jitter_min"`
	JitterMax      time.Duration `mapstructure:"jitter_max"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
	// RateLimit is requests per second per host; 0 disables limiting.
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	HostRateLimits []HostRate    `mapstructure:"host_rate_limits"`
	BlockThreshold int           `mapstructure:"block_threshold"`
	BlockTTL       time.Duration `mapstructure:"block_ttl"`
}

// HostRate overrides the per-host rate for one hostname. It is a list entry
// rather than a map key because Viper splits keys on dots.
type HostRate struct {
	Host string  `mapstructure:"host"`
	RPS  float64 `mapstructure:"rps"`
}

// AcquisitionConfig governs adapter runs and the periodic refresh.
type AcquisitionConfig struct {
	Concurrency      int            `mapstructure:"concurrency"`
	AdapterTimeout   time.Duration  `mapstructure:"adapter_timeout"`
	ScanWindow       int            `mapstructure:"scan_window"`
	ScanBudget       time.Duration  `mapstructure:"scan_budget"`
	Interval         time.Duration  `mapstructure:"interval"`
	RefreshOnStartup bool           `mapstructure:"refresh_on_startup"`
	BatchSize        int            `mapstructure:"batch_size"`
	Keywords         []string       `mapstructure:"keywords"`
	Topic            string         `mapstructure:"topic"`
	Sources          []SourceConfig `mapstructure:"sources"`
}

// SourceConfig describes one posting source.
type SourceConfig struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`
	// Tag is stamped on postings; defaults to Name.
	Tag  string   `mapstructure:"tag"`
	URLs []string `mapstructure:"urls"`
	Cap  int      `mapstructure:"cap"`
	// Company is used when a record carries none.
	Company string `mapstructure:"company"`
	// AllRoles disables the internship keyword filter for this source.
	AllRoles bool `mapstructure:"all_roles"`
	// Headless lets DOM sources re-render JavaScript shells.
	Headless bool `mapstructure:"headless"`
	// Cards and Fields drive DOM sources. Field entries are CSS selectors,
	// optionally suffixed with @attr to read an attribute.
	Cards  []string            `mapstructure:"cards"`
	Fields map[string][]string `mapstructure:"fields"`
	// Keys drive JSON sources: items, title, company, location, url,
	// description, posted.
	Keys map[string][]string `mapstructure:"keys"`
	// TitleSeparator splits "Company: Title" feed items.
	TitleSeparator string `mapstructure:"title_separator"`
}

// ApplyConfig controls the application engine and its workers.
type ApplyConfig struct {
	Workers         int           `mapstructure:"workers"`
	Queue           string        `mapstructure:"queue"`
	QueueDepth      int           `mapstructure:"queue_depth"`
	MaxDeliveries   int           `mapstructure:"max_deliveries"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
	SubmitWait      time.Duration `mapstructure:"submit_wait"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Settle          time.Duration `mapstructure:"settle"`
	WorkdayRestarts int           `mapstructure:"workday_restarts"`
	LinkedInPages   int           `mapstructure:"linkedin_pages"`
	SnapshotPrefix  string        `mapstructure:"snapshot_prefix"`
	ResumeTempDir   string        `mapstructure:"resume_temp_dir"`
	Topic           string        `mapstructure:"topic"`
}

// HeadlessConfig configures the browser pool.
type HeadlessConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	MaxParallel        int           `mapstructure:"max_parallel"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout"`
	ExecPath           string        `mapstructure:"exec_path"`
	UserAgent          string        `mapstructure:"user_agent"`
	PromotionThreshold int           `mapstructure:"promotion_threshold"`
}

// StorageConfig selects record and blob backends.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BlobDriver string `mapstructure:"blob_driver"`
	BlobDir    string `mapstructure:"blob_dir"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	Prefix     string `mapstructure:"prefix"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	PostingsTable   string        `mapstructure:"postings_table"`
	ErrorsTable     string        `mapstructure:"errors_table"`
	CandidatesTable string        `mapstructure:"candidates_table"`
}

// CacheConfig selects the seen-set backend.
type CacheConfig struct {
	Driver   string        `mapstructure:"driver"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PubSubConfig holds Pub/Sub project and resource names.
type PubSubConfig struct {
	ProjectID      string `mapstructure:"project_id"`
	RequestsTopic  string `mapstructure:"requests_topic"`
	Subscription   string `mapstructure:"subscription"`
	MaxOutstanding int    `mapstructure:"max_outstanding"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSWIPE")
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
	if len(cfg.Acquisition.Sources) == 0 {
		cfg.Acquisition.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("fetcher.timeout", "10s")
	v.SetDefault("fetcher.max_attempts", 3)
	v.SetDefault("fetcher.backoff_initial", "250ms")
	v.SetDefault("fetcher.backoff_max", "5s")
	v.SetDefault("fetcher.jitter_min", "50ms")
	v.SetDefault("fetcher.jitter_max", "300ms")
	v.SetDefault("fetcher.respect_robots", false)
	v.SetDefault("fetcher.rate_limit", 1.0)
	v.SetDefault("fetcher.rate_burst", 2)
	v.SetDefault("fetcher.block_threshold", 3)
	v.SetDefault("fetcher.block_ttl", "10m")
	v.SetDefault("acquisition.concurrency", 4)
	v.SetDefault("acquisition.adapter_timeout", "2m")
	v.SetDefault("acquisition.scan_window", 2)
	v.SetDefault("acquisition.scan_budget", "5m")
	v.SetDefault("acquisition.interval", "2h")
	v.SetDefault("acquisition.refresh_on_startup", true)
	v.SetDefault("acquisition.batch_size", 10)
	v.SetDefault("acquisition.topic", "postings")
	v.SetDefault("apply.workers", 2)
	v.SetDefault("apply.queue", "memory")
	v.SetDefault("apply.queue_depth", 64)
	v.SetDefault("apply.max_deliveries", 5)
	v.SetDefault("apply.attempt_timeout", "3m")
	v.SetDefault("apply.submit_wait", "20s")
	v.SetDefault("apply.poll_interval", "250ms")
	v.SetDefault("apply.settle", "500ms")
	v.SetDefault("apply.workday_restarts", 3)
	v.SetDefault("apply.linkedin_pages", 5)
	v.SetDefault("apply.snapshot_prefix", "snapshots")
	v.SetDefault("apply.topic", "applications")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.navigation_timeout", "45s")
	v.SetDefault("headless.promotion_threshold", 60)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "jobswipe.db")
	v.SetDefault("storage.blob_driver", "memory")
	v.SetDefault("storage.blob_dir", "data/blobs")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.prefix", "jobswipe:seen:")
	v.SetDefault("cache.ttl", "720h")
	v.SetDefault("pubsub.requests_topic", "application-requests")
	v.SetDefault("pubsub.subscription", "application-workers")
	v.SetDefault("pubsub.max_outstanding", 4)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if c.Fetcher.MaxAttempts <= 0 {
		return fmt.Errorf("fetcher.max_attempts must be > 0")
	}
	if c.Fetcher.JitterMin > c.Fetcher.JitterMax {
		return fmt.Errorf("fetcher.jitter_min must be <= fetcher.jitter_max")
	}
	if c.Acquisition.Concurrency <= 0 {
		return fmt.Errorf("acquisition.concurrency must be > 0")
	}
	if c.Acquisition.AdapterTimeout <= 0 {
		return fmt.Errorf("acquisition.adapter_timeout must be > 0")
	}
	if c.Apply.Workers <= 0 {
		return fmt.Errorf("apply.workers must be > 0")
	}
	if c.Apply.AttemptTimeout <= 0 {
		return fmt.Errorf("apply.attempt_timeout must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	for i, src := range c.Acquisition.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("acquisition.sources[%d]: %w", i, err)
		}
	}
	return nil
}

func (c Config) validateBackends() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when storage.driver is postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Storage.BlobDriver {
	case "memory", "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.blob_driver is gcs")
		}
	default:
		return fmt.Errorf("unknown storage.blob_driver %q", c.Storage.BlobDriver)
	}
	switch c.Cache.Driver {
	case "none", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.addr must be set when cache.driver is redis")
		}
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	switch c.Apply.Queue {
	case "memory":
	case "pubsub":
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id must be set when apply.queue is pubsub")
		}
	default:
		return fmt.Errorf("unknown apply.queue %q", c.Apply.Queue)
	}
	return nil
}

// Validate checks one source entry.
func (s SourceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.URLs) == 0 {
		return fmt.Errorf("source %s has no urls", s.Name)
	}
	switch s.Kind {
	case SourceMarkdown, SourceJSON, SourceFeed:
	case SourceDOM:
		if len(s.Cards) == 0 {
			return fmt.Errorf("dom source %s needs card selectors", s.Name)
		}
	default:
		return fmt.Errorf("source %s has unknown kind %q", s.Name, s.Kind)
	}
	return nil
}

// UsesPubSub reports whether any component needs a Pub/Sub client.
func (c Config) UsesPubSub() bool {
	return c.Apply.Queue == "pubsub" || c.PubSub.ProjectID != ""
}
