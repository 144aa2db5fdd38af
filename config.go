package ourstory

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/views"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// EnvPrefix prefixes every environment variable, e.g. OURSTORY_ADDR.
const EnvPrefix = "OURSTORY"

// Config holds all configuration for the site.
type Config struct {
	Name        string `envconfig:"SITE_NAME" default:"Our Story"`
	URL         string `envconfig:"SITE_URL" default:"http://localhost:3000"`
	Description string `envconfig:"SITE_DESCRIPTION" default:"Our timeline, our songs and our letters."`

	Addr string `envconfig:"ADDR" default:":3000"`

	StoreDriver  string `envconfig:"STORE_DRIVER" default:"sqlite"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"data/ourstory.db"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`
	SupabaseURL  string `envconfig:"SUPABASE_URL"`
	SupabaseKey  string `envconfig:"SUPABASE_KEY"`

	StaticDir   string `envconfig:"STATIC_DIR" default:"public"`
	ImageBucket string `envconfig:"IMAGE_BUCKET" default:"timeline-images"`

	SessionSecret string `envconfig:"SESSION_SECRET"` // required
	CookieSecure  bool   `envconfig:"COOKIE_SECURE"`

	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"10m"`
	ReadyTimeout   time.Duration `envconfig:"READY_TIMEOUT" default:"30s"`
	PageCacheTTL   time.Duration `envconfig:"PAGE_CACHE_TTL" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// setDefaults fills what envconfig would have for configs built in code.
// A negative PageCacheTTL disables page caching.
func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Our Story"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = DriverSQLite
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/ourstory.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.ImageBucket == "" {
		c.ImageBucket = "timeline-images"
	}
	if c.IdempotencyTTL == 0 {
		c.IdempotencyTTL = 10 * time.Minute
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = 30 * time.Second
	}
	if c.PageCacheTTL == 0 {
		c.PageCacheTTL = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
		}
	case DriverSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("STORE_DRIVER=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", c.IdempotencyTTL)
	}
	return nil
}

// Site returns the values pages are rendered with.
func (c Config) Site() views.SiteConfig {
	return views.SiteConfig{Name: c.Name, URL: c.URL, Description: c.Description}
}

// LoadConfig reads the configuration from OURSTORY_* environment variables
// and logs a summary of it.
func LoadConfig(log zerolog.Logger) (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to process environment variables: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	log.Info().
		Str("addr", cfg.Addr).
		Str("store_driver", cfg.StoreDriver).
		Str("database_path", cfg.DatabasePath).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Str("supabase_url", cfg.SupabaseURL).
		Str("static_dir", cfg.StaticDir).
		Str("image_bucket", cfg.ImageBucket).
		Bool("session_secret_present", cfg.SessionSecret != "").
		Dur("idempotency_ttl", cfg.IdempotencyTTL).
		Dur("page_cache_ttl", cfg.PageCacheTTL).
		Str("log_level", cfg.LogLevel).
		Msg("configuration loaded")
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithRemote makes the App use c instead of opening the configured store.
// The caller keeps ownership of c.
func WithRemote(c remote.Client) Option {
	return func(a *App) {
		a.Remote = c
	}
}

// WithBucket sets where timeline images are uploaded.
func WithBucket(b remote.Bucket) Option {
	return func(a *App) {
		a.Bucket = b
	}
}

// WithLogger sets the application logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are mounted.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory served under /public (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}
