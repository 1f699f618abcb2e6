package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rssreceptor/domain"
	"rssreceptor/internal/helper"
)

// Feed is one configured feed source.
type Feed struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Storage selects and addresses the database.
type Storage struct {
	Driver     string `toml:"driver"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	DBName     string `toml:"dbname"`
	SQLitePath string `toml:"sqlite_path"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Workers        int      `toml:"workers"`
	ResolveTimeout duration `toml:"resolve_timeout"`
	FetchTimeout   duration `toml:"fetch_timeout"`
	ControlAddr    string   `toml:"control_addr"`
	Storage        Storage  `toml:"storage"`
	Logging        Logging  `toml:"logging"`
	Feeds          []Feed   `toml:"feeds"`
}

// duration accepts Go duration strings ("30s") in TOML.
type duration time.Duration

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workers:        3,
		ResolveTimeout: duration(30 * time.Second),
		FetchTimeout:   duration(20 * time.Second),
		ControlAddr:    "127.0.0.1:8088",
		Storage: Storage{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       5432,
			User:       "postgres",
			Password:   "changeme",
			DBName:     "rssreceptor",
			SQLitePath: "rssreceptor.db",
		},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (skipped when path is empty or the file is absent), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Workers = parseIntEnv("WORKERS_COUNT", cfg.Workers)
	cfg.ResolveTimeout = duration(parseDurationEnv("RESOLVE_TIMEOUT", cfg.ResolveTimeout.Duration()))
	cfg.FetchTimeout = duration(parseDurationEnv("FETCH_TIMEOUT", cfg.FetchTimeout.Duration()))
	cfg.ControlAddr = getenv("CONTROL_ADDR", cfg.ControlAddr)

	cfg.Storage.Driver = getenv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Host = getenv("POSTGRES_HOST", cfg.Storage.Host)
	cfg.Storage.Port = parseIntEnv("POSTGRES_PORT", cfg.Storage.Port)
	cfg.Storage.User = getenv("POSTGRES_USER", cfg.Storage.User)
	cfg.Storage.Password = getenv("POSTGRES_PASSWORD", cfg.Storage.Password)
	cfg.Storage.DBName = getenv("POSTGRES_DBNAME", cfg.Storage.DBName)
	cfg.Storage.SQLitePath = getenv("SQLITE_PATH", cfg.Storage.SQLitePath)

	cfg.Logging.Level = getenv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getenv("LOG_FORMAT", cfg.Logging.Format)

	name, feedURL := strings.TrimSpace(os.Getenv("FEED_NAME")), strings.TrimSpace(os.Getenv("FEED_URL"))
	if name != "" && feedURL != "" {
		cfg.Feeds = append(cfg.Feeds, Feed{Name: name, URL: feedURL})
	}
}

// Validate checks the settings needed to run ingestion.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if c.ResolveTimeout <= 0 {
		return errors.New("resolve_timeout must be > 0")
	}
	switch c.Storage.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if len(c.Feeds) == 0 {
		return errors.New("no feeds configured")
	}
	names := make(map[string]struct{}, len(c.Feeds))
	for i, f := range c.Feeds {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("feeds[%d]: duplicate feed name %q", i, f.Name)
		}
		names[f.Name] = struct{}{}
		if err := helper.IsValidURL(f.URL); err != nil {
			return fmt.Errorf("feeds[%d] %s: %w", i, f.Name, err)
		}
	}
	return nil
}

// Sources converts the configured feeds for the supervisor.
func (c Config) Sources() []domain.FeedSource {
	out := make([]domain.FeedSource, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		out = append(out, domain.FeedSource{Name: f.Name, URL: f.URL})
	}
	return out
}

// DSN returns the data source name for the configured driver.
func (s Storage) DSN() string {
	if s.Driver == "sqlite" {
		return s.SQLitePath
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, s.Port),
		Path:     "/" + s.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
