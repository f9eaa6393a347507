// Package config loads the lanemap configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/lanemap/config.toml
// (~/.config/lanemap/config.toml when XDG_CONFIG_HOME is unset). Every
// section is optional; missing values fall back to Default.
//
//	[geometry]
//	column_width = 250.0
//	row_height   = 180.0
//
//	[store]
//	backend = "sqlite"
//	dsn     = "lanemap.db"
//
//	[cache]
//	backend = "redis"
//	[cache.redis]
//	addr = "localhost:6379"
//	retry_attempts = 3
//
//	[server]
//	addr = ":8080"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/lanemap/pkg/cache"
	"github.com/matzehuels/lanemap/pkg/errors"
	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/store"
)

// Cache backend names.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// DefaultServerAddr is the listen address of "lanemap serve".
const DefaultServerAddr = ":8080"

// Config is the decoded configuration file.
type Config struct {
	Geometry grid.Geometry `toml:"geometry"`
	Layout   Layout        `toml:"layout"`
	Store    store.Config  `toml:"store"`
	Cache    Cache         `toml:"cache"`
	Server   Server        `toml:"server"`
}

// Layout holds the decoration settings around the grid.
type Layout struct {
	MinColumns    int `toml:"min_columns"`
	ColumnPadding int `toml:"column_padding"`
}

// Cache selects the diagram cache.
type Cache struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"` // file backend; empty means the XDG cache dir
	Redis   Redis  `toml:"redis"`
}

// Redis configures the redis cache backend.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`

	RetryAttempts int `toml:"retry_attempts"` // 0 means cache.DefaultRetryPolicy
	RetryDelayMS  int `toml:"retry_delay_ms"` // first backoff in milliseconds
}

// Options converts the section into cache.RedisOptions.
func (r Redis) Options() cache.RedisOptions {
	return cache.RedisOptions{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		Prefix:   r.Prefix,
		Retry: cache.RetryPolicy{
			Attempts: r.RetryAttempts,
			Delay:    time.Duration(r.RetryDelayMS) * time.Millisecond,
		},
	}
}

// Server configures the HTTP API.
type Server struct {
	Addr    string `toml:"addr"`
	Metrics bool   `toml:"metrics"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Geometry: grid.DefaultGeometry(),
		Store:    store.Config{Backend: store.BackendMemory},
		Cache:    Cache{Backend: CacheFile},
		Server:   Server{Addr: DefaultServerAddr, Metrics: true},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lanemap", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lanemap", "config.toml"), nil
}

// Load reads the config file at path. An empty path means Path(). A
// missing default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidFormat,
			"config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	cfg.Geometry = cfg.Geometry.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks backend names and geometry.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Store.Backend) {
	case "", store.BackendMemory, store.BackendFile, store.BackendSQLite, store.BackendMongo:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "redis cache needs an addr")
		}
		if c.Cache.Redis.RetryAttempts < 0 || c.Cache.Redis.RetryDelayMS < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "redis retry settings must not be negative")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Layout.MinColumns < 0 || c.Layout.ColumnPadding < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "layout columns must not be negative")
	}
	return nil
}
