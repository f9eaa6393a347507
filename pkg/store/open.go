package store

import (
	"context"
	"strings"

	"github.com/matzehuels/lanemap/pkg/errors"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`     // file backend
	DSN      string `toml:"dsn"`      // sqlite backend
	URI      string `toml:"uri"`      // mongo backend
	Database string `toml:"database"` // mongo backend
}

// Open builds the configured store. An empty backend means memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "file store needs a path")
		}
		return OpenFile(cfg.Path)
	case BackendSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.Path
		}
		if dsn == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "sqlite store needs a dsn")
		}
		return OpenSQLite(dsn)
	case BackendMongo:
		if cfg.URI == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "mongo store needs a uri")
		}
		return ConnectMongo(ctx, cfg.URI, cfg.Database)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
}
