// Package cache provides byte-oriented caches for diagrams and rendered
// artifacts.
//
// Layout is a pure function of a snapshot and its geometry, so a diagram can
// be memoized under a hash of both. Rendered artifacts (SVG, DOT, JSON) are
// keyed by the diagram hash plus render options. [Keyer] builds those keys
// and [ScopedKeyer] prefixes them, for example per workflow.
//
// # Backends
//
//   - [NullCache]: never stores anything
//   - [FileCache]: JSON entries under a directory, for CLI runs
//   - [RedisCache]: a shared Redis instance, for the HTTP server
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Default TTLs.
const (
	DiagramTTL  = 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)

// Cache stores opaque values by key.
type Cache interface {
	// Get returns the value for key. hit is false on a miss; a miss is not
	// an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop all their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}

// GetJSON reads a JSON value. It returns ErrCacheMiss on a miss and treats
// an undecodable entry as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, hit, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !hit {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		return ErrCacheMiss
	}
	return nil
}

// SetJSON stores v as JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
