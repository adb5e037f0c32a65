// Package storage holds the durable record behind the state store. A backend is
// a tiny namespaced key/value store: the engine writes a single JSON record and
// reads it back once at startup.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Backend persists opaque records under a namespace key.
type Backend interface {
	// Load returns the record stored under key. ok is false when nothing was stored.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
	DriverRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver    string
	Path      string
	RedisAddr string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverMemory:
		return NewMemoryBackend(), nil
	case DriverSQLite:
		dsn, err := SQLiteDSNForFile(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, errors.Wrap(err, "sqlite backend: create data dir")
		}
		return NewSQLiteBackend(dsn)
	case DriverPebble:
		return NewPebbleBackend(opts.Path)
	case DriverRedis:
		return NewRedisBackend(ctx, opts.RedisAddr)
	default:
		return nil, errors.Errorf("storage: unknown driver %q", opts.Driver)
	}
}
