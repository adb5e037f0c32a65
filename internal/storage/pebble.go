package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// PebbleBackend stores records in an embedded pebble database directory.
type PebbleBackend struct {
	db *pebble.DB
}

var _ Backend = &PebbleBackend{}

func NewPebbleBackend(dir string) (*PebbleBackend, error) {
	if dir == "" {
		return nil, errors.New("pebble backend: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return nil, errors.Wrap(err, "pebble backend: create parent dir")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "pebble backend: open")
	}
	return &PebbleBackend{db: db}, nil
}

func recordKey(key string) []byte {
	return []byte("record:" + key)
}

func (b *PebbleBackend) Load(_ context.Context, key string) ([]byte, bool, error) {
	v, closer, err := b.db.Get(recordKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble backend: load")
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (b *PebbleBackend) Save(_ context.Context, key string, value []byte) error {
	if err := b.db.Set(recordKey(key), value, pebble.Sync); err != nil {
		return errors.Wrap(err, "pebble backend: save")
	}
	return nil
}

func (b *PebbleBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
