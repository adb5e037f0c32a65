package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteBackend stores records in a single key/value table.
type SQLiteBackend struct {
	db *sql.DB
}

var _ Backend = &SQLiteBackend{}

func NewSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	if dsn == "" {
		return nil, errors.New("sqlite backend: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite backend: open")
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// SQLiteDSNForFile builds a DSN with WAL and a busy timeout for path.
func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite backend: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func (b *SQLiteBackend) migrate() error {
	_, err := b.db.Exec(`CREATE TABLE IF NOT EXISTS chat_records (
	  record_key TEXT PRIMARY KEY,
	  value BLOB NOT NULL,
	  updated_at_ms INTEGER NOT NULL
	);`)
	if err != nil {
		return errors.Wrap(err, "sqlite backend: migrate")
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if b == nil || b.db == nil {
		return nil, false, errors.New("sqlite backend: db is nil")
	}
	var value []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM chat_records WHERE record_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "sqlite backend: load")
	}
	return value, true, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, key string, value []byte) error {
	if b == nil || b.db == nil {
		return errors.New("sqlite backend: db is nil")
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO chat_records (record_key, value, updated_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(record_key) DO UPDATE SET
			value = excluded.value,
			updated_at_ms = excluded.updated_at_ms
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite backend: save")
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
