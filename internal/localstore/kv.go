// Package localstore keeps the dashboard's offline state in a SQLite file.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv(
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at TEXT NOT NULL
);`

// KV is a small key-value table. It implements store.Persister.
type KV struct {
	db *sqlx.DB
}

type entry struct {
	Key       string `db:"key"`
	Value     []byte `db:"value"`
	UpdatedAt string `db:"updated_at"`
}

// Open opens or creates the database at dsn. ":memory:" works for tests.
func Open(dsn string) (*KV, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: an in-memory database is private to its connection
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("localstore schema: %w", err)
	}
	return &KV{db: db}, nil
}

// Load returns the value under key, or nil when there is none.
func (kv *KV) Load(ctx context.Context, key string) ([]byte, error) {
	var e entry
	err := kv.db.GetContext(ctx, &e, `SELECT key, value, updated_at FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore load %s: %w", key, err)
	}
	return e.Value, nil
}

func (kv *KV) Save(ctx context.Context, key string, value []byte) error {
	_, err := kv.db.NamedExecContext(ctx, `
		INSERT INTO kv(key, value, updated_at) VALUES(:key, :value, :updated_at)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		entry{Key: key, Value: value, UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("localstore save %s: %w", key, err)
	}
	return nil
}

func (kv *KV) Delete(ctx context.Context, key string) error {
	_, err := kv.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// UpdatedAt reports when key was last saved.
func (kv *KV) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	var ts string
	err := kv.db.GetContext(ctx, &ts, `SELECT updated_at FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	return t, err == nil, err
}

func (kv *KV) Close() error {
	return kv.db.Close()
}
