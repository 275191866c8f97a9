package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLBackend stores collections in a two-column table. It works with the
// sqlite3 and postgres drivers; placeholders are rebound per driver.
type SQLBackend struct {
	db *sqlx.DB
}

// NewSQLBackend wraps an open database handle.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

// Migrate creates the collections table when missing.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS kv_collections (collection_key TEXT PRIMARY KEY, payload TEXT NOT NULL, updated_at TIMESTAMP NOT NULL)`
	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate kv_collections: %w", err)
	}
	return nil
}

func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	query := b.db.Rebind(`SELECT payload FROM kv_collections WHERE collection_key = ?`)
	var payload string
	if err := b.db.GetContext(ctx, &payload, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get collection %s: %w", key, err)
	}
	return []byte(payload), nil
}

func (b *SQLBackend) Set(ctx context.Context, key string, value []byte) error {
	query := b.db.Rebind(`INSERT INTO kv_collections (collection_key, payload, updated_at) VALUES (?, ?, ?) ON CONFLICT (collection_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)
	if _, err := b.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("set collection %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	query := b.db.Rebind(`DELETE FROM kv_collections WHERE collection_key = ?`)
	if _, err := b.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete collection %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}
