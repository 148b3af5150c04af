package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect struct {
	driver   string
	blobType string
	bind     func(n int) string
}

var (
	sqliteDialect = dialect{
		driver:   "sqlite",
		blobType: "BLOB",
		bind:     func(int) string { return "?" },
	}
	postgresDialect = dialect{
		driver:   "postgres",
		blobType: "BYTEA",
		bind:     func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// SQLStorage implements Storage on a single kv table in SQLite or Postgres.
type SQLStorage struct {
	db *sql.DB
	d  dialect
}

// NewSQLiteStorage opens (creating if needed) a SQLite database at path.
// ":memory:" gives a private in-process database.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// SQLite works best with a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	return newSQLStorage(ctx, db, sqliteDialect)
}

// NewPostgresStorage connects to Postgres using a lib/pq DSN.
func NewPostgresStorage(ctx context.Context, dsn string) (*SQLStorage, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return newSQLStorage(ctx, db, postgresDialect)
}

func newSQLStorage(ctx context.Context, db *sql.DB, d dialect) (*SQLStorage, error) {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value %s NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, d.blobType)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &SQLStorage{db: db, d: d}, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	q := "SELECT value FROM kv_store WHERE key = " + s.d.bind(1)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *SQLStorage) Write(ctx context.Context, key string, data []byte) error {
	q := fmt.Sprintf(`INSERT INTO kv_store (key, value, updated_at) VALUES (%s, %s, CURRENT_TIMESTAMP)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.d.bind(1), s.d.bind(2))
	if _, err := s.db.ExecContext(ctx, q, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = "+s.d.bind(1), key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}

func (s *SQLStorage) List(ctx context.Context, prefix string) ([]string, error) {
	q := fmt.Sprintf(`SELECT key FROM kv_store WHERE key LIKE %s ESCAPE '\' ORDER BY key`, s.d.bind(1))
	rows, err := s.db.QueryContext(ctx, q, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLStorage) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM kv_store WHERE key = "+s.d.bind(1), key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return true, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
