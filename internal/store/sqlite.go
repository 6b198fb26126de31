package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	upsertEntity = `
INSERT INTO entities (owner, kind, entity_key, payload)
VALUES (?, ?, ?, ?)
ON CONFLICT (owner, kind, entity_key) DO UPDATE SET
    payload    = excluded.payload,
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

	listEntities = `
SELECT payload FROM entities
WHERE owner = ? AND kind = ?
ORDER BY id`
)

// SQLiteStore is a Store backed by a SQLite file. Each entity is kept as
// its JSON encoding.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; concurrent ingest shares this connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, logger: log.OrDiscard(logger).WithComponent("store")}, nil
}

// RunMigrations applies the embedded schema migrations to the database at
// dbPath using a dedicated connection.
func RunMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, owner string, entities ...saft.Entity) error {
	if err := checkSave(owner, entities); err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntity)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entities {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s %q: %w", e.Kind(), e.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx, owner, e.Kind().String(), e.Key(), string(payload)); err != nil {
			return fmt.Errorf("failed to save %s %q: %w", e.Kind(), e.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.DebugContext(ctx, "entities saved", "owner", owner, "count", len(entities))
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, owner string, kind saft.Kind) ([]saft.Entity, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	rows, err := s.db.QueryContext(ctx, listEntities, owner, kind.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []saft.Entity
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		e, err := saft.DecodeEntity(kind, []byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", kind, err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
