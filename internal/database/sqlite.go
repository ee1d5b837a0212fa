package database

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path         string
	MaxOpenConns int
}

// dsn builds a modernc sqlite DSN. Every pooled connection gets WAL, foreign
// keys and a busy timeout, and transactions take the write lock up front.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open opens the database, applies pending migrations and returns the handle.
// The caller owns the handle and must Close it.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && !strings.HasPrefix(cfg.Path, ":") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, xerrors.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, xerrors.Errorf("open database: %w", err)
	}

	// Set connection pool settings
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 8
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("ping database: %w", err)
	}

	if err := NewMigrationManager(db).RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// Transaction executes a function within a database transaction
func Transaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return xerrors.Errorf("rollback failed (%v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
