/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "pathnet/internal/log"
	"pathnet/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexFileName = "pathnet.sqlite"

	// schemaVersion tracks the catalog schema. Bump it together with a new
	// case in runMigrations.
	schemaVersion = 2
)

// IndexPath returns the catalog database file inside dir.
func IndexPath(dir string) string {
	return filepath.Join(dir, IndexFileName)
}

// InitOrOpenIndex ensures that the catalog database exists in dir, opens it,
// enables WAL mode and brings the schema up to date.
// Callers close the returned handle.
func InitOrOpenIndex(dir string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("dir", dir),
	)
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("catalog dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("create catalog dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	path := IndexPath(dir)
	// Convert to forward slashes for the SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("catalog ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema so runMigrations can step it forward.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Never downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Route cache lookups by document hash, and FTS compaction.
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_route_cache_hash ON route_cache(network, hash);`,
				`CREATE INDEX IF NOT EXISTS idx_terms_network ON terms(network);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best effort.
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_terms(fts_terms) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates catalog tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per imported network document.
		`CREATE TABLE IF NOT EXISTS networks (
			name        TEXT PRIMARY KEY,
			version     INTEGER NOT NULL,
			hash        TEXT    NOT NULL,
			description TEXT,
			nodes       INTEGER NOT NULL,
			paths       INTEGER NOT NULL,
			length      REAL    NOT NULL,
			source      TEXT,
			updated_at  TEXT    NOT NULL
		);`,

		// Searchable terms: node ids, path ids and descriptions.
		`CREATE TABLE IF NOT EXISTS terms (
			term_id INTEGER PRIMARY KEY,
			network TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
			kind    TEXT NOT NULL,
			ref     TEXT NOT NULL,
			text    TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_terms_network ON terms(network);`,

		// Contentless FTS5 index fed from terms via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_terms USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS route_cache (
			network    TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
			hash       TEXT NOT NULL,
			from_ref   TEXT NOT NULL,
			to_ref     TEXT NOT NULL,
			distance   REAL NOT NULL,
			waypoints  TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY(network, hash, from_ref, to_ref)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_route_cache_hash ON route_cache(network, hash);`,

		// Document history.
		`CREATE TABLE IF NOT EXISTS snapshots (
			id      INTEGER PRIMARY KEY,
			network TEXT NOT NULL,
			ts      TEXT NOT NULL,
			blob    BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_network_ts ON snapshots(network, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS terms_ai AFTER INSERT ON terms BEGIN
			INSERT INTO fts_terms(rowid, text) VALUES (new.term_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS terms_ad AFTER DELETE ON terms BEGIN
			INSERT INTO fts_terms(fts_terms, rowid, text) VALUES ('delete', old.term_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS terms_au AFTER UPDATE OF text ON terms BEGIN
			INSERT INTO fts_terms(fts_terms, rowid, text) VALUES ('delete', old.term_id, old.text);
			INSERT INTO fts_terms(rowid, text) VALUES (new.term_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks the catalog for corruption or missing schema.
// A damaged file is backed up and replaced with an empty catalog; networks
// have to be imported again afterwards. It returns true when that happened.
func DetectAndRebuildIndex(ctx context.Context, dir string) (bool, error) {
	path := IndexPath(dir)
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		db2, rbErr := InitOrOpenIndex(dir)
		if rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		_ = db2.Close()
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM networks LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	db, err = InitOrOpenIndex(dir)
	if err != nil {
		return false, err
	}
	_ = db.Close()
	return true, nil
}

// backupIndexFile copies the catalog file into <dir>/backups with a timestamp.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	_ = os.Remove(indexPath)
	_ = os.Remove(indexPath + "-wal")
	_ = os.Remove(indexPath + "-shm")
}
