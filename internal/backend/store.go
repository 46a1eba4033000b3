/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pathnet/internal/domain"
	applog "pathnet/internal/log"
	"pathnet/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned for networks the store does not hold.
var ErrNotFound = errors.New("network not found")

// Meta describes a stored network revision.
type Meta struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Hash        string    `json:"hash"`
	Revision    int64     `json:"revision"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the shared Postgres network store.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// WithPassword injects user and password into a postgres URL DSN. Other
// DSN forms are returned unchanged.
func WithPassword(dsn, user, password string) string {
	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return dsn
	}
	if user == "" && u.User != nil {
		user = u.User.Username()
	}
	if user == "" {
		return dsn
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// Open connects to Postgres and applies embedded migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	l := applog.WithComponent("backend")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("backend dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: l}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// dialect=PostgreSQL
const upsertNetworkSQL = `INSERT INTO networks(name, description, hash, document)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET
	description = EXCLUDED.description,
	hash        = EXCLUDED.hash,
	document    = EXCLUDED.document,
	revision    = networks.revision + CASE WHEN networks.hash = EXCLUDED.hash THEN 0 ELSE 1 END,
	updated_at  = now()
RETURNING id, revision, updated_at`

// dialect=PostgreSQL
const insertRevisionSQL = `INSERT INTO network_revisions(network_id, revision, hash, document)
VALUES ($1, $2, $3, $4)
ON CONFLICT (network_id, revision) DO NOTHING`

// Put stores doc as the latest revision of its network. Pushing unchanged
// content keeps the revision number.
func (s *Store) Put(ctx context.Context, doc domain.Network) (Meta, error) {
	if strings.TrimSpace(doc.Name) == "" {
		return Meta{}, errors.New("network name is required")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return Meta{}, fmt.Errorf("marshal network: %w", err)
	}
	m := Meta{Name: doc.Name, Description: doc.Description, Hash: storage.Hash(doc)}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meta{}, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, upsertNetworkSQL, doc.Name, doc.Description, m.Hash, string(body)).Scan(&id, &m.Revision, &m.UpdatedAt); err != nil {
		_ = tx.Rollback()
		return Meta{}, fmt.Errorf("upsert network: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertRevisionSQL, id, m.Revision, m.Hash, string(body)); err != nil {
		_ = tx.Rollback()
		return Meta{}, fmt.Errorf("insert revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, err
	}
	s.log.Info("network stored", slog.String("network", m.Name), slog.Int64("revision", m.Revision))
	return m, nil
}

// Get returns the latest document of a network.
func (s *Store) Get(ctx context.Context, name string) (domain.Network, Meta, error) {
	var raw []byte
	m := Meta{Name: name}
	err := s.db.QueryRowContext(ctx, `SELECT description, hash, revision, updated_at, document FROM networks WHERE name = $1`, name).
		Scan(&m.Description, &m.Hash, &m.Revision, &m.UpdatedAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Network{}, Meta{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return domain.Network{}, Meta{}, fmt.Errorf("select network: %w", err)
	}
	doc, err := storage.Decode(raw, storage.FormatJSON)
	if err != nil {
		return domain.Network{}, Meta{}, fmt.Errorf("stored network %s: %w", name, err)
	}
	return doc, m, nil
}

// Revision returns a specific stored revision of a network.
func (s *Store) Revision(ctx context.Context, name string, rev int64) (domain.Network, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT r.document FROM network_revisions r
		JOIN networks n ON n.id = r.network_id
		WHERE n.name = $1 AND r.revision = $2`, name, rev).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Network{}, fmt.Errorf("%w: %s@%d", ErrNotFound, name, rev)
	}
	if err != nil {
		return domain.Network{}, err
	}
	return storage.Decode(raw, storage.FormatJSON)
}

// List returns metadata of every stored network ordered by name.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description, hash, revision, updated_at FROM networks ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.Name, &m.Description, &m.Hash, &m.Revision, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a network and its revisions.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM networks WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// LogRoute records an answered route query.
func (s *Store) LogRoute(ctx context.Context, network, from, to string, found bool, distance float64, took time.Duration) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO route_log(network, from_ref, to_ref, found, distance, took_ms) VALUES ($1, $2, $3, $4, $5, $6)`,
		network, from, to, found, distance, float64(took.Microseconds())/1000)
	return err
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each one in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, _ := strings.Cut(base, "_")
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
