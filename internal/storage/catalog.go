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
	"strings"
	"time"

	"pathnet/internal/domain"
)

// Entry is the catalog row for an imported network.
type Entry struct {
	Name        string
	Version     int
	Hash        string
	Description string
	Nodes       int
	Paths       int
	Length      float64
	Source      string
	UpdatedAt   time.Time
}

// ErrNotFound is returned when a network is not in the catalog.
var ErrNotFound = errors.New("network not found in catalog")

// language=SQL
// dialect=SQLite
const upsertNetworkSQL = `INSERT INTO networks(name, version, hash, description, nodes, paths, length, source, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	version=excluded.version, hash=excluded.hash, description=excluded.description,
	nodes=excluded.nodes, paths=excluded.paths, length=excluded.length,
	source=excluded.source, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectNetworkSQL = `SELECT name, version, hash, COALESCE(description,''), nodes, paths, length, COALESCE(source,''), updated_at
FROM networks`

// Import records doc in the catalog at dir. It refreshes the searchable
// terms, drops cached routes computed for other revisions and, when the
// content changed, appends a history snapshot. changed reports whether the
// stored hash differed from doc.
func Import(ctx context.Context, dir string, doc domain.Network, source string, length float64) (e Entry, changed bool, err error) {
	if strings.TrimSpace(doc.Name) == "" {
		return Entry{}, false, errors.New("network name is required")
	}
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return Entry{}, false, err
	}
	defer db.Close()

	now := time.Now().UTC()
	e = Entry{
		Name:        doc.Name,
		Version:     doc.Version,
		Hash:        Hash(doc),
		Description: doc.Description,
		Nodes:       len(doc.Nodes),
		Paths:       len(doc.Paths),
		Length:      length,
		Source:      source,
		UpdatedAt:   now,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var prev string
	switch qerr := tx.QueryRowContext(ctx, `SELECT hash FROM networks WHERE name=?`, doc.Name).Scan(&prev); {
	case errors.Is(qerr, sql.ErrNoRows):
	case qerr != nil:
		return Entry{}, false, fmt.Errorf("read previous hash: %w", qerr)
	}
	changed = prev != e.Hash

	if _, err = tx.ExecContext(ctx, upsertNetworkSQL, e.Name, e.Version, e.Hash, e.Description, e.Nodes, e.Paths, e.Length, e.Source, now.Format(tsLayout)); err != nil {
		return Entry{}, false, fmt.Errorf("upsert network: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM terms WHERE network=?`, doc.Name); err != nil {
		return Entry{}, false, fmt.Errorf("clear terms: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO terms(network, kind, ref, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Entry{}, false, fmt.Errorf("prepare terms: %w", err)
	}
	defer stmt.Close()
	if _, err = stmt.ExecContext(ctx, doc.Name, "network", doc.Name, strings.TrimSpace(doc.Name+" "+doc.Description)); err != nil {
		return Entry{}, false, fmt.Errorf("insert term: %w", err)
	}
	for _, n := range doc.Nodes {
		if _, err = stmt.ExecContext(ctx, doc.Name, "node", n.ID, n.ID); err != nil {
			return Entry{}, false, fmt.Errorf("insert term: %w", err)
		}
	}
	for _, p := range doc.Paths {
		if _, err = stmt.ExecContext(ctx, doc.Name, "path", p.ID, p.ID+" "+string(p.Kind)); err != nil {
			return Entry{}, false, fmt.Errorf("insert term: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM route_cache WHERE network=? AND hash<>?`, doc.Name, e.Hash); err != nil {
		return Entry{}, false, fmt.Errorf("invalidate routes: %w", err)
	}
	if changed {
		blob, merr := Marshal(doc, FormatJSON)
		if merr != nil {
			err = merr
			return Entry{}, false, fmt.Errorf("marshal snapshot: %w", err)
		}
		if _, err = tx.ExecContext(ctx, insertSnapshotSQL, doc.Name, now.Format(tsLayout), blob); err != nil {
			return Entry{}, false, fmt.Errorf("insert snapshot: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("commit import: %w", err)
	}
	return e, changed, nil
}

// Get returns the catalog entry for name or ErrNotFound.
func Get(ctx context.Context, dir, name string) (Entry, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return Entry{}, err
	}
	defer db.Close()
	e, err := scanEntry(db.QueryRowContext(ctx, selectNetworkSQL+` WHERE name=?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, err
}

// List returns all catalog entries ordered by name.
func List(ctx context.Context, dir string) ([]Entry, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, selectNetworkSQL+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Remove deletes a network with its terms, cached routes and history.
func Remove(ctx context.Context, dir, name string) error {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE name=?`, name)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete network: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	for _, q := range []string{
		`DELETE FROM terms WHERE network=?`,
		`DELETE FROM route_cache WHERE network=?`,
		`DELETE FROM snapshots WHERE network=?`,
	} {
		if _, err := tx.ExecContext(ctx, q, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete network rows: %w", err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var e Entry
	var ts string
	if err := r.Scan(&e.Name, &e.Version, &e.Hash, &e.Description, &e.Nodes, &e.Paths, &e.Length, &e.Source, &ts); err != nil {
		return Entry{}, err
	}
	e.UpdatedAt, _ = time.Parse(tsLayout, ts)
	return e, nil
}
