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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pathnet/internal/metrics"
)

// CachedRoute is a stored route result keyed by document hash and endpoints.
// Waypoints holds "path@t" references in travel order.
type CachedRoute struct {
	Network   string
	Hash      string
	From      string
	To        string
	Distance  float64
	Waypoints []string
	CreatedAt time.Time
}

// language=SQL
// dialect=SQLite
const selectRouteSQL = `SELECT distance, waypoints, created_at FROM route_cache
WHERE network = ? AND hash = ? AND from_ref = ? AND to_ref = ?`

// language=SQL
// dialect=SQLite
const upsertRouteSQL = `INSERT INTO route_cache(network, hash, from_ref, to_ref, distance, waypoints, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(network, hash, from_ref, to_ref) DO UPDATE SET
	distance=excluded.distance, waypoints=excluded.waypoints, created_at=excluded.created_at`

// LookupRoute returns a cached route for the exact document revision.
func LookupRoute(ctx context.Context, dir, network, hash, from, to string) (CachedRoute, bool, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return CachedRoute{}, false, err
	}
	defer db.Close()
	r := CachedRoute{Network: network, Hash: hash, From: from, To: to}
	var wps, ts string
	err = db.QueryRowContext(ctx, selectRouteSQL, network, hash, from, to).Scan(&r.Distance, &wps, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RouteCache.WithLabelValues("miss").Inc()
		return CachedRoute{}, false, nil
	}
	if err != nil {
		return CachedRoute{}, false, fmt.Errorf("lookup route: %w", err)
	}
	if err := json.Unmarshal([]byte(wps), &r.Waypoints); err != nil {
		return CachedRoute{}, false, fmt.Errorf("decode waypoints: %w", err)
	}
	r.CreatedAt, _ = time.Parse(tsLayout, ts)
	metrics.RouteCache.WithLabelValues("hit").Inc()
	return r, true, nil
}

// StoreRoute caches r. The network must already be in the catalog.
func StoreRoute(ctx context.Context, dir string, r CachedRoute) error {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	if r.Waypoints == nil {
		r.Waypoints = []string{}
	}
	wps, err := json.Marshal(r.Waypoints)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if _, err := db.ExecContext(ctx, upsertRouteSQL, r.Network, r.Hash, r.From, r.To, r.Distance, string(wps), r.CreatedAt.UTC().Format(tsLayout)); err != nil {
		return fmt.Errorf("store route: %w", err)
	}
	return nil
}
