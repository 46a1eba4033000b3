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
	"fmt"
	"strings"
)

// SearchQuery describes a catalog search.
// Text uses SQLite FTS5 syntax (terms, quoted phrases, AND/OR/NOT).
// Kinds restricts results to "network", "node" or "path".
// Limit and Offset paginate; Limit defaults to 100.
type SearchQuery struct {
	Text    string
	Network string
	Kinds   []string
	Limit   int
	Offset  int
}

// SearchResult is a single matching term.
type SearchResult struct {
	Network string
	Kind    string
	Ref     string
	Text    string
}

// Search runs a full-text search over the catalog at dir. Without Text it
// lists terms matching the filters.
func Search(ctx context.Context, dir string, q SearchQuery) ([]SearchResult, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT t.network, t.kind, t.ref, COALESCE(t.text,'')\n")
		sb.WriteString("FROM fts_terms JOIN terms t ON fts_terms.rowid = t.term_id\n")
		sb.WriteString("WHERE fts_terms MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT t.network, t.kind, t.ref, COALESCE(t.text,'')\n")
		sb.WriteString("FROM terms t\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Network); s != "" {
		sb.WriteString(" AND t.network = ?\n")
		args = append(args, s)
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND t.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY t.network, t.kind, t.ref\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Network, &r.Kind, &r.Ref, &r.Text); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
