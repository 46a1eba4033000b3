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
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"pathnet/internal/storage"
)

func TestWithPassword(t *testing.T) {
	cases := []struct {
		dsn, user, pw, want string
	}{
		{"postgres://db:5432/pathnet?sslmode=disable", "router", "pw", "postgres://router:pw@db:5432/pathnet?sslmode=disable"},
		{"postgres://alice@db/pathnet", "", "pw", "postgres://alice:pw@db/pathnet"},
		{"postgres://db/pathnet", "", "pw", "postgres://db/pathnet"},
		{"postgresql://db/pathnet", "bob", "", "postgresql://bob@db/pathnet"},
		{"host=db user=x", "bob", "pw", "host=db user=x"},
	}
	for _, tc := range cases {
		if got := WithPassword(tc.dsn, tc.user, tc.pw); got != tc.want {
			t.Fatalf("WithPassword(%q, %q) = %q, want %q", tc.dsn, tc.user, got, tc.want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("migrations/0002_route_log.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d %v", v, err)
	}
	if _, err := parseVersion("latest.sql"); err == nil {
		t.Fatalf("expected error for unnumbered file")
	}
}

func TestEmbeddedMigrationsAreNumbered(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected migrations, got %d", len(entries))
	}
	seen := map[int64]bool{}
	for _, e := range entries {
		v, err := parseVersion(e.Name())
		if err != nil {
			t.Fatalf("%s: %v", e.Name(), err)
		}
		if seen[v] {
			t.Fatalf("duplicate migration version %d", v)
		}
		seen[v] = true
	}
}

// openStoreForTest connects to PNET_PG_DSN and skips when no database is reachable.
func openStoreForTest(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PNET_PG_DSN")
	if dsn == "" {
		t.Skip("PNET_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openStoreForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	name := "it-" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	doc := sampleDoc(name)
	t.Cleanup(func() { _ = s.Delete(context.Background(), name) })

	m1, err := s.Put(ctx, doc)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if m1.Revision != 1 || m1.Hash != storage.Hash(doc) {
		t.Fatalf("first put meta %+v", m1)
	}
	if m, err := s.Put(ctx, doc); err != nil || m.Revision != 1 {
		t.Fatalf("unchanged put should keep revision: %+v %v", m, err)
	}
	doc.Description = "changed"
	m2, err := s.Put(ctx, doc)
	if err != nil || m2.Revision != 2 {
		t.Fatalf("changed put: %+v %v", m2, err)
	}

	got, meta, err := s.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "changed" || meta.Revision != 2 || len(got.Paths) != 4 {
		t.Fatalf("unexpected document %+v meta %+v", got, meta)
	}
	old, err := s.Revision(ctx, name, 1)
	if err != nil || old.Description != "test yard" {
		t.Fatalf("revision 1: %+v %v", old, err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range list {
		found = found || m.Name == name
	}
	if !found {
		t.Fatalf("%s missing from list", name)
	}
	if err := s.LogRoute(ctx, name, "node:hub", "warp@1", true, 4, time.Millisecond); err != nil {
		t.Fatalf("LogRoute: %v", err)
	}
	if err := s.Delete(ctx, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Get(ctx, name); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
