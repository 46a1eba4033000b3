/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pathnet/internal/config"
	"pathnet/internal/crash"
	"pathnet/internal/domain"
	applog "pathnet/internal/log"
	"pathnet/internal/storage"
)

func testApp(t *testing.T) (*app, string) {
	t.Helper()
	dir := t.TempDir()
	doc := domain.Network{
		Name:    "yard",
		Version: domain.CurrentVersion,
		Nodes: []domain.Node{
			{ID: "a"},
			{ID: "b", Position: domain.Vec3{3, 0, 0}},
			{ID: "c", Position: domain.Vec3{3, 0, 4}},
		},
		Paths: []domain.Path{
			{ID: "ab", Kind: domain.KindLinear, Nodes: []domain.PathNode{{Node: "a"}, {Node: "b"}}},
			{ID: "bc", Kind: domain.KindLinear, Nodes: []domain.PathNode{{Node: "b"}, {Node: "c"}}},
		},
	}
	file := filepath.Join(dir, "yard.yaml")
	if err := storage.Save(file, doc); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.Storage.IndexDir = filepath.Join(dir, "catalog")
	return &app{cfg: cfg, log: applog.Nop(), subject: &crash.Subject{}}, file
}

func TestRouteIsCachedInCatalog(t *testing.T) {
	a, file := testApp(t)
	ctx := context.Background()
	if err := a.run(ctx, "route", []string{file, "node:a", "node:c"}); err != nil {
		t.Fatalf("route: %v", err)
	}
	if a.subject.Doc == nil || a.subject.Doc.Name != "yard" {
		t.Fatalf("crash subject not recorded: %+v", a.subject)
	}
	hash := storage.Hash(*a.subject.Doc)
	c, ok, err := storage.LookupRoute(ctx, a.cfg.Storage.IndexDir, "yard", hash, "node:a", "node:c")
	if err != nil || !ok {
		t.Fatalf("expected cached route, ok=%v err=%v", ok, err)
	}
	if c.Distance < 6.999 || c.Distance > 7.001 {
		t.Fatalf("distance = %v, want 7", c.Distance)
	}
	if len(c.Waypoints) != 1 || c.Waypoints[0] != "b>bc@0" {
		t.Fatalf("waypoints = %v", c.Waypoints)
	}
	// second run is served from the cache
	if err := a.run(ctx, "route", []string{file, "node:a", "node:c"}); err != nil {
		t.Fatalf("cached route: %v", err)
	}
}

func TestIndexListAndSearch(t *testing.T) {
	a, file := testApp(t)
	ctx := context.Background()
	if err := a.run(ctx, "index", []string{file}); err != nil {
		t.Fatalf("index: %v", err)
	}
	entries, err := storage.List(ctx, a.cfg.Storage.IndexDir)
	if err != nil || len(entries) != 1 || entries[0].Paths != 2 {
		t.Fatalf("catalog entries %+v err %v", entries, err)
	}
	for _, cmd := range [][]string{{"list"}, {"search", "bc"}, {"history", "yard", "1"}} {
		if err := a.run(ctx, cmd[0], cmd[1:]); err != nil {
			t.Fatalf("%v: %v", cmd, err)
		}
	}
}

func TestCommandsRejectMissingArguments(t *testing.T) {
	a, _ := testApp(t)
	for _, cmd := range []string{"validate", "stats", "route", "closest", "plot", "index", "search", "push", "pull", "bogus"} {
		if err := a.run(context.Background(), cmd, nil); !errors.Is(err, errUsage) {
			t.Fatalf("%s: expected usage error, got %v", cmd, err)
		}
	}
}

func TestValidateStatsClosestAndPlot(t *testing.T) {
	a, file := testApp(t)
	ctx := context.Background()
	out := filepath.Join(filepath.Dir(file), "yard.png")
	for _, cmd := range [][]string{
		{"validate", file},
		{"stats", file},
		{"closest", file, "1,0,1"},
		{"closest", file, "3,0,2", "bc"},
		{"plot", file, out, "node:a", "node:c"},
	} {
		if err := a.run(ctx, cmd[0], cmd[1:]); err != nil {
			t.Fatalf("%v: %v", cmd, err)
		}
	}
}

func TestIndexCommandsNeedIndexDir(t *testing.T) {
	a, _ := testApp(t)
	a.cfg.Storage.IndexDir = ""
	if err := a.run(context.Background(), "list", nil); err == nil {
		t.Fatalf("expected error without index dir")
	}
}
