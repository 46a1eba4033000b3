/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package network

import (
	"errors"
	"math"
	"testing"

	"pathnet/internal/curve"
	"pathnet/internal/domain"
	plog "pathnet/internal/log"
	"pathnet/internal/vector"
)

func off() *bool { b := false; return &b }

func sampleDoc() domain.Network {
	return domain.Network{
		Name:    "yard",
		Version: domain.CurrentVersion,
		Nodes: []domain.Node{
			{ID: "hub", Position: domain.Vec3{0, 0, 0}},
			{ID: "east", Position: domain.Vec3{4, 0, 0}},
			{ID: "north", Position: domain.Vec3{0, 0, 3}},
			{ID: "far", Position: domain.Vec3{50, 0, 0}},
		},
		Paths: []domain.Path{
			{ID: "e", Kind: domain.KindLinear, Nodes: []domain.PathNode{{Node: "hub"}, {Node: "east", Width: 2}}},
			{ID: "n", Kind: domain.KindBezier, Samples: 8, Nodes: []domain.PathNode{{Node: "hub"}, {Node: "north"}}},
			{ID: "warp", Kind: domain.KindTeleport, Nodes: []domain.PathNode{{Node: "east"}, {Node: "far"}}},
			{ID: "old", Kind: domain.KindApproximated, Active: off(), Nodes: []domain.PathNode{
				{Node: "north", Out: &domain.Vec3{1, 0, 0}},
				{Node: "far", In: &domain.Vec3{-1, 0, 0}},
			}},
		},
	}
}

func build(t *testing.T, doc domain.Network) *Graph {
	t.Helper()
	g, err := Build(doc, Options{Strict: true, Logger: plog.Nop()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestBuildCreatesCurves(t *testing.T) {
	g := build(t, sampleDoc())
	if len(g.Paths()) != 4 {
		t.Fatalf("paths = %d", len(g.Paths()))
	}
	n, _ := g.Path("n")
	if b, ok := n.(*curve.BezierPath); !ok || b.Samples != 8 {
		t.Fatalf("n = %T %+v", n, n)
	}
	old, _ := g.Path("old")
	if old.IsActive() || old.Kind() != curve.KindApproximated {
		t.Fatalf("old active=%v kind=%v", old.IsActive(), old.Kind())
	}
	a := old.(*curve.ApproximatedBezierPath)
	if a.SamplesPerSection != curve.DefaultSamplesPerSection {
		t.Fatalf("samples per section = %d", a.SamplesPerSection)
	}
	if a.Entry(0).OutTangent != vector.V(1, 0, 0) || a.Entry(1).InTangent != vector.V(-1, 0, 0) {
		t.Fatalf("tangents not applied: %+v %+v", a.Entry(0), a.Entry(1))
	}
	hub, _ := g.Node("hub")
	if len(hub.Paths()) != 2 {
		t.Fatalf("hub back-references = %d", len(hub.Paths()))
	}
}

func TestBuildRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		edit func(*domain.Network)
		want error
	}{
		{"unknown node", func(d *domain.Network) { d.Paths[0].Nodes[1].Node = "ghost" }, ErrUnknownNode},
		{"unknown kind", func(d *domain.Network) { d.Paths[1].Kind = "spline" }, ErrUnknownKind},
		{"duplicate node", func(d *domain.Network) { d.Nodes[1].ID = "hub" }, ErrDuplicateID},
		{"duplicate path", func(d *domain.Network) { d.Paths[2].ID = "e" }, ErrDuplicateID},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc := sampleDoc()
			c.edit(&doc)
			if _, err := Build(doc, Options{Logger: plog.Nop()}); !errors.Is(err, c.want) {
				t.Fatalf("err = %v, want %v", err, c.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	g := build(t, sampleDoc())
	pos, err := g.Resolve("e@0.5")
	if err != nil || pos.Point != vector.V(2, 0, 0) {
		t.Fatalf("e@0.5 = %v, %v", pos.Point, err)
	}
	pos, err = g.Resolve("node:east")
	if err != nil || pos.Path.ID() != "e" || pos.Node == nil || pos.Node.ID != "east" {
		t.Fatalf("node:east = %+v, %v", pos, err)
	}
	for ref, want := range map[string]error{
		"node:ghost": ErrUnknownNode,
		"ghost@0.1":  ErrUnknownPath,
		"e@half":     ErrBadRef,
		"e":          ErrBadRef,
	} {
		if _, err := g.Resolve(ref); !errors.Is(err, want) {
			t.Errorf("Resolve(%q) = %v, want %v", ref, err, want)
		}
	}
}

func TestRouteThroughWarp(t *testing.T) {
	g := build(t, sampleDoc())
	r, err := g.Route("n@1", "node:far")
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	// 3 down the bezier, 4 along e, 0 through the warp.
	if math.Abs(r.Distance-7) > 1e-6 {
		t.Fatalf("distance = %v, want 7", r.Distance)
	}
	// A teleport reports its first node everywhere, so the end sits on the
	// warp at t=1 rather than on "far" itself.
	if r.End.Path.ID() != "warp" || r.End.T != 1 {
		t.Fatalf("end = %s@%v", r.End.Path.ID(), r.End.T)
	}
}

func TestStats(t *testing.T) {
	g := build(t, sampleDoc())
	s := g.Stats()
	if s.Nodes != 4 || s.Paths != 4 || s.Active != 3 || s.Components != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if got := s.KindNames(); len(got) != 4 || got[0] != "approximated_bezier" {
		t.Fatalf("kinds = %v", got)
	}
	if s.Length < 7 {
		t.Fatalf("length = %v", s.Length)
	}
}

func TestParseVec(t *testing.T) {
	v, err := ParseVec("1, -2.5,3")
	if err != nil || v != vector.V(1, -2.5, 3) {
		t.Fatalf("ParseVec = %v, %v", v, err)
	}
	for _, bad := range []string{"", "1,2", "1,2,x"} {
		if _, err := ParseVec(bad); err == nil {
			t.Errorf("ParseVec(%q) accepted", bad)
		}
	}
}

func TestClosest(t *testing.T) {
	g := build(t, sampleDoc())
	pos, d, err := g.Closest("", vector.V(2, 0, -1))
	if err != nil {
		t.Fatal(err)
	}
	if pos.Path == nil || pos.Path.ID() != "e" || math.Abs(d-1) > 1e-9 {
		t.Fatalf("closest = %v on %v, d=%v", pos.Point, pos.Path, d)
	}
	if _, _, err := g.Closest("nope", vector.Zero); !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}
	pos, _, err = g.Closest("n", vector.V(0, 0, 10))
	if err != nil || pos.Path == nil {
		t.Fatalf("scoped closest: %v %v", pos, err)
	}
	if math.Abs(pos.Point.Z-3) > 1e-6 {
		t.Fatalf("scoped closest point = %v, want north end", pos.Point)
	}
}
