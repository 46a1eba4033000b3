/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package network turns a domain.Network document into live curves and
// answers queries against it by name.
package network

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"pathnet/internal/curve"
	"pathnet/internal/domain"
	plog "pathnet/internal/log"
	"pathnet/internal/route"
	"pathnet/internal/vector"
)

var (
	ErrUnknownNode = errors.New("unknown node")
	ErrUnknownPath = errors.New("unknown path")
	ErrUnknownKind = errors.New("unknown curve kind")
	ErrDuplicateID = errors.New("duplicate id")
	ErrBadRef      = errors.New("malformed point reference")
)

// Options tunes how documents are built.
type Options struct {
	// BezierSamples is the default integration resolution for bezier
	// curves that do not set their own.
	BezierSamples int
	// ApproxSamplesPerSection is the default cache density for
	// approximated_bezier curves.
	ApproxSamplesPerSection int
	// Strict enables integrity checks on build and before route searches.
	Strict bool
	Logger *slog.Logger
}

// Graph is a built network. It owns the nodes and curves it created.
type Graph struct {
	Name string

	doc    domain.Network
	nodes  map[string]*curve.Node
	paths  map[string]curve.Path
	order  []curve.Path
	finder *route.Finder
	log    *slog.Logger
}

// Build creates nodes and curves for doc.
func Build(doc domain.Network, opts Options) (*Graph, error) {
	l := opts.Logger
	if l == nil {
		l = plog.WithComponent("network")
	}
	g := &Graph{
		Name:   doc.Name,
		doc:    doc,
		nodes:  make(map[string]*curve.Node, len(doc.Nodes)),
		paths:  make(map[string]curve.Path, len(doc.Paths)),
		finder: route.NewFinder(route.Options{Strict: opts.Strict, Logger: l}),
		log:    l,
	}
	for _, n := range doc.Nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
		}
		g.nodes[n.ID] = curve.NewNode(n.ID, vec(n.Position))
	}
	for _, p := range doc.Paths {
		if _, dup := g.paths[p.ID]; dup {
			return nil, fmt.Errorf("path %q: %w", p.ID, ErrDuplicateID)
		}
		c, err := g.buildPath(p, opts)
		if err != nil {
			return nil, err
		}
		g.paths[p.ID] = c
		g.order = append(g.order, c)
	}
	if opts.Strict {
		if err := curve.CheckIntegrity(g.order...); err != nil {
			return nil, fmt.Errorf("network %q: %w", doc.Name, err)
		}
	}
	l.Debug("network built", slog.String("network", doc.Name), slog.Int("nodes", len(g.nodes)), slog.Int("paths", len(g.order)))
	return g, nil
}

type mutable interface {
	curve.Path
	AddNode(n *curve.Node, up vector.Vec3, width float64) error
	SetTangents(i int, in, out vector.Vec3) error
	SetActive(bool)
}

func (g *Graph) buildPath(p domain.Path, opts Options) (curve.Path, error) {
	var c mutable
	switch p.Kind {
	case domain.KindLinear:
		c = curve.NewLinearPath(p.ID, p.Looping)
	case domain.KindBezier:
		b := curve.NewBezierPath(p.ID, p.Looping)
		b.Samples = firstPositive(p.Samples, opts.BezierSamples, curve.DefaultSamples)
		c = b
	case domain.KindApproximated:
		a := curve.NewApproximatedBezierPath(p.ID, p.Looping)
		a.SamplesPerSection = firstPositive(p.Samples, opts.ApproxSamplesPerSection, curve.DefaultSamplesPerSection)
		c = a
	case domain.KindTeleport:
		c = curve.NewTeleportPath(p.ID)
	default:
		return nil, fmt.Errorf("path %q kind %q: %w", p.ID, p.Kind, ErrUnknownKind)
	}
	for i, pn := range p.Nodes {
		n, ok := g.nodes[pn.Node]
		if !ok {
			return nil, fmt.Errorf("path %q node %d %q: %w", p.ID, i, pn.Node, ErrUnknownNode)
		}
		var up vector.Vec3
		if pn.Up != nil {
			up = vec(*pn.Up)
		}
		if err := c.AddNode(n, up, pn.Width); err != nil {
			return nil, err
		}
		if pn.In != nil || pn.Out != nil {
			var in, out vector.Vec3
			if pn.In != nil {
				in = vec(*pn.In)
			}
			if pn.Out != nil {
				out = vec(*pn.Out)
			}
			if err := c.SetTangents(i, in, out); err != nil {
				return nil, err
			}
		}
	}
	c.SetActive(p.IsActive())
	return c, nil
}

func firstPositive(vs ...int) int {
	for _, v := range vs {
		if v > 0 {
			return v
		}
	}
	return 0
}

func vec(v domain.Vec3) vector.Vec3 { return vector.V(v[0], v[1], v[2]) }

// Doc returns the document the graph was built from.
func (g *Graph) Doc() domain.Network { return g.doc }

func (g *Graph) Node(id string) (*curve.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) Path(id string) (curve.Path, bool) {
	p, ok := g.paths[id]
	return p, ok
}

// Paths returns the curves in document order.
func (g *Graph) Paths() []curve.Path { return append([]curve.Path(nil), g.order...) }

// Finder returns the route finder configured for this graph.
func (g *Graph) Finder() *route.Finder { return g.finder }

// Route resolves both references and searches a route between them.
func (g *Graph) Route(from, to string) (*route.Route, error) {
	start, err := g.Resolve(from)
	if err != nil {
		return nil, err
	}
	end, err := g.Resolve(to)
	if err != nil {
		return nil, err
	}
	return g.finder.FindRoute(start, end)
}

// Resolve turns a textual reference into a position. Accepted forms are
// "node:<id>" (the node on the first active curve that lists it) and
// "<path>@<t>".
func (g *Graph) Resolve(ref string) (curve.Position, error) {
	if id, ok := strings.CutPrefix(ref, "node:"); ok {
		n, found := g.nodes[id]
		if !found {
			return curve.Position{}, fmt.Errorf("%q: %w", ref, ErrUnknownNode)
		}
		for _, p := range g.order {
			if !p.IsActive() {
				continue
			}
			if ts := p.NodeTs(n); len(ts) > 0 {
				return p.Point(ts[0]), nil
			}
		}
		return curve.Position{}, fmt.Errorf("%q: node is not on an active path: %w", ref, ErrUnknownNode)
	}
	id, ts, ok := strings.Cut(ref, "@")
	if !ok {
		return curve.Position{}, fmt.Errorf("%q: %w", ref, ErrBadRef)
	}
	p, found := g.paths[id]
	if !found {
		return curve.Position{}, fmt.Errorf("%q: %w", ref, ErrUnknownPath)
	}
	t, err := strconv.ParseFloat(ts, 64)
	if err != nil || math.IsNaN(t) {
		return curve.Position{}, fmt.Errorf("%q: %w", ref, ErrBadRef)
	}
	return p.Point(t), nil
}

// ParseVec parses "x,y,z".
func ParseVec(s string) (vector.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vector.Vec3{}, fmt.Errorf("%q: want x,y,z", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return vector.Vec3{}, fmt.Errorf("%q: %w", s, err)
		}
		v[i] = f
	}
	return vector.V(v[0], v[1], v[2]), nil
}

// Stats summarizes a graph.
type Stats struct {
	Nodes      int
	Paths      int
	Active     int
	Kinds      map[string]int
	Length     float64
	Components int
}

// Stats measures the graph. Components counts groups of active curves
// connected through shared nodes.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.nodes), Paths: len(g.order), Kinds: map[string]int{}}
	seen := map[curve.Path]bool{}
	for _, p := range g.order {
		s.Kinds[string(p.Kind())]++
		s.Length += p.DistanceBetween(0, 1)
		if !p.IsActive() {
			continue
		}
		s.Active++
		if seen[p] {
			continue
		}
		s.Components++
		for _, q := range route.Reachable(p) {
			seen[q] = true
		}
	}
	return s
}

// KindNames returns the kinds present in s, sorted.
func (s Stats) KindNames() []string {
	out := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Closest finds the position nearest to q. With a path id the search covers
// the curves reachable from that path; without one it covers every
// component of the graph. The squared distance is returned alongside.
func (g *Graph) Closest(pathID string, q vector.Vec3) (curve.Position, float64, error) {
	if pathID != "" {
		p, ok := g.paths[pathID]
		if !ok {
			return curve.Position{}, 0, fmt.Errorf("%q: %w", pathID, ErrUnknownPath)
		}
		pos, d := g.finder.ClosestPoint(p, q)
		return pos, d, nil
	}
	best, bestD := curve.Position{}, math.Inf(1)
	seen := map[curve.Path]bool{}
	for _, p := range g.order {
		if !p.IsActive() || seen[p] {
			continue
		}
		for _, c := range route.Reachable(p) {
			seen[c] = true
		}
		if pos, d := g.finder.ClosestPoint(p, q); pos.Valid() && d < bestD {
			best, bestD = pos, d
		}
	}
	if !best.Valid() {
		return curve.Position{}, 0, nil
	}
	return best, bestD, nil
}
