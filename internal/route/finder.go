/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package route searches across networks of curves that share nodes: the
// nearest point over every reachable curve, and the shortest route between
// two positions that may lie on different curves.
package route

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"pathnet/internal/curve"
	plog "pathnet/internal/log"
	"pathnet/internal/metrics"
	"pathnet/internal/vector"
)

// Options configures a Finder.
type Options struct {
	// Strict runs curve.CheckIntegrity over the reachable network before
	// every route search and fails on a mismatch.
	Strict bool
	Logger *slog.Logger
}

// Finder runs queries over a network. It keeps no state between calls, so
// one Finder may serve any number of networks.
type Finder struct {
	strict bool
	log    *slog.Logger
}

func NewFinder(opts Options) *Finder {
	l := opts.Logger
	if l == nil {
		l = plog.WithComponent("route")
	}
	return &Finder{strict: opts.Strict, log: l}
}

// Reachable lists the active curves connected to start through shared
// nodes, start first. An inactive start yields nothing.
func Reachable(start curve.Path) []curve.Path {
	if start == nil || !start.IsActive() {
		return nil
	}
	seen := map[curve.Path]bool{}
	var out []curve.Path
	var visit func(p curve.Path)
	visit = func(p curve.Path) {
		seen[p] = true
		out = append(out, p)
		for _, n := range p.Nodes() {
			for _, q := range n.Paths() {
				if !seen[q] && q.IsActive() {
					visit(q)
				}
			}
		}
	}
	visit(start)
	return out
}

// ClosestPoint returns the nearest position to p over every curve
// reachable from start, with its squared distance.
func (f *Finder) ClosestPoint(start curve.Path, p vector.Vec3) (curve.Position, float64) {
	metrics.ClosestQueries.WithLabelValues("point").Inc()
	return closest(start, func(c curve.Path) (curve.Position, float64) { return c.ClosestPoint(p) })
}

// ClosestPointToRay is ClosestPoint for a ray.
func (f *Finder) ClosestPointToRay(start curve.Path, r vector.Ray) (curve.Position, float64) {
	metrics.ClosestQueries.WithLabelValues("ray").Inc()
	return closest(start, func(c curve.Path) (curve.Position, float64) { return c.ClosestPointToRay(r) })
}

func closest(start curve.Path, query func(curve.Path) (curve.Position, float64)) (curve.Position, float64) {
	best, bestD := curve.Position{}, math.Inf(1)
	for _, c := range Reachable(start) {
		if pos, d := query(c); pos.Valid() && d < bestD {
			best, bestD = pos, d
		}
	}
	return best, bestD
}

// FindRoute returns the shortest route from start to end. A nil route with
// a nil error means the endpoints are invalid, lie on an inactive curve or
// are not connected. Errors are only returned for integrity violations in
// strict mode.
func (f *Finder) FindRoute(start, end curve.Position) (*Route, error) {
	began := time.Now()
	l := plog.WithOperation(f.log, "find_route")
	if !start.Valid() || !end.Valid() || !start.Path.IsActive() || !end.Path.IsActive() {
		metrics.ObserveRoute(metrics.ResultInvalid, time.Since(began), 0, 0)
		l.Debug("route endpoints invalid")
		return nil, nil
	}
	if f.strict {
		if err := curve.CheckIntegrity(Reachable(start.Path)...); err != nil {
			metrics.ObserveRoute(metrics.ResultError, time.Since(began), 0, 0)
			l.Error("network integrity", "err", err)
			return nil, fmt.Errorf("find route: %w", err)
		}
	}

	s := &search{start: start, end: end, visited: map[*curve.Node]bool{}, bestDist: math.Inf(1)}
	s.walk(start.Path, start.T, 0)

	result := metrics.ResultFound
	if s.best == nil {
		result = metrics.ResultUnreachable
	}
	metrics.ObserveRoute(result, time.Since(began), s.expanded, s.pruned)
	l.Debug("route search",
		slog.String("from", start.Path.ID()),
		slog.String("to", end.Path.ID()),
		slog.String("result", result),
		slog.Float64("distance", s.bestDist),
		slog.Int("expanded", s.expanded),
		slog.Int("pruned", s.pruned),
	)
	return s.best, nil
}
