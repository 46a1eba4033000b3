/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package route

import (
	"math"

	"pathnet/internal/curve"
)

// Waypoint is a switch between curves at a shared node.
type Waypoint struct {
	Node *curve.Node
	// Path is the curve taken after the node.
	Path curve.Path
	// ArriveT is the node's coordinate on the curve being left.
	ArriveT float64
	// DepartT is the node's coordinate on Path.
	DepartT float64
}

// Route is one discovered shortest route. End lies on the last curve of
// the route. Routes are not modified after FindRoute returns them.
type Route struct {
	Start     curve.Position
	End       curve.Position
	Waypoints []Waypoint
	Distance  float64
}

// PointAtDistance returns the position reached after travelling d along
// the route from its start.
func (r *Route) PointAtDistance(d float64) curve.Position {
	if r == nil || !r.Start.Valid() {
		return curve.Position{}
	}
	cur, t := r.Start.Path, r.Start.T
	remaining := math.Max(0, d)
	for _, w := range r.Waypoints {
		leg := cur.DistanceBetween(t, w.ArriveT)
		if remaining < leg {
			return cur.Travel(t, w.ArriveT, remaining)
		}
		remaining -= leg
		cur, t = w.Path, w.DepartT
	}
	return cur.Travel(t, r.End.T, remaining)
}

// Paths lists the curves the route uses in order.
func (r *Route) Paths() []curve.Path {
	if r == nil || !r.Start.Valid() {
		return nil
	}
	out := []curve.Path{r.Start.Path}
	for _, w := range r.Waypoints {
		out = append(out, w.Path)
	}
	return out
}

// Leg is the stretch of a route travelled on one curve.
type Leg struct {
	Path     curve.Path
	From, To float64
}

// Legs splits the route into per-curve stretches in travel order.
func (r *Route) Legs() []Leg {
	if r == nil || !r.Start.Valid() {
		return nil
	}
	out := make([]Leg, 0, len(r.Waypoints)+1)
	cur, t := r.Start.Path, r.Start.T
	for _, w := range r.Waypoints {
		out = append(out, Leg{Path: cur, From: t, To: w.ArriveT})
		cur, t = w.Path, w.DepartT
	}
	return append(out, Leg{Path: cur, From: t, To: r.End.T})
}

// Length is the distance covered by the leg.
func (l Leg) Length() float64 { return l.Path.DistanceBetween(l.From, l.To) }
