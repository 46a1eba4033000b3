/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders networks and routes as top-down plots.
// The plot plane is the XZ ground plane, with +X to the right and +Z down
// the page.
package export

import (
	"math"

	"pathnet/internal/curve"
	"pathnet/internal/network"
	"pathnet/internal/route"
	"pathnet/internal/vector"
)

// Point is a projected plot coordinate in world units.
type Point struct{ X, Y float64 }

// Polyline is one sampled curve.
type Polyline struct {
	ID     string
	Kind   curve.Kind
	Active bool
	Points []Point
}

// Label marks a node.
type Label struct {
	Text string
	At   Point
}

// Plot is a render-ready projection of a network and an optional route.
type Plot struct {
	Title  string
	Curves []Polyline
	Nodes  []Label
	// Route holds one polyline per route leg.
	Route    [][]Point
	Distance float64
}

// BuildOptions controls sampling density.
type BuildOptions struct {
	SamplesPerSection int
}

const defaultSamplesPerSection = 12

func project(v vector.Vec3) Point { return Point{X: v.X, Y: v.Z} }

// Build samples every curve of g and, when r is non-nil, the route.
func Build(g *network.Graph, r *route.Route, opt BuildOptions) Plot {
	per := opt.SamplesPerSection
	if per <= 0 {
		per = defaultSamplesPerSection
	}
	p := Plot{Title: g.Doc().Name}
	seen := map[*curve.Node]bool{}
	for _, c := range g.Paths() {
		pl := Polyline{ID: c.ID(), Kind: c.Kind(), Active: c.IsActive()}
		if c.Kind() == curve.KindTeleport {
			for _, n := range c.Nodes() {
				pl.Points = append(pl.Points, project(n.Position()))
			}
		} else {
			sections := c.NodeCount() - 1
			if c.Looping() {
				sections = c.NodeCount()
			}
			steps := max(1, sections*per)
			for i := 0; i <= steps; i++ {
				pl.Points = append(pl.Points, project(c.Point(float64(i)/float64(steps)).Point))
			}
		}
		p.Curves = append(p.Curves, pl)
		for _, n := range c.Nodes() {
			if !seen[n] {
				seen[n] = true
				p.Nodes = append(p.Nodes, Label{Text: n.ID, At: project(n.Position())})
			}
		}
	}
	if r != nil {
		p.Distance = r.Distance
		for _, leg := range r.Legs() {
			length := leg.Length()
			steps := max(1, int(math.Ceil(length))*per)
			pts := make([]Point, 0, steps+1)
			for i := 0; i <= steps; i++ {
				pos := leg.Path.Travel(leg.From, leg.To, length*float64(i)/float64(steps))
				pts = append(pts, project(pos.Point))
			}
			p.Route = append(p.Route, pts)
		}
	}
	return p
}

// Bounds returns the extent of everything in the plot. An empty plot
// reports a unit box at the origin.
func (p Plot) Bounds() (lo, hi Point) {
	lo = Point{math.Inf(1), math.Inf(1)}
	hi = Point{math.Inf(-1), math.Inf(-1)}
	grow := func(q Point) {
		lo.X, lo.Y = math.Min(lo.X, q.X), math.Min(lo.Y, q.Y)
		hi.X, hi.Y = math.Max(hi.X, q.X), math.Max(hi.Y, q.Y)
	}
	for _, c := range p.Curves {
		for _, q := range c.Points {
			grow(q)
		}
	}
	for _, n := range p.Nodes {
		grow(n.At)
	}
	for _, leg := range p.Route {
		for _, q := range leg {
			grow(q)
		}
	}
	if math.IsInf(lo.X, 1) {
		return Point{}, Point{1, 1}
	}
	return lo, hi
}

// viewport maps world coordinates into a w x h canvas with a margin,
// keeping the aspect ratio and centring the content.
type viewport struct {
	scale, offX, offY float64
	lo                Point
}

func fit(p Plot, w, h, margin float64) viewport {
	lo, hi := p.Bounds()
	spanX := math.Max(hi.X-lo.X, 1e-9)
	spanY := math.Max(hi.Y-lo.Y, 1e-9)
	availW := math.Max(w-2*margin, 1)
	availH := math.Max(h-2*margin, 1)
	s := math.Min(availW/spanX, availH/spanY)
	return viewport{
		scale: s,
		lo:    lo,
		offX:  margin + (availW-spanX*s)/2,
		offY:  margin + (availH-spanY*s)/2,
	}
}

func (v viewport) apply(q Point) (float64, float64) {
	return v.offX + (q.X-v.lo.X)*v.scale, v.offY + (q.Y-v.lo.Y)*v.scale
}
