/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import (
	"fmt"

	"pathnet/internal/vector"
)

// DefaultSamplesPerSection is the number of interior samples inserted into
// each section of an ApproximatedBezierPath.
const DefaultSamplesPerSection = 16

// ApproximatedBezierPath is authored like a BezierPath but answers every
// query against a cached polyline sampled from the Bézier shape. The cache
// holds (sections × samples per section) + node count synthetic nodes and
// shares the authored parametrization, so t means the same on both.
//
// The cache is rebuilt lazily whenever the node list, node metadata or
// any node position changes. Refresh forces a rebuild.
type ApproximatedBezierPath struct {
	Base
	SamplesPerSection int

	shadow   *LinearPath
	key      cacheKey
	rebuilds int
}

type cacheKey struct {
	rev     uint64
	nodeRev uint64
	samples int
}

func NewApproximatedBezierPath(id string, looping bool) *ApproximatedBezierPath {
	p := &ApproximatedBezierPath{SamplesPerSection: DefaultSamplesPerSection}
	p.init(p, id, looping)
	return p
}

func (p *ApproximatedBezierPath) Kind() Kind { return KindApproximated }

func (p *ApproximatedBezierPath) perSection() int {
	if p.SamplesPerSection < 1 {
		return DefaultSamplesPerSection
	}
	return p.SamplesPerSection
}

func (p *ApproximatedBezierPath) currentKey() cacheKey {
	k := cacheKey{rev: p.rev, samples: p.perSection()}
	for _, e := range p.entries {
		k.nodeRev += e.Node.rev
	}
	return k
}

// CacheNodeCount is the number of synthetic nodes the cache holds for the
// current node list.
func (p *ApproximatedBezierPath) CacheNodeCount() int {
	if len(p.entries) <= 1 {
		return len(p.entries)
	}
	return p.SectionCount()*p.perSection() + len(p.entries)
}

// Rebuilds counts cache rebuilds since creation.
func (p *ApproximatedBezierPath) Rebuilds() int { return p.rebuilds }

// Refresh rebuilds the cache unconditionally.
func (p *ApproximatedBezierPath) Refresh() { p.rebuild() }

func (p *ApproximatedBezierPath) linear() *LinearPath {
	if p.shadow == nil || p.key != p.currentKey() || p.shadow.NodeCount() != p.CacheNodeCount() {
		p.rebuild()
	}
	return p.shadow
}

func (p *ApproximatedBezierPath) rebuild() {
	p.rebuilds++
	p.key = p.currentKey()
	shadow := NewLinearPath(p.id+"~approx", p.looping)
	add := func(t float64) {
		pos := p.bezierAt(t)
		n := NewNode(fmt.Sprintf("%s~%d", p.id, shadow.NodeCount()), pos.Point)
		// Cannot fail: the node is fresh and the index is the list end.
		_ = shadow.AddNode(n, pos.Up, pos.Width)
	}
	sec, per := p.SectionCount(), p.perSection()
	if len(p.entries) == 1 {
		add(0)
	}
	for i := 0; i < sec; i++ {
		for k := 0; k <= per; k++ {
			add(p.SectionT(i, float64(k)/float64(per+1)))
		}
	}
	if sec > 0 && !p.looping {
		add(1)
	}
	p.shadow = shadow
}

// adopt rewrites a cache position so it belongs to this path.
func (p *ApproximatedBezierPath) adopt(pos Position) Position {
	if !pos.Valid() {
		return pos
	}
	pos.Path = p
	pos.Node = p.nodeAt(pos.T)
	return pos
}

func (p *ApproximatedBezierPath) Point(t float64) Position {
	return p.adopt(p.linear().Point(p.ClampT(t)))
}

func (p *ApproximatedBezierPath) DistanceBetween(fromT, toT float64) float64 {
	return p.linear().DistanceBetween(p.ClampT(fromT), p.ClampT(toT))
}

func (p *ApproximatedBezierPath) Travel(fromT, toT, distance float64) Position {
	return p.adopt(p.linear().Travel(p.ClampT(fromT), p.ClampT(toT), distance))
}

func (p *ApproximatedBezierPath) ClosestPoint(q vector.Vec3) (Position, float64) {
	pos, d := p.linear().ClosestPoint(q)
	return p.adopt(pos), d
}

func (p *ApproximatedBezierPath) ClosestPointToRay(r vector.Ray) (Position, float64) {
	pos, d := p.linear().ClosestPointToRay(r)
	return p.adopt(pos), d
}
