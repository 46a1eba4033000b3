/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import (
	"math"

	"pathnet/internal/vector"
)

const (
	// DefaultSamples is the number of samples used to integrate a full
	// traversal of a BezierPath.
	DefaultSamples = 16
	forwardEpsilon = 1e-4
)

// BezierPath joins its nodes with cubic Bézier segments shaped by each
// node's out tangent and the next node's in tangent. Lengths and nearest
// points are sampled, so results are approximate.
type BezierPath struct {
	Base
	// Samples controls integration accuracy per full traversal.
	Samples int
}

func NewBezierPath(id string, looping bool) *BezierPath {
	p := &BezierPath{Samples: DefaultSamples}
	p.init(p, id, looping)
	return p
}

func (p *BezierPath) Kind() Kind { return KindBezier }

func (p *BezierPath) Point(t float64) Position { return p.bezierAt(p.ClampT(t)) }

func (p *BezierPath) samples() int {
	if p.Samples < 1 {
		return DefaultSamples
	}
	return p.Samples
}

// steps is the number of integration steps over a span of t.
func (p *BezierPath) steps(span float64) int {
	return max(1, int(math.Ceil(math.Abs(span)*float64(p.samples()))))
}

func (p *BezierPath) DistanceBetween(fromT, toT float64) float64 {
	fromT, toT = p.ClampT(fromT), p.ClampT(toT)
	if fromT > toT {
		fromT, toT = toT, fromT
	}
	if p.SectionCount() == 0 {
		return 0
	}
	n := p.steps(toT - fromT)
	prev := p.bezierPoint(fromT)
	var d float64
	for k := 1; k <= n; k++ {
		cur := p.bezierPoint(vector.Lerp(fromT, toT, float64(k)/float64(n)))
		d += cur.Dist(prev)
		prev = cur
	}
	return d
}

// Travel integrates along the samples between fromT and toT and
// interpolates within the sample that exhausts the distance.
func (p *BezierPath) Travel(fromT, toT, distance float64) Position {
	fromT, toT = p.ClampT(fromT), p.ClampT(toT)
	if p.SectionCount() == 0 || distance <= 0 {
		return p.bezierAt(fromT)
	}
	n := p.steps(toT - fromT)
	prevT, prev := fromT, p.bezierPoint(fromT)
	var acc float64
	for k := 1; k <= n; k++ {
		t := vector.Lerp(fromT, toT, float64(k)/float64(n))
		cur := p.bezierPoint(t)
		seg := cur.Dist(prev)
		if acc+seg > distance+travelEpsilon {
			return p.bezierAt(vector.Lerp(prevT, t, vector.Clamp01((distance-acc)/seg)))
		}
		acc += seg
		prevT, prev = t, cur
	}
	return p.bezierAt(toT)
}

func (p *BezierPath) ClosestPoint(q vector.Vec3) (Position, float64) {
	if len(p.entries) == 0 {
		return Position{}, math.Inf(1)
	}
	total := p.samples() * max(1, p.SectionCount())
	best, bestT := math.Inf(1), 0.0
	for k := 0; k <= total; k++ {
		t := float64(k) / float64(total)
		if d := p.bezierPoint(t).Dist2(q); d < best {
			best, bestT = d, t
		}
	}
	pos := p.bezierAt(bestT)
	return pos, pos.Point.Dist2(q)
}

// ClosestPointToRay tests the ray against the sampled polyline.
func (p *BezierPath) ClosestPointToRay(r vector.Ray) (Position, float64) {
	switch len(p.entries) {
	case 0:
		return Position{}, math.Inf(1)
	case 1:
		pos := p.single(0)
		return pos, rayPointDist2(r, pos.Point)
	}
	total := p.samples() * p.SectionCount()
	best, bestT := math.Inf(1), 0.0
	prevT, prev := 0.0, p.bezierPoint(0)
	for k := 1; k <= total; k++ {
		t := float64(k) / float64(total)
		cur := p.bezierPoint(t)
		d, lt, ok := vector.RaySegment(r, prev, cur)
		if !ok {
			d, lt = r.Origin.Dist2(prev), 0
		}
		if d < best {
			best, bestT = d, vector.Lerp(prevT, t, lt)
		}
		prevT, prev = t, cur
	}
	return p.bezierAt(bestT), best
}

// segment returns the cubic for section i.
func (b *Base) segment(i int) vector.CubicBez {
	a := b.entries[i]
	e := b.entries[(i+1)%len(b.entries)]
	return vector.CubicBez{
		P0: a.Node.pos,
		P1: a.Node.pos.Add(a.OutTangent),
		P2: e.Node.pos.Add(e.InTangent),
		P3: e.Node.pos,
	}
}

// bezierPoint evaluates only the location at t.
func (b *Base) bezierPoint(t float64) vector.Vec3 {
	switch len(b.entries) {
	case 0:
		return vector.Zero
	case 1:
		return b.nodePos(0)
	}
	i, _, local := b.NodeSection(t)
	return b.segment(i).Eval(local)
}

// bezierAt evaluates the full position at t. Forward is a forward
// difference, or the end tangent at the end of a section.
func (b *Base) bezierAt(t float64) Position {
	switch len(b.entries) {
	case 0:
		return Position{}
	case 1:
		return b.single(t)
	}
	i, j, local := b.NodeSection(t)
	c := b.segment(i)
	pt := c.Eval(local)
	var fwd vector.Vec3
	if local+forwardEpsilon < 1 {
		fwd = c.Eval(local + forwardEpsilon).Sub(pt).Normalize()
	}
	if fwd.IsZero() {
		fwd = c.EndTangent().Normalize()
	}
	if fwd.IsZero() {
		fwd = vector.Forward
	}
	up, width := blend(b.entries[i], b.entries[j], local)
	return Position{
		Path:    b.self,
		T:       t,
		Node:    b.nodeAt(t),
		Point:   pt,
		Forward: fwd,
		Up:      up,
		Width:   width,
	}
}
