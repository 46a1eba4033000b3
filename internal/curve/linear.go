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

// travelEpsilon absorbs rounding between a distance measured by
// DistanceBetween and the same distance consumed by Travel.
const travelEpsilon = 1e-9

// LinearPath joins its nodes with straight segments.
type LinearPath struct {
	Base
}

func NewLinearPath(id string, looping bool) *LinearPath {
	p := &LinearPath{}
	p.init(p, id, looping)
	return p
}

func (p *LinearPath) Kind() Kind { return KindLinear }

func (p *LinearPath) Point(t float64) Position { return p.pointAt(p.ClampT(t)) }

func (p *LinearPath) pointAt(t float64) Position {
	switch len(p.entries) {
	case 0:
		return Position{}
	case 1:
		return p.single(t)
	}
	i, j, local := p.NodeSection(t)
	up, width := blend(p.entries[i], p.entries[j], local)
	return Position{
		Path:    p.self,
		T:       t,
		Node:    p.nodeAt(t),
		Point:   p.nodePos(i).Lerp(p.nodePos(j), local),
		Forward: p.sectionDir(i),
		Up:      up,
		Width:   width,
	}
}

func (p *LinearPath) sectionLength(i int) float64 {
	return p.nodePos(i).Dist(p.nodePos((i + 1) % len(p.entries)))
}

// sectionDir is the unit direction of section i. Zero-length sections
// borrow the direction of the nearest non-degenerate section.
func (p *LinearPath) sectionDir(i int) vector.Vec3 {
	sec := p.SectionCount()
	for k := 0; k < sec; k++ {
		for _, s := range []int{i + k, i - k} {
			if s < 0 || s >= sec {
				continue
			}
			d := p.nodePos((s + 1) % len(p.entries)).Sub(p.nodePos(s))
			if !d.IsZero() {
				return d.Normalize()
			}
		}
	}
	return vector.Forward
}

func (p *LinearPath) DistanceBetween(fromT, toT float64) float64 {
	fromT, toT = p.ClampT(fromT), p.ClampT(toT)
	if fromT > toT {
		fromT, toT = toT, fromT
	}
	sec := p.SectionCount()
	if sec == 0 {
		return 0
	}
	s0, s1 := fromT*float64(sec), toT*float64(sec)
	var d float64
	for i := int(s0); i < sec && float64(i) < s1; i++ {
		lo := math.Max(s0, float64(i))
		hi := math.Min(s1, float64(i+1))
		if hi > lo {
			d += p.sectionLength(i) * (hi - lo)
		}
	}
	return d
}

// Travel walks section by section in section space and stops early once
// the distance budget runs out. It never passes toT.
func (p *LinearPath) Travel(fromT, toT, distance float64) Position {
	fromT, toT = p.ClampT(fromT), p.ClampT(toT)
	sec := p.SectionCount()
	if sec == 0 || distance <= 0 {
		return p.pointAt(fromT)
	}
	s, target := fromT*float64(sec), toT*float64(sec)
	forward := target >= s
	remaining := distance
	for s != target {
		var i int
		var boundary float64
		if forward {
			i = min(int(math.Floor(s)), sec-1)
			boundary = math.Min(float64(i+1), target)
		} else {
			i = max(int(math.Ceil(s))-1, 0)
			boundary = math.Max(float64(i), target)
		}
		l := p.sectionLength(i)
		span := math.Abs(boundary-s) * l
		if remaining < span-travelEpsilon {
			if forward {
				s += remaining / l
			} else {
				s -= remaining / l
			}
			return p.pointAt(s / float64(sec))
		}
		remaining -= span
		s = boundary
	}
	return p.pointAt(toT)
}

func (p *LinearPath) ClosestPoint(q vector.Vec3) (Position, float64) {
	switch len(p.entries) {
	case 0:
		return Position{}, math.Inf(1)
	case 1:
		pos := p.single(0)
		return pos, pos.Point.Dist2(q)
	}
	best, bestT := math.Inf(1), 0.0
	for i := 0; i < p.SectionCount(); i++ {
		d, lt := vector.ClosestOnSegment(p.nodePos(i), p.nodePos((i+1)%len(p.entries)), q)
		if d < best {
			best, bestT = d, p.SectionT(i, lt)
		}
	}
	pos := p.pointAt(bestT)
	return pos, pos.Point.Dist2(q)
}

func (p *LinearPath) ClosestPointToRay(r vector.Ray) (Position, float64) {
	switch len(p.entries) {
	case 0:
		return Position{}, math.Inf(1)
	case 1:
		pos := p.single(0)
		return pos, rayPointDist2(r, pos.Point)
	}
	best, bestT := math.Inf(1), 0.0
	for i := 0; i < p.SectionCount(); i++ {
		a, b := p.nodePos(i), p.nodePos((i+1)%len(p.entries))
		d, lt, ok := vector.RaySegment(r, a, b)
		if !ok {
			d, lt = r.Origin.Dist2(a), 0
		}
		if d < best {
			best, bestT = d, p.SectionT(i, lt)
		}
	}
	return p.pointAt(bestT), best
}

// rayPointDist2 is the squared distance from q to the nearest point of r.
func rayPointDist2(r vector.Ray, q vector.Vec3) float64 {
	dd := r.Direction.Hypot2()
	if dd == 0 {
		return r.Origin.Dist2(q)
	}
	s := math.Max(0, q.Sub(r.Origin).Dot(r.Direction)/dd)
	return r.At(s).Dist2(q)
}
