/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// parallelEpsilon is the determinant threshold under which a ray and a
// segment are treated as parallel.
const parallelEpsilon = 1e-12

// ClosestOnSegment projects p onto the segment a-b. It returns the squared
// distance from p to the projection and the clamped segment parameter.
func ClosestOnSegment(a, b, p Vec3) (distSq, t float64) {
	d := b.Sub(a)
	dotp := d.Dot(p.Sub(a))
	dSquared := d.Dot(d)
	switch {
	case dotp <= 0:
		return p.Dist2(a), 0
	case dotp >= dSquared:
		return p.Dist2(b), 1
	default:
		t = dotp / dSquared
		return p.Dist2(a.Lerp(b, t)), t
	}
}

// RaySegment finds the closest pair of points between ray r and the segment
// a-b. It returns the squared distance between them and the segment
// parameter. ok is false when the ray is parallel to the segment, the
// segment is degenerate, or the ray has no direction.
func RaySegment(r Ray, a, b Vec3) (distSq, t float64, ok bool) {
	d1 := r.Direction
	d2 := b.Sub(a)
	w := r.Origin.Sub(a)

	aa := d1.Dot(d1)
	bb := d1.Dot(d2)
	cc := d2.Dot(d2)
	dd := d1.Dot(w)
	ee := d2.Dot(w)

	denom := aa*cc - bb*bb
	if aa == 0 || cc == 0 || math.Abs(denom) <= parallelEpsilon*aa*cc {
		return 0, 0, false
	}

	t = Clamp01((aa*ee - bb*dd) / denom)
	// re-solve the ray parameter for the clamped segment point
	s := (bb*t - dd) / aa
	if s < 0 {
		s = 0
		_, t = ClosestOnSegment(a, b, r.Origin)
	}
	return r.At(s).Dist2(a.Lerp(b, t)), t, true
}

// CubicBez is a cubic Bézier segment in 3D.
type CubicBez struct {
	P0, P1, P2, P3 Vec3
}

// Eval evaluates the curve at t.
func (c CubicBez) Eval(t float64) Vec3 {
	mt := 1.0 - t
	a := c.P0.Mul(mt * mt * mt)
	b := c.P1.Mul(mt * mt * 3.0)
	cc := c.P2.Mul(mt * 3.0)
	d := c.P3
	return a.Add(b.Add(cc.Add(d.Mul(t)).Mul(t)).Mul(t))
}

// EndTangent returns the direction of the curve at t=1.
func (c CubicBez) EndTangent() Vec3 {
	if d := c.P3.Sub(c.P2); !d.IsZero() {
		return d
	}
	if d := c.P3.Sub(c.P1); !d.IsZero() {
		return d
	}
	return c.P3.Sub(c.P0)
}
