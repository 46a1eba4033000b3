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
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"

	"pathnet/internal/vector"
)

func TestBezierStraightMatchesLinear(t *testing.T) {
	p := NewBezierPath("b", false)
	build(t, p, vector.V(0, 0, 0), vector.V(3, 0, 0))
	if d := p.DistanceBetween(0, 1); math.Abs(d-3) > 1e-9 {
		t.Fatalf("straight length = %v, want 3", d)
	}
	diff(t, vector.V(1, 0, 0), p.Point(0.5).Forward, approx)
	diff(t, vector.V(1, 0, 0), p.Point(1).Forward, approx)
}

func TestBezierEndpoints(t *testing.T) {
	p := NewBezierPath("b", false)
	nodes := arc(t, p)
	start, end := p.Point(0), p.Point(1)
	diff(t, nodes[0].Position(), start.Point)
	diff(t, nodes[1].Position(), end.Point)
	if start.Node != nodes[0] || end.Node != nodes[1] || start.Width != 1 || end.Width != 2 {
		t.Fatalf("endpoint metadata: %+v / %+v", start, end)
	}
	diff(t, vector.V(0, 0, 1), start.Forward, cmpopts.EquateApprox(0, 1e-3))
	diff(t, vector.V(1, 0, 0), end.Forward, approx)
}

func TestBezierLengthIsSampled(t *testing.T) {
	coarse := NewBezierPath("coarse", false)
	arc(t, coarse)
	fine := NewBezierPath("fine", false)
	fine.Samples = 4000
	arc(t, fine)

	dc, df := coarse.DistanceBetween(0, 1), fine.DistanceBetween(0, 1)
	if dc <= math.Sqrt2 || df <= math.Sqrt2 {
		t.Fatalf("arc shorter than its chord: %v, %v", dc, df)
	}
	if math.Abs(dc-df) > 0.01 {
		t.Fatalf("16-sample length %v too far from %v", dc, df)
	}
	if dc > df+1e-9 {
		t.Fatalf("coarse sampling %v exceeds fine %v", dc, df)
	}
}

func TestBezierTravelHalfway(t *testing.T) {
	p := NewBezierPath("b", false)
	arc(t, p)
	total := p.DistanceBetween(0, 1)
	pos := p.Travel(0, 1, total/2)
	if got := p.DistanceBetween(0, pos.T); math.Abs(got-total/2) > 0.01 {
		t.Fatalf("travelled %v, want about %v", got, total/2)
	}
	back := p.Travel(1, 0, total/2)
	if got := p.DistanceBetween(back.T, 1); math.Abs(got-total/2) > 0.01 {
		t.Fatalf("travelled back %v, want about %v", got, total/2)
	}
}

func TestBezierClosestPoint(t *testing.T) {
	p := NewBezierPath("b", false)
	arc(t, p)
	q := vector.V(1, 0, 0)
	pos, d := p.ClosestPoint(q)
	if d != pos.Point.Dist2(q) {
		t.Fatalf("distance %v does not match position %v", d, pos.Point)
	}
	total := p.Samples * p.SectionCount()
	for k := 0; k <= total; k++ {
		if other := p.Point(float64(k) / float64(total)).Point.Dist2(q); other < d {
			t.Fatalf("sample %d is closer: %v < %v", k, other, d)
		}
	}
	for k := 0; k <= 1000; k++ {
		if other := p.Point(float64(k) / 1000).Point.Dist2(q); other < d-0.01 {
			t.Fatalf("t=%v beats sampled answer by more than the resolution: %v < %v", float64(k)/1000, other, d)
		}
	}
}

func TestBezierClosestPointToRay(t *testing.T) {
	p := NewBezierPath("b", false)
	nodes := arc(t, p)
	end := nodes[1].Position()
	pos, d := p.ClosestPointToRay(vector.Ray{Origin: end.Add(vector.V(0, 5, 0)), Direction: vector.V(0, -1, 0)})
	if d > 1e-12 {
		t.Fatalf("ray through end node missed by %v", d)
	}
	diff(t, end, pos.Point, cmpopts.EquateApprox(0, 1e-9))
}
