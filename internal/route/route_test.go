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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pathnet/internal/curve"
	plog "pathnet/internal/log"
	"pathnet/internal/vector"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func finder() *Finder { return NewFinder(Options{Strict: true, Logger: plog.Nop()}) }

func linear(t *testing.T, id string, looping bool, nodes ...*curve.Node) *curve.LinearPath {
	t.Helper()
	p := curve.NewLinearPath(id, looping)
	for _, n := range nodes {
		if err := p.AddNode(n, vector.Zero, 1); err != nil {
			t.Fatalf("%s: %v", id, err)
		}
	}
	return p
}

type fork struct {
	shared     *curve.Node
	a, b, c, d *curve.LinearPath
}

// newFork builds three curves of length 1, 2 and 3 leaving a shared node,
// plus a detour of length 14 joining the far ends of the first and third.
func newFork(t *testing.T) fork {
	s := curve.NewNode("s", vector.V(0, 0, 0))
	a1 := curve.NewNode("a1", vector.V(1, 0, 0))
	b1 := curve.NewNode("b1", vector.V(0, 0, 2))
	c1 := curve.NewNode("c1", vector.V(-3, 0, 0))
	return fork{
		shared: s,
		a:      linear(t, "a", false, s, a1),
		b:      linear(t, "b", false, s, b1),
		c:      linear(t, "c", false, s, c1),
		d: linear(t, "d", false, a1,
			curve.NewNode("d1", vector.V(1, 0, -5)),
			curve.NewNode("d2", vector.V(-3, 0, -5)),
			c1),
	}
}

func TestFindRouteForkTakesShortest(t *testing.T) {
	f := newFork(t)
	r, err := finder().FindRoute(f.a.Point(1), f.c.Point(1))
	if err != nil {
		t.Fatal(err)
	}
	if r == nil {
		t.Fatalf("no route found")
	}
	if math.Abs(r.Distance-4) > 1e-9 {
		t.Fatalf("distance = %v, want 4", r.Distance)
	}
	if len(r.Waypoints) != 1 || r.Waypoints[0].Node != f.shared || r.Waypoints[0].Path != curve.Path(f.c) {
		t.Fatalf("waypoints = %+v", r.Waypoints)
	}
	ps := r.Paths()
	if len(ps) != 2 || ps[0] != curve.Path(f.a) || ps[1] != curve.Path(f.c) {
		t.Fatalf("paths = %v", ps)
	}
}

func TestFindRouteUsesDetourWhenShortcutInactive(t *testing.T) {
	f := newFork(t)
	f.a.SetActive(false)
	start, _ := f.d.ClosestPoint(vector.V(1, 0, 0))
	r, err := finder().FindRoute(start, f.c.Point(1))
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	if math.Abs(r.Distance-14) > 1e-9 {
		t.Fatalf("distance = %v, want 14", r.Distance)
	}
}

func TestFindRouteSameCurve(t *testing.T) {
	f := newFork(t)
	r, err := finder().FindRoute(f.c.Point(0.25), f.c.Point(0.75))
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	if len(r.Waypoints) != 0 || math.Abs(r.Distance-1.5) > 1e-9 {
		t.Fatalf("same-curve route = %+v", r)
	}
}

func TestFindRouteUnreachable(t *testing.T) {
	f := newFork(t)
	island := linear(t, "island", false,
		curve.NewNode("i0", vector.V(50, 0, 0)),
		curve.NewNode("i1", vector.V(60, 0, 0)))
	r, err := finder().FindRoute(f.a.Point(0), island.Point(0.5))
	if err != nil || r != nil {
		t.Fatalf("unreachable: route = %v, err = %v", r, err)
	}

	// c1 is only on c and the detour; with both off it cannot be reached.
	f.c.SetActive(false)
	f.d.SetActive(false)
	r, err = finder().FindRoute(f.a.Point(0), f.c.Point(1))
	if err != nil || r != nil {
		t.Fatalf("inactive end: route = %v, err = %v", r, err)
	}
}

func TestFindRouteInvalidEndpoints(t *testing.T) {
	f := newFork(t)
	empty := curve.NewLinearPath("empty", false)
	for _, c := range []struct{ start, end curve.Position }{
		{curve.Position{}, f.a.Point(0)},
		{f.a.Point(0), curve.Position{}},
		{f.a.Point(0), empty.Point(0.5)},
	} {
		if r, err := finder().FindRoute(c.start, c.end); r != nil || err != nil {
			t.Fatalf("invalid endpoints gave %v, %v", r, err)
		}
	}
}

func TestFindRouteEndAtNodeOnAnotherCurve(t *testing.T) {
	f := newFork(t)
	// b.Point(0) is the shared node, reached from a without entering b.
	r, err := finder().FindRoute(f.a.Point(1), f.b.Point(0))
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	if math.Abs(r.Distance-1) > 1e-9 {
		t.Fatalf("distance = %v, want 1", r.Distance)
	}
	if r.End.Path != curve.Path(f.a) || r.End.Node != f.shared {
		t.Fatalf("end not expressed on the last curve: %+v", r.End)
	}
}

func TestFindRouteAcrossLoopSeam(t *testing.T) {
	loop := linear(t, "loop", true,
		curve.NewNode("p0", vector.V(0, 0, 0)),
		curve.NewNode("p1", vector.V(10, 0, 0)),
		curve.NewNode("p2", vector.V(10, 0, 10)),
		curve.NewNode("p3", vector.V(0, 0, 10)))
	start, end := loop.Point(0.9), loop.Point(0.1)
	r, err := finder().FindRoute(start, end)
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	if math.Abs(r.Distance-8) > 1e-9 {
		t.Fatalf("distance = %v, want 8 across the seam", r.Distance)
	}
	diff(t, vector.V(0, 0, 2), r.PointAtDistance(2).Point, approx)
	diff(t, end.Point, r.PointAtDistance(r.Distance).Point, approx)
}

func TestFindRouteThroughTeleport(t *testing.T) {
	a1 := curve.NewNode("a1", vector.V(1, 0, 0))
	b0 := curve.NewNode("b0", vector.V(100, 0, 0))
	a := linear(t, "a", false, curve.NewNode("a0", vector.V(0, 0, 0)), a1)
	b := linear(t, "b", false, b0, curve.NewNode("b1", vector.V(101, 0, 0)))
	warp := curve.NewTeleportPath("warp")
	for _, n := range []*curve.Node{a1, b0} {
		if err := warp.AddNode(n, vector.Zero, 0); err != nil {
			t.Fatal(err)
		}
	}
	r, err := finder().FindRoute(a.Point(0), b.Point(1))
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	if math.Abs(r.Distance-2) > 1e-9 {
		t.Fatalf("distance = %v, want 2", r.Distance)
	}
	diff(t, vector.V(100.5, 0, 0), r.PointAtDistance(1.5).Point, approx)
}

func TestFindRouteEndsPastTeleport(t *testing.T) {
	a := curve.NewNode("a", vector.V(0, 0, 0))
	b := curve.NewNode("b", vector.V(100, 0, 0))
	in := linear(t, "in", false, curve.NewNode("x", vector.V(-1, 0, 0)), a)
	out := linear(t, "out", false, b, curve.NewNode("y", vector.V(101, 0, 0)))
	warp := curve.NewTeleportPath("warp")
	for _, n := range []*curve.Node{a, b} {
		if err := warp.AddNode(n, vector.Zero, 0); err != nil {
			t.Fatal(err)
		}
	}
	end := out.Point(0)
	r, err := finder().FindRoute(in.Point(0), end)
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}
	if math.Abs(r.Distance-1) > 1e-9 {
		t.Fatalf("distance = %v, want 1", r.Distance)
	}
	if r.End.Path != curve.Path(out) || r.End.Node != b {
		t.Fatalf("route ends on %s at %v, want out at b", r.End.Path.ID(), r.End.Point)
	}
	diff(t, end.Point, r.End.Point, approx)
	diff(t, end.Point, r.PointAtDistance(r.Distance).Point, approx)
}

func TestFindRouteInactiveEndCurve(t *testing.T) {
	f := newFork(t)
	// The shared node is still reachable through a, but b itself is off.
	f.b.SetActive(false)
	if r, err := finder().FindRoute(f.a.Point(1), f.b.Point(0)); r != nil || err != nil {
		t.Fatalf("inactive end curve: route = %v, err = %v", r, err)
	}
}

func TestPointAtDistanceReplay(t *testing.T) {
	f := newFork(t)
	start, end := f.a.Point(1), f.c.Point(1)
	r, err := finder().FindRoute(start, end)
	if err != nil || r == nil {
		t.Fatalf("route = %v, err = %v", r, err)
	}

	diff(t, start.Point, r.PointAtDistance(0).Point)
	diff(t, vector.V(0.5, 0, 0), r.PointAtDistance(0.5).Point, approx)
	diff(t, vector.V(-1.5, 0, 0), r.PointAtDistance(2.5).Point, approx)

	const steps = 40
	prev := r.PointAtDistance(0)
	for k := 1; k <= steps; k++ {
		pos := r.PointAtDistance(r.Distance * float64(k) / steps)
		if step := pos.Point.Dist(prev.Point); math.Abs(step-r.Distance/steps) > 1e-9 {
			t.Fatalf("step %d moved %v, want %v", k, step, r.Distance/steps)
		}
		prev = pos
	}
	if prev.Path != end.Path || prev.T != end.T {
		t.Fatalf("replay ended at %s@%v, want %s@%v", prev.Path.ID(), prev.T, end.Path.ID(), end.T)
	}
	diff(t, end.Point, prev.Point)

	if pos := r.PointAtDistance(r.Distance + 10); pos.T != end.T {
		t.Fatalf("overshoot left the end: %v", pos.T)
	}
	var nilRoute *Route
	if nilRoute.PointAtDistance(1).Valid() {
		t.Fatalf("nil route produced a position")
	}
}

func TestReachable(t *testing.T) {
	f := newFork(t)
	linear(t, "island", false, curve.NewNode("i0", vector.V(50, 0, 0)), curve.NewNode("i1", vector.V(60, 0, 0)))
	if got := len(Reachable(f.a)); got != 4 {
		t.Fatalf("reachable = %d, want 4", got)
	}
	f.b.SetActive(false)
	for _, p := range Reachable(f.a) {
		if p == curve.Path(f.b) {
			t.Fatalf("inactive curve listed")
		}
	}
	if Reachable(f.b) != nil {
		t.Fatalf("inactive start listed curves")
	}
}

func TestClosestPointAcrossNetwork(t *testing.T) {
	f := newFork(t)
	pos, d := finder().ClosestPoint(f.a, vector.V(0, 0, 2.5))
	if pos.Path != curve.Path(f.b) || math.Abs(d-0.25) > 1e-12 {
		t.Fatalf("closest = %s d=%v", pos.Path.ID(), d)
	}
	diff(t, vector.V(0, 0, 2), pos.Point, approx)

	pos, d = finder().ClosestPointToRay(f.a, vector.Ray{Origin: vector.V(-2, 5, 0), Direction: vector.V(0, -1, 0)})
	if pos.Path != curve.Path(f.c) || d > 1e-12 {
		t.Fatalf("ray closest = %s d=%v", pos.Path.ID(), d)
	}

	f.b.SetActive(false)
	pos, _ = finder().ClosestPoint(f.a, vector.V(0, 0, 2.5))
	if pos.Path == curve.Path(f.b) {
		t.Fatalf("inactive curve answered")
	}
	if pos, d := finder().ClosestPoint(f.b, vector.Zero); pos.Valid() || !math.IsInf(d, 1) {
		t.Fatalf("inactive start answered: %v %v", pos, d)
	}
}

func TestLegsCoverRoute(t *testing.T) {
	f := newFork(t)
	r, err := finder().FindRoute(f.a.Point(1), f.c.Point(1))
	if err != nil || r == nil {
		t.Fatalf("route: %v %v", r, err)
	}
	legs := r.Legs()
	if len(legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(legs))
	}
	if legs[0].Path != curve.Path(f.a) || legs[1].Path != curve.Path(f.c) {
		t.Fatalf("legs use the wrong curves")
	}
	diff(t, []float64{1, 0, 0, 1}, []float64{legs[0].From, legs[0].To, legs[1].From, legs[1].To}, approx)
	var sum float64
	for _, l := range legs {
		sum += l.Length()
	}
	if math.Abs(sum-r.Distance) > 1e-9 {
		t.Fatalf("legs sum to %v, route distance %v", sum, r.Distance)
	}
	var nilRoute *Route
	if nilRoute.Legs() != nil {
		t.Fatalf("nil route should have no legs")
	}
}
