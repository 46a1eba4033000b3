/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import (
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"

	"pathnet/internal/vector"
)

func TestApproximatedMatchesBezier(t *testing.T) {
	bez := NewBezierPath("b", false)
	arc(t, bez)
	apx := NewApproximatedBezierPath("a", false)
	arc(t, apx)
	tol := cmpopts.EquateApprox(0, 0.01)
	for k := 0; k <= 100; k++ {
		tt := float64(k) / 100
		diff(t, bez.Point(tt).Point, apx.Point(tt).Point, tol)
	}
	if d, a := bez.DistanceBetween(0, 1), apx.DistanceBetween(0, 1); d-a > 0.01 || a-d > 0.01 {
		t.Fatalf("lengths differ: bezier %v, approximated %v", d, a)
	}
}

func TestApproximatedPositionsBelongToPath(t *testing.T) {
	apx := NewApproximatedBezierPath("a", false)
	nodes := arc(t, apx)
	for _, tt := range []float64{0, 0.5, 1} {
		if pos := apx.Point(tt); pos.Path != Path(apx) {
			t.Fatalf("Point(%v) owned by %v", tt, pos.Path.ID())
		}
	}
	if apx.Point(0).Node != nodes[0] || apx.Point(1).Node != nodes[1] || apx.Point(0.5).Node != nil {
		t.Fatalf("node flags do not follow authored nodes")
	}
	diff(t, nodes[1].Position(), apx.Point(1).Point, approx)
	pos, _ := apx.ClosestPoint(vector.V(5, 0, 1))
	if pos.Path != Path(apx) || pos.Node != nodes[1] {
		t.Fatalf("closest point = %+v", pos)
	}
}

func TestApproximatedCacheSize(t *testing.T) {
	open := NewApproximatedBezierPath("open", false)
	arc(t, open)
	if got := open.CacheNodeCount(); got != 1*DefaultSamplesPerSection+2 {
		t.Fatalf("open cache size = %d", got)
	}
	if open.linear().NodeCount() != open.CacheNodeCount() {
		t.Fatalf("built %d cache nodes, want %d", open.linear().NodeCount(), open.CacheNodeCount())
	}

	loop := NewApproximatedBezierPath("loop", true)
	loop.SamplesPerSection = 4
	build(t, loop, vector.V(0, 0, 0), vector.V(1, 0, 0), vector.V(1, 0, 1))
	if got := loop.linear().NodeCount(); got != 3*4+3 {
		t.Fatalf("looping cache size = %d, want 15", got)
	}
}

func TestApproximatedCacheInvalidation(t *testing.T) {
	apx := NewApproximatedBezierPath("a", false)
	nodes := arc(t, apx)
	if apx.Rebuilds() != 0 {
		t.Fatalf("cache built eagerly")
	}
	apx.Point(0.5)
	apx.Point(0.7)
	if apx.Rebuilds() != 1 {
		t.Fatalf("rebuilds = %d after two queries, want 1", apx.Rebuilds())
	}

	nodes[1].SetPosition(vector.V(2, 0, 2))
	diff(t, vector.V(2, 0, 2), apx.Point(1).Point, approx)
	if apx.Rebuilds() != 2 {
		t.Fatalf("moving a node did not rebuild the cache")
	}

	if err := apx.SetWidth(0, 5); err != nil {
		t.Fatal(err)
	}
	if w := apx.Point(0).Width; w != 5 {
		t.Fatalf("width after edit = %v", w)
	}
	if err := apx.AddNode(NewNode("c", vector.V(3, 0, 2)), vector.Zero, 1); err != nil {
		t.Fatal(err)
	}
	if apx.linear().NodeCount() != apx.CacheNodeCount() {
		t.Fatalf("cache not resized after add")
	}

	before := apx.Rebuilds()
	apx.Refresh()
	if apx.Rebuilds() != before+1 {
		t.Fatalf("Refresh did not rebuild")
	}
}
