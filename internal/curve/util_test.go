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

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pathnet/internal/vector"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

var approx = cmpopts.EquateApprox(0, 1e-9)

// build creates nodes at pts and adds them to p with widths 1, 2, 3, ...
func build(t *testing.T, p Path, pts ...vector.Vec3) []*Node {
	t.Helper()
	nodes := make([]*Node, len(pts))
	for i, pt := range pts {
		nodes[i] = NewNode(string(rune('a'+i)), pt)
		if err := p.base().AddNode(nodes[i], vector.Zero, float64(i+1)); err != nil {
			t.Fatalf("add node %d: %v", i, err)
		}
	}
	return nodes
}

// lShape is a linear path with sections of length 1 and 2.
func lShape(t *testing.T, looping bool) (*LinearPath, []*Node) {
	t.Helper()
	p := NewLinearPath("l", looping)
	return p, build(t, p, vector.V(0, 0, 0), vector.V(1, 0, 0), vector.V(1, 0, 2))
}

// arc is a two-node cubic that bends from +Z to +X.
func arc(t *testing.T, p Path) []*Node {
	t.Helper()
	nodes := build(t, p, vector.V(0, 0, 0), vector.V(1, 0, 1))
	b := p.base()
	if err := b.SetTangents(0, vector.Zero, vector.V(0, 0, 0.55)); err != nil {
		t.Fatal(err)
	}
	if err := b.SetTangents(1, vector.V(-0.55, 0, 0), vector.Zero); err != nil {
		t.Fatal(err)
	}
	return nodes
}
