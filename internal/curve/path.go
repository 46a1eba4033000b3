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
	"math"

	"pathnet/internal/vector"
)

// nodeEpsilon is the section-space tolerance for "t lies on a node".
const nodeEpsilon = 1e-9

// Path is the contract shared by every curve kind. Queries clamp t into
// [0,1] first (wrapping instead when the path loops).
type Path interface {
	// Point samples the path at t.
	Point(t float64) Position
	// DistanceBetween is the arc length between two parametric
	// coordinates, independent of argument order.
	DistanceBetween(fromT, toT float64) float64
	// Travel moves from fromT towards toT by at most distance.
	Travel(fromT, toT, distance float64) Position
	// ClosestPoint returns the position nearest to p and its squared
	// distance.
	ClosestPoint(p vector.Vec3) (Position, float64)
	// ClosestPointToRay returns the position nearest to the ray and the
	// squared distance of the chosen candidate.
	ClosestPointToRay(r vector.Ray) (Position, float64)

	ID() string
	Kind() Kind
	IsActive() bool
	Looping() bool
	Nodes() []*Node
	NodeCount() int
	NodeTs(n *Node) []float64

	base() *Base
}

// Kind names a curve type in documents and logs.
type Kind string

const (
	KindLinear       Kind = "linear"
	KindBezier       Kind = "bezier"
	KindApproximated Kind = "approximated_bezier"
	KindTeleport     Kind = "teleport"
)

// NodeEntry is one node of a path together with its metadata. Keeping them
// in a single record means they cannot drift out of lockstep.
type NodeEntry struct {
	Node       *Node
	Up         vector.Vec3
	Width      float64
	InTangent  vector.Vec3 // relative to the node, used by Bézier kinds
	OutTangent vector.Vec3
}

// Base carries the state and operations shared by every path kind. It is
// embedded by the concrete types and is not usable on its own.
type Base struct {
	self    Path
	id      string
	looping bool
	active  bool
	entries []NodeEntry
	rev     uint64
}

func (b *Base) init(self Path, id string, looping bool) {
	b.self = self
	b.id = id
	b.looping = looping
	b.active = true
}

func (b *Base) base() *Base { return b }

func (b *Base) ID() string       { return b.id }
func (b *Base) Looping() bool    { return b.looping }
func (b *Base) IsActive() bool   { return b.active }
func (b *Base) NodeCount() int   { return len(b.entries) }
func (b *Base) Revision() uint64 { return b.rev }

// SetActive toggles whether route searches may traverse this path.
func (b *Base) SetActive(active bool) { b.active = active }

// SetLooping closes or opens the path.
func (b *Base) SetLooping(looping bool) {
	if b.looping != looping {
		b.looping = looping
		b.touch()
	}
}

// Nodes returns the node list in order.
func (b *Base) Nodes() []*Node {
	out := make([]*Node, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Node
	}
	return out
}

// Entry returns the node and metadata at index i.
func (b *Base) Entry(i int) NodeEntry { return b.entries[i] }

// SectionCount is the number of sections t is divided into.
func (b *Base) SectionCount() int {
	n := len(b.entries)
	switch {
	case n <= 1:
		return 0
	case b.looping:
		return n
	default:
		return n - 1
	}
}

// ClampT maps t into [0,1]. Looping paths wrap instead of clamping.
func (b *Base) ClampT(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	if b.looping {
		if t < 0 || t > 1 {
			t -= math.Floor(t)
		}
		return t
	}
	return vector.Clamp01(t)
}

// NodeSection resolves t into the section that contains it: the index of
// its start node, the index of its end node and the local parameter in
// [0,1] within the section.
func (b *Base) NodeSection(t float64) (start, end int, local float64) {
	sec := b.SectionCount()
	if sec == 0 {
		return 0, 0, 0
	}
	s := b.ClampT(t) * float64(sec)
	start = int(math.Floor(s))
	if start >= sec {
		start = sec - 1
	}
	if start < 0 {
		start = 0
	}
	return start, (start + 1) % len(b.entries), s - float64(start)
}

// SectionT is the inverse of NodeSection.
func (b *Base) SectionT(section int, local float64) float64 {
	sec := b.SectionCount()
	if sec == 0 {
		return 0
	}
	return (float64(section) + local) / float64(sec)
}

// NodeTs lists every parametric coordinate at which n sits on the path. A
// node can appear more than once, and the first node of a looping path
// sits at both 0 and 1.
func (b *Base) NodeTs(n *Node) []float64 {
	sec := b.SectionCount()
	var ts []float64
	for k, e := range b.entries {
		if e.Node != n {
			continue
		}
		if sec == 0 {
			return []float64{0}
		}
		ts = append(ts, float64(k)/float64(sec))
		if b.looping && k == 0 {
			ts = append(ts, 1)
		}
	}
	return ts
}

// nodeAt returns the node t lies on, or nil.
func (b *Base) nodeAt(t float64) *Node {
	n := len(b.entries)
	switch n {
	case 0:
		return nil
	case 1:
		return b.entries[0].Node
	}
	s := t * float64(b.SectionCount())
	r := math.Round(s)
	if math.Abs(s-r) > nodeEpsilon {
		return nil
	}
	return b.entries[int(r)%n].Node
}

func (b *Base) nodePos(i int) vector.Vec3 { return b.entries[i].Node.pos }

// single is the position of a one-node path.
func (b *Base) single(t float64) Position {
	e := b.entries[0]
	return Position{
		Path:    b.self,
		T:       t,
		Node:    e.Node,
		Point:   e.Node.pos,
		Forward: vector.Forward,
		Up:      e.Up,
		Width:   e.Width,
	}
}

// blend interpolates the metadata of two entries.
func blend(a, b NodeEntry, local float64) (up vector.Vec3, width float64) {
	up = a.Up.Lerp(b.Up, local).Normalize()
	if up.IsZero() {
		up = a.Up
	}
	return up, vector.Lerp(a.Width, b.Width, local)
}

func (b *Base) touch() { b.rev++ }

func (b *Base) entry(n *Node, up vector.Vec3, width float64) NodeEntry {
	if up.IsZero() {
		up = vector.Up
	}
	return NodeEntry{Node: n, Up: up.Normalize(), Width: width}
}

// AddNode appends n with the given up vector and width. A zero up vector
// defaults to world up.
func (b *Base) AddNode(n *Node, up vector.Vec3, width float64) error {
	return b.InsertNode(len(b.entries), n, up, width)
}

// InsertNode places n at index i.
func (b *Base) InsertNode(i int, n *Node, up vector.Vec3, width float64) error {
	if !n.Valid() {
		return fmt.Errorf("path %q: insert invalid node", b.id)
	}
	if i < 0 || i > len(b.entries) {
		return fmt.Errorf("path %q: insert index %d out of range", b.id, i)
	}
	b.entries = append(b.entries, NodeEntry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = b.entry(n, up, width)
	n.attach(b.self)
	b.touch()
	return nil
}

// RemoveNodeAt removes the node at index i together with its metadata.
func (b *Base) RemoveNodeAt(i int) error {
	if i < 0 || i >= len(b.entries) {
		return fmt.Errorf("path %q: remove index %d out of range", b.id, i)
	}
	n := b.entries[i].Node
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.release(n)
	b.touch()
	return nil
}

// RemoveNode removes every occurrence of n. It reports whether anything
// was removed.
func (b *Base) RemoveNode(n *Node) bool {
	kept := b.entries[:0]
	removed := false
	for _, e := range b.entries {
		if e.Node == n {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return false
	}
	clearTail(b.entries, len(kept))
	b.entries = kept
	b.release(n)
	b.touch()
	return true
}

// MoveNode reorders the node at index from to index to, carrying its
// metadata along.
func (b *Base) MoveNode(from, to int) error {
	if from < 0 || from >= len(b.entries) || to < 0 || to >= len(b.entries) {
		return fmt.Errorf("path %q: move %d->%d out of range", b.id, from, to)
	}
	if from == to {
		return nil
	}
	e := b.entries[from]
	b.entries = append(b.entries[:from], b.entries[from+1:]...)
	b.entries = append(b.entries, NodeEntry{})
	copy(b.entries[to+1:], b.entries[to:])
	b.entries[to] = e
	b.touch()
	return nil
}

// SetUp replaces the up vector of node i.
func (b *Base) SetUp(i int, up vector.Vec3) error {
	if i < 0 || i >= len(b.entries) {
		return fmt.Errorf("path %q: node index %d out of range", b.id, i)
	}
	if up.IsZero() {
		up = vector.Up
	}
	b.entries[i].Up = up.Normalize()
	b.touch()
	return nil
}

// SetWidth replaces the width of node i.
func (b *Base) SetWidth(i int, width float64) error {
	if i < 0 || i >= len(b.entries) {
		return fmt.Errorf("path %q: node index %d out of range", b.id, i)
	}
	b.entries[i].Width = width
	b.touch()
	return nil
}

// SetTangents sets the Bézier handles of node i, relative to the node.
func (b *Base) SetTangents(i int, in, out vector.Vec3) error {
	if i < 0 || i >= len(b.entries) {
		return fmt.Errorf("path %q: node index %d out of range", b.id, i)
	}
	b.entries[i].InTangent = in
	b.entries[i].OutTangent = out
	b.touch()
	return nil
}

// ValidateNodes drops destroyed nodes and their metadata. It returns the
// number of entries removed.
func (b *Base) ValidateNodes() int {
	kept := b.entries[:0]
	var gone []*Node
	for _, e := range b.entries {
		if e.Node.Valid() {
			kept = append(kept, e)
			continue
		}
		gone = append(gone, e.Node)
	}
	removed := len(b.entries) - len(kept)
	if removed == 0 {
		return 0
	}
	clearTail(b.entries, len(kept))
	b.entries = kept
	for _, n := range gone {
		b.release(n)
	}
	b.touch()
	return removed
}

// Destroy removes every node from the path and clears its back-references.
func (b *Base) Destroy() {
	for _, e := range b.entries {
		e.Node.detach(b.self)
	}
	b.entries = nil
	b.active = false
	b.touch()
}

// release drops the back-reference to n once it no longer appears.
func (b *Base) release(n *Node) {
	if n == nil {
		return
	}
	for _, e := range b.entries {
		if e.Node == n {
			return
		}
	}
	n.detach(b.self)
}

func clearTail(s []NodeEntry, from int) {
	for i := from; i < len(s); i++ {
		s[i] = NodeEntry{}
	}
}
