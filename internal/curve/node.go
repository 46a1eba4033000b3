/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import "pathnet/internal/vector"

// Node is a waypoint that may be shared by several paths. Its position is
// owned by the host; paths read it on every query.
type Node struct {
	ID string

	pos       vector.Vec3
	rev       uint64
	destroyed bool
	paths     []Path // weak back-references, lookup only
}

// NewNode creates a node at pos.
func NewNode(id string, pos vector.Vec3) *Node {
	return &Node{ID: id, pos: pos}
}

func (n *Node) Position() vector.Vec3 { return n.pos }

// SetPosition moves the node. Approximated paths that include it pick up
// the change on their next query.
func (n *Node) SetPosition(p vector.Vec3) {
	n.pos = p
	n.rev++
}

// Revision counts position changes.
func (n *Node) Revision() uint64 { return n.rev }

// Valid reports whether the node exists and has not been destroyed.
func (n *Node) Valid() bool { return n != nil && !n.destroyed }

// Destroy invalidates the node and removes it, with its metadata, from
// every path that references it.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.destroyed = true
	for _, p := range n.Paths() {
		p.base().ValidateNodes()
	}
}

// Paths returns a copy of the paths that include this node.
func (n *Node) Paths() []Path {
	out := make([]Path, len(n.paths))
	copy(out, n.paths)
	return out
}

// HasPath reports whether p is in the node's back-reference list.
func (n *Node) HasPath(p Path) bool {
	for _, q := range n.paths {
		if q == p {
			return true
		}
	}
	return false
}

func (n *Node) attach(p Path) {
	if !n.HasPath(p) {
		n.paths = append(n.paths, p)
	}
}

func (n *Node) detach(p Path) {
	for i, q := range n.paths {
		if q == p {
			n.paths = append(n.paths[:i], n.paths[i+1:]...)
			return
		}
	}
}
