/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the document model for waypoint networks. Documents are
// authored as YAML or JSON and turned into live curves by package network.

// CurrentVersion is the document format version written by this build.
const CurrentVersion = 1

// Curve kinds accepted in documents.
const (
	KindLinear       = "linear"
	KindBezier       = "bezier"
	KindApproximated = "approximated_bezier"
	KindTeleport     = "teleport"
)

// Kinds lists every accepted curve kind.
var Kinds = []string{KindLinear, KindBezier, KindApproximated, KindTeleport}

// Vec3 is a point or direction written as [x, y, z].
type Vec3 [3]float64

// Network is one authored waypoint network.
type Network struct {
	Name        string `json:"name" yaml:"name"`
	Version     int    `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []Node `json:"nodes" yaml:"nodes"`
	Paths       []Path `json:"paths" yaml:"paths"`
}

// Node is a shared waypoint.
type Node struct {
	ID       string `json:"id" yaml:"id"`
	Position Vec3   `json:"position" yaml:"position,flow"`
}

// Path is one curve through a sequence of nodes.
type Path struct {
	ID      string `json:"id" yaml:"id"`
	Kind    string `json:"kind" yaml:"kind"`
	Looping bool   `json:"looping,omitempty" yaml:"looping,omitempty"`
	// Active defaults to true when omitted.
	Active *bool `json:"active,omitempty" yaml:"active,omitempty"`
	// Samples overrides the sampling resolution of Bézier kinds.
	Samples int        `json:"samples,omitempty" yaml:"samples,omitempty"`
	Nodes   []PathNode `json:"nodes" yaml:"nodes"`
}

// PathNode references a node and carries its per-path metadata.
type PathNode struct {
	Node  string  `json:"node" yaml:"node"`
	Up    *Vec3   `json:"up,omitempty" yaml:"up,omitempty,flow"`
	Width float64 `json:"width,omitempty" yaml:"width,omitempty"`
	// In and Out are Bézier handles relative to the node.
	In  *Vec3 `json:"in,omitempty" yaml:"in,omitempty,flow"`
	Out *Vec3 `json:"out,omitempty" yaml:"out,omitempty,flow"`
}

// IsActive reports the effective activation flag.
func (p Path) IsActive() bool { return p.Active == nil || *p.Active }

// NodeByID returns the node with the given id.
func (n *Network) NodeByID(id string) (Node, bool) {
	for _, nd := range n.Nodes {
		if nd.ID == id {
			return nd, true
		}
	}
	return Node{}, false
}

// PathByID returns the path with the given id.
func (n *Network) PathByID(id string) (Path, bool) {
	for _, p := range n.Paths {
		if p.ID == id {
			return p, true
		}
	}
	return Path{}, false
}
