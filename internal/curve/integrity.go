/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import (
	"errors"
	"fmt"
)

// ErrIntegrity marks a broken node/path back-reference.
var ErrIntegrity = errors.New("node/path back-reference mismatch")

// CheckIntegrity verifies that every node of the given paths lists the
// path as a back-reference, and that every back-reference of those nodes
// points at a path that still contains the node.
func CheckIntegrity(paths ...Path) error {
	for _, p := range paths {
		b := p.base()
		for i, e := range b.entries {
			if e.Node == nil {
				return fmt.Errorf("%w: path %q has nil node at %d", ErrIntegrity, b.id, i)
			}
			if !e.Node.HasPath(p) {
				return fmt.Errorf("%w: node %q does not reference path %q", ErrIntegrity, e.Node.ID, b.id)
			}
			for _, q := range e.Node.paths {
				if !contains(q, e.Node) {
					return fmt.Errorf("%w: node %q references path %q which does not contain it", ErrIntegrity, e.Node.ID, q.ID())
				}
			}
		}
	}
	return nil
}

func contains(p Path, n *Node) bool {
	for _, e := range p.base().entries {
		if e.Node == n {
			return true
		}
	}
	return false
}
