/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import "pathnet/internal/vector"

// Position is a sampled point on a path. It is a snapshot: paths never
// modify a Position after returning it.
type Position struct {
	Path Path
	T    float64
	// Node is set only when the position lies exactly on a node.
	Node *Node

	Point   vector.Vec3
	Forward vector.Vec3
	Up      vector.Vec3
	Width   float64
}

// Valid reports whether the position came from a successful query. The
// zero value is the invalid sentinel.
func (p Position) Valid() bool { return p.Path != nil }
