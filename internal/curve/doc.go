/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package curve implements the authored curves objects move along and the
// shared waypoints that connect them into a network.
//
// A Path is an ordered list of Nodes plus per-node metadata (up vector,
// width and Bézier tangents). The parametric coordinate t ∈ [0,1] divides
// the path into equal sections, one per pair of consecutive nodes (plus one
// closing section when the path loops). Nodes keep a back-reference list of
// every Path that includes them; Path mutators keep that list in sync and
// callers never edit it directly.
//
// Four kinds share the Path contract: LinearPath, BezierPath,
// ApproximatedBezierPath and TeleportPath. All queries are synchronous and
// allocate nothing long-lived except the ApproximatedBezierPath sample
// cache. Nothing in this package is safe for concurrent mutation.
package curve
