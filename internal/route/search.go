/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package route

import (
	"slices"

	"pathnet/internal/curve"
)

// search is the state of one FindRoute call. Visited nodes are scoped to
// the current branch and unmarked on the way back.
type search struct {
	start, end curve.Position
	visited    map[*curve.Node]bool
	stack      []Waypoint

	best     *Route
	bestDist float64

	expanded, pruned int
}

// walk explores from coordinate t on cur, having already covered acc.
func (s *search) walk(cur curve.Path, t, acc float64) {
	s.expanded++

	if cur == s.end.Path {
		s.offer(cur, t, s.end.T, acc, s.end)
	} else if s.end.Node != nil {
		for _, et := range cur.NodeTs(s.end.Node) {
			// A teleport reports its first node everywhere; only finish
			// where the curve actually sits on the end node.
			if p := cur.Point(et); p.Node == s.end.Node {
				s.offer(cur, t, et, acc, p)
			}
		}
	}

	var done []*curve.Node
	for _, n := range cur.Nodes() {
		if s.visited[n] || slices.Contains(done, n) {
			continue
		}
		done = append(done, n)
		for _, nt := range cur.NodeTs(n) {
			d := acc + cur.DistanceBetween(t, nt)
			if d >= s.bestDist {
				s.pruned++
				continue
			}
			s.visited[n] = true
			for _, next := range n.Paths() {
				if !next.IsActive() {
					continue
				}
				for _, dt := range next.NodeTs(n) {
					if next == cur && dt == nt {
						continue
					}
					s.stack = append(s.stack, Waypoint{Node: n, Path: next, ArriveT: nt, DepartT: dt})
					s.walk(next, dt, d)
					s.stack = s.stack[:len(s.stack)-1]
				}
			}
			delete(s.visited, n)
		}
	}
}

// offer records the route ending at toT on cur if it beats the best so far.
func (s *search) offer(cur curve.Path, fromT, toT, acc float64, end curve.Position) {
	d := acc + cur.DistanceBetween(fromT, toT)
	if d >= s.bestDist {
		return
	}
	s.bestDist = d
	s.best = &Route{
		Start:     s.start,
		End:       end,
		Waypoints: slices.Clone(s.stack),
		Distance:  d,
	}
}
