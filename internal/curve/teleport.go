/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package curve

import (
	"math"

	"pathnet/internal/vector"
)

// TeleportPath connects its nodes with zero distance. Every query reports
// the first node, so a traveller entering it arrives at its far end
// instantly.
type TeleportPath struct {
	Base
}

func NewTeleportPath(id string) *TeleportPath {
	p := &TeleportPath{}
	p.init(p, id, false)
	return p
}

func (p *TeleportPath) Kind() Kind { return KindTeleport }

func (p *TeleportPath) Point(t float64) Position { return p.at(p.ClampT(t)) }

func (p *TeleportPath) at(t float64) Position {
	if len(p.entries) == 0 {
		return Position{}
	}
	pos := p.single(t)
	if n := len(p.entries); n > 1 {
		if d := p.nodePos(n - 1).Sub(p.nodePos(0)).Normalize(); !d.IsZero() {
			pos.Forward = d
		}
	}
	return pos
}

func (p *TeleportPath) DistanceBetween(_, _ float64) float64 { return 0 }

func (p *TeleportPath) Travel(_, toT, _ float64) Position { return p.at(p.ClampT(toT)) }

func (p *TeleportPath) ClosestPoint(q vector.Vec3) (Position, float64) {
	if len(p.entries) == 0 {
		return Position{}, math.Inf(1)
	}
	pos := p.at(0)
	return pos, pos.Point.Dist2(q)
}

func (p *TeleportPath) ClosestPointToRay(r vector.Ray) (Position, float64) {
	if len(p.entries) == 0 {
		return Position{}, math.Inf(1)
	}
	pos := p.at(0)
	return pos, rayPointDist2(r, pos.Point)
}
