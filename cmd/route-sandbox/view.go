/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"pathnet/internal/curve"
	"pathnet/internal/export"
)

// Terminal cells are roughly twice as tall as they are wide.
const cellAspect = 2.0

// grid maps plot coordinates (X right, Z down) onto terminal cells,
// keeping the world aspect ratio. The bottom row is left for status.
type grid struct {
	lo    export.Point
	scale float64 // cells per world unit, horizontally
	offX  int
	offY  int
	w, h  int
}

func newGrid(p export.Plot, w, h int) grid {
	lo, hi := p.Bounds()
	rows := max(1, h-1)
	dx, dz := hi.X-lo.X, hi.Y-lo.Y
	if dx <= 0 {
		dx = 1
	}
	if dz <= 0 {
		dz = 1
	}
	scale := math.Min(float64(w-1)/dx, float64(rows-1)*cellAspect/dz)
	if scale <= 0 || math.IsInf(scale, 0) {
		scale = 1
	}
	g := grid{lo: lo, scale: scale, w: w, h: rows}
	g.offX = (w - 1 - int(math.Round(dx*scale))) / 2
	g.offY = (rows - 1 - int(math.Round(dz*scale/cellAspect))) / 2
	return g
}

func (g grid) cell(p export.Point) (int, int) {
	x := g.offX + int(math.Round((p.X-g.lo.X)*g.scale))
	y := g.offY + int(math.Round((p.Y-g.lo.Y)*g.scale/cellAspect))
	return x, y
}

func (g grid) inside(x, y int) bool { return x >= 0 && y >= 0 && x < g.w && y < g.h }

// line visits the cells between a and b, both included.
func (g grid) line(a, b export.Point, visit func(x, y int)) {
	x0, y0 := g.cell(a)
	x1, y1 := g.cell(b)
	n := max(abs(x1-x0), abs(y1-y0))
	if n == 0 {
		visit(x0, y0)
		return
	}
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		visit(x0+int(math.Round(f*float64(x1-x0))), y0+int(math.Round(f*float64(y1-y0))))
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var (
	styleCurve    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInactive = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	styleTeleport = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleRoute    = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleNode     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleMarker   = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// drawPlot renders the static layer: curves, route and node labels.
func drawPlot(s tcell.Screen, g grid, p export.Plot) {
	set := func(r rune, st tcell.Style) func(x, y int) {
		return func(x, y int) {
			if g.inside(x, y) {
				s.SetContent(x, y, r, nil, st)
			}
		}
	}
	for _, c := range p.Curves {
		r, st := '·', styleCurve
		switch {
		case !c.Active:
			r, st = '.', styleInactive
		case c.Kind == curve.KindTeleport:
			for _, pt := range c.Points {
				set(':', styleTeleport)(g.cell(pt))
			}
			continue
		}
		for i := 1; i < len(c.Points); i++ {
			g.line(c.Points[i-1], c.Points[i], set(r, st))
		}
	}
	for _, leg := range p.Route {
		for i := 1; i < len(leg); i++ {
			g.line(leg[i-1], leg[i], set('*', styleRoute))
		}
	}
	for _, n := range p.Nodes {
		x, y := g.cell(n.At)
		set('o', styleNode)(x, y)
		for i, r := range n.Text {
			set(r, styleNode)(x+1+i, y)
		}
	}
}

func drawText(s tcell.Screen, x, y int, text string, st tcell.Style) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, st)
	}
}
