/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	xvector "golang.org/x/image/vector"
)

// PNGOptions controls raster export. Sizes are pixels.
type PNGOptions struct {
	Width, Height int
	Margin        int
	Style         Style
}

// RenderImage rasterizes p into a new RGBA image.
func RenderImage(p Plot, opt PNGOptions) *image.RGBA {
	w, h := opt.Width, opt.Height
	if w <= 0 || h <= 0 {
		w, h = 1024, 768
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 24
	}
	st := opt.Style.orDefault()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	vp := fit(p, float64(w), float64(h), float64(margin))
	z := xvector.NewRasterizer(w, h)
	z.DrawOp = draw.Over

	for _, c := range p.Curves {
		strokePolyline(z, img, vp, c.Points, st.CurveWidth, toRGBA(st.curveColor(c)))
	}
	for _, leg := range p.Route {
		strokePolyline(z, img, vp, leg, st.RouteWidth, toRGBA(st.Route))
	}
	nc := toRGBA(st.Node)
	for _, n := range p.Nodes {
		x, y := vp.apply(n.At)
		fillCircle(z, img, x, y, st.NodeRadius, nc)
	}
	if st.IncludeLabels {
		d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13}
		for _, n := range p.Nodes {
			x, y := vp.apply(n.At)
			d.Dot = fixed.P(int(math.Round(x+st.NodeRadius+2)), int(math.Round(y-st.NodeRadius)))
			d.DrawString(n.Text)
		}
		if p.Title != "" {
			d.Dot = fixed.P(margin/2, 13)
			d.DrawString(p.Title)
		}
	}
	return img
}

// ExportPNG renders p and writes it to outPath.
func ExportPNG(p Plot, outPath string, opt PNGOptions) error {
	img := RenderImage(p, opt)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// strokePolyline draws each segment as a quad of the given width.
func strokePolyline(z *xvector.Rasterizer, dst draw.Image, vp viewport, pts []Point, width float64, c color.RGBA) {
	if len(pts) < 2 {
		if len(pts) == 1 {
			x, y := vp.apply(pts[0])
			fillCircle(z, dst, x, y, width, c)
		}
		return
	}
	half := math.Max(width, 1) / 2
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
	for i := 1; i < len(pts); i++ {
		x1, y1 := vp.apply(pts[i-1])
		x2, y2 := vp.apply(pts[i])
		dx, dy := x2-x1, y2-y1
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		z.MoveTo(float32(x1+nx), float32(y1+ny))
		z.LineTo(float32(x2+nx), float32(y2+ny))
		z.LineTo(float32(x2-nx), float32(y2-ny))
		z.LineTo(float32(x1-nx), float32(y1-ny))
		z.ClosePath()
	}
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func fillCircle(z *xvector.Rasterizer, dst draw.Image, cx, cy, r float64, c color.RGBA) {
	const segs = 16
	b := dst.Bounds()
	z.Reset(b.Dx(), b.Dy())
	for i := 0; i < segs; i++ {
		a := 2 * math.Pi * float64(i) / segs
		x, y := float32(cx+r*math.Cos(a)), float32(cy+r*math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func toRGBA(c RGB) color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255} }
