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
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"pathnet/internal/curve"
)

// RGB is an 8-bit colour.
type RGB struct{ R, G, B uint8 }

// Style holds colours and stroke widths shared by the PDF and PNG writers.
// Widths are in points for PDF and pixels for PNG.
type Style struct {
	Curve         RGB
	Inactive      RGB
	Teleport      RGB
	Route         RGB
	Node          RGB
	CurveWidth    float64
	RouteWidth    float64
	NodeRadius    float64
	IncludeLabels bool
}

// DefaultStyle is used for zero Style values.
func DefaultStyle() Style {
	return Style{
		Curve:         RGB{40, 40, 40},
		Inactive:      RGB{170, 170, 170},
		Teleport:      RGB{120, 60, 180},
		Route:         RGB{220, 30, 30},
		Node:          RGB{20, 90, 200},
		CurveWidth:    1,
		RouteWidth:    3,
		NodeRadius:    3,
		IncludeLabels: true,
	}
}

func (s Style) orDefault() Style {
	if s.CurveWidth == 0 && s.RouteWidth == 0 && s.NodeRadius == 0 {
		labels := s.IncludeLabels
		s = DefaultStyle()
		s.IncludeLabels = labels
	}
	return s
}

func (s Style) curveColor(c Polyline) RGB {
	switch {
	case !c.Active:
		return s.Inactive
	case c.Kind == curve.KindTeleport:
		return s.Teleport
	default:
		return s.Curve
	}
}

// PDFOptions controls PDF export. Units are points.
type PDFOptions struct {
	Width, Height float64
	Margin        float64
	Style         Style
}

// ExportPDF writes p as a single-page vector PDF.
func ExportPDF(p Plot, outPath string, opt PDFOptions) error {
	w, h := opt.Width, opt.Height
	if w <= 0 || h <= 0 {
		w, h = 842, 595 // A4 landscape
	}
	margin := opt.Margin
	if margin <= 0 {
		margin = 36
	}
	st := opt.Style.orDefault()
	titleH := 0.0
	if p.Title != "" {
		titleH = 18
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetTitle(p.Title, true)
	pdf.SetCreator("pathnet", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	if titleH > 0 {
		pdf.Text(margin, margin, p.Title)
	}

	vp := fit(p, w, h-titleH, margin)
	shift := func(q Point) (float64, float64) {
		x, y := vp.apply(q)
		return x, y + titleH
	}

	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")
	for _, c := range p.Curves {
		col := st.curveColor(c)
		setDrawColor(pdf, col)
		pdf.SetLineWidth(st.CurveWidth)
		if !c.Active || c.Kind == curve.KindTeleport {
			pdf.SetDashPattern([]float64{4, 3}, 0)
		} else {
			pdf.SetDashPattern([]float64{}, 0)
		}
		polyline(pdf, c.Points, shift)
	}
	pdf.SetDashPattern([]float64{}, 0)

	setDrawColor(pdf, st.Route)
	pdf.SetLineWidth(st.RouteWidth)
	for _, leg := range p.Route {
		polyline(pdf, leg, shift)
	}

	setFillColor(pdf, st.Node)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	for _, n := range p.Nodes {
		x, y := shift(n.At)
		pdf.Circle(x, y, st.NodeRadius, "F")
		if st.IncludeLabels {
			pdf.Text(x+st.NodeRadius+2, y-st.NodeRadius, n.Text)
		}
	}
	if len(p.Route) > 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(margin, h-margin/2, fmt.Sprintf("route distance %.3f", p.Distance))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func polyline(pdf *gofpdf.Fpdf, pts []Point, at func(Point) (float64, float64)) {
	for i := 1; i < len(pts); i++ {
		x1, y1 := at(pts[i-1])
		x2, y2 := at(pts[i])
		pdf.Line(x1, y1, x2, y2)
	}
}

func setDrawColor(pdf *gofpdf.Fpdf, c RGB) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c RGB) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
