// Package export renders a canvas document to PDF.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"LiveCanvas/internal/state"
)

const margin = 36.0

// PDF writes every decodable shape of snap to w on a single landscape A4
// page, scaled down to fit if needed. Malformed records are skipped.
func PDF(w io.Writer, snap state.Snapshot) error {
	shapes := make([]state.Shape, 0, len(snap.Records))
	for _, rec := range snap.Records {
		shape, err := state.Decode(rec)
		if err != nil {
			log.Printf("[Export] Skipping %s: %v", rec.ObjectID, err)
			continue
		}
		shapes = append(shapes, shape)
	}

	p := gofpdf.New("L", "pt", "A4", "")
	p.AddPage()
	pageW, pageH := p.GetPageSize()

	origin, scale := fit(shapes, pageW-2*margin, pageH-2*margin)
	r := renderer{pdf: p, dx: margin - origin.X*scale, dy: margin - origin.Y*scale, scale: scale}
	for _, shape := range shapes {
		r.draw(shape)
	}
	if err := p.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return p.Output(w)
}

// File writes the PDF to path.
func File(path string, snap state.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := PDF(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fit returns the top-left of the drawing and the scale that makes it fit
// maxW x maxH. Drawings are never enlarged.
func fit(shapes []state.Shape, maxW, maxH float64) (state.Point, float64) {
	if len(shapes) == 0 {
		return state.Point{}, 1
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range shapes {
		b := s.Bounds()
		minX, minY = math.Min(minX, b.X), math.Min(minY, b.Y)
		maxX, maxY = math.Max(maxX, b.X+b.Width), math.Max(maxY, b.Y+b.Height)
	}
	scale := 1.0
	if w := maxX - minX; w > maxW {
		scale = maxW / w
	}
	if h := maxY - minY; h > 0 && h*scale > maxH {
		scale = maxH / h
	}
	return state.Point{X: minX, Y: minY}, scale
}

type renderer struct {
	pdf    *gofpdf.Fpdf
	dx, dy float64
	scale  float64
	images int
}

func (r *renderer) x(v float64) float64 { return r.dx + v*r.scale }
func (r *renderer) y(v float64) float64 { return r.dy + v*r.scale }

// style sets colors and returns the gofpdf draw style.
func (r *renderer) style(s state.Shape) string {
	style := ""
	if c, ok := state.ParseColor(s.Fill); ok {
		r.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		style += "F"
	}
	if c, ok := state.ParseColor(s.Stroke); ok {
		r.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
		style += "D"
	}
	width := s.StrokeWidth
	if width <= 0 {
		width = 1
	}
	r.pdf.SetLineWidth(width * r.scale)
	if style == "" {
		r.pdf.SetDrawColor(0, 0, 0)
		style = "D"
	}
	return style
}

func (r *renderer) draw(s state.Shape) {
	sx, sy := s.ScaleX*r.scale, s.ScaleY*r.scale

	switch g := s.Geometry.(type) {
	case state.Rect:
		r.pdf.Rect(r.x(s.Left), r.y(s.Top), g.Width*sx, g.Height*sy, r.style(s))
	case state.Frame:
		r.pdf.Rect(r.x(s.Left), r.y(s.Top), g.Width*sx, g.Height*sy, r.style(s))
		if g.Title != "" {
			r.pdf.SetFont("Helvetica", "", 10*r.scale)
			r.pdf.SetTextColor(80, 80, 80)
			r.pdf.Text(r.x(s.Left), r.y(s.Top)-4*r.scale, g.Title)
		}
	case state.Ellipse:
		r.pdf.Ellipse(r.x(s.Left)+g.RX*sx, r.y(s.Top)+g.RY*sy, g.RX*sx, g.RY*sy, 0, r.style(s))
	case state.Line:
		r.style(state.Shape{Style: state.Style{Stroke: s.Stroke, StrokeWidth: s.StrokeWidth}})
		r.pdf.Line(r.x(s.Left)+g.X1*sx, r.y(s.Top)+g.Y1*sy, r.x(s.Left)+g.X2*sx, r.y(s.Top)+g.Y2*sy)
	case state.Path:
		r.style(state.Shape{Style: state.Style{Stroke: s.Stroke, StrokeWidth: s.StrokeWidth}})
		for i := 1; i < len(g.Points); i++ {
			a, b := g.Points[i-1], g.Points[i]
			r.pdf.Line(r.x(s.Left)+a.X*sx, r.y(s.Top)+a.Y*sy, r.x(s.Left)+b.X*sx, r.y(s.Top)+b.Y*sy)
		}
	case state.Text:
		style := ""
		if w, err := strconv.Atoi(g.FontWeight); (err == nil && w >= 600) || g.FontWeight == "bold" {
			style = "B"
		}
		size := g.FontSize * sy
		r.pdf.SetFont(fontFamily(g.FontFamily), style, size)
		if c, ok := state.ParseColor(s.Fill); ok {
			r.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
		} else {
			r.pdf.SetTextColor(0, 0, 0)
		}
		r.pdf.Text(r.x(s.Left), r.y(s.Top)+size, g.Text)
	case state.Image:
		r.image(s, g, sx, sy)
	}
}

func (r *renderer) image(s state.Shape, g state.Image, sx, sy float64) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(g.Src, prefix) {
		log.Printf("[Export] Skipping image %s: unsupported source", s.ObjectID)
		return
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(g.Src, prefix))
	if err != nil {
		log.Printf("[Export] Skipping image %s: %v", s.ObjectID, err)
		return
	}

	r.images++
	name := fmt.Sprintf("img%d", r.images)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	r.pdf.ImageOptions(name, r.x(s.Left), r.y(s.Top), g.Width*sx, g.Height*sy, false, opts, 0, "")
}

// fontFamily maps to one of the PDF core fonts.
func fontFamily(family string) string {
	switch strings.ToLower(family) {
	case "times new roman", "times", "serif":
		return "Times"
	case "courier", "courier new", "monospace":
		return "Courier"
	default:
		return "Helvetica"
	}
}
