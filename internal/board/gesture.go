package board

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"LiveCanvas/internal/state"
)

const (
	defaultFill   = "#aabbcc"
	defaultStroke = "#aabbcc"

	maxImageSize = 200.0
)

// ImageOrigin is where inserted images are placed.
var ImageOrigin = state.Point{X: 100, Y: 100}

// newShape builds the transient shape a drawing tool starts with at p. A
// click without a drag commits it at this default size.
func newShape(tool string, p state.Point) (state.Shape, bool) {
	shape := state.Shape{
		Transform: state.Transform{Left: p.X, Top: p.Y, ScaleX: 1, ScaleY: 1},
		Style:     state.Style{Fill: defaultFill, Stroke: defaultStroke},
	}
	switch tool {
	case ToolRectangle:
		shape.Geometry = state.Rect{Width: 100, Height: 100}
	case ToolCircle:
		shape.Geometry = state.Ellipse{RX: 50, RY: 50}
	case ToolLine:
		shape.Geometry = state.Line{X2: 100, Y2: 100}
		shape.StrokeWidth = 2
	case ToolFreeform:
		shape.Geometry = state.Path{Points: []state.Point{{}}}
		shape.Fill = ""
		shape.StrokeWidth = 3
	case ToolText:
		shape.Geometry = state.Text{Text: "Tap to Type", FontSize: 36, FontFamily: "Helvetica", FontWeight: "400"}
		shape.Stroke = ""
	case ToolFrame:
		shape.Geometry = state.Frame{Width: 100, Height: 100, Title: "Frame"}
		shape.Fill = "#ffffff"
	default:
		return state.Shape{}, false
	}
	return shape, true
}

// PointerDown starts a transient shape for the active drawing tool. Pressing
// on an existing shape selects it instead, except while drawing freehand.
func (s *Session) PointerDown(p state.Point) {
	tool := s.active.Value
	shape, ok := newShape(tool, p)
	if !ok {
		return
	}
	if tool != ToolFreeform {
		if id, hit := s.surface.HitTest(p); hit {
			s.surface.Select(id)
			s.SelectionCreated([]string{id})
			return
		}
	}

	s.transient = &shape
	s.anchor = p
	s.trail = []state.Point{p}
	s.drawing = true
	s.surface.SetDrawingMode(true)
	s.surface.SetTransient(s.transient)
}

// PointerMove resizes the transient shape. Nothing is written to storage.
func (s *Session) PointerMove(p state.Point) {
	if !s.drawing || s.transient == nil {
		return
	}

	shape := s.transient
	left, top := math.Min(s.anchor.X, p.X), math.Min(s.anchor.Y, p.Y)
	w, h := math.Abs(p.X-s.anchor.X), math.Abs(p.Y-s.anchor.Y)

	switch g := shape.Geometry.(type) {
	case state.Rect:
		shape.Left, shape.Top = left, top
		shape.Geometry = state.Rect{Width: w, Height: h}
	case state.Frame:
		shape.Left, shape.Top = left, top
		g.Width, g.Height = w, h
		shape.Geometry = g
	case state.Ellipse:
		shape.Left, shape.Top = left, top
		shape.Geometry = state.Ellipse{RX: w / 2, RY: h / 2}
	case state.Line:
		shape.Left, shape.Top = left, top
		shape.Geometry = state.Line{
			X1: s.anchor.X - left, Y1: s.anchor.Y - top,
			X2: p.X - left, Y2: p.Y - top,
		}
	case state.Path:
		s.trail = append(s.trail, p)
		shape.Left, shape.Top, shape.Geometry = pathFrom(s.trail)
	case state.Text:
		return
	}
	s.surface.SetTransient(shape)
}

func pathFrom(trail []state.Point) (left, top float64, g state.Path) {
	left, top = trail[0].X, trail[0].Y
	for _, p := range trail[1:] {
		left = math.Min(left, p.X)
		top = math.Min(top, p.Y)
	}
	g.Points = make([]state.Point, len(trail))
	for i, p := range trail {
		g.Points[i] = state.Point{X: p.X - left, Y: p.Y - top}
	}
	return left, top, g
}

// PointerUp commits the transient shape as a new record and reverts to the
// default tool. Freehand drawing stays active until another tool is picked.
func (s *Session) PointerUp() {
	freeform := s.active.Value == ToolFreeform
	s.drawing = false
	if !freeform {
		s.surface.SetDrawingMode(false)
	}

	if s.transient == nil {
		return
	}
	shape := *s.transient
	s.transient = nil
	s.trail = nil
	s.surface.SetTransient(nil)

	if p, ok := shape.Geometry.(state.Path); ok && len(p.Points) < 2 {
		return
	}

	shape.ObjectID = s.newID()
	s.surface.Add(shape)
	s.commitShapes(shape)
	if !freeform {
		s.setActive(DefaultNavElement)
	}
}

// ObjectModified commits the surface's current version of a shape after a
// move, resize, rotate or text edit.
func (s *Session) ObjectModified(objectID string) {
	if objectID == "" {
		return
	}
	shape, ok := s.surface.Lookup(objectID)
	if !ok {
		return
	}
	s.commitShapes(shape)
}

func (s *Session) ObjectMoving(objectID string) {
	if s.editing {
		return
	}
	s.mirror(objectID)
}

// InsertImage decodes an uploaded image, shrinks it to fit the default box and
// commits it as an image shape.
func (s *Session) InsertImage(r io.Reader) error {
	img, format, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	img = fitImage(img, maxImageSize, maxImageSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s image: %w", format, err)
	}

	b := img.Bounds()
	shape := state.Shape{
		ObjectID:  s.newID(),
		Transform: state.Transform{Left: ImageOrigin.X, Top: ImageOrigin.Y, ScaleX: 1, ScaleY: 1},
		Geometry: state.Image{
			Width:  float64(b.Dx()),
			Height: float64(b.Dy()),
			Src:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		},
	}
	s.surface.Add(shape)
	s.commitShapes(shape)
	s.setActive(DefaultNavElement)
	return nil
}

// fitImage scales img down, keeping its aspect ratio, so it fits maxW x maxH.
func fitImage(img image.Image, maxW, maxH float64) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w <= maxW && h <= maxH {
		return img
	}
	scale := math.Min(maxW/w, maxH/h)
	nw := max(1, int(math.Round(w*scale)))
	nh := max(1, int(math.Round(h*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// DeleteSelected removes every selected shape in one batch.
func (s *Session) DeleteSelected() {
	ids := s.surface.Selected()
	if len(ids) == 0 {
		return
	}
	ops := make([]state.Op, 0, len(ids))
	for _, id := range ids {
		s.surface.Remove(id)
		ops = append(ops, state.DeleteOp(id))
	}
	s.surface.Select()
	s.activeObject = ""
	s.commit(ops...)
}

// Reset deletes every record and clears the surface. done, if set, receives
// on the loop whether the shared mapping is empty once the batch settles.
func (s *Session) Reset(done func(empty bool)) {
	s.cancelTransient()

	snap := s.backend.Snapshot()
	ops := make([]state.Op, 0, snap.Len())
	if snap != nil {
		for _, rec := range snap.Records {
			ops = append(ops, state.DeleteOp(rec.ObjectID))
		}
	}

	s.surface.Clear()
	s.surface.Select()
	s.activeObject = ""
	clear(s.localOnly)

	s.commitThen(ops, func(err error) {
		if done != nil {
			done(err == nil && s.backend.Snapshot().Len() == 0)
		}
	})
}
