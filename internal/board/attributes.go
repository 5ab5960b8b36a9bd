package board

import (
	"math"
	"strconv"

	"LiveCanvas/internal/state"
)

// ElementAttributes mirrors the attribute panel inputs for the selected
// shape.
type ElementAttributes struct {
	Width      string
	Height     string
	FontSize   string
	FontFamily string
	FontWeight string
	Fill       string
	Stroke     string
}

func (s *Session) Attributes() ElementAttributes { return s.attrs }

// Editing reports whether the panel has focus. While it does, selection and
// remote updates do not overwrite the mirror.
func (s *Session) Editing() bool { return s.editing }

func attributesOf(shape state.Shape) ElementAttributes {
	w, h := shape.ScaledSize()
	attrs := ElementAttributes{
		Width:  strconv.Itoa(int(math.Round(w))),
		Height: strconv.Itoa(int(math.Round(h))),
		Fill:   shape.Fill,
		Stroke: shape.Stroke,
	}
	if t, ok := shape.Geometry.(state.Text); ok {
		attrs.FontSize = strconv.FormatFloat(t.FontSize, 'f', -1, 64)
		attrs.FontFamily = t.FontFamily
		attrs.FontWeight = t.FontWeight
	}
	return attrs
}

// SelectionCreated fills the mirror from the selection when exactly one shape
// is selected.
func (s *Session) SelectionCreated(objectIDs []string) {
	s.activeObject = ""
	if len(objectIDs) == 1 {
		s.activeObject = objectIDs[0]
	}
	if s.editing || s.activeObject == "" {
		return
	}
	s.mirror(s.activeObject)
}

// ObjectScaling updates the mirrored size while a shape is being resized.
func (s *Session) ObjectScaling(objectID string) {
	shape, ok := s.surface.Lookup(objectID)
	if !ok {
		return
	}
	w, h := shape.ScaledSize()
	s.attrs.Width = strconv.Itoa(int(math.Round(w)))
	s.attrs.Height = strconv.Itoa(int(math.Round(h)))
	s.attributesChanged()
}

func (s *Session) mirror(objectID string) {
	shape, ok := s.surface.Lookup(objectID)
	if !ok {
		return
	}
	attrs := attributesOf(shape)
	if attrs == s.attrs {
		return
	}
	s.attrs = attrs
	s.attributesChanged()
}

func (s *Session) attributesChanged() {
	if s.OnAttributesChange != nil {
		s.OnAttributesChange(s.attrs)
	}
}

// EditAttribute applies a panel edit to the active shape and commits it.
// Without an active shape only the mirror changes.
func (s *Session) EditAttribute(property, value string) {
	s.editing = true

	switch property {
	case "width":
		s.attrs.Width = value
	case "height":
		s.attrs.Height = value
	case "fontSize":
		s.attrs.FontSize = value
	case "fontFamily":
		s.attrs.FontFamily = value
	case "fontWeight":
		s.attrs.FontWeight = value
	case "fill":
		s.attrs.Fill = value
	case "stroke":
		s.attrs.Stroke = value
	default:
		return
	}
	s.attributesChanged()

	if s.activeObject == "" {
		return
	}
	shape, ok := s.surface.Lookup(s.activeObject)
	if !ok {
		return
	}
	updated, changed := applyAttribute(shape, property, value)
	if !changed {
		return
	}
	s.surface.Update(updated)
	s.ObjectModified(updated.ObjectID)
}

// EndEdit is called when the panel loses focus.
func (s *Session) EndEdit() { s.editing = false }

// applyAttribute returns shape with one property set. Width and height reset
// the scale and set the base dimension.
func applyAttribute(shape state.Shape, property, value string) (state.Shape, bool) {
	switch property {
	case "width", "height":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 {
			return shape, false
		}
		if property == "width" {
			shape.ScaleX = 1
			shape.Geometry = resize(shape.Geometry, v, -1)
		} else {
			shape.ScaleY = 1
			shape.Geometry = resize(shape.Geometry, -1, v)
		}
		return shape, true

	case "fill":
		if shape.Fill == value {
			return shape, false
		}
		shape.Fill = value
		return shape, true

	case "stroke":
		if shape.Stroke == value {
			return shape, false
		}
		shape.Stroke = value
		return shape, true
	}

	t, ok := shape.Geometry.(state.Text)
	if !ok {
		return shape, false
	}
	switch property {
	case "fontSize":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v <= 0 || v == t.FontSize {
			return shape, false
		}
		t.FontSize = v
	case "fontFamily":
		if t.FontFamily == value {
			return shape, false
		}
		t.FontFamily = value
	case "fontWeight":
		if t.FontWeight == value {
			return shape, false
		}
		t.FontWeight = value
	default:
		return shape, false
	}
	shape.Geometry = t
	return shape, true
}

// resize sets the unscaled width and/or height of g. A negative value leaves
// that dimension alone.
func resize(g state.Geometry, w, h float64) state.Geometry {
	ow, oh := g.Size()
	fx, fy := 1.0, 1.0
	if w >= 0 && ow > 0 {
		fx = w / ow
	}
	if h >= 0 && oh > 0 {
		fy = h / oh
	}

	switch g := g.(type) {
	case state.Rect:
		if w >= 0 {
			g.Width = w
		}
		if h >= 0 {
			g.Height = h
		}
		return g
	case state.Frame:
		if w >= 0 {
			g.Width = w
		}
		if h >= 0 {
			g.Height = h
		}
		return g
	case state.Image:
		if w >= 0 {
			g.Width = w
		}
		if h >= 0 {
			g.Height = h
		}
		return g
	case state.Ellipse:
		if w >= 0 {
			g.RX = w / 2
		}
		if h >= 0 {
			g.RY = h / 2
		}
		return g
	case state.Line:
		g.X1, g.X2 = g.X1*fx, g.X2*fx
		g.Y1, g.Y2 = g.Y1*fy, g.Y2*fy
		return g
	case state.Path:
		points := make([]state.Point, len(g.Points))
		for i, p := range g.Points {
			points[i] = state.Point{X: p.X * fx, Y: p.Y * fy}
		}
		return state.Path{Points: points}
	}
	return g
}
