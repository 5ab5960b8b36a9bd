package state

import (
	"encoding/json"
	"math"
)

// Kind tags the geometry carried by a shape.
type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindLine    Kind = "line"
	KindPath    Kind = "path"
	KindText    Kind = "text"
	KindFrame   Kind = "frame"
	KindImage   Kind = "image"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform places a shape on the canvas.
type Transform struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Angle  float64 `json:"angle,omitempty"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
}

type Style struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Geometry is the closed set of shape payloads. Only types in this package
// implement it.
type Geometry interface {
	Kind() Kind
	// Size is the unscaled width and height of the geometry.
	Size() (w, h float64)
	geometry()
}

type Rect struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Ellipse struct {
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
}

// Line endpoints are relative to the shape's Left/Top.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Path points are relative to the shape's Left/Top.
type Path struct {
	Points []Point `json:"points"`
}

type Text struct {
	Text       string  `json:"text"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	FontWeight string  `json:"fontWeight"`
}

type Frame struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Title  string  `json:"title,omitempty"`
}

// Image holds its pixels as a data URL.
type Image struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Src    string  `json:"src"`
}

func (Rect) Kind() Kind    { return KindRect }
func (Ellipse) Kind() Kind { return KindEllipse }
func (Line) Kind() Kind    { return KindLine }
func (Path) Kind() Kind    { return KindPath }
func (Text) Kind() Kind    { return KindText }
func (Frame) Kind() Kind   { return KindFrame }
func (Image) Kind() Kind   { return KindImage }

func (g Rect) Size() (float64, float64)    { return g.Width, g.Height }
func (g Ellipse) Size() (float64, float64) { return 2 * g.RX, 2 * g.RY }
func (g Frame) Size() (float64, float64)   { return g.Width, g.Height }
func (g Image) Size() (float64, float64)   { return g.Width, g.Height }

func (g Line) Size() (float64, float64) {
	return math.Max(g.X1, g.X2), math.Max(g.Y1, g.Y2)
}

func (g Path) Size() (float64, float64) {
	var w, h float64
	for _, p := range g.Points {
		w = math.Max(w, p.X)
		h = math.Max(h, p.Y)
	}
	return w, h
}

// Text has no intrinsic box; approximate it from the font size.
func (g Text) Size() (float64, float64) {
	return float64(len([]rune(g.Text))) * g.FontSize * 0.6, g.FontSize * 1.2
}

func (Rect) geometry()    {}
func (Ellipse) geometry() {}
func (Line) geometry()    {}
func (Path) geometry()    {}
func (Text) geometry()    {}
func (Frame) geometry()   {}
func (Image) geometry()   {}

// Shape is the decoded form of a record, as held by a rendering surface.
type Shape struct {
	ObjectID string
	Transform
	Style
	Geometry Geometry
}

// Box is an axis-aligned rectangle in canvas coordinates.
type Box struct {
	X, Y, Width, Height float64
}

func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Bounds returns the scaled bounding box of the shape. Rotation is ignored.
func (s Shape) Bounds() Box {
	if s.Geometry == nil {
		return Box{X: s.Left, Y: s.Top}
	}
	w, h := s.Geometry.Size()
	return Box{X: s.Left, Y: s.Top, Width: w * s.scaleX(), Height: h * s.scaleY()}
}

// ScaledSize is the rendered width and height.
func (s Shape) ScaledSize() (float64, float64) {
	b := s.Bounds()
	return b.Width, b.Height
}

func (s Shape) scaleX() float64 {
	if s.ScaleX == 0 {
		return 1
	}
	return s.ScaleX
}

func (s Shape) scaleY() float64 {
	if s.ScaleY == 0 {
		return 1
	}
	return s.ScaleY
}

// ShapeRecord is the canonical persisted form of a shape.
type ShapeRecord struct {
	ObjectID string          `json:"objectId"`
	Kind     Kind            `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

type OpType string

const (
	OpSet    OpType = "set"
	OpDelete OpType = "delete"
)

// Op is a single per-key mutation of the shared mapping.
type Op struct {
	Type     OpType       `json:"type"`
	Record   *ShapeRecord `json:"record,omitempty"`
	ObjectID string       `json:"objectId"`
}

func SetOp(rec ShapeRecord) Op {
	return Op{Type: OpSet, Record: &rec, ObjectID: rec.ObjectID}
}

func DeleteOp(objectID string) Op {
	return Op{Type: OpDelete, ObjectID: objectID}
}

// Snapshot is an immutable copy of the shared mapping in insertion order.
type Snapshot struct {
	Version uint64        `json:"version"`
	Records []ShapeRecord `json:"records"`
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Get looks up a record by objectId.
func (s *Snapshot) Get(objectID string) (ShapeRecord, bool) {
	if s == nil {
		return ShapeRecord{}, false
	}
	for _, rec := range s.Records {
		if rec.ObjectID == objectID {
			return rec, true
		}
	}
	return ShapeRecord{}, false
}
