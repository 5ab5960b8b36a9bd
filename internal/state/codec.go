package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind      = errors.New("unknown shape kind")
	ErrMalformedPayload = errors.New("malformed shape payload")
	ErrMissingObjectID  = errors.New("shape has no objectId")
)

// payload is the serialized form of a shape; the geometry is inlined next to
// the transform and style.
type payload[G Geometry] struct {
	Transform
	Style
	Geometry G `json:"geometry"`
}

// Encode converts a shape into its canonical record.
func Encode(s Shape) (ShapeRecord, error) {
	if s.ObjectID == "" {
		return ShapeRecord{}, ErrMissingObjectID
	}
	if s.Geometry == nil {
		return ShapeRecord{}, fmt.Errorf("encode %s: %w", s.ObjectID, ErrUnknownKind)
	}

	var (
		data []byte
		err  error
	)
	switch g := s.Geometry.(type) {
	case Rect:
		data, err = json.Marshal(payload[Rect]{s.Transform, s.Style, g})
	case Ellipse:
		data, err = json.Marshal(payload[Ellipse]{s.Transform, s.Style, g})
	case Line:
		data, err = json.Marshal(payload[Line]{s.Transform, s.Style, g})
	case Path:
		data, err = json.Marshal(payload[Path]{s.Transform, s.Style, g})
	case Text:
		data, err = json.Marshal(payload[Text]{s.Transform, s.Style, g})
	case Frame:
		data, err = json.Marshal(payload[Frame]{s.Transform, s.Style, g})
	case Image:
		data, err = json.Marshal(payload[Image]{s.Transform, s.Style, g})
	default:
		return ShapeRecord{}, fmt.Errorf("encode %s: %w", s.ObjectID, ErrUnknownKind)
	}
	if err != nil {
		return ShapeRecord{}, fmt.Errorf("encode %s: %w", s.ObjectID, err)
	}

	return ShapeRecord{
		ObjectID: s.ObjectID,
		Kind:     s.Geometry.Kind(),
		Payload:  data,
	}, nil
}

// Decode rebuilds a shape from its record, switching on the kind tag.
func Decode(rec ShapeRecord) (Shape, error) {
	if rec.ObjectID == "" {
		return Shape{}, ErrMissingObjectID
	}
	switch rec.Kind {
	case KindRect:
		return decodeAs[Rect](rec)
	case KindEllipse:
		return decodeAs[Ellipse](rec)
	case KindLine:
		return decodeAs[Line](rec)
	case KindPath:
		return decodeAs[Path](rec)
	case KindText:
		return decodeAs[Text](rec)
	case KindFrame:
		return decodeAs[Frame](rec)
	case KindImage:
		return decodeAs[Image](rec)
	default:
		return Shape{}, fmt.Errorf("decode %s: %q: %w", rec.ObjectID, rec.Kind, ErrUnknownKind)
	}
}

func decodeAs[G Geometry](rec ShapeRecord) (Shape, error) {
	var p payload[G]
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return Shape{}, fmt.Errorf("decode %s: %w: %v", rec.ObjectID, ErrMalformedPayload, err)
	}
	if p.ScaleX == 0 {
		p.ScaleX = 1
	}
	if p.ScaleY == 0 {
		p.ScaleY = 1
	}
	return Shape{
		ObjectID:  rec.ObjectID,
		Transform: p.Transform,
		Style:     p.Style,
		Geometry:  p.Geometry,
	}, nil
}
