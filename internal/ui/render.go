package ui

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	_ "image/png"
	"log"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"LiveCanvas/internal/presence"
	"LiveCanvas/internal/state"
)

var (
	selectionColor = color.NRGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}
	bubbleColor    = color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xee}
)

func pos(x, y float64) fyne.Position { return fyne.NewPos(float32(x), float32(y)) }

func point(p fyne.Position) state.Point { return state.Point{X: float64(p.X), Y: float64(p.Y)} }

func colorOr(s string, fallback color.Color) color.Color {
	if c, ok := state.ParseColor(s); ok {
		return c
	}
	return fallback
}

// imageCache keeps decoded image sources between refreshes.
type imageCache map[string]cachedImage

type cachedImage struct {
	src string
	img image.Image
}

func (c imageCache) get(objectID, src string) image.Image {
	if cached, ok := c[objectID]; ok && cached.src == src {
		return cached.img
	}
	data, ok := strings.CutPrefix(src, "data:image/png;base64,")
	if !ok {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		log.Printf("[Board] Bad image data for %s: %v", objectID, err)
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Printf("[Board] Cannot decode image %s: %v", objectID, err)
		return nil
	}
	c[objectID] = cachedImage{src: src, img: img}
	return img
}

// shapeObjects draws one shape. Rotation is not rendered.
func shapeObjects(s state.Shape, images imageCache) []fyne.CanvasObject {
	fill := colorOr(s.Fill, color.Transparent)
	stroke := colorOr(s.Stroke, color.Transparent)
	sx, sy := s.ScaleX, s.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	w, h := s.ScaledSize()

	switch g := s.Geometry.(type) {
	case state.Rect:
		r := canvas.NewRectangle(fill)
		r.StrokeColor, r.StrokeWidth = stroke, float32(s.StrokeWidth)
		r.Move(pos(s.Left, s.Top))
		r.Resize(fyne.NewSize(float32(w), float32(h)))
		return []fyne.CanvasObject{r}

	case state.Frame:
		r := canvas.NewRectangle(fill)
		r.StrokeColor, r.StrokeWidth = color.Gray{Y: 0x99}, 1
		r.Move(pos(s.Left, s.Top))
		r.Resize(fyne.NewSize(float32(w), float32(h)))
		title := canvas.NewText(g.Title, color.Gray{Y: 0x55})
		title.TextSize = 12
		title.Move(pos(s.Left, s.Top-18))
		return []fyne.CanvasObject{r, title}

	case state.Ellipse:
		c := canvas.NewCircle(fill)
		c.StrokeColor, c.StrokeWidth = stroke, float32(s.StrokeWidth)
		c.Move(pos(s.Left, s.Top))
		c.Resize(fyne.NewSize(float32(w), float32(h)))
		return []fyne.CanvasObject{c}

	case state.Line:
		l := canvas.NewLine(stroke)
		l.StrokeWidth = float32(max(s.StrokeWidth, 1))
		l.Position1 = pos(s.Left+g.X1*sx, s.Top+g.Y1*sy)
		l.Position2 = pos(s.Left+g.X2*sx, s.Top+g.Y2*sy)
		return []fyne.CanvasObject{l}

	case state.Path:
		objs := make([]fyne.CanvasObject, 0, len(g.Points))
		for i := 1; i < len(g.Points); i++ {
			a, b := g.Points[i-1], g.Points[i]
			l := canvas.NewLine(stroke)
			l.StrokeWidth = float32(max(s.StrokeWidth, 1))
			l.Position1 = pos(s.Left+a.X*sx, s.Top+a.Y*sy)
			l.Position2 = pos(s.Left+b.X*sx, s.Top+b.Y*sy)
			objs = append(objs, l)
		}
		return objs

	case state.Text:
		t := canvas.NewText(g.Text, colorOr(s.Fill, color.Black))
		t.TextSize = float32(g.FontSize * sy)
		weight, _ := strconv.Atoi(g.FontWeight)
		t.TextStyle = fyne.TextStyle{
			Bold:      weight >= 600 || g.FontWeight == "bold",
			Monospace: strings.EqualFold(g.FontFamily, "courier"),
		}
		t.Move(pos(s.Left, s.Top))
		return []fyne.CanvasObject{t}

	case state.Image:
		img := images.get(s.ObjectID, g.Src)
		if img == nil {
			return nil
		}
		ci := canvas.NewImageFromImage(img)
		ci.FillMode = canvas.ImageFillStretch
		ci.Move(pos(s.Left, s.Top))
		ci.Resize(fyne.NewSize(float32(w), float32(h)))
		return []fyne.CanvasObject{ci}
	}
	return nil
}

func selectionOutline(s state.Shape) fyne.CanvasObject {
	b := s.Bounds()
	r := canvas.NewRectangle(color.Transparent)
	r.StrokeColor, r.StrokeWidth = selectionColor, 1
	r.Move(pos(b.X-2, b.Y-2))
	r.Resize(fyne.NewSize(float32(b.Width+4), float32(b.Height+4)))
	return r
}

func bubble(at state.Point, text string, bg color.Color) []fyne.CanvasObject {
	label := canvas.NewText(text, color.White)
	label.TextSize = 14
	size := label.MinSize()
	box := canvas.NewRectangle(bg)
	box.CornerRadius = 10
	box.Move(pos(at.X+14, at.Y+14))
	box.Resize(fyne.NewSize(size.Width+16, size.Height+8))
	label.Move(pos(at.X+22, at.Y+18))
	return []fyne.CanvasObject{box, label}
}

func cursorDot(at state.Point, c color.Color) fyne.CanvasObject {
	dot := canvas.NewCircle(c)
	dot.StrokeColor, dot.StrokeWidth = color.White, 2
	dot.Move(pos(at.X-5, at.Y-5))
	dot.Resize(fyne.NewSize(10, 10))
	return dot
}

func overlayObjects(o Overlay) []fyne.CanvasObject {
	var objs []fyne.CanvasObject

	for _, r := range o.Reactions {
		t := canvas.NewText(r.Value, color.Black)
		t.TextSize = 24
		t.Move(pos(r.Point.X-12, r.Point.Y-12))
		objs = append(objs, t)
	}

	for _, p := range o.Peers {
		c := colorOr(p.Color, color.Black)
		objs = append(objs, cursorDot(p.Point, c))
		if p.Message != "" {
			objs = append(objs, bubble(p.Point, p.Message, c)...)
		}
	}

	if o.Cursor != nil {
		switch o.Self.Mode {
		case presence.Chat:
			text := o.Self.Message
			if text == "" {
				text = "Say something…"
				if o.Self.PreviousMessage != "" {
					text = o.Self.PreviousMessage
				}
			}
			objs = append(objs, bubble(*o.Cursor, text, bubbleColor)...)
		case presence.Reaction:
			t := canvas.NewText(o.Self.Reaction, color.Black)
			t.TextSize = 20
			t.Move(pos(o.Cursor.X+8, o.Cursor.Y+8))
			objs = append(objs, t)
		}
	}

	if o.Self.Mode == presence.ReactionSelector {
		bg := canvas.NewRectangle(bubbleColor)
		bg.CornerRadius = 12
		bg.Move(pos(selectorLeft, selectorTop))
		bg.Resize(fyne.NewSize(float32(selectorCell*len(ReactionChoices)), selectorCell))
		objs = append(objs, bg)
		for i, glyph := range ReactionChoices {
			t := canvas.NewText(glyph, color.White)
			t.TextSize = 22
			t.Move(pos(selectorLeft+float64(i*selectorCell)+8, selectorTop+6))
			objs = append(objs, t)
		}
	}
	return objs
}
