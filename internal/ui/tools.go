package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveCanvas/internal/board"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/state"
)

// Palette is offered for the fill and stroke of the selected shape.
var Palette = []color.Color{
	color.Black,
	color.White,
	color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff},
	color.NRGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
	color.NRGBA{R: 0x05, G: 0x96, B: 0x69, A: 0xff},
	color.NRGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
	color.NRGBA{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
}

type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

func toolIcon(value string) fyne.Resource {
	switch value {
	case board.ToolRectangle:
		return theme.CheckButtonIcon()
	case board.ToolCircle:
		return theme.RadioButtonIcon()
	case board.ToolLine:
		return theme.ContentRemoveIcon()
	case board.ToolFreeform:
		return theme.DocumentCreateIcon()
	case board.ToolText:
		return theme.FileTextIcon()
	case board.ToolFrame:
		return theme.ViewFullScreenIcon()
	case board.ToolImage:
		return theme.FileImageIcon()
	case board.ToolDelete:
		return theme.DeleteIcon()
	case board.ToolReset:
		return theme.ViewRefreshIcon()
	default:
		return theme.ViewRestoreIcon()
	}
}

// Toolbar holds the tool buttons and the label naming the active tool.
type Toolbar struct {
	Content fyne.CanvasObject
	active *widget.Label
}

// NewToolbar builds one action per navigation element. Picks are posted to
// the session's loop.
func NewToolbar(l *loop.Loop, session *board.Session) *Toolbar {
	items := make([]widget.ToolbarItem, 0, len(board.NavElements)+1)
	for _, el := range board.NavElements {
		if el.Value == board.ToolDelete {
			items = append(items, widget.NewToolbarSeparator())
		}
		items = append(items, widget.NewToolbarAction(toolIcon(el.Value), func() {
			l.Post(func() { session.SelectTool(el) })
		}))
	}
	tb := widget.NewToolbar(items...)

	onColorTapped := func(property string) func(color.Color) {
		return func(c color.Color) {
			value := state.FormatColor(c)
			l.Post(func() {
				session.EditAttribute(property, value)
				session.EndEdit()
			})
		}
	}
	fills := container.NewHBox()
	strokes := container.NewHBox()
	for _, c := range Palette {
		fills.Add(newColorSwatch(c, onColorTapped("fill")))
		strokes.Add(newColorSwatch(c, onColorTapped("stroke")))
	}

	t := &Toolbar{active: widget.NewLabel(board.DefaultNavElement.Name)}
	t.Content = container.NewHBox(
		widget.NewLabel("Tool:"),
		tb,
		t.active,
		widget.NewSeparator(),
		widget.NewLabel("Fill:"),
		fills,
		widget.NewSeparator(),
		widget.NewLabel("Stroke:"),
		strokes,
		layout.NewSpacer(),
	)
	return t
}

// SetActive shows the active tool. It must run on the UI thread.
func (t *Toolbar) SetActive(el board.ActiveElement) {
	t.active.SetText(el.Name)
}
