package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"LiveCanvas/internal/board"
	"LiveCanvas/internal/loop"
)

var (
	fontFamilies = []string{"Helvetica", "Times New Roman", "Courier"}
	fontWeights  = []string{"400", "600", "800"}
)

// attrEntry is an entry that reports losing focus.
type attrEntry struct {
	widget.Entry
	onFocusLost func()
}

func newAttrEntry() *attrEntry {
	e := &attrEntry{}
	e.ExtendBaseWidget(e)
	return e
}

func (e *attrEntry) FocusLost() {
	e.Entry.FocusLost()
	if e.onFocusLost != nil {
		e.onFocusLost()
	}
}

// AttributePanel edits the selected shape's size, text and colors.
type AttributePanel struct {
	Content fyne.CanvasObject

	width, height, fontSize, fill, stroke *attrEntry
	family, weight                        *widget.Select

	// updating is set while the panel mirrors session state, so the inputs'
	// change callbacks do not echo it back.
	updating bool
}

func NewAttributePanel(l *loop.Loop, session *board.Session) *AttributePanel {
	p := &AttributePanel{
		width:    newAttrEntry(),
		height:   newAttrEntry(),
		fontSize: newAttrEntry(),
		fill:     newAttrEntry(),
		stroke:   newAttrEntry(),
	}

	edit := func(property, value string) {
		if p.updating {
			return
		}
		l.Post(func() { session.EditAttribute(property, value) })
	}
	endEdit := func() { l.Post(session.EndEdit) }

	for property, e := range map[string]*attrEntry{
		"width": p.width, "height": p.height, "fontSize": p.fontSize,
		"fill": p.fill, "stroke": p.stroke,
	} {
		e.OnChanged = func(v string) { edit(property, v) }
		e.OnSubmitted = func(string) { endEdit() }
		e.onFocusLost = endEdit
	}
	p.family = widget.NewSelect(fontFamilies, func(v string) {
		edit("fontFamily", v)
		endEdit()
	})
	p.weight = widget.NewSelect(fontWeights, func(v string) {
		edit("fontWeight", v)
		endEdit()
	})

	p.Content = container.NewVBox(
		widget.NewLabel("Dimensions"),
		widget.NewForm(
			widget.NewFormItem("W", p.width),
			widget.NewFormItem("H", p.height),
		),
		widget.NewSeparator(),
		widget.NewLabel("Text"),
		widget.NewForm(
			widget.NewFormItem("Size", p.fontSize),
			widget.NewFormItem("Font", p.family),
			widget.NewFormItem("Weight", p.weight),
		),
		widget.NewSeparator(),
		widget.NewLabel("Color"),
		widget.NewForm(
			widget.NewFormItem("Fill", p.fill),
			widget.NewFormItem("Stroke", p.stroke),
		),
	)
	return p
}

// Show mirrors attrs into the inputs. It must run on the UI thread.
func (p *AttributePanel) Show(attrs board.ElementAttributes) {
	p.updating = true
	defer func() { p.updating = false }()

	setText(p.width, attrs.Width)
	setText(p.height, attrs.Height)
	setText(p.fontSize, attrs.FontSize)
	setText(p.fill, attrs.Fill)
	setText(p.stroke, attrs.Stroke)
	setSelected(p.family, attrs.FontFamily)
	setSelected(p.weight, attrs.FontWeight)
}

func setSelected(s *widget.Select, v string) {
	switch {
	case s.Selected == v:
	case v == "":
		s.ClearSelected()
	default:
		s.SetSelected(v)
	}
}

func setText(e *attrEntry, v string) {
	if e.Text != v {
		e.SetText(v)
	}
}
