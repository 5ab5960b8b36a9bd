package ui

import (
	"image/color"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"LiveCanvas/internal/board"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/presence"
	"LiveCanvas/internal/state"
)

// BoardWidget draws the canvas and the presence overlay and turns pointer
// and key input into session and tracker calls on the loop.
type BoardWidget struct {
	widget.BaseWidget

	loop    *loop.Loop
	surface *Canvas
	session *board.Session
	tracker *presence.Tracker

	mu      sync.RWMutex
	overlay Overlay

	// Loop only.
	pressed bool
	grabbed string
	last    state.Point
	moved   bool
	peers   int

	// OnTextEdit asks for new text for a text shape. apply may be called
	// from any goroutine.
	OnTextEdit func(current string, apply func(string))
	// OnPeersChange is called on the UI thread with the number of peers.
	OnPeersChange func(n int)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Focusable = (*BoardWidget)(nil)
var _ fyne.Shortcutable = (*BoardWidget)(nil)
var _ fyne.DoubleTappable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Keyable = (*BoardWidget)(nil)

// NewBoardWidget wires surface and tracker changes to redraws. It must be
// called before the loop starts running their callbacks.
func NewBoardWidget(l *loop.Loop, surface *Canvas, session *board.Session, tracker *presence.Tracker) *BoardWidget {
	b := &BoardWidget{loop: l, surface: surface, session: session, tracker: tracker}
	b.ExtendBaseWidget(b)
	surface.OnChange = b.redraw
	tracker.OnChange = b.overlayChanged
	return b
}

func (b *BoardWidget) redraw() { fyne.Do(b.Refresh) }

// overlayChanged runs on the loop.
func (b *BoardWidget) overlayChanged() {
	o := overlayFrom(b.tracker)
	b.mu.Lock()
	b.overlay = o
	b.mu.Unlock()

	if n := len(b.tracker.Others()); n != b.peers {
		b.peers = n
		if b.OnPeersChange != nil {
			fyne.Do(func() { b.OnPeersChange(n) })
		}
	}
	b.redraw()
}

func (b *BoardWidget) Overlay() Overlay {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.overlay
}

func (b *BoardWidget) focus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.focus()
	p := point(e.Position)
	b.loop.Post(func() { b.pointerDown(p) })
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.loop.Post(b.pointerUp)
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	p := point(e.Position)
	b.loop.Post(func() { b.pointerMove(p) })
}

func (b *BoardWidget) DragEnd() {
	b.loop.Post(b.pointerUp)
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	p := point(e.Position)
	b.loop.Post(func() { b.pointerMove(p) })
}

func (b *BoardWidget) MouseOut() {
	b.loop.Post(b.tracker.PointerLeave)
}

func (b *BoardWidget) DoubleTapped(e *fyne.PointEvent) {
	p := point(e.Position)
	b.loop.Post(func() { b.editText(p) })
}

func (b *BoardWidget) pointerDown(p state.Point) {
	if b.tracker.State().Mode == presence.ReactionSelector {
		if glyph, ok := selectorHit(p); ok {
			b.tracker.SelectReaction(glyph)
			return
		}
	}
	b.pressed = true
	b.tracker.PointerDown(p)

	if b.session.ActiveElement().Value != board.ToolSelect {
		b.session.PointerDown(p)
		return
	}
	id, hit := b.surface.HitTest(p)
	if !hit {
		b.surface.Select()
		b.session.SelectionCreated(nil)
		return
	}
	b.surface.Select(id)
	b.session.SelectionCreated([]string{id})
	b.grabbed, b.last, b.moved = id, p, false
}

func (b *BoardWidget) pointerMove(p state.Point) {
	b.tracker.PointerMove(p)
	if b.grabbed == "" {
		b.session.PointerMove(p)
		return
	}
	if b.surface.Move(b.grabbed, p.X-b.last.X, p.Y-b.last.Y) {
		b.moved = true
		b.session.ObjectMoving(b.grabbed)
	}
	b.last = p
}

// pointerUp runs for both the mouse release and the end of a drag; only the
// first one after a press counts.
func (b *BoardWidget) pointerUp() {
	if !b.pressed {
		return
	}
	b.pressed = false
	b.tracker.PointerUp()
	if b.grabbed == "" {
		b.session.PointerUp()
		return
	}
	if b.moved {
		b.session.ObjectModified(b.grabbed)
	}
	b.grabbed, b.moved = "", false
}

func (b *BoardWidget) editText(p state.Point) {
	if b.OnTextEdit == nil {
		return
	}
	id, hit := b.surface.HitTest(p)
	if !hit {
		return
	}
	shape, _ := b.surface.Lookup(id)
	t, ok := shape.Geometry.(state.Text)
	if !ok {
		return
	}
	apply := func(text string) {
		b.loop.Post(func() { b.setText(id, text) })
	}
	fyne.Do(func() { b.OnTextEdit(t.Text, apply) })
}

func (b *BoardWidget) setText(objectID, text string) {
	shape, ok := b.surface.Lookup(objectID)
	if !ok {
		return
	}
	t, ok := shape.Geometry.(state.Text)
	if !ok || t.Text == text {
		return
	}
	t.Text = text
	shape.Geometry = t
	b.surface.Update(shape)
	b.session.ObjectModified(objectID)
}

func (b *BoardWidget) FocusGained() {}
func (b *BoardWidget) FocusLost()   {}

func (b *BoardWidget) TypedRune(r rune) {
	b.loop.Post(func() {
		st := b.tracker.State()
		if st.Mode == presence.Chat {
			b.tracker.ChatInput(st.Message + string(r))
		}
	})
}

func (b *BoardWidget) TypedKey(e *fyne.KeyEvent) {
	name := e.Name
	b.loop.Post(func() {
		st := b.tracker.State()
		if st.Mode == presence.Chat {
			switch name {
			case fyne.KeyBackspace:
				runes := []rune(st.Message)
				if len(runes) > 0 {
					b.tracker.ChatInput(string(runes[:len(runes)-1]))
				}
			case fyne.KeyReturn, fyne.KeyEnter:
				b.tracker.ChatSubmit()
			}
			return
		}
		switch name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			b.session.HandleKey(board.Key{Name: "Delete"})
		}
	})
}

func (b *BoardWidget) KeyDown(*fyne.KeyEvent) {}

// KeyUp drives the cursor mode shortcuts.
func (b *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	var key string
	switch e.Name {
	case fyne.KeyEscape:
		key = "Escape"
	case fyne.KeySlash:
		key = "/"
	case fyne.KeyE:
		key = "e"
	default:
		return
	}
	b.loop.Post(func() { b.tracker.KeyUp(key) })
}

func (b *BoardWidget) TypedShortcut(s fyne.Shortcut) {
	k, ok := shortcutKey(s)
	if !ok {
		return
	}
	b.loop.Post(func() {
		if b.tracker.State().Mode == presence.Chat {
			return
		}
		b.session.HandleKey(k)
	})
}

// shortcutKey maps fyne's shortcuts to session key presses.
func shortcutKey(s fyne.Shortcut) (board.Key, bool) {
	if cs, ok := s.(*desktop.CustomShortcut); ok {
		return board.Key{
			Name:  strings.ToLower(string(cs.KeyName)),
			Ctrl:  cs.Modifier&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0,
			Shift: cs.Modifier&fyne.KeyModifierShift != 0,
		}, true
	}
	switch s.ShortcutName() {
	case "Copy":
		return board.Key{Name: "c", Ctrl: true}, true
	case "Cut":
		return board.Key{Name: "x", Ctrl: true}, true
	case "Paste":
		return board.Key{Name: "v", Ctrl: true}, true
	case "Undo":
		return board.Key{Name: "z", Ctrl: true}, true
	case "Redo":
		return board.Key{Name: "z", Ctrl: true, Shift: true}, true
	}
	return board.Key{}, false
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b, images: make(imageCache)}
	r.background = canvas.NewRectangle(color.White)
	r.rebuild()
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	objects    []fyne.CanvasObject
	images     imageCache
}

func (r *boardWidgetRenderer) rebuild() {
	view := r.board.surface.View()
	objects := []fyne.CanvasObject{r.background}

	selected := make(map[string]bool, len(view.Selected))
	for _, id := range view.Selected {
		selected[id] = true
	}
	live := make(map[string]bool, len(view.Shapes))
	for _, s := range view.Shapes {
		live[s.ObjectID] = true
		objects = append(objects, shapeObjects(s, r.images)...)
		if selected[s.ObjectID] {
			objects = append(objects, selectionOutline(s))
		}
	}
	if view.Transient != nil {
		objects = append(objects, shapeObjects(*view.Transient, r.images)...)
	}
	for id := range r.images {
		if !live[id] {
			delete(r.images, id)
		}
	}

	objects = append(objects, overlayObjects(r.board.Overlay())...)
	r.objects = objects
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *boardWidgetRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.board.Size())
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Destroy() {}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}
