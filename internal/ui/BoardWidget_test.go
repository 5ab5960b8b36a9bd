package ui

import (
	"fmt"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveCanvas/internal/board"
	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/presence"
	"LiveCanvas/internal/state"
)

type fixture struct {
	room    *live.Room
	loop    *loop.Loop
	surface *Canvas
	session *board.Session
	tracker *presence.Tracker
	widget  *BoardWidget
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	test.NewTempApp(t)

	f := &fixture{room: live.NewRoom("test"), loop: loop.New(clock.NewMock())}
	member := f.room.Join("me", f.loop.Dispatch)
	t.Cleanup(member.Leave)

	n := 0
	f.surface = NewCanvas()
	f.session = board.New(member, f.surface, board.Options{NewID: func() string {
		n++
		return fmt.Sprintf("shape-%d", n)
	}})
	f.tracker = presence.NewTracker(member, f.loop.Clock(), presence.Options{})
	f.widget = NewBoardWidget(f.loop, f.surface, f.session, f.tracker)
	w := test.NewWindow(f.widget)
	t.Cleanup(w.Close)

	scope := &loop.Scope{}
	t.Cleanup(scope.Close)
	f.loop.Post(func() {
		f.session.Mount(scope)
		f.tracker.Mount(f.loop, scope)
	})
	f.loop.RunPending()
	return f
}

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	}
}

func drag(x, y float32) *fyne.DragEvent {
	return &fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}}
}

func (f *fixture) drag(from, to fyne.Position) {
	f.widget.MouseDown(mouse(from.X, from.Y))
	f.widget.Dragged(drag(to.X, to.Y))
	f.widget.MouseUp(mouse(to.X, to.Y))
	f.widget.DragEnd()
	f.loop.RunPending()
}

func (f *fixture) record(t *testing.T, id string) state.Shape {
	t.Helper()
	snap := f.room.Snapshot()
	rec, ok := snap.Get(id)
	require.True(t, ok, "record %s", id)
	shape, err := state.Decode(rec)
	require.NoError(t, err)
	return shape
}

func TestDrawRectangleWithMouse(t *testing.T) {
	f := newFixture(t)
	f.loop.Post(func() { f.session.SelectTool(board.NavElements[1]) })
	f.loop.RunPending()

	f.drag(fyne.NewPos(10, 10), fyne.NewPos(110, 60))

	require.Equal(t, 1, f.room.Len())
	shape := f.record(t, "shape-1")
	assert.Equal(t, state.Rect{Width: 100, Height: 50}, shape.Geometry)
	assert.Equal(t, 10.0, shape.Left)
	assert.Equal(t, 10.0, shape.Top)
	assert.Len(t, f.surface.Shapes(), 1)
	assert.Equal(t, board.ToolSelect, f.session.ActiveElement().Value)
}

func TestDragMovesSelectedShape(t *testing.T) {
	f := newFixture(t)
	f.loop.Post(func() { f.session.SelectTool(board.NavElements[1]) })
	f.loop.RunPending()
	f.drag(fyne.NewPos(10, 10), fyne.NewPos(110, 60))

	f.drag(fyne.NewPos(20, 20), fyne.NewPos(30, 40))

	assert.Equal(t, []string{"shape-1"}, f.surface.Selected())
	shape := f.record(t, "shape-1")
	assert.Equal(t, 20.0, shape.Left)
	assert.Equal(t, 30.0, shape.Top)
	assert.Equal(t, "100", f.session.Attributes().Width)
}

func TestClickOnEmptyCanvasClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.loop.Post(func() { f.session.SelectTool(board.NavElements[1]) })
	f.loop.RunPending()
	f.drag(fyne.NewPos(10, 10), fyne.NewPos(110, 60))
	f.drag(fyne.NewPos(20, 20), fyne.NewPos(20, 20))
	require.NotEmpty(t, f.surface.Selected())

	f.drag(fyne.NewPos(500, 500), fyne.NewPos(500, 500))
	assert.Empty(t, f.surface.Selected())
	assert.Equal(t, 1, f.room.Len())
}

func TestUndoShortcut(t *testing.T) {
	f := newFixture(t)
	f.loop.Post(func() { f.session.SelectTool(board.NavElements[1]) })
	f.loop.RunPending()
	f.drag(fyne.NewPos(10, 10), fyne.NewPos(110, 60))
	require.Equal(t, 1, f.room.Len())

	f.widget.TypedShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl})
	f.loop.RunPending()
	assert.Equal(t, 0, f.room.Len())
	assert.Empty(t, f.surface.Shapes())

	f.widget.TypedShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl | fyne.KeyModifierShift})
	f.loop.RunPending()
	assert.Equal(t, 1, f.room.Len())
}

func TestDeleteKeyRemovesSelection(t *testing.T) {
	f := newFixture(t)
	f.loop.Post(func() { f.session.SelectTool(board.NavElements[1]) })
	f.loop.RunPending()
	f.drag(fyne.NewPos(10, 10), fyne.NewPos(110, 60))
	f.drag(fyne.NewPos(20, 20), fyne.NewPos(20, 20))

	f.widget.TypedKey(&fyne.KeyEvent{Name: fyne.KeyBackspace})
	f.loop.RunPending()
	assert.Equal(t, 0, f.room.Len())
}

func TestChatTyping(t *testing.T) {
	f := newFixture(t)
	peer := f.room.Join("peer", nil)
	defer peer.Leave()

	f.widget.MouseMoved(mouse(5, 5))
	f.widget.KeyUp(&fyne.KeyEvent{Name: fyne.KeySlash})
	f.widget.TypedRune('h')
	f.widget.TypedRune('i')
	f.widget.TypedRune('e')
	f.loop.RunPending()
	assert.Equal(t, presence.Chat, f.tracker.State().Mode)
	assert.Equal(t, "hie", f.tracker.State().Message)

	f.widget.TypedKey(&fyne.KeyEvent{Name: fyne.KeyBackspace})
	f.loop.RunPending()
	others := peer.Others()
	require.Len(t, others, 1)
	require.NotNil(t, others[0].Presence.Message)
	assert.Equal(t, "hi", *others[0].Presence.Message)

	f.widget.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	f.loop.RunPending()
	assert.Equal(t, "hi", f.tracker.State().PreviousMessage)
	assert.Empty(t, f.tracker.State().Message)

	f.widget.KeyUp(&fyne.KeyEvent{Name: fyne.KeyEscape})
	f.loop.RunPending()
	assert.Equal(t, presence.Hidden, f.tracker.State().Mode)
}

func TestReactionPicker(t *testing.T) {
	f := newFixture(t)

	f.widget.KeyUp(&fyne.KeyEvent{Name: fyne.KeyE})
	f.loop.RunPending()
	require.Equal(t, presence.ReactionSelector, f.tracker.State().Mode)
	assert.Equal(t, presence.ReactionSelector, f.widget.Overlay().Self.Mode)

	f.widget.MouseDown(mouse(selectorLeft+selectorCell+4, selectorTop+4))
	f.widget.MouseUp(mouse(selectorLeft+selectorCell+4, selectorTop+4))
	f.loop.RunPending()

	st := f.tracker.State()
	assert.Equal(t, presence.Reaction, st.Mode)
	assert.Equal(t, ReactionChoices[1], st.Reaction)
	assert.False(t, st.IsPressed)
	assert.Equal(t, 0, f.room.Len())
}

func TestMouseOutHidesCursor(t *testing.T) {
	f := newFixture(t)
	f.widget.MouseMoved(mouse(40, 50))
	f.loop.RunPending()
	require.NotNil(t, f.widget.Overlay().Cursor)

	f.widget.MouseOut()
	f.loop.RunPending()
	assert.Nil(t, f.widget.Overlay().Cursor)
}

func TestRemoteChangesRedraw(t *testing.T) {
	f := newFixture(t)

	other := f.room.Join("other", nil)
	defer other.Leave()
	rec, err := state.Encode(rect("remote", 0, 0, 10, 10))
	require.NoError(t, err)
	require.NoError(t, other.Apply(state.SetOp(rec)))
	f.loop.RunPending()

	_, ok := f.surface.Lookup("remote")
	assert.True(t, ok)
	assert.Greater(t, len(test.WidgetRenderer(f.widget).Objects()), 1)
}

func TestShortcutKey(t *testing.T) {
	k, ok := shortcutKey(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierSuper})
	require.True(t, ok)
	assert.Equal(t, board.Key{Name: "y", Ctrl: true}, k)

	k, ok = shortcutKey(&fyne.ShortcutPaste{})
	require.True(t, ok)
	assert.Equal(t, board.Key{Name: "v", Ctrl: true}, k)

	_, ok = shortcutKey(&fyne.ShortcutSelectAll{})
	assert.False(t, ok)
}
