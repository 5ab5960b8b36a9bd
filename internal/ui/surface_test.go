package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveCanvas/internal/board"
	"LiveCanvas/internal/state"
)

var _ board.Surface = (*Canvas)(nil)

func rect(id string, left, top, w, h float64) state.Shape {
	return state.Shape{
		ObjectID:  id,
		Transform: state.Transform{Left: left, Top: top, ScaleX: 1, ScaleY: 1},
		Geometry:  state.Rect{Width: w, Height: h},
	}
}

func TestCanvasKeepsOrderAndSelectionAcrossUpdates(t *testing.T) {
	c := NewCanvas()
	changes := 0
	c.OnChange = func() { changes++ }

	c.Add(rect("a", 0, 0, 10, 10))
	c.Add(rect("b", 5, 5, 10, 10))
	c.Select("b", "missing")
	c.Update(rect("a", 1, 1, 20, 20))

	ids := []string{}
	for _, s := range c.Shapes() {
		ids = append(ids, s.ObjectID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []string{"b"}, c.Selected())
	a, ok := c.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, a.Left)
	assert.Equal(t, 4, changes)
}

func TestCanvasHitTestPrefersTopMost(t *testing.T) {
	c := NewCanvas()
	c.Add(rect("under", 0, 0, 100, 100))
	c.Add(rect("over", 50, 50, 100, 100))

	id, ok := c.HitTest(state.Point{X: 60, Y: 60})
	require.True(t, ok)
	assert.Equal(t, "over", id)

	id, ok = c.HitTest(state.Point{X: 10, Y: 10})
	require.True(t, ok)
	assert.Equal(t, "under", id)

	_, ok = c.HitTest(state.Point{X: 500, Y: 500})
	assert.False(t, ok)
}

func TestCanvasRemoveDropsSelection(t *testing.T) {
	c := NewCanvas()
	c.Add(rect("a", 0, 0, 10, 10))
	c.Select("a")
	c.Remove("a")

	assert.Empty(t, c.Shapes())
	assert.Empty(t, c.Selected())
}

func TestCanvasMoveAndTransient(t *testing.T) {
	c := NewCanvas()
	c.Add(rect("a", 10, 10, 10, 10))
	assert.True(t, c.Move("a", 5, -5))
	assert.False(t, c.Move("missing", 1, 1))

	a, _ := c.Lookup("a")
	assert.Equal(t, state.Point{X: 15, Y: 5}, state.Point{X: a.Left, Y: a.Top})

	tr := rect("", 0, 0, 1, 1)
	c.SetTransient(&tr)
	tr.Left = 99
	v := c.View()
	require.NotNil(t, v.Transient)
	assert.Equal(t, 0.0, v.Transient.Left)
	assert.Len(t, v.Shapes, 1)

	c.SetTransient(nil)
	assert.Nil(t, c.View().Transient)
}
