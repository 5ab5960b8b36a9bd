package ui

import (
	"slices"
	"sync"

	"LiveCanvas/internal/state"
)

// Canvas is the shape store behind BoardWidget. The session writes to it from
// its loop while the renderer reads it from the UI thread.
type Canvas struct {
	mu        sync.RWMutex
	order     []string
	shapes    map[string]state.Shape
	selected  []string
	transient *state.Shape
	drawing   bool

	// OnChange is called, without the lock held, after every change.
	OnChange func()
}

// View is a copy of what the canvas currently shows.
type View struct {
	Shapes    []state.Shape
	Selected  []string
	Transient *state.Shape
	Drawing   bool
}

func NewCanvas() *Canvas {
	return &Canvas{shapes: make(map[string]state.Shape)}
}

func (c *Canvas) update(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
	if c.OnChange != nil {
		c.OnChange()
	}
}

func (c *Canvas) Add(s state.Shape) {
	c.update(func() {
		if _, ok := c.shapes[s.ObjectID]; !ok {
			c.order = append(c.order, s.ObjectID)
		}
		c.shapes[s.ObjectID] = s
	})
}

// Update replaces a shape in place, keeping its paint order and selection.
func (c *Canvas) Update(s state.Shape) {
	c.update(func() {
		if _, ok := c.shapes[s.ObjectID]; ok {
			c.shapes[s.ObjectID] = s
		}
	})
}

func (c *Canvas) Remove(objectID string) {
	c.update(func() {
		if _, ok := c.shapes[objectID]; !ok {
			return
		}
		delete(c.shapes, objectID)
		c.order = slices.DeleteFunc(c.order, func(id string) bool { return id == objectID })
		c.selected = slices.DeleteFunc(c.selected, func(id string) bool { return id == objectID })
	})
}

func (c *Canvas) Clear() {
	c.update(func() {
		c.order = nil
		c.selected = nil
		clear(c.shapes)
	})
}

func (c *Canvas) Lookup(objectID string) (state.Shape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.shapes[objectID]
	return s, ok
}

func (c *Canvas) Shapes() []state.Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shapesLocked()
}

func (c *Canvas) shapesLocked() []state.Shape {
	out := make([]state.Shape, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.shapes[id])
	}
	return out
}

func (c *Canvas) HitTest(p state.Point) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.order) - 1; i >= 0; i-- {
		if c.shapes[c.order[i]].Bounds().Contains(p) {
			return c.order[i], true
		}
	}
	return "", false
}

func (c *Canvas) Selected() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.selected)
}

// Select replaces the selection. Unknown ids are ignored.
func (c *Canvas) Select(objectIDs ...string) {
	c.update(func() {
		c.selected = c.selected[:0]
		for _, id := range objectIDs {
			if _, ok := c.shapes[id]; ok {
				c.selected = append(c.selected, id)
			}
		}
	})
}

func (c *Canvas) SetTransient(s *state.Shape) {
	c.update(func() {
		if s == nil {
			c.transient = nil
			return
		}
		shape := *s
		c.transient = &shape
	})
}

func (c *Canvas) SetDrawingMode(on bool) {
	c.mu.Lock()
	c.drawing = on
	c.mu.Unlock()
}

// Move shifts a shape by dx, dy.
func (c *Canvas) Move(objectID string, dx, dy float64) bool {
	moved := false
	c.update(func() {
		s, ok := c.shapes[objectID]
		if !ok {
			return
		}
		s.Left += dx
		s.Top += dy
		c.shapes[objectID] = s
		moved = true
	})
	return moved
}

func (c *Canvas) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := View{
		Shapes:   c.shapesLocked(),
		Selected: slices.Clone(c.selected),
		Drawing:  c.drawing,
	}
	if c.transient != nil {
		t := *c.transient
		v.Transient = &t
	}
	return v
}
