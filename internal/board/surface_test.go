package board

import (
	"slices"

	"LiveCanvas/internal/state"
)

// memSurface is an in-memory Surface that counts calls.
type memSurface struct {
	order       []string
	shapes      map[string]state.Shape
	selected    []string
	transient   *state.Shape
	drawingMode bool

	adds, updates, removes int

	// onAdd runs after a shape is added, like a canvas firing its own
	// events while being rendered to.
	onAdd func(state.Shape)
}

func newMemSurface() *memSurface {
	return &memSurface{shapes: make(map[string]state.Shape)}
}

func (m *memSurface) Add(s state.Shape) {
	if _, ok := m.shapes[s.ObjectID]; !ok {
		m.order = append(m.order, s.ObjectID)
	}
	m.shapes[s.ObjectID] = s
	m.adds++
	if m.onAdd != nil {
		m.onAdd(s)
	}
}

func (m *memSurface) Update(s state.Shape) {
	if _, ok := m.shapes[s.ObjectID]; !ok {
		return
	}
	m.shapes[s.ObjectID] = s
	m.updates++
}

func (m *memSurface) Remove(id string) {
	if _, ok := m.shapes[id]; !ok {
		return
	}
	delete(m.shapes, id)
	m.order = slices.DeleteFunc(m.order, func(o string) bool { return o == id })
	m.selected = slices.DeleteFunc(m.selected, func(o string) bool { return o == id })
	m.removes++
}

func (m *memSurface) Clear() {
	m.order = nil
	m.selected = nil
	clear(m.shapes)
}

func (m *memSurface) Lookup(id string) (state.Shape, bool) {
	s, ok := m.shapes[id]
	return s, ok
}

func (m *memSurface) Shapes() []state.Shape {
	out := make([]state.Shape, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.shapes[id])
	}
	return out
}

func (m *memSurface) HitTest(p state.Point) (string, bool) {
	for i := len(m.order) - 1; i >= 0; i-- {
		if m.shapes[m.order[i]].Bounds().Contains(p) {
			return m.order[i], true
		}
	}
	return "", false
}

func (m *memSurface) Selected() []string { return slices.Clone(m.selected) }

func (m *memSurface) Select(ids ...string) { m.selected = slices.Clone(ids) }

func (m *memSurface) SetTransient(s *state.Shape) {
	if s == nil {
		m.transient = nil
		return
	}
	c := *s
	m.transient = &c
}

func (m *memSurface) SetDrawingMode(on bool) { m.drawingMode = on }
