// Package board turns local gestures into shared-storage mutations and
// renders shared storage back onto a surface.
package board

import (
	"errors"
	"log"

	"github.com/google/uuid"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/state"
)

// Surface is the rendering surface the session draws on. Implementations keep
// shape identity across Update so selection survives remote edits.
type Surface interface {
	Add(s state.Shape)
	Update(s state.Shape)
	Remove(objectID string)
	Clear()
	Lookup(objectID string) (state.Shape, bool)
	// Shapes lists committed shapes in paint order. The transient shape is
	// not included.
	Shapes() []state.Shape
	// HitTest returns the top-most committed shape containing p.
	HitTest(p state.Point) (string, bool)
	Selected() []string
	Select(objectIDs ...string)
	// SetTransient shows the in-progress shape, or hides it when s is nil.
	SetTransient(s *state.Shape)
	SetDrawingMode(on bool)
}

// ActiveElement is a toolbar item.
type ActiveElement struct {
	Name  string
	Value string
	Icon  string
}

const (
	ToolSelect    = "select"
	ToolRectangle = "rectangle"
	ToolCircle    = "circle"
	ToolLine      = "line"
	ToolFreeform  = "freeform"
	ToolText      = "text"
	ToolFrame     = "frame"
	ToolImage     = "image"
	ToolDelete    = "delete"
	ToolReset     = "reset"
)

var DefaultNavElement = ActiveElement{Name: "Select", Value: ToolSelect, Icon: "select"}

var NavElements = []ActiveElement{
	DefaultNavElement,
	{Name: "Rectangle", Value: ToolRectangle, Icon: "rectangle"},
	{Name: "Circle", Value: ToolCircle, Icon: "circle"},
	{Name: "Line", Value: ToolLine, Icon: "line"},
	{Name: "Free Drawing", Value: ToolFreeform, Icon: "freeform"},
	{Name: "Text", Value: ToolText, Icon: "text"},
	{Name: "Frame", Value: ToolFrame, Icon: "frame"},
	{Name: "Image", Value: ToolImage, Icon: "image"},
	{Name: "Delete", Value: ToolDelete, Icon: "delete"},
	{Name: "Reset", Value: ToolReset, Icon: "reset"},
}

type Options struct {
	Logger *log.Logger
	// NewID generates objectIds. Defaults to random UUIDs.
	NewID func() string
}

// Session is one client's editing session. It is not safe for concurrent
// use; every method must run on the client's loop.
type Session struct {
	backend live.Backend
	surface Surface
	logger  *log.Logger
	newID   func() string

	active ActiveElement

	transient *state.Shape
	anchor    state.Point
	trail     []state.Point
	drawing   bool

	// reconciling is set while storage is being rendered; commits are
	// suppressed so a render never writes back.
	reconciling bool

	// localOnly holds shapes drawn while the backend was unavailable.
	localOnly map[string]bool

	clipboard []state.ShapeRecord

	attrs        ElementAttributes
	editing      bool
	activeObject string

	OnAttributesChange    func(ElementAttributes)
	OnActiveElementChange func(ActiveElement)
	// OnImageRequest is called when the image tool is picked; the UI answers
	// with InsertImage.
	OnImageRequest func()
}

func New(backend live.Backend, surface Surface, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Session{
		backend:   backend,
		surface:   surface,
		logger:    opts.Logger,
		newID:     opts.NewID,
		active:    DefaultNavElement,
		localOnly: make(map[string]bool),
	}
}

// Mount renders the current mapping and re-renders on every storage change
// until scope closes.
func (s *Session) Mount(scope *loop.Scope) {
	scope.Add(s.backend.SubscribeStorage(s.Reconcile))
	s.Reconcile(s.backend.Snapshot())
}

func (s *Session) ActiveElement() ActiveElement { return s.active }

// SelectTool handles a toolbar pick. Delete and reset act immediately and
// fall back to the default tool.
func (s *Session) SelectTool(el ActiveElement) {
	s.cancelTransient()

	switch el.Value {
	case ToolDelete:
		s.DeleteSelected()
		s.setActive(DefaultNavElement)
		return
	case ToolReset:
		s.Reset(nil)
		s.setActive(DefaultNavElement)
		return
	}

	s.setActive(el)
	s.surface.SetDrawingMode(el.Value == ToolFreeform)
	if el.Value == ToolImage && s.OnImageRequest != nil {
		s.OnImageRequest()
	}
}

func (s *Session) setActive(el ActiveElement) {
	if s.active == el {
		return
	}
	s.active = el
	if s.OnActiveElementChange != nil {
		s.OnActiveElementChange(el)
	}
}

func (s *Session) cancelTransient() {
	if s.transient == nil {
		return
	}
	s.transient = nil
	s.trail = nil
	s.drawing = false
	s.surface.SetTransient(nil)
}

// IsLocalOnly reports whether a shape is rendered but not in shared storage
// because its commit failed.
func (s *Session) IsLocalOnly(objectID string) bool {
	return s.localOnly[objectID]
}

func (s *Session) commitShapes(shapes ...state.Shape) {
	ops := make([]state.Op, 0, len(shapes))
	for _, shape := range shapes {
		rec, err := state.Encode(shape)
		if err != nil {
			s.logger.Printf("[Session] Cannot encode %s: %v", shape.ObjectID, err)
			continue
		}
		ops = append(ops, state.SetOp(rec))
	}
	s.commit(ops...)
}

// commit writes a batch to shared storage. It does nothing while reconciling.
func (s *Session) commit(ops ...state.Op) {
	s.commitThen(ops, nil)
}

// commitThen is commit with done, if set, called on the loop with the
// outcome. Shapes whose commit fails with ErrDisconnected become local-only.
func (s *Session) commitThen(ops []state.Op, done func(error)) {
	if s.reconciling || len(ops) == 0 {
		if done != nil {
			done(nil)
		}
		return
	}

	s.apply(ops, func(err error) {
		for _, op := range ops {
			switch {
			case err == nil, op.Type == state.OpDelete:
				delete(s.localOnly, op.ObjectID)
			case errors.Is(err, live.ErrDisconnected):
				s.localOnly[op.ObjectID] = true
			}
		}
		if err != nil {
			s.logger.Printf("[Session] Commit of %d ops failed: %v", len(ops), err)
		}
		if done != nil {
			done(err)
		}
	})
}

// apply never waits on a remote acknowledgement: backends that need one
// report back through done on the loop.
func (s *Session) apply(ops []state.Op, done func(error)) {
	if d, ok := s.backend.(live.Deferred); ok {
		d.ApplyAsync(ops, done)
		return
	}
	done(s.backend.Apply(ops...))
}
