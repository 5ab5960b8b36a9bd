package board

import (
	"strings"

	"LiveCanvas/internal/live"
)

// Key is a key press. Ctrl also covers the platform's command key.
type Key struct {
	Name  string
	Ctrl  bool
	Shift bool
}

// HandleKey routes editor shortcuts. Undo and redo go to the backend's
// history; the resulting storage change is rendered by Reconcile like any
// other. It reports whether the key was consumed.
func (s *Session) HandleKey(k Key) bool {
	if !k.Ctrl {
		switch k.Name {
		case "Delete", "Backspace":
			if s.editing {
				return false
			}
			s.DeleteSelected()
			return true
		}
		return false
	}

	switch strings.ToLower(k.Name) {
	case "z":
		if k.Shift {
			s.redo()
		} else {
			s.undo()
		}
	case "y":
		s.redo()
	case "c":
		s.Copy()
	case "x":
		s.Cut()
	case "v":
		s.Paste()
	default:
		return false
	}
	return true
}

func (s *Session) undo() {
	if d, ok := s.backend.(live.Deferred); ok {
		d.UndoAsync(s.historyDone("Undo"))
		return
	}
	s.historyDone("Undo")(s.backend.Undo())
}

func (s *Session) redo() {
	if d, ok := s.backend.(live.Deferred); ok {
		d.RedoAsync(s.historyDone("Redo"))
		return
	}
	s.historyDone("Redo")(s.backend.Redo())
}

func (s *Session) historyDone(step string) func(error) {
	return func(err error) {
		if err != nil {
			s.logger.Printf("[Session] %s failed: %v", step, err)
		}
	}
}
