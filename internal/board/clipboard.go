package board

import "LiveCanvas/internal/state"

// PasteOffset is how far pasted shapes are moved from their originals.
const PasteOffset = 20

// Copy keeps the selected shapes' records for Paste.
func (s *Session) Copy() int {
	ids := s.surface.Selected()
	if len(ids) == 0 {
		return 0
	}
	clip := make([]state.ShapeRecord, 0, len(ids))
	for _, id := range ids {
		shape, ok := s.surface.Lookup(id)
		if !ok {
			continue
		}
		rec, err := state.Encode(shape)
		if err != nil {
			s.logger.Printf("[Session] Cannot copy %s: %v", id, err)
			continue
		}
		clip = append(clip, rec)
	}
	s.clipboard = clip
	return len(clip)
}

func (s *Session) Cut() {
	if s.Copy() > 0 {
		s.DeleteSelected()
	}
}

// Paste adds copies of the clipboard shapes with fresh objectIds, offset from
// the originals, and selects them.
func (s *Session) Paste() {
	if len(s.clipboard) == 0 {
		return
	}
	shapes := make([]state.Shape, 0, len(s.clipboard))
	ids := make([]string, 0, len(s.clipboard))
	for _, rec := range s.clipboard {
		shape, err := state.Decode(rec)
		if err != nil {
			s.logger.Printf("[Session] Cannot paste %s: %v", rec.ObjectID, err)
			continue
		}
		shape.ObjectID = s.newID()
		shape.Left += PasteOffset
		shape.Top += PasteOffset
		s.surface.Add(shape)
		shapes = append(shapes, shape)
		ids = append(ids, shape.ObjectID)
	}
	s.commitShapes(shapes...)
	s.surface.Select(ids...)
	s.SelectionCreated(ids)
}
