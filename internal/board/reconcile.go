package board

import (
	"reflect"
	"slices"

	"LiveCanvas/internal/state"
)

// Reconcile brings the surface in line with a snapshot of shared storage. It
// never writes to storage, so the notification caused by a local commit
// renders without echoing back. A nil snapshot is ignored.
func (s *Session) Reconcile(snap *state.Snapshot) {
	if snap == nil {
		return
	}
	s.reconciling = true
	defer func() { s.reconciling = false }()

	selected := s.surface.Selected()
	present := make(map[string]bool, len(snap.Records))

	for _, rec := range snap.Records {
		present[rec.ObjectID] = true
		delete(s.localOnly, rec.ObjectID)

		shape, err := state.Decode(rec)
		if err != nil {
			s.logger.Printf("[Reconcile] Skipping %s: %v", rec.ObjectID, err)
			continue
		}
		current, ok := s.surface.Lookup(shape.ObjectID)
		switch {
		case !ok:
			s.surface.Add(shape)
		case !reflect.DeepEqual(current, shape):
			s.surface.Update(shape)
		}
	}

	for _, shape := range s.surface.Shapes() {
		if !present[shape.ObjectID] && !s.localOnly[shape.ObjectID] {
			s.surface.Remove(shape.ObjectID)
		}
	}

	kept := slices.DeleteFunc(slices.Clone(selected), func(id string) bool {
		_, ok := s.surface.Lookup(id)
		return !ok
	})
	if !slices.Equal(kept, selected) || len(kept) > 0 {
		s.surface.Select(kept...)
	}
	if !slices.Contains(kept, s.activeObject) {
		s.activeObject = ""
	} else if !s.editing {
		s.mirror(s.activeObject)
	}
}
