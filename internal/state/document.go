package state

import (
	"fmt"
	"sync"
)

// Document is the shared ordered mapping from objectId to ShapeRecord.
// Re-setting an existing key keeps its insertion slot.
type Document struct {
	mu      sync.RWMutex
	clock   Lamport
	order   []string
	records map[string]ShapeRecord
}

func NewDocument() *Document {
	return &Document{records: make(map[string]ShapeRecord)}
}

// Load replaces the document content, e.g. from persisted storage.
func (d *Document) Load(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.order = d.order[:0]
	d.records = make(map[string]ShapeRecord, len(snap.Records))
	for _, rec := range snap.Records {
		if _, exists := d.records[rec.ObjectID]; !exists {
			d.order = append(d.order, rec.ObjectID)
		}
		d.records[rec.ObjectID] = rec
	}
	d.clock.Observe(snap.Version)
}

// Apply performs a batch of ops atomically and returns the ops that undo it,
// in the order they must be applied.
func (d *Document) Apply(ops []Op) ([]Op, error) {
	for _, op := range ops {
		if err := validate(op); err != nil {
			return nil, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	inverse := make([]Op, 0, len(ops))
	for _, op := range ops {
		prev, existed := d.records[op.ObjectID]
		switch op.Type {
		case OpSet:
			if !existed {
				d.order = append(d.order, op.ObjectID)
			}
			d.records[op.ObjectID] = *op.Record
		case OpDelete:
			if !existed {
				continue
			}
			delete(d.records, op.ObjectID)
			d.removeFromOrder(op.ObjectID)
		}

		if existed {
			inverse = append(inverse, SetOp(prev))
		} else {
			inverse = append(inverse, DeleteOp(op.ObjectID))
		}
	}
	d.clock.Tick()

	// Undo in reverse order so that repeated keys end at their first value.
	for i, j := 0, len(inverse)-1; i < j; i, j = i+1, j-1 {
		inverse[i], inverse[j] = inverse[j], inverse[i]
	}
	return inverse, nil
}

func validate(op Op) error {
	if op.ObjectID == "" {
		return ErrMissingObjectID
	}
	switch op.Type {
	case OpSet:
		if op.Record == nil || op.Record.ObjectID != op.ObjectID {
			return fmt.Errorf("set %s: record does not match key", op.ObjectID)
		}
	case OpDelete:
	default:
		return fmt.Errorf("unknown op type %q", op.Type)
	}
	return nil
}

func (d *Document) removeFromOrder(objectID string) {
	for i, id := range d.order {
		if id == objectID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the document in insertion order.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	records := make([]ShapeRecord, 0, len(d.order))
	for _, id := range d.order {
		records = append(records, d.records[id])
	}
	return Snapshot{Version: d.clock.Now(), Records: records}
}

func (d *Document) Get(objectID string) (ShapeRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[objectID]
	return rec, ok
}

func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

func (d *Document) Version() uint64 {
	return d.clock.Now()
}
