package live

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"LiveCanvas/internal/state"
)

// Room hosts one shared document and the clients editing it. It is safe for
// concurrent use. Notifications reach each member through the member's own
// dispatch func, never synchronously inside the call that caused them.
type Room struct {
	ID string

	// OnCommit, if set, receives every snapshot produced by a mutation. It is
	// called outside the room lock and may be called concurrently.
	OnCommit func(state.Snapshot)

	mu      sync.Mutex
	doc     *state.Document
	members map[string]*Member
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		doc:     state.NewDocument(),
		members: make(map[string]*Member),
	}
}

// Load seeds the document, typically from persistent storage before anyone
// joins.
func (r *Room) Load(snap state.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Load(snap)
	log.Printf("[Room %s] Loaded %d records at version %d", r.ID, len(snap.Records), snap.Version)
}

func (r *Room) Snapshot() *state.Snapshot {
	snap := r.doc.Snapshot()
	return &snap
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Join adds a client. dispatch runs notification callbacks on the client's
// event loop.
func (r *Room) Join(clientID string, dispatch func(func())) *Member {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	m := &Member{room: r, id: clientID, dispatch: dispatch}

	r.mu.Lock()
	if old, exists := r.members[clientID]; exists {
		old.markLeft()
	}
	r.members[clientID] = m
	r.mu.Unlock()

	log.Printf("[Room %s] Joined: %s", r.ID, clientID)
	r.notifyOthers()
	return m
}

func (r *Room) leave(m *Member) {
	r.mu.Lock()
	if r.members[m.id] == m {
		delete(r.members, m.id)
	}
	r.mu.Unlock()

	m.markLeft()
	log.Printf("[Room %s] Left: %s", r.ID, m.id)
	r.notifyOthers()
}

func (r *Room) memberList() []*Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })
	return members
}

// apply commits ops and records them in the author's history. Must not be
// called with r.mu held.
func (r *Room) apply(ops []state.Op, record func(inverse []state.Op)) error {
	r.mu.Lock()
	inverse, err := r.doc.Apply(ops)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	record(inverse)
	snap := r.doc.Snapshot()
	r.mu.Unlock()

	if r.OnCommit != nil {
		r.OnCommit(snap)
	}
	for _, m := range r.memberList() {
		m.deliverStorage(&snap)
	}
	return nil
}

func (r *Room) notifyOthers() {
	members := r.memberList()
	for _, m := range members {
		peers := make([]Peer, 0, len(members))
		for _, other := range members {
			if other == m {
				continue
			}
			peers = append(peers, Peer{ClientID: other.id, Presence: other.currentPresence()})
		}
		m.deliverOthers(peers)
	}
}

func (r *Room) publish(from *Member, ev Event) {
	for _, m := range r.memberList() {
		if m == from {
			continue
		}
		m.deliverEvent(ev)
	}
}

// Member is one client's connection to a Room. It implements Backend.
type Member struct {
	room     *Room
	id       string
	dispatch func(func())

	mu       sync.Mutex
	storage  Subscribers[*state.Snapshot]
	events   Subscribers[Event]
	others   Subscribers[[]Peer]
	presence Presence
	left     bool
	// seen is the version of the last snapshot handed to storage subscribers.
	seen uint64

	// Guarded by room.mu.
	undo [][]state.Op
	redo [][]state.Op
}

var _ Backend = (*Member)(nil)

func (m *Member) ClientID() string { return m.id }

func (m *Member) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.left
}

// Leave disconnects the member. Later mutations fail with ErrDisconnected.
func (m *Member) Leave() {
	if m.Connected() {
		m.room.leave(m)
	}
}

func (m *Member) markLeft() {
	m.mu.Lock()
	m.left = true
	m.mu.Unlock()
}

func (m *Member) Apply(ops ...state.Op) error {
	if !m.Connected() {
		return ErrDisconnected
	}
	if len(ops) == 0 {
		return nil
	}
	return m.room.apply(ops, func(inverse []state.Op) {
		m.undo = append(m.undo, inverse)
		m.redo = nil
	})
}

func (m *Member) Snapshot() *state.Snapshot {
	return m.room.Snapshot()
}

func (m *Member) SubscribeStorage(fn func(*state.Snapshot)) func() {
	m.mu.Lock()
	token := m.storage.Add(fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.storage.Remove(token)
		m.mu.Unlock()
	}
}

func (m *Member) Undo() error {
	return m.step(&m.undo, &m.redo)
}

func (m *Member) Redo() error {
	return m.step(&m.redo, &m.undo)
}

// step pops a batch from one history stack, applies it, and pushes its
// inverse onto the other. An empty stack is a no-op.
func (m *Member) step(from, to *[][]state.Op) error {
	if !m.Connected() {
		return ErrDisconnected
	}

	m.room.mu.Lock()
	if len(*from) == 0 {
		m.room.mu.Unlock()
		return nil
	}
	ops := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	m.room.mu.Unlock()

	return m.room.apply(ops, func(inverse []state.Op) {
		*to = append(*to, inverse)
	})
}

func (m *Member) SetPresence(p Presence) error {
	m.mu.Lock()
	if m.left {
		m.mu.Unlock()
		return ErrDisconnected
	}
	m.presence = p
	m.mu.Unlock()

	m.room.notifyOthers()
	return nil
}

func (m *Member) ClearPresence() error {
	return m.SetPresence(Presence{})
}

func (m *Member) currentPresence() Presence {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presence
}

func (m *Member) Others() []Peer {
	var peers []Peer
	for _, other := range m.room.memberList() {
		if other != m {
			peers = append(peers, Peer{ClientID: other.id, Presence: other.currentPresence()})
		}
	}
	return peers
}

func (m *Member) SubscribeOthers(fn func([]Peer)) func() {
	m.mu.Lock()
	token := m.others.Add(fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.others.Remove(token)
		m.mu.Unlock()
	}
}

func (m *Member) Publish(kind string, data any) error {
	if !m.Connected() {
		return ErrDisconnected
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	m.room.publish(m, Event{From: m.id, Kind: kind, Data: raw})
	return nil
}

func (m *Member) SubscribeEvents(fn func(Event)) func() {
	m.mu.Lock()
	token := m.events.Add(fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.events.Remove(token)
		m.mu.Unlock()
	}
}

// The deliver funcs resolve subscribers when the callback runs, so a
// subscription cancelled in the meantime is not called.

// deliverStorage drops snapshots older than one already delivered. Commits
// finish outside the room lock, so they can reach the member out of order.
func (m *Member) deliverStorage(snap *state.Snapshot) {
	m.dispatch(func() {
		m.mu.Lock()
		if snap.Version < m.seen {
			m.mu.Unlock()
			return
		}
		m.seen = snap.Version
		fns := m.storage.List()
		m.mu.Unlock()
		for _, fn := range fns {
			fn(snap)
		}
	})
}

func (m *Member) deliverEvent(ev Event) {
	m.dispatch(func() {
		m.mu.Lock()
		fns := m.events.List()
		m.mu.Unlock()
		for _, fn := range fns {
			fn(ev)
		}
	})
}

func (m *Member) deliverOthers(peers []Peer) {
	m.dispatch(func() {
		m.mu.Lock()
		fns := m.others.List()
		m.mu.Unlock()
		for _, fn := range fns {
			fn(peers)
		}
	})
}
