// Package live defines what the editor core needs from the synchronization
// backend, and provides an in-process implementation of it.
package live

import (
	"encoding/json"
	"errors"
	"sort"

	"LiveCanvas/internal/state"
)

// ErrDisconnected is returned by every mutation while the backend is not
// connected.
var ErrDisconnected = errors.New("backend not connected")

// Presence is the ephemeral state a client shares with the others.
type Presence struct {
	Cursor  *state.Point `json:"cursor"`
	Message *string      `json:"message"`
}

// Peer is another client's presence, read-only.
type Peer struct {
	ClientID string   `json:"clientId"`
	Presence Presence `json:"presence"`
}

// Event is a transient broadcast message. It is never stored.
type Event struct {
	From string          `json:"from"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Storage is the shared ordered mapping from objectId to ShapeRecord.
type Storage interface {
	// Apply commits a batch of ops atomically.
	Apply(ops ...state.Op) error
	// Snapshot is the last known mapping, nil before it has been loaded.
	Snapshot() *state.Snapshot
	SubscribeStorage(fn func(*state.Snapshot)) (cancel func())
}

type PresenceSlot interface {
	SetPresence(p Presence) error
	ClearPresence() error
	Others() []Peer
	SubscribeOthers(fn func([]Peer)) (cancel func())
}

type Broadcaster interface {
	// Publish sends data, JSON encoded, to every other client.
	Publish(kind string, data any) error
	SubscribeEvents(fn func(Event)) (cancel func())
}

// History undoes and redoes this client's own storage mutations.
type History interface {
	Undo() error
	Redo() error
}

// Deferred is implemented by backends whose mutations wait on a remote
// acknowledgement. Each call returns at once; done runs on the caller's loop
// with the outcome.
type Deferred interface {
	ApplyAsync(ops []state.Op, done func(error))
	UndoAsync(done func(error))
	RedoAsync(done func(error))
}

type Backend interface {
	Storage
	PresenceSlot
	Broadcaster
	History
	ClientID() string
	Connected() bool
}

// Subscribers is a registry of callbacks keyed by a token. It is not safe for
// concurrent use; callers hold their own lock.
type Subscribers[T any] struct {
	next int
	fns  map[int]func(T)
}

func (s *Subscribers[T]) Add(fn func(T)) int {
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	s.next++
	s.fns[s.next] = fn
	return s.next
}

func (s *Subscribers[T]) Remove(token int) {
	delete(s.fns, token)
}

// List returns the callbacks in subscription order.
func (s *Subscribers[T]) List() []func(T) {
	tokens := make([]int, 0, len(s.fns))
	for token := range s.fns {
		tokens = append(tokens, token)
	}
	sort.Ints(tokens)

	out := make([]func(T), 0, len(tokens))
	for _, token := range tokens {
		out = append(out, s.fns[token])
	}
	return out
}
