// Package presence tracks the local user's cursor mode, publishes presence,
// and keeps the short-lived queue of flying reactions.
package presence

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/state"
)

const (
	EventReaction = "reaction"

	DefaultEmitInterval  = 20 * time.Millisecond
	DefaultSweepInterval = time.Second
	DefaultReactionTTL   = 4 * time.Second
)

type Mode int

const (
	Hidden Mode = iota
	Chat
	Reaction
	ReactionSelector
)

func (m Mode) String() string {
	switch m {
	case Hidden:
		return "hidden"
	case Chat:
		return "chat"
	case Reaction:
		return "reaction"
	case ReactionSelector:
		return "reaction-selector"
	default:
		return "unknown"
	}
}

// CursorState is the local cursor mode and its payload.
type CursorState struct {
	Mode            Mode
	Message         string
	PreviousMessage string
	Reaction        string
	IsPressed       bool
}

// ReactionEvent is broadcast to peers. Timestamp is unix milliseconds at the
// sender.
type ReactionEvent struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Value     string  `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// FlyingReaction is an entry in the local render queue.
type FlyingReaction struct {
	Point     state.Point
	Value     string
	Timestamp time.Time
}

// Backend is the part of live.Backend the tracker uses.
type Backend interface {
	live.PresenceSlot
	live.Broadcaster
	Connected() bool
}

type Options struct {
	EmitInterval  time.Duration
	SweepInterval time.Duration
	ReactionTTL   time.Duration
	Logger        *log.Logger
}

func (o Options) withDefaults() Options {
	if o.EmitInterval <= 0 {
		o.EmitInterval = DefaultEmitInterval
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.ReactionTTL <= 0 {
		o.ReactionTTL = DefaultReactionTTL
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Tracker is the presence and cursor state machine. It is not safe for
// concurrent use; drive it from one loop.
type Tracker struct {
	backend Backend
	clock   clock.Clock
	opts    Options

	state     CursorState
	cursor    *state.Point
	message   *string
	reactions []FlyingReaction
	others    []live.Peer
	degraded  bool

	// OnChange is called after anything an overlay renders has changed.
	OnChange func()
}

func NewTracker(backend Backend, clk clock.Clock, opts Options) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{
		backend: backend,
		clock:   clk,
		opts:    opts.withDefaults(),
	}
}

// Mount starts the emission and expiry timers and subscribes to peers'
// reactions and presence. Everything is released when scope closes.
func (t *Tracker) Mount(l *loop.Loop, scope *loop.Scope) {
	scope.Every(l, t.opts.EmitInterval, t.EmitTick)
	scope.Every(l, t.opts.SweepInterval, t.SweepTick)
	scope.Add(t.backend.SubscribeEvents(t.ReceiveEvent))
	scope.Add(t.backend.SubscribeOthers(func(peers []live.Peer) {
		t.others = peers
		t.changed()
	}))
	t.others = t.backend.Others()
}

func (t *Tracker) State() CursorState { return t.state }

// Cursor is the local cursor position, nil when the pointer is outside.
func (t *Tracker) Cursor() *state.Point {
	if t.cursor == nil {
		return nil
	}
	p := *t.cursor
	return &p
}

// Presence is what this client currently shares.
func (t *Tracker) Presence() live.Presence {
	return live.Presence{Cursor: t.Cursor(), Message: t.message}
}

func (t *Tracker) Reactions() []FlyingReaction {
	out := make([]FlyingReaction, len(t.reactions))
	copy(out, t.reactions)
	return out
}

func (t *Tracker) Others() []live.Peer { return t.others }

// KeyUp handles the mode shortcuts. While a chat message is being composed,
// "/" and "e" are typed text, not shortcuts.
func (t *Tracker) KeyUp(key string) {
	switch key {
	case "/":
		if t.state.Mode == Chat {
			return
		}
		t.setState(CursorState{Mode: Chat})
	case "Escape":
		cleared := ""
		t.message = &cleared
		t.publish()
		t.setState(CursorState{Mode: Hidden})
	case "e":
		if t.state.Mode == Chat {
			return
		}
		t.setState(CursorState{Mode: ReactionSelector})
	}
}

// ChatInput updates the draft and shows it in the shared chat bubble.
func (t *Tracker) ChatInput(text string) {
	if t.state.Mode != Chat {
		return
	}
	t.state.Message = text
	msg := text
	t.message = &msg
	t.publish()
	t.changed()
}

// ChatSubmit keeps the sent message as the previous one and clears the draft.
func (t *Tracker) ChatSubmit() {
	if t.state.Mode != Chat {
		return
	}
	t.setState(CursorState{Mode: Chat, PreviousMessage: t.state.Message})
}

func (t *Tracker) SelectReaction(glyph string) {
	t.setState(CursorState{Mode: Reaction, Reaction: glyph})
}

// PointerMove updates the shared cursor, except while the reaction picker is
// open and no cursor has been established yet.
func (t *Tracker) PointerMove(p state.Point) {
	if t.state.Mode == ReactionSelector && t.cursor == nil {
		return
	}
	t.cursor = &p
	t.publish()
	t.changed()
}

func (t *Tracker) PointerDown(p state.Point) {
	t.cursor = &p
	t.publish()
	if t.state.Mode == Reaction {
		t.state.IsPressed = true
	}
	t.changed()
}

// PointerUp keeps a pressed reaction armed; emission continues until the
// pointer leaves or the mode changes.
func (t *Tracker) PointerUp() {
	if t.state.Mode == Reaction {
		t.state.IsPressed = true
	}
}

func (t *Tracker) PointerLeave() {
	t.state = CursorState{Mode: Hidden}
	t.cursor = nil
	t.message = nil
	t.publish()
	t.changed()
}

// EmitTick emits one reaction at the cursor while a reaction is armed.
func (t *Tracker) EmitTick() {
	if t.state.Mode != Reaction || !t.state.IsPressed || t.cursor == nil {
		return
	}
	if !t.backend.Connected() {
		return
	}

	now := t.clock.Now()
	t.reactions = append(t.reactions, FlyingReaction{Point: *t.cursor, Value: t.state.Reaction, Timestamp: now})
	err := t.backend.Publish(EventReaction, ReactionEvent{
		X:         t.cursor.X,
		Y:         t.cursor.Y,
		Value:     t.state.Reaction,
		Timestamp: now.UnixMilli(),
	})
	t.report(err)
	t.changed()
}

// SweepTick drops reactions that have reached the expiry age.
func (t *Tracker) SweepTick() {
	now := t.clock.Now()
	kept := t.reactions[:0]
	for _, r := range t.reactions {
		if now.Sub(r.Timestamp) < t.opts.ReactionTTL {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(t.reactions) {
		return
	}
	for i := len(kept); i < len(t.reactions); i++ {
		t.reactions[i] = FlyingReaction{}
	}
	t.reactions = kept
	t.changed()
}

// ReceiveEvent queues a peer's reaction as if it were local. It is never
// re-broadcast. The local receipt time is used for expiry.
func (t *Tracker) ReceiveEvent(ev live.Event) {
	if ev.Kind != EventReaction {
		return
	}
	var re ReactionEvent
	if err := json.Unmarshal(ev.Data, &re); err != nil {
		t.opts.Logger.Printf("[Presence] Dropping malformed reaction from %s: %v", ev.From, err)
		return
	}
	t.reactions = append(t.reactions, FlyingReaction{
		Point:     state.Point{X: re.X, Y: re.Y},
		Value:     re.Value,
		Timestamp: t.clock.Now(),
	})
	t.changed()
}

func (t *Tracker) setState(s CursorState) {
	t.state = s
	t.changed()
}

func (t *Tracker) publish() {
	t.report(t.backend.SetPresence(t.Presence()))
}

// report logs a backend failure once per outage.
func (t *Tracker) report(err error) {
	switch {
	case err == nil:
		if t.degraded {
			t.opts.Logger.Printf("[Presence] Backend available again")
		}
		t.degraded = false
	case errors.Is(err, live.ErrDisconnected):
		if !t.degraded {
			t.opts.Logger.Printf("[Presence] Backend unavailable, presence paused")
		}
		t.degraded = true
	default:
		t.opts.Logger.Printf("[Presence] Backend error: %v", err)
	}
}

func (t *Tracker) changed() {
	if t.OnChange != nil {
		t.OnChange()
	}
}
