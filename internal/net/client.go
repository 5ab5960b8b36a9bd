package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/state"
)

// ErrClosed is returned once the connection to the hub is gone. It matches
// live.ErrDisconnected.
var ErrClosed = fmt.Errorf("hub connection closed: %w", live.ErrDisconnected)

// Client is a live.Backend backed by a Hub over a websocket. Apply, Undo and
// Redo wait for the hub's acknowledgement; the Async forms hand it to the
// dispatch func instead. Failures are reported, never retried.
type Client struct {
	conn     *websocket.Conn
	dispatch func(func())
	logger   *log.Logger

	WriteTimeout time.Duration
	AckTimeout   time.Duration

	writeMu sync.Mutex

	mu       sync.Mutex
	id       string
	snapshot *state.Snapshot
	peers    []live.Peer
	storage  live.Subscribers[*state.Snapshot]
	events   live.Subscribers[live.Event]
	others   live.Subscribers[[]live.Peer]
	pending  map[uint64]chan error
	nextID   uint64
	closed   bool
	done     chan struct{}
}

var _ live.Backend = (*Client)(nil)
var _ live.Deferred = (*Client)(nil)

// Dial connects to a hub room URL such as ws://host:8888/rooms/default and
// waits for the welcome message. dispatch runs notifications on the caller's
// event loop.
func Dial(ctx context.Context, url string, dispatch func(func()), logger *log.Logger) (*Client, error) {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	if logger == nil {
		logger = log.Default()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	var welcome Message
	if err := conn.ReadJSON(&welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Type != TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected %s, got %q", TypeWelcome, welcome.Type)
	}
	conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:         conn,
		dispatch:     dispatch,
		logger:       logger,
		WriteTimeout: 5 * time.Second,
		AckTimeout:   10 * time.Second,
		id:           welcome.ClientID,
		snapshot:     welcome.Snapshot,
		peers:        welcome.Peers,
		pending:      make(map[uint64]chan error),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	logger.Printf("[Client] Connected to %s as %s", url, c.id)
	return c, nil
}

func (c *Client) ClientID() string { return c.id }

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.shutdown()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	close(c.done)
	c.conn.Close()
	for _, ch := range pending {
		ch <- ErrClosed
	}
}

func (c *Client) write(msg Message) error {
	if !c.Connected() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.shutdown()
		return fmt.Errorf("write %s: %w", msg.Type, ErrClosed)
	}
	return nil
}

// request sends msg and waits for its ack.
func (c *Client) request(msg Message) error {
	ch, err := c.enqueue(&msg)
	if err != nil {
		return err
	}
	return c.await(msg, ch)
}

// send sends msg and returns without waiting. done runs through dispatch
// once the ack arrives, the wait times out, or the connection drops.
func (c *Client) send(msg Message, done func(error)) {
	settle := func(err error) {
		if done != nil {
			c.dispatch(func() { done(err) })
		}
	}
	ch, err := c.enqueue(&msg)
	if err != nil {
		settle(err)
		return
	}
	go func() { settle(c.await(msg, ch)) }()
}

// enqueue registers msg for an ack and writes it.
func (c *Client) enqueue(msg *Message) (chan error, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextID++
	msg.ID = c.nextID
	ch := make(chan error, 1)
	c.pending[msg.ID] = ch
	c.mu.Unlock()

	if err := c.write(*msg); err != nil {
		c.forget(msg.ID)
		return nil, err
	}
	return ch, nil
}

func (c *Client) await(msg Message, ch chan error) error {
	timer := time.NewTimer(c.AckTimeout)
	defer timer.Stop()
	select {
	case err := <-ch:
		return err
	case <-timer.C:
		c.forget(msg.ID)
		return fmt.Errorf("%s: no acknowledgement after %s", msg.Type, c.AckTimeout)
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) Apply(ops ...state.Op) error {
	if len(ops) == 0 {
		if !c.Connected() {
			return ErrClosed
		}
		return nil
	}
	return c.request(Message{Type: TypeApply, Ops: ops})
}

func (c *Client) Undo() error { return c.request(Message{Type: TypeUndo}) }

func (c *Client) Redo() error { return c.request(Message{Type: TypeRedo}) }

func (c *Client) ApplyAsync(ops []state.Op, done func(error)) {
	if len(ops) == 0 {
		var err error
		if !c.Connected() {
			err = ErrClosed
		}
		if done != nil {
			c.dispatch(func() { done(err) })
		}
		return
	}
	c.send(Message{Type: TypeApply, Ops: ops}, done)
}

func (c *Client) UndoAsync(done func(error)) { c.send(Message{Type: TypeUndo}, done) }

func (c *Client) RedoAsync(done func(error)) { c.send(Message{Type: TypeRedo}, done) }

func (c *Client) Snapshot() *state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *Client) SetPresence(p live.Presence) error {
	return c.write(Message{Type: TypePresence, Presence: &p})
}

func (c *Client) ClearPresence() error {
	return c.SetPresence(live.Presence{})
}

func (c *Client) Others() []live.Peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peers
}

func (c *Client) Publish(kind string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return c.write(Message{Type: TypePublish, Kind: kind, Data: raw})
}

func (c *Client) SubscribeStorage(fn func(*state.Snapshot)) func() {
	return subscribe(&c.mu, &c.storage, fn)
}

func (c *Client) SubscribeOthers(fn func([]live.Peer)) func() {
	return subscribe(&c.mu, &c.others, fn)
}

func (c *Client) SubscribeEvents(fn func(live.Event)) func() {
	return subscribe(&c.mu, &c.events, fn)
}

func subscribe[T any](mu *sync.Mutex, subs *live.Subscribers[T], fn func(T)) func() {
	mu.Lock()
	token := subs.Add(fn)
	mu.Unlock()
	return func() {
		mu.Lock()
		subs.Remove(token)
		mu.Unlock()
	}
}

// notify runs the current subscribers on the caller's loop.
func notify[T any](c *Client, subs *live.Subscribers[T], v T) {
	c.dispatch(func() {
		c.mu.Lock()
		fns := subs.List()
		c.mu.Unlock()
		for _, fn := range fns {
			fn(v)
		}
	})
}

func (c *Client) readLoop() {
	defer c.shutdown()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if c.Connected() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Printf("[Client] Connection lost: %v", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case TypeStorage:
		if msg.Snapshot == nil {
			return
		}
		c.mu.Lock()
		stale := c.snapshot != nil && msg.Snapshot.Version < c.snapshot.Version
		if !stale {
			c.snapshot = msg.Snapshot
		}
		c.mu.Unlock()
		if !stale {
			notify(c, &c.storage, msg.Snapshot)
		}
	case TypeOthers:
		c.mu.Lock()
		c.peers = msg.Peers
		c.mu.Unlock()
		notify(c, &c.others, msg.Peers)
	case TypeEvent:
		if msg.Event != nil {
			notify(c, &c.events, *msg.Event)
		}
	case TypeAck:
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if !ok {
			return
		}
		if msg.Error != "" {
			ch <- errors.New(msg.Error)
		} else {
			ch <- nil
		}
	default:
		c.logger.Printf("[Client] Ignoring %q message", msg.Type)
	}
}
