package net

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/state"
)

const sendBufferSize = 256

// Hub is run by the host. It serves one live.Room per room id over
// websockets at /rooms/{room}.
type Hub struct {
	// OnRoomCreated runs once for every new room, before anyone joins. It is
	// the place to load and persist the room's document.
	OnRoomCreated func(*live.Room)

	WriteTimeout time.Duration
	Logger       *log.Logger

	upgrader websocket.Upgrader
	mu       sync.Mutex
	rooms    map[string]*live.Room
}

func NewHub() *Hub {
	return &Hub{
		WriteTimeout: 5 * time.Second,
		Logger:       log.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*live.Room),
	}
}

// Room returns the room with the given id, creating it on first use.
func (h *Hub) Room(id string) *live.Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[id]; ok {
		return room
	}
	room := live.NewRoom(id)
	if h.OnRoomCreated != nil {
		h.OnRoomCreated(room)
	}
	h.rooms[id] = room
	h.Logger.Printf("[Hub] Created room %s", id)
	return room
}

func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rooms/{room}", h.handleConn)
	return mux
}

func (h *Hub) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Printf("[Hub] Upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	room := h.Room(r.PathValue("room"))
	s := &stream{
		hub:  h,
		conn: conn,
		send: make(chan Message, sendBufferSize),
		done: make(chan struct{}),
	}
	s.serve(room)
}

// stream is one websocket connection. Room notifications are queued on send
// and written by a single writer goroutine.
type stream struct {
	hub    *Hub
	conn   *websocket.Conn
	member *live.Member

	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func (s *stream) serve(room *live.Room) {
	clientID := uuid.NewString()
	s.member = room.Join(clientID, nil)
	s.queue(Message{
		Type:     TypeWelcome,
		ClientID: clientID,
		Snapshot: s.member.Snapshot(),
		Peers:    s.member.Others(),
	})
	cancels := []func(){
		s.member.SubscribeStorage(func(snap *state.Snapshot) {
			s.queue(Message{Type: TypeStorage, Snapshot: snap})
		}),
		s.member.SubscribeOthers(func(peers []live.Peer) {
			s.queue(Message{Type: TypeOthers, Peers: peers})
		}),
		s.member.SubscribeEvents(func(ev live.Event) {
			s.queue(Message{Type: TypeEvent, Event: &ev})
		}),
	}
	// Anything committed between the welcome and the subscriptions.
	s.queue(Message{Type: TypeStorage, Snapshot: s.member.Snapshot()})
	s.queue(Message{Type: TypeOthers, Peers: s.member.Others()})

	go s.writeLoop()
	s.readLoop()

	for _, cancel := range cancels {
		cancel()
	}
	s.member.Leave()
	s.close()
	s.hub.Logger.Printf("[Hub] Client %s disconnected from room %s", clientID, room.ID)
}

// queue never blocks the room. A client that cannot keep up is dropped.
func (s *stream) queue(msg Message) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
		s.hub.Logger.Printf("[Hub] Dropping slow client %s", s.member.ClientID())
		s.close()
	}
}

func (s *stream) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *stream) writeLoop() {
	for {
		select {
		case msg := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.WriteTimeout)); err != nil {
				s.close()
				return
			}
			if err := s.conn.WriteJSON(msg); err != nil {
				s.hub.Logger.Printf("[Hub] Write to %s failed: %v", s.member.ClientID(), err)
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *stream) readLoop() {
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.hub.Logger.Printf("[Hub] Read from %s failed: %v", s.member.ClientID(), err)
			}
			return
		}
		s.handle(msg)
	}
}

func (s *stream) handle(msg Message) {
	switch msg.Type {
	case TypeApply:
		s.ack(msg.ID, s.member.Apply(msg.Ops...))
	case TypeUndo:
		s.ack(msg.ID, s.member.Undo())
	case TypeRedo:
		s.ack(msg.ID, s.member.Redo())
	case TypePresence:
		var p live.Presence
		if msg.Presence != nil {
			p = *msg.Presence
		}
		if err := s.member.SetPresence(p); err != nil {
			s.hub.Logger.Printf("[Hub] Presence from %s: %v", s.member.ClientID(), err)
		}
	case TypePublish:
		data := msg.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		if err := s.member.Publish(msg.Kind, data); err != nil {
			s.hub.Logger.Printf("[Hub] Publish from %s: %v", s.member.ClientID(), err)
		}
	default:
		s.hub.Logger.Printf("[Hub] Unknown message type %q from %s", msg.Type, s.member.ClientID())
	}
}

func (s *stream) ack(id uint64, err error) {
	reply := Message{Type: TypeAck, ID: id}
	if err != nil {
		reply.Error = err.Error()
	}
	s.queue(reply)
}
