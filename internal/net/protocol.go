package net

import (
	"encoding/json"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/state"
)

// Message types. The first group is sent by clients, the second by the hub.
const (
	TypeApply    = "apply"
	TypeUndo     = "undo"
	TypeRedo     = "redo"
	TypePresence = "presence"
	TypePublish  = "publish"

	TypeWelcome = "welcome"
	TypeStorage = "storage"
	TypeOthers  = "others"
	TypeEvent   = "event"
	TypeAck     = "ack"
)

// Message is the JSON envelope for everything on the wire.
type Message struct {
	Type     string          `json:"type"`
	ID       uint64          `json:"id,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Ops      []state.Op      `json:"ops,omitempty"`
	Snapshot *state.Snapshot `json:"snapshot,omitempty"`
	Presence *live.Presence  `json:"presence,omitempty"`
	Peers    []live.Peer     `json:"peers,omitempty"`
	Event    *live.Event     `json:"event,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
}
