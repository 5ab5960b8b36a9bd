package ui

import (
	"hash/fnv"

	"LiveCanvas/internal/presence"
	"LiveCanvas/internal/state"
)

// ReactionChoices are the glyphs offered by the reaction picker.
var ReactionChoices = []string{"👍", "🔥", "😍", "👀", "😱", "🙁"}

var cursorColors = []string{"#DC2626", "#D97706", "#059669", "#7C3AED", "#DB2777"}

const (
	selectorLeft = 16
	selectorTop  = 16
	selectorCell = 40
)

// PeerCursor is another client's cursor as drawn on the board.
type PeerCursor struct {
	ClientID string
	Point    state.Point
	Message  string
	Color    string
}

// Overlay is everything drawn above the shapes. It is rebuilt on the loop
// and read by the renderer.
type Overlay struct {
	Peers     []PeerCursor
	Reactions []presence.FlyingReaction
	Self      presence.CursorState
	Cursor    *state.Point
}

func overlayFrom(t *presence.Tracker) Overlay {
	o := Overlay{
		Reactions: t.Reactions(),
		Self:      t.State(),
		Cursor:    t.Cursor(),
	}
	for _, peer := range t.Others() {
		if peer.Presence.Cursor == nil {
			continue
		}
		pc := PeerCursor{
			ClientID: peer.ClientID,
			Point:    *peer.Presence.Cursor,
			Color:    cursorColor(peer.ClientID),
		}
		if peer.Presence.Message != nil {
			pc.Message = *peer.Presence.Message
		}
		o.Peers = append(o.Peers, pc)
	}
	return o
}

// cursorColor picks a stable color for a client.
func cursorColor(clientID string) string {
	h := fnv.New32a()
	h.Write([]byte(clientID))
	return cursorColors[h.Sum32()%uint32(len(cursorColors))]
}

// selectorHit returns the picker glyph under p.
func selectorHit(p state.Point) (string, bool) {
	if p.Y < selectorTop || p.Y >= selectorTop+selectorCell || p.X < selectorLeft {
		return "", false
	}
	i := int((p.X - selectorLeft) / selectorCell)
	if i >= len(ReactionChoices) {
		return "", false
	}
	return ReactionChoices[i], true
}
