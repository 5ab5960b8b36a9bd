package net

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/state"
)

func rec(id string) state.ShapeRecord {
	payload, _ := json.Marshal(map[string]any{"geometry": map[string]int{"width": 10, "height": 10}})
	return state.ShapeRecord{ObjectID: id, Kind: state.KindRect, Payload: payload}
}

func startHub(t *testing.T, configure ...func(*Hub)) (*Hub, string) {
	t.Helper()
	h := NewHub()
	for _, fn := range configure {
		fn(h)
	}
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)
	return h, strings.TrimPrefix(srv.URL, "http://")
}

func dial(t *testing.T, addr, room string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, RoomURL(addr, room), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor[T any](t *testing.T, ch <-chan T, match func(T) bool) T {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case v := <-ch:
			if match(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for notification")
			var zero T
			return zero
		}
	}
}

func TestApplyReachesOtherClients(t *testing.T) {
	_, addr := startHub(t)
	a := dial(t, addr, "r")
	b := dial(t, addr, "r")
	assert.NotEqual(t, a.ClientID(), b.ClientID())

	snaps := make(chan *state.Snapshot, 16)
	b.SubscribeStorage(func(s *state.Snapshot) { snaps <- s })

	require.NoError(t, a.Apply(state.SetOp(rec("x"))))
	assert.Equal(t, 1, a.Snapshot().Len(), "the commit is visible once acknowledged")

	got := waitFor(t, snaps, func(s *state.Snapshot) bool { return s.Len() == 1 })
	_, ok := got.Get("x")
	assert.True(t, ok)
}

func TestRoomsAreSeparate(t *testing.T) {
	h, addr := startHub(t)
	a := dial(t, addr, "one")
	dial(t, addr, "two")

	require.NoError(t, a.Apply(state.SetOp(rec("x"))))
	assert.Equal(t, 1, h.Room("one").Snapshot().Len())
	assert.Zero(t, h.Room("two").Snapshot().Len())
}

func TestUndoRedoOverTheWire(t *testing.T) {
	h, addr := startHub(t)
	a := dial(t, addr, "r")

	require.NoError(t, a.Apply(state.SetOp(rec("x"))))
	require.NoError(t, a.Undo())
	assert.Zero(t, h.Room("r").Snapshot().Len())
	require.NoError(t, a.Redo())
	assert.Equal(t, 1, h.Room("r").Snapshot().Len())
}

func TestAsyncMutationsReportThroughDispatch(t *testing.T) {
	h, addr := startHub(t)
	a := dial(t, addr, "r")
	results := make(chan error, 4)
	report := func(err error) { results <- err }
	next := func() error { return waitFor(t, results, func(error) bool { return true }) }

	a.ApplyAsync([]state.Op{state.SetOp(rec("x"))}, report)
	require.NoError(t, next())
	assert.Equal(t, 1, h.Room("r").Snapshot().Len())
	assert.Equal(t, 1, a.Snapshot().Len())

	a.ApplyAsync([]state.Op{{Type: "rename", ObjectID: "x"}}, report)
	err := next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op type")

	a.UndoAsync(report)
	require.NoError(t, next())
	assert.Zero(t, h.Room("r").Snapshot().Len())
	a.RedoAsync(report)
	require.NoError(t, next())
	assert.Equal(t, 1, h.Room("r").Snapshot().Len())

	require.NoError(t, a.Close())
	a.ApplyAsync([]state.Op{state.SetOp(rec("y"))}, report)
	assert.ErrorIs(t, next(), live.ErrDisconnected)
}

func TestInvalidBatchIsRejected(t *testing.T) {
	_, addr := startHub(t)
	a := dial(t, addr, "r")

	err := a.Apply(state.Op{Type: "rename", ObjectID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op type")
	assert.True(t, a.Connected())
}

func TestPresenceAndEvents(t *testing.T) {
	_, addr := startHub(t)
	a := dial(t, addr, "r")
	b := dial(t, addr, "r")

	peers := make(chan []live.Peer, 16)
	events := make(chan live.Event, 16)
	b.SubscribeOthers(func(p []live.Peer) { peers <- p })
	b.SubscribeEvents(func(ev live.Event) { events <- ev })

	require.NoError(t, a.SetPresence(live.Presence{Cursor: &state.Point{X: 3, Y: 4}}))
	got := waitFor(t, peers, func(p []live.Peer) bool {
		return len(p) == 1 && p[0].Presence.Cursor != nil
	})
	assert.Equal(t, a.ClientID(), got[0].ClientID)
	assert.Equal(t, state.Point{X: 3, Y: 4}, *got[0].Presence.Cursor)

	require.NoError(t, a.Publish("reaction", map[string]any{"value": "👍"}))
	ev := waitFor(t, events, func(live.Event) bool { return true })
	assert.Equal(t, a.ClientID(), ev.From)
	assert.Equal(t, "reaction", ev.Kind)
	assert.JSONEq(t, `{"value":"👍"}`, string(ev.Data))
}

func TestOnRoomCreatedSeedsDocument(t *testing.T) {
	var created atomic.Int32
	_, addr := startHub(t, func(h *Hub) {
		h.OnRoomCreated = func(room *live.Room) {
			created.Add(1)
			room.Load(state.Snapshot{Version: 5, Records: []state.ShapeRecord{rec("seed")}})
		}
	})

	a := dial(t, addr, "r")
	dial(t, addr, "r")
	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, uint64(5), a.Snapshot().Version)
	assert.Equal(t, 1, a.Snapshot().Len())
}

func TestClosedClientIsDisconnected(t *testing.T) {
	_, addr := startHub(t)
	a := dial(t, addr, "r")

	require.NoError(t, a.Close())
	assert.False(t, a.Connected())
	assert.ErrorIs(t, a.Apply(state.SetOp(rec("x"))), live.ErrDisconnected)
	assert.ErrorIs(t, a.SetPresence(live.Presence{}), live.ErrDisconnected)
	assert.ErrorIs(t, a.Publish("reaction", nil), ErrClosed)

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
}

func TestDialRejectsNonHub(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/rooms/x", nil, nil)
	assert.Error(t, err)
}
