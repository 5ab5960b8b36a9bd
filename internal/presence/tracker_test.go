package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	"LiveCanvas/internal/state"
)

func newTracker(t *testing.T, room *live.Room, id string, mock *clock.Mock) (*Tracker, *live.Member) {
	t.Helper()
	m := room.Join(id, nil)
	tr := NewTracker(m, mock, Options{})
	t.Cleanup(m.Leave)
	return tr, m
}

func TestModeTransitions(t *testing.T) {
	tr, _ := newTracker(t, live.NewRoom("r"), "a", clock.NewMock())

	tr.KeyUp("/")
	assert.Equal(t, Chat, tr.State().Mode)

	tr.KeyUp("e")
	assert.Equal(t, Chat, tr.State().Mode, "typed while composing")

	tr.ChatInput("hello")
	require.NotNil(t, tr.Presence().Message)
	assert.Equal(t, "hello", *tr.Presence().Message)

	tr.ChatSubmit()
	assert.Equal(t, CursorState{Mode: Chat, PreviousMessage: "hello"}, tr.State())

	tr.KeyUp("Escape")
	assert.Equal(t, CursorState{Mode: Hidden}, tr.State())
	require.NotNil(t, tr.Presence().Message)
	assert.Empty(t, *tr.Presence().Message)

	tr.KeyUp("e")
	assert.Equal(t, ReactionSelector, tr.State().Mode)

	tr.SelectReaction("🔥")
	assert.Equal(t, CursorState{Mode: Reaction, Reaction: "🔥"}, tr.State())

	tr.KeyUp("x")
	assert.Equal(t, Reaction, tr.State().Mode)
}

func TestEscapeFromEveryModeHides(t *testing.T) {
	for _, enter := range []func(*Tracker){
		func(tr *Tracker) {},
		func(tr *Tracker) { tr.KeyUp("/"); tr.ChatInput("x") },
		func(tr *Tracker) { tr.KeyUp("e") },
		func(tr *Tracker) { tr.SelectReaction("👍"); tr.PointerDown(state.Point{}) },
	} {
		tr, _ := newTracker(t, live.NewRoom("r"), "a", clock.NewMock())
		enter(tr)
		tr.KeyUp("Escape")
		assert.Equal(t, Hidden, tr.State().Mode)
		require.NotNil(t, tr.Presence().Message)
		assert.Empty(t, *tr.Presence().Message)
	}
}

func TestPointerMoveSkippedInSelectorWithoutCursor(t *testing.T) {
	tr, _ := newTracker(t, live.NewRoom("r"), "a", clock.NewMock())

	tr.KeyUp("e")
	tr.PointerMove(state.Point{X: 3, Y: 4})
	assert.Nil(t, tr.Cursor())

	tr.KeyUp("Escape")
	tr.PointerMove(state.Point{X: 3, Y: 4})
	tr.KeyUp("e")
	tr.PointerMove(state.Point{X: 5, Y: 6})
	assert.Equal(t, &state.Point{X: 5, Y: 6}, tr.Cursor())
}

func TestPointerLeaveResets(t *testing.T) {
	room := live.NewRoom("r")
	tr, _ := newTracker(t, room, "a", clock.NewMock())
	observer, _ := newTracker(t, room, "b", clock.NewMock())

	tr.KeyUp("/")
	tr.ChatInput("hi")
	tr.PointerMove(state.Point{X: 1, Y: 1})
	tr.PointerLeave()

	assert.Equal(t, CursorState{Mode: Hidden}, tr.State())
	assert.Equal(t, live.Presence{}, tr.Presence())
	others := observer.backend.Others()
	require.Len(t, others, 1)
	assert.Equal(t, live.Presence{}, others[0].Presence)
}

func TestArmedReactionKeepsEmittingAfterPointerUp(t *testing.T) {
	room := live.NewRoom("r")
	mock := clock.NewMock()
	tr, _ := newTracker(t, room, "a", mock)
	observer, _ := newTracker(t, room, "b", mock)
	var scope loop.Scope
	defer scope.Close()
	observer.Mount(loop.New(mock), &scope)

	tr.EmitTick()
	assert.Empty(t, tr.Reactions(), "nothing armed")

	tr.SelectReaction("👍")
	tr.PointerDown(state.Point{X: 10, Y: 20})
	tr.PointerUp()
	assert.True(t, tr.State().IsPressed)

	for i := 0; i < 3; i++ {
		tr.EmitTick()
		mock.Add(20 * time.Millisecond)
	}

	local := tr.Reactions()
	require.Len(t, local, 3)
	assert.Equal(t, state.Point{X: 10, Y: 20}, local[0].Point)
	assert.Equal(t, "👍", local[0].Value)
	assert.Len(t, observer.Reactions(), 3)
}

func TestReactionExpiry(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_000_000))
	tr, _ := newTracker(t, live.NewRoom("r"), "a", mock)

	tr.SelectReaction("🎉")
	tr.PointerDown(state.Point{X: 1, Y: 1})
	tr.EmitTick()
	require.Len(t, tr.Reactions(), 1)

	mock.Add(3999 * time.Millisecond)
	tr.SweepTick()
	assert.Len(t, tr.Reactions(), 1)

	mock.Add(2 * time.Millisecond)
	tr.SweepTick()
	assert.Empty(t, tr.Reactions())
}

func TestRemoteReactionUsesReceiptTime(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(50_000))
	tr, _ := newTracker(t, live.NewRoom("r"), "a", mock)

	data, err := json.Marshal(ReactionEvent{X: 1, Y: 2, Value: "👀", Timestamp: 0})
	require.NoError(t, err)
	tr.ReceiveEvent(live.Event{From: "b", Kind: EventReaction, Data: data})
	tr.ReceiveEvent(live.Event{From: "b", Kind: EventReaction, Data: []byte(`{`)})
	tr.ReceiveEvent(live.Event{From: "b", Kind: "other", Data: data})

	got := tr.Reactions()
	require.Len(t, got, 1)
	assert.Equal(t, mock.Now(), got[0].Timestamp)

	tr.SweepTick()
	assert.Len(t, tr.Reactions(), 1, "a stale sender clock does not expire it early")
}

func TestThirdClientSeesBothReactionStreams(t *testing.T) {
	room := live.NewRoom("r")
	mock := clock.NewMock()
	a, _ := newTracker(t, room, "a", mock)
	b, _ := newTracker(t, room, "b", mock)
	c, _ := newTracker(t, room, "c", mock)
	var scope loop.Scope
	defer scope.Close()
	c.Mount(loop.New(mock), &scope)

	a.SelectReaction("👍")
	a.PointerDown(state.Point{X: 1, Y: 1})
	b.SelectReaction("❤️")
	b.PointerDown(state.Point{X: 2, Y: 2})

	a.EmitTick()
	b.EmitTick()
	a.EmitTick()

	var values []string
	for _, r := range c.Reactions() {
		values = append(values, r.Value)
	}
	assert.Equal(t, []string{"👍", "❤️", "👍"}, values)
	assert.Len(t, c.Others(), 2)
}

func TestDisconnectedStopsEmission(t *testing.T) {
	mock := clock.NewMock()
	tr, m := newTracker(t, live.NewRoom("r"), "a", mock)

	tr.SelectReaction("👍")
	tr.PointerDown(state.Point{X: 1, Y: 1})
	m.Leave()

	tr.EmitTick()
	assert.Empty(t, tr.Reactions())

	tr.PointerMove(state.Point{X: 2, Y: 2})
	assert.Equal(t, &state.Point{X: 2, Y: 2}, tr.Cursor(), "local state still tracks the pointer")
}

func TestMountedTimersEmitAndSweep(t *testing.T) {
	mock := clock.NewMock()
	l := loop.New(mock)
	defer l.Close()
	tr, _ := newTracker(t, live.NewRoom("r"), "a", mock)
	var scope loop.Scope
	tr.Mount(l, &scope)

	tr.SelectReaction("👍")
	tr.PointerDown(state.Point{X: 1, Y: 1})

	mock.Add(DefaultEmitInterval)
	assert.Eventually(t, func() bool {
		l.RunPending()
		return len(tr.Reactions()) > 0
	}, time.Second, time.Millisecond)

	scope.Close()
	tr.PointerLeave()
	mock.Add(DefaultReactionTTL)
	tr.SweepTick()
	assert.Empty(t, tr.Reactions())
}
