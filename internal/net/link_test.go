package net

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareLinkRoundTrip(t *testing.T) {
	link := ShareLink("192.168.1.4", 8888, "design review")
	assert.True(t, IsShareLink(link))

	addr, room, err := ParseShareLink(link)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.4:8888", addr)
	assert.Equal(t, "design review", room)
	assert.Equal(t, "ws://192.168.1.4:8888/rooms/design%20review", RoomURL(addr, room))
}

func TestParseShareLinkDefaultsRoom(t *testing.T) {
	addr, room, err := ParseShareLink("livecanvas://10.0.0.2:8888/")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:8888", addr)
	assert.Equal(t, "default", room)
}

func TestParseShareLinkRejectsOtherSchemes(t *testing.T) {
	_, _, err := ParseShareLink("http://10.0.0.2:8888/r")
	assert.ErrorIs(t, err, ErrBadLink)
	assert.False(t, IsShareLink("localboard://x"))
}

func TestDiscoveredFromEntry(t *testing.T) {
	d, ok := discovered(&mdns.ServiceEntry{
		Name:       "studio._livecanvas._tcp.local.",
		AddrV4:     net.IPv4(10, 0, 0, 7),
		Port:       8888,
		InfoFields: []string{"LiveCanvas", "room=sketches"},
	})
	require.True(t, ok)
	assert.Equal(t, Discovered{Name: "studio", Addr: "10.0.0.7:8888", Room: "sketches"}, d)
	assert.Equal(t, "livecanvas://10.0.0.7:8888/sketches", d.Link())

	_, ok = discovered(&mdns.ServiceEntry{Port: 8888})
	assert.False(t, ok)
}
