package net

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the custom URL scheme of share links.
const Scheme = "livecanvas"

var ErrBadLink = errors.New("not a livecanvas link")

// ShareLink builds the link a host hands out, e.g.
// livecanvas://192.168.1.4:8888/default.
func ShareLink(host string, port int, room string) string {
	return fmt.Sprintf("%s://%s:%d/%s", Scheme, host, port, url.PathEscape(room))
}

// IsShareLink reports whether s looks like a share link.
func IsShareLink(s string) bool {
	return strings.HasPrefix(s, Scheme+"://")
}

// ParseShareLink returns the host:port and room of a share link. A link
// without a room joins "default".
func ParseShareLink(link string) (addr, room string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", link, err)
	}
	if u.Scheme != Scheme || u.Host == "" {
		return "", "", fmt.Errorf("%q: %w", link, ErrBadLink)
	}
	room = strings.Trim(u.Path, "/")
	if room == "" {
		room = "default"
	}
	return u.Host, room, nil
}

// RoomURL is the websocket endpoint of a room on a hub at addr.
func RoomURL(addr, room string) string {
	return (&url.URL{Scheme: "ws", Host: addr, Path: "/rooms/" + room}).String()
}
