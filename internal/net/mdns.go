package net

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_livecanvas._tcp"

// Discovered is a host found on the local network.
type Discovered struct {
	Name string
	Addr string
	Room string
}

// Link is the share link for the discovered room.
func (d Discovered) Link() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, d.Addr, d.Room)
}

// Advertise announces a hosted room over mDNS until the server is shut down.
func Advertise(name string, port int, room string) (*mdns.Server, error) {
	info := []string{"LiveCanvas", "room=" + room}

	service, err := mdns.NewMDNSService(name, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}
	return server, nil
}

// Browse looks for hosts for the given time and calls found for each one.
func Browse(timeout time.Duration, found func(Discovered)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if d, ok := discovered(e); ok {
				found(d)
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("browse %s: %w", serviceType, err)
	}
	return nil
}

func discovered(e *mdns.ServiceEntry) (Discovered, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Discovered{}, false
	}
	d := Discovered{
		Name: strings.TrimSuffix(e.Name, "."+serviceType+".local."),
		Addr: fmt.Sprintf("%s:%d", e.AddrV4, e.Port),
		Room: "default",
	}
	for _, field := range e.InfoFields {
		if room, ok := strings.CutPrefix(field, "room="); ok && room != "" {
			d.Room = room
		}
	}
	return d, true
}
