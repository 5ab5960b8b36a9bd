package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"LiveCanvas/internal/config"
	"LiveCanvas/internal/live"
	"LiveCanvas/internal/loop"
	lcnet "LiveCanvas/internal/net"
	"LiveCanvas/internal/presence"
	"LiveCanvas/internal/store"
	"LiveCanvas/internal/ui"
)

const discoverTimeout = 3 * time.Second

func main() {
	cfg := config.Load()

	args := os.Args
	switch {
	case len(args) > 1 && lcnet.IsShareLink(args[1]):
		runClient(cfg, args[1])
	case len(args) > 1 && args[1] == "discover":
		runDiscover()
	default:
		runHost(cfg)
	}
}

func presenceOptions(cfg *config.Config) presence.Options {
	return presence.Options{
		EmitInterval:  cfg.Presence.EmitInterval,
		SweepInterval: cfg.Presence.SweepInterval,
		ReactionTTL:   cfg.Presence.ReactionTTL,
	}
}

func startLoop() (*loop.Loop, context.CancelFunc) {
	l := loop.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Loop stopped: %v", err)
		}
	}()
	return l, func() {
		cancel()
		l.Close()
	}
}

func runHost(cfg *config.Config) {
	log.Println("Starting as HOST")

	hub := lcnet.NewHub()
	hub.WriteTimeout = cfg.Server.WriteTimeout
	if cfg.Redis.Addr != "" {
		rs, err := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("[Redis] %v, rooms will not be persisted", err)
		} else {
			defer rs.Close()
			hub.OnRoomCreated = func(room *live.Room) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rs.Attach(ctx, room); err != nil {
					log.Printf("[Redis] Cannot attach room %s: %v", room.ID, err)
				}
			}
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Host server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	if cfg.Server.Advertise {
		mdnsServer, err := lcnet.Advertise(cfg.Server.Name, cfg.Server.Port, cfg.Server.Room)
		if err != nil {
			log.Printf("[Net] LAN discovery disabled: %v", err)
		} else {
			defer mdnsServer.Shutdown()
		}
	}

	l, stop := startLoop()
	defer stop()

	member := hub.Room(cfg.Server.Room).Join("host", l.Dispatch)
	defer member.Leave()

	shareLink := lcnet.ShareLink(lcnet.OutgoingIP(), cfg.Server.Port, cfg.Server.Room)
	log.Printf("Share link: %s", shareLink)

	ui.RunApp(ui.Options{
		Title:     "LiveCanvas (host)",
		Room:      cfg.Server.Room,
		Backend:   member,
		Loop:      l,
		ShareLink: shareLink,
		Presence:  presenceOptions(cfg),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

func runClient(cfg *config.Config, link string) {
	log.Println("Starting as CLIENT")

	addr, room, err := lcnet.ParseShareLink(link)
	if err != nil {
		log.Fatalf("Invalid link %q: %v", link, err)
	}

	l, stop := startLoop()
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := lcnet.Dial(ctx, lcnet.RoomURL(addr, room), l.Dispatch, log.Default())
	cancel()
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()
	log.Printf("Client connected to %s as %s", addr, client.ClientID())
	go func() {
		<-client.Done()
		log.Println("Disconnected from host, new shapes stay local")
	}()

	ui.RunApp(ui.Options{
		Title:     "LiveCanvas",
		Room:      room,
		Backend:   client,
		Loop:      l,
		ShareLink: link,
		Presence:  presenceOptions(cfg),
	})
}

func runDiscover() {
	log.Println("Looking for boards on the local network")
	found := 0
	err := lcnet.Browse(discoverTimeout, func(d lcnet.Discovered) {
		found++
		fmt.Printf("%s\t%s\n", d.Name, d.Link())
	})
	if err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}
	if found == 0 {
		log.Println("No boards found")
	}
}
