// Package hub routes relay traffic between connected sessions: controller
// sessions push input snapshots, vehicle sessions consume them.
package hub

import (
	"context"
	"log"
	"sync"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/relay"
)

// Hub owns the session table. The latest forwarded snapshot is retained
// so a vehicle connecting mid-session starts from current state instead
// of waiting for the next controller tick.
type Hub struct {
	register   chan *Session
	unregister chan *Session

	mu        sync.RWMutex
	sessions  map[*Session]bool
	lastInput []byte
}

// Stats is a point-in-time census of connected sessions.
type Stats struct {
	Controllers int `json:"controllers"`
	Vehicles    int `json:"vehicles"`
	Pending     int `json:"pending"`
}

func New() *Hub {
	return &Hub{
		register:   make(chan *Session),
		unregister: make(chan *Session),
		sessions:   make(map[*Session]bool),
	}
}

// Register adds a session to the hub.
func (h *Hub) Register(s *Session) {
	h.register <- s
}

// Unregister removes a session from the hub.
func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// Run services registration until the context ends. Should be run in a
// goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			n := len(h.sessions)
			h.mu.Unlock()
			log.Printf("hub: session connected (total: %d)", n)
		case s := <-h.unregister:
			h.mu.Lock()
			_, ok := h.sessions[s]
			if ok {
				delete(h.sessions, s)
				close(s.send)
			}
			n := len(h.sessions)
			h.mu.Unlock()
			if ok {
				log.Printf("hub: session disconnected (total: %d)", n)
			}
		}
	}
}

// ForwardToVehicles retains msg as the latest snapshot and fans it out to
// every vehicle session. A session whose send buffer is full is evicted
// rather than allowed to stall the others; the eviction is requested once
// and further frames for that session are discarded until it is gone.
func (h *Hub) ForwardToVehicles(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastInput = msg
	for s := range h.sessions {
		if s.Role() != relay.RoleVehicle {
			continue
		}
		select {
		case s.send <- msg:
		default:
			if s.dropped.CompareAndSwap(false, true) {
				log.Printf("hub: evicting slow vehicle %s", s.ID())
				go func(s *Session) {
					h.unregister <- s
				}(s)
			}
		}
	}
}

// deliver hands msg to s only while s is still registered. The membership
// check and the channel close in Run serialize under h.mu, so a reply can
// never hit a closed channel. Full buffers drop the message.
func (h *Hub) deliver(s *Session, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.sessions[s] {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

// sendLatest hands the retained snapshot to a newly registered vehicle.
func (h *Hub) sendLatest(s *Session) {
	h.mu.RLock()
	msg := h.lastInput
	h.mu.RUnlock()
	if msg == nil {
		return
	}
	h.deliver(s, msg)
}

// Stats counts sessions by role.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var st Stats
	for s := range h.sessions {
		switch s.Role() {
		case relay.RoleController:
			st.Controllers++
		case relay.RoleVehicle:
			st.Vehicles++
		default:
			st.Pending++
		}
	}
	return st
}
