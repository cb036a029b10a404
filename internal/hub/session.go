package hub

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/relay"
)

// Session is one connected websocket peer. Its role is unknown until the
// peer sends client_register; unregistered sessions receive nothing.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// dropped is set once the hub decides to evict this session.
	dropped atomic.Bool

	mu   sync.RWMutex
	role string
	id   string
}

// NewSession wraps an accepted connection.
func NewSession(h *Hub, conn *websocket.Conn) *Session {
	return &Session{hub: h, conn: conn, send: make(chan []byte, 256)}
}

// Role returns the registered role, empty before registration.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// ID returns the registered session id.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// WritePump drains the send channel onto the socket. Exits when the hub
// closes the channel or a write fails.
func (s *Session) WritePump() {
	defer s.conn.Close()
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// ReadPump consumes inbound envelopes until the connection drops. A
// malformed frame is dropped and logged; the session stays up.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg relay.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("hub: dropping malformed frame: %v", err)
			continue
		}
		s.handle(msg, raw)
	}
}

func (s *Session) handle(msg relay.Message, raw []byte) {
	switch msg.Name {
	case relay.MsgClientRegister:
		role, _ := msg.Data["type"].(string)
		id, _ := msg.Data["id"].(string)
		s.mu.Lock()
		s.role, s.id = role, id
		s.mu.Unlock()
		log.Printf("hub: session registered as %s (%s)", role, id)
		if role == relay.RoleVehicle {
			s.hub.sendLatest(s)
		}

	case relay.MsgPing:
		reply := relay.Message{
			Name:      relay.MsgPong,
			Data:      map[string]any{"sentAt": msg.Data["sentAt"]},
			CreatedAt: time.Now().UnixMilli(),
		}
		data, err := json.Marshal(reply)
		if err != nil {
			log.Printf("hub: encode pong: %v", err)
			return
		}
		s.hub.deliver(s, data)

	case relay.MsgGamepadInput:
		if s.Role() == relay.RoleController {
			s.hub.ForwardToVehicles(raw)
		}

	default:
		log.Printf("hub: unhandled message %q from %s", msg.Name, s.ID())
	}
}
