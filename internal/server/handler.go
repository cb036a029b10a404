package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for LAN use
	},
}

func handleWebSocket(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		session := hub.NewSession(h, conn)
		h.Register(session)

		go session.WritePump()
		go session.ReadPump()
	}
}
