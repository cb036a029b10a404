// Package server exposes the relay over HTTP: the websocket endpoint the
// agents dial, a health probe, and a small status page.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/hub"
)

//go:embed status.html
var statusPage []byte

type Server struct {
	hub        *hub.Hub
	addr       string
	started    time.Time
	page       []byte
	httpServer *http.Server
}

func New(h *hub.Hub, addr string) *Server {
	return &Server{
		hub:     h,
		addr:    addr,
		started: time.Now(),
		page:    minifyStatusPage(),
	}
}

func minifyStatusPage() []byte {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	out, err := m.Bytes("text/html", statusPage)
	if err != nil {
		log.Printf("server: minify status page: %v", err)
		return statusPage
	}
	return out
}

// Handler builds the route table. Exposed so tests can mount it without
// binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWebSocket(s.hub))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleStatus)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
		hub.Stats
	}{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Stats:  s.hub.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("server: encode health: %v", err)
	}
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	log.Printf("HTTP server listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		log.Println("Shutting down HTTP server...")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
