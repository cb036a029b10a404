package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/hub"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/relay"
)

func newTestRelay(t *testing.T) *httptest.Server {
	t.Helper()
	h := hub.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	srv := New(h, "127.0.0.1:0")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dialRelay(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, name string, data map[string]any) {
	t.Helper()
	msg := relay.Message{Name: name, Data: data, CreatedAt: time.Now().UnixMilli()}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) (relay.Message, error) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return relay.Message{}, err
	}
	var msg relay.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode frame %q: %v", raw, err)
	}
	return msg, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func vehicleCount(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer res.Body.Close()
	var payload struct {
		Vehicles int `json:"vehicles"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return payload.Vehicles
}

// syncBuffer collects log output written from the hub's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// registerAs announces a role and confirms via a ping round trip that the
// registration was processed. Frames delivered before the pong (such as a
// replayed snapshot) are returned.
func registerAs(t *testing.T, conn *websocket.Conn, role, id string) []relay.Message {
	t.Helper()
	sendEnvelope(t, conn, relay.MsgClientRegister, map[string]any{"type": role, "id": id})
	sendEnvelope(t, conn, relay.MsgPing, map[string]any{"sentAt": 1})
	var before []relay.Message
	for {
		msg, err := readEnvelope(t, conn, 2*time.Second)
		if err != nil {
			t.Fatalf("waiting for pong after register: %v", err)
		}
		if msg.Name == relay.MsgPong {
			return before
		}
		before = append(before, msg)
	}
}

func TestPingEchoesSentAt(t *testing.T) {
	ts := newTestRelay(t)
	conn := dialRelay(t, ts)
	registerAs(t, conn, relay.RoleController, "op-1")

	sendEnvelope(t, conn, relay.MsgPing, map[string]any{"sentAt": 123456})
	msg, err := readEnvelope(t, conn, 2*time.Second)
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg.Name != relay.MsgPong {
		t.Fatalf("frame = %q, want pong", msg.Name)
	}
	if got, _ := msg.Data["sentAt"].(float64); got != 123456 {
		t.Errorf("echoed sentAt = %v, want 123456", msg.Data["sentAt"])
	}
	if msg.CreatedAt == 0 {
		t.Error("pong carries no createdAt")
	}
}

func TestControllerInputReachesVehicles(t *testing.T) {
	ts := newTestRelay(t)
	ctrl := dialRelay(t, ts)
	registerAs(t, ctrl, relay.RoleController, "op-1")
	veh := dialRelay(t, ts)
	registerAs(t, veh, relay.RoleVehicle, "bot-1")

	sendEnvelope(t, ctrl, relay.MsgGamepadInput, map[string]any{
		"horn":                   true,
		"forward-backward-group": 0.5,
	})
	msg, err := readEnvelope(t, veh, 2*time.Second)
	if err != nil {
		t.Fatalf("vehicle read: %v", err)
	}
	if msg.Name != relay.MsgGamepadInput {
		t.Fatalf("frame = %q, want gamepad_input", msg.Name)
	}
	if msg.Data["horn"] != true {
		t.Errorf("horn = %v, want true", msg.Data["horn"])
	}
	if got, _ := msg.Data["forward-backward-group"].(float64); got != 0.5 {
		t.Errorf("drive group = %v, want 0.5", msg.Data["forward-backward-group"])
	}

	if echo, err := readEnvelope(t, ctrl, 200*time.Millisecond); err == nil {
		t.Errorf("controller received its own input back: %q", echo.Name)
	}
}

func TestVehicleCannotInjectInput(t *testing.T) {
	ts := newTestRelay(t)
	veh1 := dialRelay(t, ts)
	registerAs(t, veh1, relay.RoleVehicle, "bot-1")
	veh2 := dialRelay(t, ts)
	registerAs(t, veh2, relay.RoleVehicle, "bot-2")

	sendEnvelope(t, veh1, relay.MsgGamepadInput, map[string]any{"boost": true})
	if msg, err := readEnvelope(t, veh2, 200*time.Millisecond); err == nil {
		t.Errorf("vehicle-originated input was forwarded: %q", msg.Name)
	}
}

func TestLateVehicleGetsLatestSnapshot(t *testing.T) {
	ts := newTestRelay(t)
	ctrl := dialRelay(t, ts)
	registerAs(t, ctrl, relay.RoleController, "op-1")

	sendEnvelope(t, ctrl, relay.MsgGamepadInput, map[string]any{"use": true})
	// The next pong confirms the snapshot was processed before the
	// vehicle connects.
	sendEnvelope(t, ctrl, relay.MsgPing, map[string]any{"sentAt": 2})
	if msg, err := readEnvelope(t, ctrl, 2*time.Second); err != nil || msg.Name != relay.MsgPong {
		t.Fatalf("confirming ping: %v %v", msg.Name, err)
	}

	veh := dialRelay(t, ts)
	pre := registerAs(t, veh, relay.RoleVehicle, "bot-1")
	if len(pre) != 1 || pre[0].Name != relay.MsgGamepadInput {
		t.Fatalf("frames before pong = %+v, want one replayed snapshot", pre)
	}
	if pre[0].Data["use"] != true {
		t.Errorf("replayed snapshot = %v, want use=true", pre[0].Data)
	}
}

func TestMalformedFrameKeepsSessionAlive(t *testing.T) {
	ts := newTestRelay(t)
	conn := dialRelay(t, ts)
	registerAs(t, conn, relay.RoleController, "op-1")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("][ not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	sendEnvelope(t, conn, relay.MsgPing, map[string]any{"sentAt": 9})
	msg, err := readEnvelope(t, conn, 2*time.Second)
	if err != nil || msg.Name != relay.MsgPong {
		t.Fatalf("pong after garbage: %v %v", msg.Name, err)
	}
}

func TestSlowVehicleEvictionKeepsRelayAlive(t *testing.T) {
	var logs syncBuffer
	prev := log.Writer()
	log.SetOutput(&logs)
	defer log.SetOutput(prev)

	ts := newTestRelay(t)
	veh := dialRelay(t, ts)
	registerAs(t, veh, relay.RoleVehicle, "bot-1")
	ctrl := dialRelay(t, ts)
	registerAs(t, ctrl, relay.RoleController, "op-1")

	// The vehicle stops reading, so large frames fill its socket buffers
	// and then its send queue until the hub evicts it.
	blob := strings.Repeat("x", 64<<10)
	for i := 0; i < 400; i++ {
		sendEnvelope(t, ctrl, relay.MsgGamepadInput, map[string]any{"blob": blob})
	}
	waitFor(t, "vehicle eviction", func() bool { return vehicleCount(t, ts) == 0 })
	if !strings.Contains(logs.String(), "evicting slow vehicle") {
		t.Error("eviction was not logged")
	}

	// The evicted session's reader is still running; its next frame must
	// be ignored, not handed to the closed queue.
	sendEnvelope(t, veh, relay.MsgPing, map[string]any{"sentAt": 7})

	sendEnvelope(t, ctrl, relay.MsgPing, map[string]any{"sentAt": 8})
	msg, err := readEnvelope(t, ctrl, 2*time.Second)
	if err != nil || msg.Name != relay.MsgPong {
		t.Fatalf("relay unresponsive after eviction: %v %v", msg.Name, err)
	}

	if n := strings.Count(logs.String(), "session disconnected"); n != 1 {
		t.Errorf("disconnect logged %d times for one eviction, want 1", n)
	}
}

func TestHealthzCountsSessions(t *testing.T) {
	ts := newTestRelay(t)
	ctrl := dialRelay(t, ts)
	registerAs(t, ctrl, relay.RoleController, "op-1")
	veh := dialRelay(t, ts)
	registerAs(t, veh, relay.RoleVehicle, "bot-1")

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	var payload struct {
		Status      string `json:"status"`
		Controllers int    `json:"controllers"`
		Vehicles    int    `json:"vehicles"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload.Status != "ok" || payload.Controllers != 1 || payload.Vehicles != 1 {
		t.Errorf("health = %+v, want ok with 1 controller and 1 vehicle", payload)
	}
}

func TestStatusPageServed(t *testing.T) {
	ts := newTestRelay(t)
	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "ByteRacer Relay") {
		t.Error("status page missing title")
	}

	res2, err := http.Get(ts.URL + "/nothing-here")
	if err != nil {
		t.Fatalf("GET /nothing-here: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", res2.StatusCode)
	}
}
