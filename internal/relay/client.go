package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Status is the connection phase. A Client moves Connecting to Open to
// Closed exactly once; reconnecting means building a fresh Client so no
// timer from the old instance can survive into the new one.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

const (
	DefaultPingInterval = 500 * time.Millisecond
	DefaultSendInterval = 50 * time.Millisecond
)

// ErrNotOpen is returned when a send is skipped because the channel is not
// currently open. Skipped sends are not queued or retried.
var ErrNotOpen = errors.New("relay channel not open")

// SnapshotSource supplies the latest resolved action state for the
// periodic push. ok=false means there is nothing to send this tick.
type SnapshotSource interface {
	Snapshot() (map[string]any, bool)
}

// Options configure one Client instance.
type Options struct {
	// URL is the relay server websocket endpoint.
	URL string
	// Role announced at registration; defaults to RoleController.
	Role string
	// SessionID identifies this client; a random id is generated when empty.
	SessionID string
	// PingInterval spaces heartbeat probes; defaults to 500ms.
	PingInterval time.Duration
	// SendInterval spaces snapshot pushes; defaults to 50ms.
	SendInterval time.Duration
	// Clock drives the interval senders and timestamps.
	Clock clock.Clock
	// Diagnostics receives wire activity; nil discards it.
	Diagnostics *DiagnosticsSink
	// OnMessage, when set, receives every inbound message after the
	// built-in pong handling.
	OnMessage func(Message)
}

// Client is one connection instance to the relay server. It registers on
// open, heartbeats on a fixed interval, and pushes action snapshots on an
// independent interval once a target is selected. All senders stop when
// the client closes; a closed client never reopens.
type Client struct {
	opts   Options
	source SnapshotSource

	// wmu serializes socket writes. It is kept separate from mu so a
	// write blocked on a stalled peer never holds up Close or the
	// status readers.
	wmu sync.Mutex

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	cancel  context.CancelFunc
	target  string
	latency time.Duration
	hasRTT  bool
}

// New builds an unconnected client. Call Connect to open the channel.
func New(opts Options, source SnapshotSource) *Client {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.SendInterval <= 0 {
		opts.SendInterval = DefaultSendInterval
	}
	if opts.Role == "" {
		opts.Role = RoleController
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	return &Client{opts: opts, source: source, status: StatusConnecting}
}

// SessionID returns the id announced at registration.
func (c *Client) SessionID() string {
	return c.opts.SessionID
}

// Status returns the current connection phase.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetTarget selects the remote peer being controlled. Snapshot pushes run
// only while a target is set; clearing it with an empty id pauses them
// without touching the heartbeat.
func (c *Client) SetTarget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = id
}

// Target returns the currently selected remote peer id.
func (c *Client) Target() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Latency returns the last measured round trip, if any pong arrived yet.
// The value is advisory telemetry and never gates sending.
func (c *Client) Latency() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency, c.hasRTT
}

// Connect dials the relay server, sends the registration message, and
// starts the heartbeat and snapshot senders. ctx bounds the dial and the
// connection's lifetime: cancelling it tears the instance down the same
// way Close does.
func (c *Client) Connect(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.status = StatusClosed
		c.mu.Unlock()
		return errors.Wrapf(err, "dial %s", c.opts.URL)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.status != StatusConnecting {
		c.mu.Unlock()
		cancel()
		conn.Close()
		return errors.New("client already used")
	}
	c.conn = conn
	c.cancel = cancel
	c.status = StatusOpen
	c.mu.Unlock()

	register := map[string]any{"type": c.opts.Role, "id": c.opts.SessionID}
	if err := c.send(MsgClientRegister, register); err != nil {
		c.Close()
		return errors.Wrap(err, "register")
	}

	go c.readLoop()
	go c.pingLoop(runCtx)
	go c.snapshotLoop(runCtx)
	go func() {
		<-runCtx.Done()
		c.Close()
	}()
	return nil
}

// Close tears the instance down: senders are cancelled, the socket is
// closed, and the status becomes Closed. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.status == StatusClosed {
		return
	}
	c.status = StatusClosed
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// send writes one envelope if the channel is currently open, otherwise
// reports ErrNotOpen. Writes serialize on wmu to satisfy the one-writer
// rule of the websocket connection; the state mutex is released before
// the write, so Close can always reach the socket and abort a write
// blocked on a stalled peer.
func (c *Client) send(name string, data map[string]any) error {
	now := c.opts.Clock.Now()
	c.mu.Lock()
	if c.status != StatusOpen || c.conn == nil {
		c.mu.Unlock()
		return ErrNotOpen
	}
	conn := c.conn
	c.mu.Unlock()

	msg := Message{Name: name, Data: data, CreatedAt: now.UnixMilli()}
	c.wmu.Lock()
	err := conn.WriteJSON(msg)
	c.wmu.Unlock()
	if err != nil {
		if c.Status() == StatusClosed {
			// Close won the race and aborted the write; the skipped
			// send is the normal not-open path.
			return ErrNotOpen
		}
		c.opts.Diagnostics.Record(EntryError, name, err.Error(), now)
		c.Close()
		return errors.Wrapf(err, "send %s", name)
	}
	c.opts.Diagnostics.Record(EntrySent, name, "", now)
	return nil
}

func (c *Client) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.Close()
			return
		}
		now := c.opts.Clock.Now()
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.opts.Diagnostics.Record(EntryError, "", err.Error(), now)
			log.Printf("relay: dropping malformed frame: %v", err)
			continue
		}
		c.opts.Diagnostics.Record(EntryReceived, msg.Name, "", now)
		c.handle(msg, now)
	}
}

func (c *Client) handle(msg Message, now time.Time) {
	if msg.Name == MsgPong {
		if sentAt, ok := numberField(msg.Data, "sentAt"); ok {
			rtt := now.Sub(time.UnixMilli(sentAt))
			c.mu.Lock()
			c.latency = rtt
			c.hasRTT = true
			c.mu.Unlock()
		}
	}
	if c.opts.OnMessage != nil {
		c.opts.OnMessage(msg)
	}
}

// pingLoop sends the heartbeat on its own interval, independent of the
// snapshot sender.
func (c *Client) pingLoop(ctx context.Context) {
	t := c.opts.Clock.Ticker(c.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			data := map[string]any{"sentAt": c.opts.Clock.Now().UnixMilli()}
			if err := c.send(MsgPing, data); err != nil && !errors.Is(err, ErrNotOpen) {
				log.Printf("relay: ping: %v", err)
			}
		}
	}
}

// snapshotLoop pushes the latest resolved actions while a target is
// selected. Ticks with no target or no snapshot are skipped, never
// queued.
func (c *Client) snapshotLoop(ctx context.Context) {
	t := c.opts.Clock.Ticker(c.opts.SendInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if c.Target() == "" {
				continue
			}
			snap, ok := c.source.Snapshot()
			if !ok {
				continue
			}
			if err := c.send(MsgGamepadInput, snap); err != nil && !errors.Is(err, ErrNotOpen) {
				log.Printf("relay: snapshot: %v", err)
			}
		}
	}
}
