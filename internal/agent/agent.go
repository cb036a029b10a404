// Package agent runs the operator side: it polls the selected controller,
// feeds samples through the remap machine or the action resolver, persists
// mapping changes, and hands the latest snapshot to the relay client.
package agent

import (
	"context"
	"log"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/config"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/control"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/relay"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/store"
)

// DevicePoller is the slice of the gamepad poller the agent consumes.
type DevicePoller interface {
	Run(ctx context.Context)
	Devices() []gamepad.Device
	Lookup(identity string) (gamepad.Device, bool)
	Sample(id int) (gamepad.State, bool)
}

// ErrNoDevice is returned by operations that need a selected controller.
var ErrNoDevice = errors.New("no controller selected")

// Agent owns the per-tick control flow. One mutex serializes device
// selection, remap sessions, and resolution, so a capture decision and a
// normal-state update can never race within one tick.
type Agent struct {
	cfg    config.Agent
	clk    clock.Clock
	poller DevicePoller
	store  *store.Store
	diag   *relay.DiagnosticsSink

	mu        sync.RWMutex
	remapper  *control.Remapper
	resolver  control.ResolverConfig
	selected  gamepad.Device
	hasDevice bool
	slots     []gamepad.InputSlot
	prev      gamepad.State
	latest    map[string]any
	hasSnap   bool
	target    string
	client    *relay.Client
}

// New wires an agent. The store stays owned by the caller; the agent only
// reads and writes mappings through it.
func New(cfg config.Agent, clk clock.Clock, poller DevicePoller, st *store.Store, diag *relay.DiagnosticsSink) *Agent {
	if clk == nil {
		clk = clock.New()
	}
	return &Agent{
		cfg:    cfg,
		clk:    clk,
		poller: poller,
		store:  st,
		diag:   diag,
		remapper: control.NewRemapper(control.DefaultMapping(), control.RemapConfig{
			ButtonThreshold: cfg.ButtonThreshold,
			MoveThreshold:   cfg.MoveThreshold,
		}),
		resolver: control.ResolverConfig{AxisActivate: cfg.AxisActivate},
		target:   cfg.Target,
	}
}

// Run starts the device poller and drives the tick loop until ctx ends.
func (a *Agent) Run(ctx context.Context) {
	if reset, err := a.store.ConsumeResetFlag(); err == nil && reset {
		log.Printf("agent: mappings were reset to defaults last session")
	}
	if ids, err := a.store.Devices(); err == nil && len(ids) > 0 {
		log.Printf("agent: %d known controller profiles", len(ids))
	}

	go a.poller.Run(ctx)

	t := a.clk.Ticker(a.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.tick()
		}
	}
}

// tick is one poll cycle: sample the selected device, then either feed an
// active capture session or resolve the snapshot. The two branches are
// mutually exclusive within a tick.
func (a *Agent) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasDevice {
		a.autoSelectLocked()
		if !a.hasDevice {
			return
		}
	}
	st, ok := a.poller.Sample(a.selected.ID)
	if !ok {
		a.dropDeviceLocked()
		return
	}

	if a.remapper.State() == control.Listening {
		if res, ok := a.remapper.Observe(a.prev, st); ok {
			a.persistLocked()
			log.Printf("agent: %s captured onto %s %d (cleared %d)", res.Action, res.Kind, res.Index, len(res.Cleared))
		}
	} else {
		snap := control.Resolve(a.remapper.Mapping(), st, a.resolver)
		a.latest = map[string]any(snap)
		a.hasSnap = true
	}
	a.prev = st
}

func (a *Agent) autoSelectLocked() {
	devices := a.poller.Devices()
	if len(devices) == 0 {
		return
	}
	if a.cfg.Device != "" {
		for _, dev := range devices {
			if dev.Identity == a.cfg.Device {
				a.selectLocked(dev)
				return
			}
		}
		return
	}
	a.selectLocked(devices[0])
}

func (a *Agent) selectLocked(dev gamepad.Device) {
	m, err := a.store.Mapping(dev.Identity)
	if err != nil {
		log.Printf("agent: loading mapping for %s: %v", dev.Identity, err)
		m = control.DefaultMapping()
	}
	a.remapper.Replace(m)
	a.selected = dev
	a.hasDevice = true
	a.slots = gamepad.Enumerate(dev)
	a.prev = gamepad.NeutralState(dev.Buttons, dev.Axes)
	log.Printf("agent: using %s (%d buttons, %d axes)", dev.Identity, dev.Buttons, dev.Axes)
}

// dropDeviceLocked handles a vanished controller: the capture session
// ends, and the published snapshot becomes the neutral resolution so the
// vehicle sees every control released instead of a frozen last value.
func (a *Agent) dropDeviceLocked() {
	log.Printf("agent: lost %s", a.selected.Identity)
	neutral := gamepad.NeutralState(a.selected.Buttons, a.selected.Axes)
	a.remapper.Cancel()
	a.latest = map[string]any(control.Resolve(a.remapper.Mapping(), neutral, a.resolver))
	a.hasSnap = true
	a.prev = neutral
	a.selected = gamepad.Device{}
	a.hasDevice = false
	a.slots = nil
}

func (a *Agent) persistLocked() {
	if !a.hasDevice {
		return
	}
	if _, err := a.store.PutMapping(a.selected.Identity, a.remapper.Mapping()); err != nil {
		log.Printf("agent: persisting mapping: %v", err)
	}
}

// Snapshot implements relay.SnapshotSource with the latest resolved
// action state.
func (a *Agent) Snapshot() (map[string]any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.hasSnap {
		return nil, false
	}
	return a.latest, true
}

// Devices lists currently connected controllers.
func (a *Agent) Devices() []gamepad.Device {
	return a.poller.Devices()
}

// Selected returns the controller in use.
func (a *Agent) Selected() (gamepad.Device, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selected, a.hasDevice
}

// Slots returns the enumerated inputs of the selected controller.
func (a *Agent) Slots() []gamepad.InputSlot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]gamepad.InputSlot, len(a.slots))
	copy(out, a.slots)
	return out
}

// SelectDevice switches to the controller with the given identity. The
// new device's mapping is loaded from the store and inputs are
// re-enumerated; any capture session on the old device ends.
func (a *Agent) SelectDevice(identity string) error {
	dev, ok := a.poller.Lookup(identity)
	if !ok {
		return errors.Errorf("controller %q not connected", identity)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.selectLocked(dev)
	return nil
}

// Mapping returns a copy of the selected controller's mapping.
func (a *Agent) Mapping() control.Mapping {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.remapper.Mapping()
}

// RemapState reports the capture machine's phase and target.
func (a *Agent) RemapState() (control.RemapState, control.ActionKey) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	state := a.remapper.State()
	target, _ := a.remapper.Target()
	return state, target
}

// StartRemap begins listening for the next input on the selected device.
func (a *Agent) StartRemap(action control.ActionKey, preferred gamepad.SlotKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDevice {
		return ErrNoDevice
	}
	return a.remapper.StartListening(action, preferred, a.prev)
}

// CancelRemap ends any capture session without a mapping change.
func (a *Agent) CancelRemap() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.remapper.Cancel()
}

// Assign binds an action directly and persists the result.
func (a *Agent) Assign(action control.ActionKey, kind gamepad.SlotKind, index int) (control.Capture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDevice {
		return control.Capture{}, ErrNoDevice
	}
	res, err := a.remapper.Assign(action, kind, index)
	if err != nil {
		return control.Capture{}, err
	}
	a.persistLocked()
	return res, nil
}

// ClearAssignment unbinds an action and persists the result.
func (a *Agent) ClearAssignment(action control.ActionKey) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDevice {
		return ErrNoDevice
	}
	if err := a.remapper.ClearAssignment(action); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// SetAxisConfig replaces the tuning on an axis-bound action and persists
// the result.
func (a *Agent) SetAxisConfig(action control.ActionKey, cfg control.AxisConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDevice {
		return ErrNoDevice
	}
	if err := a.remapper.SetAxisConfig(action, cfg); err != nil {
		return err
	}
	a.persistLocked()
	return nil
}

// ResetMapping restores the selected controller to factory defaults.
func (a *Agent) ResetMapping() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasDevice {
		return ErrNoDevice
	}
	m, err := a.store.Reset(a.selected.Identity)
	if err != nil {
		return err
	}
	a.remapper.Replace(m)
	return nil
}

// Connect establishes a fresh relay connection, tearing down any previous
// instance first so no timer of the old channel survives into the new one.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.client != nil {
		a.client.Close()
	}
	c := relay.New(relay.Options{
		URL:          a.cfg.RelayURL,
		Role:         a.cfg.Role,
		PingInterval: a.cfg.PingInterval,
		SendInterval: a.cfg.SendInterval,
		Clock:        a.clk,
		Diagnostics:  a.diag,
		OnMessage:    a.onRelayMessage,
	}, a)
	a.client = c
	target := a.target
	a.mu.Unlock()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	if target != "" {
		c.SetTarget(target)
	}
	log.Printf("agent: relay session %s open against %s", c.SessionID(), a.cfg.RelayURL)
	return nil
}

// Close ends any capture session and tears down the relay connection.
// The poller stops with the Run context, and the store stays with its
// owner.
func (a *Agent) Close() {
	a.mu.Lock()
	a.remapper.Cancel()
	c := a.client
	a.client = nil
	a.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// SetTarget selects the vehicle to control. Snapshots flow only while a
// target is set; the choice survives reconnects.
func (a *Agent) SetTarget(id string) {
	a.mu.Lock()
	a.target = id
	c := a.client
	a.mu.Unlock()
	if c != nil {
		c.SetTarget(id)
	}
}

// RelayStatus reports the current connection phase.
func (a *Agent) RelayStatus() relay.Status {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()
	if c == nil {
		return relay.StatusClosed
	}
	return c.Status()
}

// Latency returns the last heartbeat round trip, if measured.
func (a *Agent) Latency() (d int64, ok bool) {
	a.mu.RLock()
	c := a.client
	a.mu.RUnlock()
	if c == nil {
		return 0, false
	}
	rtt, ok := c.Latency()
	return rtt.Milliseconds(), ok
}

func (a *Agent) onRelayMessage(msg relay.Message) {
	if msg.Name == relay.MsgPong {
		return
	}
	log.Printf("agent: relay message %q", msg.Name)
}
