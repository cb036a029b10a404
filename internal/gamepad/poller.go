package gamepad

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0xcafed00d/joystick"
	"github.com/benbjohnson/clock"
)

const rawAxisMax = 32767.0

// Device describes one connected controller. Identity is the stable key
// used for persisted mappings: it survives replugging and reboots as long
// as the device reports the same name and input counts.
type Device struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Identity string `json:"identity"`
	Buttons  int    `json:"buttons"`
	Axes     int    `json:"axes"`
	Standard bool   `json:"standard"`
}

// Names that mark a pad as following the standard gamepad layout even when
// it exposes fewer than the full 17 buttons.
var standardNameHints = []string{
	"xbox", "x-box", "xinput", "360",
	"dualshock", "dualsense", "playstation",
	"pro controller", "wireless controller", "standard gamepad",
}

func standardLayout(name string, buttons, axes int) bool {
	if buttons < 10 || axes < 4 {
		return false
	}
	n := strings.ToLower(name)
	for _, hint := range standardNameHints {
		if strings.Contains(n, hint) {
			return true
		}
	}
	// Unrecognized vendor but the full standard shape.
	return buttons >= 16
}

// Poller maintains the set of connected controllers and samples their raw
// state. Devices are discovered by probing platform ids on a fixed interval
// and on hotplug notifications; a failed read marks a device disconnected
// and drops it from the list without surfacing an error to callers.
type Poller struct {
	clk        clock.Clock
	interval   time.Duration
	maxDevices int

	mu      sync.Mutex
	sticks  map[int]joystick.Joystick
	devices []Device

	kick chan struct{}
}

// NewPoller creates a poller that rescans every interval and probes platform
// ids 0..maxDevices-1.
func NewPoller(clk clock.Clock, interval time.Duration, maxDevices int) *Poller {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if maxDevices <= 0 {
		maxDevices = 8
	}
	return &Poller{
		clk:        clk,
		interval:   interval,
		maxDevices: maxDevices,
		sticks:     make(map[int]joystick.Joystick),
		kick:       make(chan struct{}, 1),
	}
}

// Run blocks until ctx is done, rescanning on the configured interval and
// immediately on hotplug notifications.
func (p *Poller) Run(ctx context.Context) {
	p.Rescan()
	go watchHotplug(ctx, p.nudge)

	ticker := p.clk.Ticker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Close()
			return
		case <-ticker.C:
			p.Rescan()
		case <-p.kick:
			p.Rescan()
		}
	}
}

func (p *Poller) nudge() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Rescan probes every platform id: live handles are verified with a read,
// vacant ids are opened. The device list is rebuilt from what answered.
func (p *Poller) Rescan() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := 0; id < p.maxDevices; id++ {
		if js, ok := p.sticks[id]; ok {
			if _, err := js.Read(); err != nil {
				p.dropLocked(id)
			}
			continue
		}
		js, err := joystick.Open(id)
		if err != nil {
			continue
		}
		p.sticks[id] = js
		log.Printf("gamepad: connected %q (id=%d buttons=%d axes=%d)",
			js.Name(), id, js.ButtonCount(), js.AxisCount())
	}
	p.rebuildLocked()
}

func (p *Poller) dropLocked(id int) {
	js, ok := p.sticks[id]
	if !ok {
		return
	}
	log.Printf("gamepad: disconnected %q (id=%d)", js.Name(), id)
	js.Close()
	delete(p.sticks, id)
}

func (p *Poller) rebuildLocked() {
	devices := make([]Device, 0, len(p.sticks))
	for id, js := range p.sticks {
		name := js.Name()
		buttons := js.ButtonCount()
		axes := js.AxisCount()
		devices = append(devices, Device{
			ID:       id,
			Name:     name,
			Identity: DeviceIdentity(name, buttons, axes),
			Buttons:  buttons,
			Axes:     axes,
			Standard: standardLayout(name, buttons, axes),
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	p.devices = devices
}

// DeviceIdentity builds the persistent key for a device. Platform ids are
// deliberately excluded: they shuffle on replug.
func DeviceIdentity(name string, buttons, axes int) string {
	return fmt.Sprintf("%s [%db %da]", name, buttons, axes)
}

// Devices returns a copy of the last scan result.
func (p *Poller) Devices() []Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Device, len(p.devices))
	copy(out, p.devices)
	return out
}

// Lookup finds a connected device by identity string.
func (p *Poller) Lookup(identity string) (Device, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.devices {
		if d.Identity == identity {
			return d, true
		}
	}
	return Device{}, false
}

// Sample reads the current raw state of the device with the given platform
// id. A read failure is treated as a disconnect: the device is dropped and
// a neutral state returned with ok=false.
func (p *Poller) Sample(id int) (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	js, ok := p.sticks[id]
	if !ok {
		return State{}, false
	}
	buttons, axes := js.ButtonCount(), js.AxisCount()
	raw, err := js.Read()
	if err != nil {
		p.dropLocked(id)
		p.rebuildLocked()
		return NeutralState(buttons, axes), false
	}

	st := NeutralState(buttons, axes)
	for i := range st.Buttons {
		// The backend reports at most 32 buttons in its bitmask.
		if i < 32 && raw.Buttons&(1<<uint(i)) != 0 {
			st.Buttons[i] = 1
		}
	}
	for i := range st.Axes {
		if i >= len(raw.AxisData) {
			break
		}
		v := float64(raw.AxisData[i]) / rawAxisMax
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		st.Axes[i] = v
	}
	return st, true
}

// Close releases every open device handle.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.sticks {
		p.dropLocked(id)
	}
	p.devices = nil
}
