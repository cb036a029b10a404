package tray

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/systray"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/agent"
	"github.com/Fefe-Nayz/byteracer-sub000/internal/relay"
)

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// deviceSlots caps how many controllers the selection submenu lists.
const deviceSlots = 8

// Tray manages the system tray icon and menu
type Tray struct {
	agent        *agent.Agent
	reconnectFn  func()
	shutdownFunc ShutdownFunc
	once         sync.Once
	shuttingDown atomic.Bool

	menuStatus    *systray.MenuItem
	menuDevice    *systray.MenuItem
	menuSelect    *systray.MenuItem
	menuReconnect *systray.MenuItem
	menuReset     *systray.MenuItem
	menuExit      *systray.MenuItem

	mu      sync.Mutex
	slots   []*systray.MenuItem
	slotIDs []string
}

// New creates a new Tray instance
func New(a *agent.Agent, reconnectFn func(), shutdownFn ShutdownFunc) *Tray {
	return &Tray{
		agent:        a,
		reconnectFn:  reconnectFn,
		shutdownFunc: shutdownFn,
	}
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run(iconData []byte) {
	systray.Run(func() {
		t.onReady(iconData)
	}, func() {
		t.onExit()
	})
}

// onReady is called when the tray is ready
func (t *Tray) onReady(iconData []byte) {
	if iconData != nil {
		systray.SetIcon(iconData)
	}
	systray.SetTitle("ByteRacer")
	systray.SetTooltip("ByteRacer - remote vehicle control")

	t.menuStatus = systray.AddMenuItem("Relay: closed", "Relay connection state")
	t.menuStatus.Disable()
	t.menuDevice = systray.AddMenuItem("Controller: none", "Controller in use")
	t.menuDevice.Disable()
	systray.AddSeparator()
	t.menuSelect = systray.AddMenuItem("Select Controller", "Pick a connected controller")
	for i := 0; i < deviceSlots; i++ {
		slot := t.menuSelect.AddSubMenuItem("", "")
		slot.Hide()
		t.slots = append(t.slots, slot)
		t.slotIDs = append(t.slotIDs, "")
	}
	t.menuReconnect = systray.AddMenuItem("Reconnect", "Reopen the relay connection")
	t.menuReset = systray.AddMenuItem("Reset Mapping", "Restore default bindings for this controller")
	systray.AddSeparator()
	t.menuExit = systray.AddMenuItem("Exit", "Quit application")

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()
	go t.handleSlotClicks()
	go t.refreshLoop()

	log.Println("System tray initialized")
}

// handleMenuClicks processes menu item clicks without blocking
func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuReconnect.ClickedCh:
			if !t.shuttingDown.Load() && t.reconnectFn != nil {
				t.reconnectFn()
			}
		case <-t.menuReset.ClickedCh:
			if !t.shuttingDown.Load() {
				if err := t.agent.ResetMapping(); err != nil {
					log.Printf("tray: reset mapping: %v", err)
				}
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

// handleSlotClicks watches the device submenu entries
func (t *Tray) handleSlotClicks() {
	for i, slot := range t.slots {
		go func(i int, item *systray.MenuItem) {
			for range item.ClickedCh {
				if t.shuttingDown.Load() {
					return
				}
				t.selectSlot(i)
			}
		}(i, slot)
	}
}

func (t *Tray) selectSlot(i int) {
	t.mu.Lock()
	identity := t.slotIDs[i]
	t.mu.Unlock()
	if identity == "" {
		return
	}
	if err := t.agent.SelectDevice(identity); err != nil {
		log.Printf("tray: select controller: %v", err)
	}
}

// refreshLoop keeps the status rows and device submenu current
func (t *Tray) refreshLoop() {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for range tick.C {
		if t.shuttingDown.Load() {
			return
		}
		t.refresh()
	}
}

func (t *Tray) refresh() {
	status := t.agent.RelayStatus()
	line := fmt.Sprintf("Relay: %s", status)
	if ms, ok := t.agent.Latency(); ok && status == relay.StatusOpen {
		line = fmt.Sprintf("Relay: %s (%d ms)", status, ms)
	}
	t.menuStatus.SetTitle(line)

	selected, hasSelected := t.agent.Selected()
	if hasSelected {
		t.menuDevice.SetTitle("Controller: " + selected.Name)
	} else {
		t.menuDevice.SetTitle("Controller: none")
	}

	devices := t.agent.Devices()
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, slot := range t.slots {
		if i >= len(devices) {
			t.slotIDs[i] = ""
			slot.Hide()
			continue
		}
		t.slotIDs[i] = devices[i].Identity
		slot.SetTitle(devices[i].Name)
		if hasSelected && selected.Identity == devices[i].Identity {
			slot.Check()
		} else {
			slot.Uncheck()
		}
		slot.Show()
	}
}

// onExit is called when the tray is exiting
func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	log.Println("System tray exiting")
}
