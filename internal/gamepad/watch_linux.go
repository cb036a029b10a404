//go:build linux

package gamepad

import (
	"context"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// watchHotplug wakes the poller as soon as a joystick node appears or
// vanishes under /dev/input, so connect/disconnect does not wait for the
// next scheduled rescan.
func watchHotplug(ctx context.Context, nudge func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("gamepad: hotplug watch unavailable: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add("/dev/input"); err != nil {
		log.Printf("gamepad: hotplug watch unavailable: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.Contains(ev.Name, "js") {
				continue
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Remove) {
				nudge()
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
