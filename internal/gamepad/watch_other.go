//go:build !linux

package gamepad

import "context"

// watchHotplug is a no-op where no device-node notifications exist; the
// interval rescan picks up connects and disconnects on its own.
func watchHotplug(ctx context.Context, nudge func()) {}
