//go:build !windows

// Package console detects how the agent was launched and wires Ctrl+C
// handling on Windows. Elsewhere these are no-ops; standard signal
// delivery already works.
package console

// IsInteractive always reports true off Windows.
func IsInteractive() bool {
	return true
}

// InstallBreakHandler is a no-op off Windows.
func InstallBreakHandler(done chan struct{}) func() {
	return func() {}
}
