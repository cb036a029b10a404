package gamepad

import "math"

const analogEpsilon = 0.01

// State is one raw sample of a device: button values (0 or 1, or analog
// 0..1 on pads that report pressure) and axis values in -1..1, both
// addressed by the device-reported physical index.
type State struct {
	Buttons []float64
	Axes    []float64
}

// NeutralState returns an all-zero state shaped for the given device.
func NeutralState(buttons, axes int) State {
	return State{
		Buttons: make([]float64, buttons),
		Axes:    make([]float64, axes),
	}
}

// Clone returns a deep copy, so a caller can keep a previous-tick state
// while the poller overwrites the current one.
func (s State) Clone() State {
	out := State{
		Buttons: make([]float64, len(s.Buttons)),
		Axes:    make([]float64, len(s.Axes)),
	}
	copy(out.Buttons, s.Buttons)
	copy(out.Axes, s.Axes)
	return out
}

// Button returns the value at index i, 0 when out of range or unassigned (-1).
func (s State) Button(i int) float64 {
	if i < 0 || i >= len(s.Buttons) {
		return 0
	}
	return s.Buttons[i]
}

// Axis returns the value at index i, 0 when out of range or unassigned (-1).
func (s State) Axis(i int) float64 {
	if i < 0 || i >= len(s.Axes) {
		return 0
	}
	return s.Axes[i]
}

// Equal reports whether two states are the same shape and value-identical
// within a small analog tolerance.
func (s State) Equal(o State) bool {
	if len(s.Buttons) != len(o.Buttons) || len(s.Axes) != len(o.Axes) {
		return false
	}
	for i := range s.Buttons {
		if math.Abs(s.Buttons[i]-o.Buttons[i]) > analogEpsilon {
			return false
		}
	}
	for i := range s.Axes {
		if math.Abs(s.Axes[i]-o.Axes[i]) > analogEpsilon {
			return false
		}
	}
	return true
}
