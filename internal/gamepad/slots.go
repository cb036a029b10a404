package gamepad

import "fmt"

// SlotKind distinguishes the two classes of physical inputs a device reports.
type SlotKind string

const (
	Button SlotKind = "button"
	Axis   SlotKind = "axis"
)

// InputSlot is one addressable physical input on a device. Index is the
// device-reported physical index; Label is a best-effort human name.
type InputSlot struct {
	Kind  SlotKind `json:"kind"`
	Index int      `json:"index"`
	Label string   `json:"label"`
}

// Curated labels for devices that follow the standard gamepad layout
// (the browser-standard index order: face buttons, bumpers, triggers,
// menu buttons, stick clicks, d-pad, guide).
var standardButtonLabels = []string{
	"A", "B", "X", "Y",
	"LB", "RB", "LT", "RT",
	"Back", "Start", "L3", "R3",
	"D-Pad Up", "D-Pad Down", "D-Pad Left", "D-Pad Right",
	"Guide",
}

var standardAxisLabels = []string{
	"Left Stick X", "Left Stick Y",
	"Right Stick X", "Right Stick Y",
}

// Enumerate produces the labeled slot list for a device: all buttons first,
// then all axes, ordered by physical index. The result is deterministic for
// a given button/axis count and layout flag, and is freshly allocated on
// every call so callers never share a stale list across device switches.
func Enumerate(dev Device) []InputSlot {
	slots := make([]InputSlot, 0, dev.Buttons+dev.Axes)
	for i := 0; i < dev.Buttons; i++ {
		label := fmt.Sprintf("Button %d", i)
		if dev.Standard && i < len(standardButtonLabels) {
			label = standardButtonLabels[i]
		}
		slots = append(slots, InputSlot{Kind: Button, Index: i, Label: label})
	}
	for i := 0; i < dev.Axes; i++ {
		label := fmt.Sprintf("Axis %d", i)
		if dev.Standard && i < len(standardAxisLabels) {
			label = standardAxisLabels[i]
		}
		slots = append(slots, InputSlot{Kind: Axis, Index: i, Label: label})
	}
	return slots
}
