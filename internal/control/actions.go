// Package control holds the semantic layer between raw controller state and
// the wire protocol: the action catalog, per-device mappings with their axis
// tuning, the remap capture state machine, and the per-tick action resolver.
package control

import (
	"github.com/pkg/errors"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"
)

// ActionKey names a semantic control, independent of physical hardware.
type ActionKey string

const (
	Forward    ActionKey = "forward"
	Backward   ActionKey = "backward"
	TurnLeft   ActionKey = "turnLeft"
	TurnRight  ActionKey = "turnRight"
	CameraPan  ActionKey = "cameraPan"
	CameraTilt ActionKey = "cameraTilt"
	Use        ActionKey = "use"
	Boost      ActionKey = "boost"
	Horn       ActionKey = "horn"
)

// ErrUnknownAction is returned when an ActionKey is not in the catalog.
var ErrUnknownAction = errors.New("unknown action")

// ActionKind declares which physical input classes an action accepts.
// Either-kind actions bind to whichever class the user captures; the
// resolved class lives in the Assignment, never re-derived per call site.
type ActionKind string

const (
	KindButton ActionKind = "button"
	KindAxis   ActionKind = "axis"
	KindEither ActionKind = "either"
)

// Unassigned is the physical index meaning "no input bound"; an unassigned
// action is inactive everywhere and absent from snapshots.
const Unassigned = -1

// ActionDefinition is one immutable catalog entry.
type ActionDefinition struct {
	Key          ActionKey
	Label        string
	Kind         ActionKind
	DefaultInput InputRef
	DefaultAxis  *AxisConfig
	// SharableWith lists actions this one may share a physical input with.
	// Sharing requires the declaration on both sides.
	SharableWith []ActionKey
	// PairedWith links two opposing actions that downstream consumers see
	// as one signed value; PairPositive marks the side whose activation
	// drives the combined value positive.
	PairedWith   ActionKey
	PairPositive bool
}

// InputRef points at a physical input slot on the selected device.
type InputRef struct {
	Kind  gamepad.SlotKind `json:"kind"`
	Index int              `json:"index"`
}

// The catalog. Defined once at process start; order is the resolution and
// presentation order. Default bindings follow the standard gamepad layout:
// left stick drives, right stick points the camera, face buttons trigger.
var catalog = []ActionDefinition{
	{
		Key: Forward, Label: "Forward", Kind: KindAxis,
		DefaultInput: InputRef{Kind: gamepad.Axis, Index: 1},
		DefaultAxis:  &AxisConfig{Min: -1, Max: 0, Inverted: true, Mode: PositiveRange},
		SharableWith: []ActionKey{Backward},
		PairedWith:   Backward, PairPositive: true,
	},
	{
		Key: Backward, Label: "Backward", Kind: KindAxis,
		DefaultInput: InputRef{Kind: gamepad.Axis, Index: 1},
		DefaultAxis:  &AxisConfig{Min: 0, Max: 1, Mode: PositiveRange},
		SharableWith: []ActionKey{Forward},
		PairedWith:   Forward,
	},
	{
		Key: TurnRight, Label: "Turn Right", Kind: KindAxis,
		DefaultInput: InputRef{Kind: gamepad.Axis, Index: 0},
		DefaultAxis:  &AxisConfig{Min: 0, Max: 1, Mode: PositiveRange},
		SharableWith: []ActionKey{TurnLeft},
		PairedWith:   TurnLeft, PairPositive: true,
	},
	{
		Key: TurnLeft, Label: "Turn Left", Kind: KindAxis,
		DefaultInput: InputRef{Kind: gamepad.Axis, Index: 0},
		DefaultAxis:  &AxisConfig{Min: -1, Max: 0, Inverted: true, Mode: PositiveRange},
		SharableWith: []ActionKey{TurnRight},
		PairedWith:   TurnRight,
	},
	{
		Key: CameraPan, Label: "Camera Pan", Kind: KindAxis,
		DefaultInput: InputRef{Kind: gamepad.Axis, Index: 2},
		DefaultAxis:  &AxisConfig{Min: -1, Max: 1, Mode: FullRange, Deadzone: DefaultDeadzone},
	},
	{
		Key: CameraTilt, Label: "Camera Tilt", Kind: KindAxis,
		DefaultInput: InputRef{Kind: gamepad.Axis, Index: 3},
		DefaultAxis:  &AxisConfig{Min: -1, Max: 1, Inverted: true, Mode: FullRange, Deadzone: DefaultDeadzone},
	},
	{
		Key: Use, Label: "Use", Kind: KindEither,
		DefaultInput: InputRef{Kind: gamepad.Button, Index: 0},
	},
	{
		Key: Boost, Label: "Boost", Kind: KindEither,
		DefaultInput: InputRef{Kind: gamepad.Button, Index: 1},
	},
	{
		Key: Horn, Label: "Horn", Kind: KindEither,
		DefaultInput: InputRef{Kind: gamepad.Button, Index: 3},
	},
}

var catalogIndex = func() map[ActionKey]*ActionDefinition {
	idx := make(map[ActionKey]*ActionDefinition, len(catalog))
	for i := range catalog {
		idx[catalog[i].Key] = &catalog[i]
	}
	return idx
}()

// Definitions returns the full catalog in resolution order. Callers must
// treat the result as read-only.
func Definitions() []ActionDefinition {
	return catalog
}

// Lookup finds a catalog entry by key.
func Lookup(key ActionKey) (ActionDefinition, bool) {
	def, ok := catalogIndex[key]
	if !ok {
		return ActionDefinition{}, false
	}
	return *def, true
}

// sharable reports whether two actions both declare each other sharable;
// one-sided declarations do not authorize sharing.
func sharable(a, b ActionKey) bool {
	return declaresSharable(a, b) && declaresSharable(b, a)
}

func declaresSharable(from, to ActionKey) bool {
	def, ok := catalogIndex[from]
	if !ok {
		return false
	}
	for _, k := range def.SharableWith {
		if k == to {
			return true
		}
	}
	return false
}
