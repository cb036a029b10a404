package control

import (
	"math"

	"github.com/pkg/errors"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"
)

// RemapState is the capture machine's phase.
type RemapState string

const (
	// Idle means no capture in progress; normal resolution runs.
	Idle RemapState = "idle"
	// Listening means the next deliberate input claims the target action.
	Listening RemapState = "listening"
)

// RemapConfig holds the capture thresholds. These are tuning values, not
// hardware constants.
type RemapConfig struct {
	// ButtonThreshold is the analog level a button must cross to count as
	// newly pressed during capture.
	ButtonThreshold float64
	// MoveThreshold is how far an axis must travel from its listening-start
	// baseline to count as a deliberate selection.
	MoveThreshold float64
}

// DefaultRemapConfig returns the stock capture thresholds.
func DefaultRemapConfig() RemapConfig {
	return RemapConfig{ButtonThreshold: 0.5, MoveThreshold: 0.7}
}

// Capture describes one completed binding change: the action bound, the
// input it landed on, and any actions whose prior binding it displaced.
type Capture struct {
	Action  ActionKey        `json:"action"`
	Kind    gamepad.SlotKind `json:"kind"`
	Index   int              `json:"index"`
	Cleared []ActionKey      `json:"cleared,omitempty"`
}

// Remapper owns a mapping and runs binding changes against it: direct
// assignments and listen-then-capture sessions. It is not safe for
// concurrent use; the agent serializes access under its tick lock.
type Remapper struct {
	cfg     RemapConfig
	mapping Mapping

	state         RemapState
	target        ActionKey
	acceptButtons bool
	acceptAxes    bool
	baseline      []float64
}

// NewRemapper wraps an existing mapping. The mapping is owned by the
// remapper afterwards; read it back through Mapping().
func NewRemapper(m Mapping, cfg RemapConfig) *Remapper {
	if m == nil {
		m = DefaultMapping()
	}
	if cfg.ButtonThreshold <= 0 {
		cfg.ButtonThreshold = DefaultRemapConfig().ButtonThreshold
	}
	if cfg.MoveThreshold <= 0 {
		cfg.MoveThreshold = DefaultRemapConfig().MoveThreshold
	}
	return &Remapper{cfg: cfg, mapping: m, state: Idle}
}

// Mapping returns a copy of the current table.
func (r *Remapper) Mapping() Mapping {
	return r.mapping.Clone()
}

// Replace swaps in a new table, ending any capture in progress.
func (r *Remapper) Replace(m Mapping) {
	r.Cancel()
	r.mapping = m.Sanitize()
}

// State returns the current phase.
func (r *Remapper) State() RemapState {
	return r.state
}

// Target returns the action a capture session is listening for.
func (r *Remapper) Target() (ActionKey, bool) {
	if r.state != Listening {
		return "", false
	}
	return r.target, true
}

// StartListening begins a capture session for the given action. preferred
// selects the input class for either-kind actions; fixed-kind actions
// ignore it. current provides the axis baseline so an already-deflected
// stick does not instantly self-capture. A session already in progress is
// replaced silently.
func (r *Remapper) StartListening(action ActionKey, preferred gamepad.SlotKind, current gamepad.State) error {
	def, ok := Lookup(action)
	if !ok {
		return ErrUnknownAction
	}
	r.target = action
	switch def.Kind {
	case KindButton:
		r.acceptButtons, r.acceptAxes = true, false
	case KindAxis:
		r.acceptButtons, r.acceptAxes = false, true
	default:
		kind := preferred
		if kind != gamepad.Button && kind != gamepad.Axis {
			kind = def.DefaultInput.Kind
		}
		r.acceptButtons = kind == gamepad.Button
		r.acceptAxes = kind == gamepad.Axis
	}
	r.baseline = append(r.baseline[:0], current.Axes...)
	r.state = Listening
	return nil
}

// Cancel ends any capture session without changing the mapping.
func (r *Remapper) Cancel() {
	r.state = Idle
	r.target = ""
	r.acceptButtons = false
	r.acceptAxes = false
}

// Observe feeds one fresh device sample into an active capture session.
// Buttons are scanned before axes so a press wins over stick drift in the
// same tick. On capture the binding is applied, the session ends, and the
// result is returned with ok=true.
func (r *Remapper) Observe(prev, curr gamepad.State) (Capture, bool) {
	if r.state != Listening {
		return Capture{}, false
	}
	if r.acceptButtons {
		for i := range curr.Buttons {
			if curr.Buttons[i] > r.cfg.ButtonThreshold && prev.Button(i) <= r.cfg.ButtonThreshold {
				return r.capture(gamepad.Button, i)
			}
		}
	}
	if r.acceptAxes {
		for i := range curr.Axes {
			base := 0.0
			if i < len(r.baseline) {
				base = r.baseline[i]
			}
			if math.Abs(curr.Axes[i]-base) > r.cfg.MoveThreshold {
				return r.capture(gamepad.Axis, i)
			}
		}
	}
	return Capture{}, false
}

func (r *Remapper) capture(kind gamepad.SlotKind, index int) (Capture, bool) {
	action := r.target
	r.Cancel()
	res, err := r.Assign(action, kind, index)
	if err != nil {
		return Capture{}, false
	}
	return res, true
}

// Assign binds an action to a physical input directly. Any other action
// holding the same input loses it unless the two declare each other
// sharable; displaced actions are reported in Cleared. Binding to an axis
// installs a fresh default tuning, never the displaced action's tuning.
func (r *Remapper) Assign(action ActionKey, kind gamepad.SlotKind, index int) (Capture, error) {
	def, ok := Lookup(action)
	if !ok {
		return Capture{}, ErrUnknownAction
	}
	res := Capture{Action: action, Kind: kind, Index: index}
	for _, other := range catalog {
		if other.Key == action {
			continue
		}
		asg := r.mapping[other.Key]
		if !asg.Assigned() || asg.Kind != kind || asg.Index != index {
			continue
		}
		if sharable(action, other.Key) {
			continue
		}
		asg.Index = Unassigned
		r.mapping[other.Key] = asg
		res.Cleared = append(res.Cleared, other.Key)
	}
	asg := Assignment{Kind: kind, Index: index}
	if kind == gamepad.Axis {
		asg.Axis = freshAxisConfig(def)
	}
	r.mapping[action] = asg
	return res, nil
}

// ClearAssignment unbinds an action without touching anything else.
func (r *Remapper) ClearAssignment(action ActionKey) error {
	def, ok := Lookup(action)
	if !ok {
		return ErrUnknownAction
	}
	asg := r.mapping[action]
	asg.Index = Unassigned
	if asg.Kind != gamepad.Button && asg.Kind != gamepad.Axis {
		asg.Kind = def.DefaultInput.Kind
	}
	r.mapping[action] = asg
	return nil
}

// SetAxisConfig replaces the tuning on an axis-bound action.
func (r *Remapper) SetAxisConfig(action ActionKey, cfg AxisConfig) error {
	if _, ok := Lookup(action); !ok {
		return ErrUnknownAction
	}
	asg := r.mapping[action]
	if asg.Kind != gamepad.Axis {
		return errors.Errorf("action %q is not bound to an axis", action)
	}
	clean := cfg.Sanitize()
	asg.Axis = &clean
	r.mapping[action] = asg
	return nil
}
