package control

import "github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"

// Assignment binds one action to a physical input slot. Index Unassigned
// means the action is currently unbound. Axis tuning is present exactly
// when the bound slot is an axis.
type Assignment struct {
	Kind  gamepad.SlotKind `json:"kind"`
	Index int              `json:"index"`
	Axis  *AxisConfig      `json:"axisConfig,omitempty"`
}

// Assigned reports whether the assignment points at a real input.
func (a Assignment) Assigned() bool {
	return a.Index != Unassigned
}

func (a Assignment) clone() Assignment {
	if a.Axis != nil {
		cfg := *a.Axis
		a.Axis = &cfg
	}
	return a
}

// Mapping is one device's full action-to-input table. Every catalog action
// has an entry; unbound actions carry Index Unassigned.
type Mapping map[ActionKey]Assignment

// DefaultMapping builds the factory mapping from the catalog defaults.
func DefaultMapping() Mapping {
	m := make(Mapping, len(catalog))
	for _, def := range catalog {
		m[def.Key] = defaultAssignment(def)
	}
	return m
}

func defaultAssignment(def ActionDefinition) Assignment {
	asg := Assignment{Kind: def.DefaultInput.Kind, Index: def.DefaultInput.Index}
	if asg.Kind == gamepad.Axis {
		cfg := DefaultAxisConfig()
		if def.DefaultAxis != nil {
			cfg = *def.DefaultAxis
		}
		asg.Axis = &cfg
	}
	return asg
}

// freshAxisConfig is the tuning installed when an action is newly captured
// onto an axis: the catalog window if the action ships one, else generic.
func freshAxisConfig(def ActionDefinition) *AxisConfig {
	cfg := DefaultAxisConfig()
	if def.DefaultAxis != nil {
		cfg = *def.DefaultAxis
	}
	return &cfg
}

// Clone deep-copies a mapping so callers can hand out snapshots without
// aliasing the live table.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

// Sanitize repairs a mapping loaded from storage: unknown actions are
// dropped, missing actions get their factory binding, malformed entries
// fall back to defaults, and axis tuning is clamped. The receiver is not
// modified.
func (m Mapping) Sanitize() Mapping {
	out := make(Mapping, len(catalog))
	for _, def := range catalog {
		asg, ok := m[def.Key]
		if !ok {
			out[def.Key] = defaultAssignment(def)
			continue
		}
		asg = asg.clone()
		if asg.Kind != gamepad.Button && asg.Kind != gamepad.Axis {
			out[def.Key] = defaultAssignment(def)
			continue
		}
		if asg.Index < Unassigned {
			asg.Index = Unassigned
		}
		if asg.Kind == gamepad.Axis {
			if asg.Axis == nil {
				asg.Axis = freshAxisConfig(def)
			} else {
				cfg := asg.Axis.Sanitize()
				asg.Axis = &cfg
			}
		} else {
			asg.Axis = nil
		}
		out[def.Key] = asg
	}
	return out
}

// Equal reports whether two mappings bind every action identically,
// including axis tuning. Used to skip redundant persistence writes.
func (m Mapping) Equal(o Mapping) bool {
	if len(m) != len(o) {
		return false
	}
	for k, a := range m {
		b, ok := o[k]
		if !ok {
			return false
		}
		if a.Kind != b.Kind || a.Index != b.Index {
			return false
		}
		switch {
		case a.Axis == nil && b.Axis == nil:
		case a.Axis == nil || b.Axis == nil:
			return false
		case *a.Axis != *b.Axis:
			return false
		}
	}
	return true
}
