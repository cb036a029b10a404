package control

import (
	"fmt"
	"math"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/gamepad"
)

// Snapshot is one tick's resolved action values keyed by wire name.
// Values are bool for on/off actions and float64 for analog ones; paired
// actions collapse into a single signed float under their group key.
type Snapshot map[string]any

// ResolverConfig tunes resolution behavior.
type ResolverConfig struct {
	// AxisActivate is the absolute normalized level at which an axis bound
	// to an on/off action counts as active, used when the assignment's own
	// deadzone is zero.
	AxisActivate float64
}

// DefaultResolverConfig returns the stock resolver tuning.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{AxisActivate: 0.2}
}

// GroupKey is the wire name for a resolved pair, positive side first.
func GroupKey(positive, negative ActionKey) string {
	return fmt.Sprintf("%s-%s-group", positive, negative)
}

// Resolve maps one device sample through a mapping into a snapshot.
// Unassigned actions are absent; a pair appears only if at least one side
// is assigned. The result is freshly allocated every call.
func Resolve(m Mapping, st gamepad.State, cfg ResolverConfig) Snapshot {
	if cfg.AxisActivate <= 0 {
		cfg.AxisActivate = DefaultResolverConfig().AxisActivate
	}
	snap := make(Snapshot, len(catalog))
	for _, def := range catalog {
		if def.PairedWith != "" {
			if !def.PairPositive {
				continue
			}
			resolvePair(snap, m, st, def)
			continue
		}
		asg := m[def.Key]
		if !asg.Assigned() {
			continue
		}
		switch {
		case asg.Kind == gamepad.Button:
			snap[string(def.Key)] = st.Button(asg.Index) > 0.5
		case def.Kind == KindEither:
			// Either-kind action captured onto an axis: report crossing
			// the activation level, not the analog value.
			level := cfg.AxisActivate
			if c := axisConfig(asg); c.Deadzone > 0 {
				level = c.Deadzone
			}
			v := Normalize(st.Axis(asg.Index), axisConfig(asg), true)
			snap[string(def.Key)] = math.Abs(v) > level
		default:
			snap[string(def.Key)] = Normalize(st.Axis(asg.Index), axisConfig(asg), true)
		}
	}
	return snap
}

// resolvePair emits the combined signed value for an opposing pair:
// positive side minus negative side, each resolved to [0, 1] activation.
func resolvePair(snap Snapshot, m Mapping, st gamepad.State, pos ActionDefinition) {
	neg, ok := Lookup(pos.PairedWith)
	if !ok {
		return
	}
	pa, na := m[pos.Key], m[neg.Key]
	if !pa.Assigned() && !na.Assigned() {
		return
	}
	v := sideValue(pa, st) - sideValue(na, st)
	snap[GroupKey(pos.Key, neg.Key)] = v
}

// sideValue resolves one pair member to its activation in [0, 1]:
// buttons contribute 1 when pressed, axes their normalized value clamped
// to the positive range so a full-range tuning cannot push the opposite
// side's sign.
func sideValue(asg Assignment, st gamepad.State) float64 {
	if !asg.Assigned() {
		return 0
	}
	if asg.Kind == gamepad.Button {
		if st.Button(asg.Index) > 0.5 {
			return 1
		}
		return 0
	}
	v := Normalize(st.Axis(asg.Index), axisConfig(asg), true)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func axisConfig(asg Assignment) AxisConfig {
	if asg.Axis == nil {
		return DefaultAxisConfig()
	}
	return *asg.Axis
}
