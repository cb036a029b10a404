package control

import "math"

// NormalizeMode selects the output range of a configured axis.
type NormalizeMode string

const (
	// FullRange maps the configured window onto [-1, 1].
	FullRange NormalizeMode = "full"
	// PositiveRange maps the configured window onto [0, 1].
	PositiveRange NormalizeMode = "positive"
)

// DefaultDeadzone is the stick deadzone applied when an axis has no
// explicit tuning yet. Drive and steering windows override it to 0 since
// their half-range windows already ignore the opposite half.
const DefaultDeadzone = 0.05

// AxisConfig is the per-assignment tuning for an axis-bound action: the raw
// window to respond to, the output range, polarity, and deadzone.
type AxisConfig struct {
	Min      float64       `json:"min"`
	Max      float64       `json:"max"`
	Inverted bool          `json:"inverted"`
	Mode     NormalizeMode `json:"mode"`
	Deadzone float64       `json:"deadzone"`
}

// DefaultAxisConfig is the tuning installed when an action is newly bound
// to an axis and its catalog entry carries no specific window.
func DefaultAxisConfig() AxisConfig {
	return AxisConfig{Min: -1, Max: 1, Mode: FullRange, Deadzone: DefaultDeadzone}
}

// Sanitize clamps a config loaded from storage into the representable
// domain so a corrupted or hand-edited file cannot poison later math.
func (c AxisConfig) Sanitize() AxisConfig {
	c.Min = clampFinite(c.Min, -1)
	c.Max = clampFinite(c.Max, 1)
	if c.Min > c.Max {
		c.Min, c.Max = c.Max, c.Min
	}
	if !isFinite(c.Deadzone) || c.Deadzone < 0 || c.Deadzone >= 1 {
		c.Deadzone = DefaultDeadzone
	}
	if c.Mode != FullRange && c.Mode != PositiveRange {
		c.Mode = FullRange
	}
	return c
}

func clampFinite(v, fallback float64) float64 {
	if !isFinite(v) {
		return fallback
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Normalize runs one raw axis sample through an assignment's tuning:
// deadzone with rescaling, clamp into the configured window, map onto the
// output range, then polarity. configured=false passes the raw value
// through untouched, which is what the remap capture path wants.
//
// A degenerate window (min == max) and any non-finite input or result
// yield 0. Output is always within [-1, 1] for FullRange and [0, 1] for
// PositiveRange.
func Normalize(raw float64, cfg AxisConfig, configured bool) float64 {
	if !isFinite(raw) {
		return 0
	}
	if !configured {
		return raw
	}
	v := applyDeadzone(raw, cfg.Deadzone)
	if v < cfg.Min {
		v = cfg.Min
	}
	if v > cfg.Max {
		v = cfg.Max
	}
	span := cfg.Max - cfg.Min
	if span <= 0 {
		return 0
	}
	t := (v - cfg.Min) / span
	var out float64
	if cfg.Mode == PositiveRange {
		out = t
		if cfg.Inverted {
			out = 1 - t
		}
	} else {
		out = 2*t - 1
		if cfg.Inverted {
			out = -out
		}
	}
	if !isFinite(out) {
		return 0
	}
	return out
}

// applyDeadzone zeroes small deflections and rescales the remainder so the
// output still sweeps the full range; without the rescale the value would
// jump from 0 to dz at the deadzone edge.
func applyDeadzone(v, dz float64) float64 {
	if dz <= 0 {
		return v
	}
	a := math.Abs(v)
	if a <= dz {
		return 0
	}
	r := (a - dz) / (1 - dz)
	if v < 0 {
		return -r
	}
	return r
}
