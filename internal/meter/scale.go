package meter

import (
	"fmt"
	"math"
)

// Reference scale geometry. The needle travels a 100 degree arc starting at
// 220 degrees, matching the face layout the web renderer draws.
const (
	AngleStart  = 220.0
	AngleSweep  = 100.0
	mapOverrun  = 1.0 // mapped targets may exceed DisplayMax by this much
	needleCeil  = 0.5 // the filtered needle is clamped a little tighter
	tickTargets = 8   // aim for roughly this many major ticks
)

// Range holds the visible scale bounds in display units (dB).
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns the width of the range in display units.
func (r Range) Span() float64 { return r.Max - r.Min }

// Clamp limits v to the range plus the given overshoot above Max.
func (r Range) Clamp(v, overshoot float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max+overshoot)
}

// mapToScale converts a raw dB reading onto the display scale. Readings at or
// below the noise floor pin to Range.Min; everything else interpolates
// linearly between the noise floor and Range.Max. The result may exceed
// Range.Max by mapOverrun so the ballistics have something to overshoot into.
func mapToScale(rawDb float64, r Range, noiseFloor float64) float64 {
	if rawDb <= noiseFloor {
		return r.Min
	}
	v := r.Min + (rawDb-noiseFloor)/(r.Max-noiseFloor)*r.Span()
	return r.Clamp(v, mapOverrun)
}

// DBFromAmplitude converts a linear amplitude to decibels. Amplitudes at or
// below zero are silence and map to negative infinity.
func DBFromAmplitude(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amplitude)
}

// AngleForValue maps a display value onto the needle arc.
func AngleForValue(v float64, r Range) float64 {
	return AngleStart + (v-r.Min)/r.Span()*AngleSweep
}

// ScaleTick is a single marking on the meter face.
type ScaleTick struct {
	Value float64 `json:"value"`
	Angle float64 `json:"angle"`
	Major bool    `json:"major"`
	Label string  `json:"label,omitempty"`
}

// Scale is the full face description handed to the renderer on rebuild.
// Rebuilds are throttled by the auto-ranger; the renderer redraws the whole
// face rather than patching individual markings.
type Scale struct {
	Range         Range       `json:"range"`
	AngleStart    float64     `json:"angle_start"`
	AngleSweep    float64     `json:"angle_sweep"`
	ClipThreshold float64     `json:"clip_threshold"`
	Label         string      `json:"label,omitempty"`
	Ticks         []ScaleTick `json:"ticks"`
}

// tickStep picks a round dB step so the face carries a readable number of
// major ticks regardless of the current span.
func tickStep(span float64) float64 {
	raw := span / tickTargets
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

// buildScale produces the face description for the given bounds.
func buildScale(r Range, clipThreshold float64, label string) Scale {
	step := tickStep(r.Span())
	minor := step / 2

	s := Scale{
		Range:         r,
		AngleStart:    AngleStart,
		AngleSweep:    AngleSweep,
		ClipThreshold: clipThreshold,
		Label:         label,
	}

	first := math.Ceil(r.Min/minor) * minor
	for v := first; v <= r.Max+1e-9; v += minor {
		// Snap away accumulated float error so labels stay round.
		v = math.Round(v/minor) * minor
		rem := math.Mod(math.Abs(v), step)
		major := rem < 1e-9 || step-rem < 1e-9
		tick := ScaleTick{
			Value: v,
			Angle: AngleForValue(v, r),
			Major: major,
		}
		if major {
			tick.Label = formatTickLabel(v)
		}
		s.Ticks = append(s.Ticks, tick)
	}
	return s
}

// formatTickLabel renders a tick value without trailing decimals when whole.
func formatTickLabel(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f", v)
}
