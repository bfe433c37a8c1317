package meter

import "math"

const (
	// maxStepMs caps the elapsed time applied in a single frame so a stall or
	// scheduler hiccup cannot teleport the needle.
	maxStepMs = 100.0

	// deadband below which the needle snaps onto the target exactly, ending
	// the asymptotic tail of the exponential approach.
	deadband = 0.005
)

// ballisticsConfig holds the time constants for needle inertia.
type ballisticsConfig struct {
	Enabled   bool
	AttackMs  float64 // tau while the needle rises
	ReleaseMs float64 // tau while the needle falls
}

// approach advances current toward target by one step of a first-order
// low-pass with time constant tauMs. Shared by the needle and the peak
// tracker.
func approach(current, target, dtMs, tauMs float64) float64 {
	return current + (target-current)*(1-math.Exp(-dtMs/tauMs))
}

// ballistics smooths the mapped target into the displayed needle position,
// simulating the inertia of a moving-coil meter.
type ballistics struct {
	current float64
}

// advance moves the needle toward target over dtMs milliseconds and returns
// the new position, clamped to the range plus a small mechanical overtravel.
func (b *ballistics) advance(target, dtMs float64, cfg ballisticsConfig, r Range) float64 {
	dtMs = math.Min(dtMs, maxStepMs)

	if !cfg.Enabled {
		b.current = r.Clamp(target, needleCeil)
		return b.current
	}

	diff := target - b.current
	if math.Abs(diff) < deadband {
		b.current = target
	} else {
		tau := cfg.ReleaseMs
		if diff > 0 {
			tau = cfg.AttackMs
		}
		b.current = approach(b.current, target, dtMs, tau)
	}

	b.current = r.Clamp(b.current, needleCeil)
	return b.current
}

// clampTo pulls the needle inside new bounds after a range change.
func (b *ballistics) clampTo(r Range) {
	b.current = r.Clamp(b.current, needleCeil)
}

// reset pins the needle to the scale minimum.
func (b *ballistics) reset(r Range) {
	b.current = r.Min
}
