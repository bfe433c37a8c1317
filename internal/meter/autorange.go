package meter

import (
	"math"
	"time"
)

const (
	// contractRatePerSec limits how fast the scale may tighten. Expansion is
	// never limited; a newly observed extreme must fit on the face at once.
	contractRatePerSec = 1.0

	// rebuildDrift is the cumulative bound movement that triggers a face
	// rebuild. Redrawing the scale is the expensive renderer operation, so
	// sub-unit creep is allowed to accumulate silently.
	rebuildDrift = 1.0
)

// autoRangeConfig holds the adaptive scaling parameters.
type autoRangeConfig struct {
	WindowSec float64 // how long raw samples stay relevant
	MarginDb  float64 // headroom added beyond observed extremes
}

// rangeSample is a raw reading retained inside the sliding window.
type rangeSample struct {
	value float64
	at    time.Time
}

// autoRanger adapts the visible scale to the signal: bounds expand the moment
// a sample lands outside them and contract slowly once the window forgets the
// extremes that forced them out.
type autoRanger struct {
	base    Range // bounds restored by Reset
	samples []rangeSample

	// contraction targets derived from the current window
	targetMin float64
	targetMax float64

	// cumulative bound movement since the last rebuild signal
	drift float64
}

// newAutoRanger returns a ranger that restores base on reset.
func newAutoRanger(base Range) *autoRanger {
	return &autoRanger{base: base, targetMin: base.Min, targetMax: base.Max}
}

// observe records a raw sample and returns the possibly expanded bounds.
// Expansion happens in the same call; rebuild reports whether the face
// drifted far enough to warrant a redraw.
func (a *autoRanger) observe(raw float64, now time.Time, cur Range, cfg autoRangeConfig) (next Range, rebuild bool) {
	a.samples = append(a.samples, rangeSample{value: raw, at: now})
	a.prune(now, cfg.WindowSec)

	lo, hi := a.samples[0].value, a.samples[0].value
	for _, s := range a.samples[1:] {
		lo = math.Min(lo, s.value)
		hi = math.Max(hi, s.value)
	}
	a.targetMin = lo - cfg.MarginDb
	a.targetMax = hi + cfg.MarginDb

	next = cur
	if a.targetMin < cur.Min {
		a.drift += cur.Min - a.targetMin
		next.Min = a.targetMin
	}
	if a.targetMax > cur.Max {
		a.drift += a.targetMax - cur.Max
		next.Max = a.targetMax
	}
	return next, a.takeDrift()
}

// contract tightens the bounds toward the current targets by at most
// contractRatePerSec display units per second of elapsed frame time.
func (a *autoRanger) contract(dtMs float64, cur Range) (next Range, rebuild bool) {
	if len(a.samples) == 0 {
		return cur, false
	}
	step := contractRatePerSec * dtMs / 1000

	next = cur
	if a.targetMin > cur.Min {
		next.Min = math.Min(cur.Min+step, a.targetMin)
		a.drift += next.Min - cur.Min
	}
	if a.targetMax < cur.Max {
		next.Max = math.Max(cur.Max-step, a.targetMax)
		a.drift += cur.Max - next.Max
	}
	return next, a.takeDrift()
}

// prune drops samples older than the window.
func (a *autoRanger) prune(now time.Time, windowSec float64) {
	cutoff := now.Add(-time.Duration(windowSec * float64(time.Second)))
	i := 0
	for i < len(a.samples) && a.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		a.samples = append(a.samples[:0], a.samples[i:]...)
	}
}

// takeDrift reports and clears the rebuild signal once enough cumulative
// movement has built up.
func (a *autoRanger) takeDrift() bool {
	if a.drift < rebuildDrift {
		return false
	}
	a.drift = 0
	return true
}

// reset clears the sample history and returns the construction-time bounds.
func (a *autoRanger) reset() Range {
	a.samples = a.samples[:0]
	a.targetMin = a.base.Min
	a.targetMax = a.base.Max
	a.drift = 0
	return a.base
}
