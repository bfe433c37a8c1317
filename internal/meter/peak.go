package meter

import (
	"math"
	"time"
)

// decayDoneMargin is how close the peak needle must get to the scale minimum
// before the tracker considers a decay finished and rearms.
const decayDoneMargin = 0.05

// peakConfig holds the timing for the secondary peak-hold needle.
type peakConfig struct {
	AttackMs float64 // tau while chasing a new peak
	HoldMs   float64 // how long a peak is held before decay
	DecayMs  float64 // tau while falling back to the scale minimum
}

// peakTracker drives the peak-hold needle. It tracks the highest target seen,
// holds it for a configured interval, then decays back to the scale minimum
// and rearms. A new peak always interrupts a decay and restarts the hold
// timer: most recent peak wins.
type peakTracker struct {
	held         float64   // highest target since last reset or completed decay
	visual       float64   // animated needle position
	holdDeadline time.Time // zero while idle; decay starts once passed
	decaying     bool
}

// newPeakTracker returns a tracker resting at the scale minimum.
func newPeakTracker(r Range) *peakTracker {
	return &peakTracker{held: r.Min, visual: r.Min}
}

// observe registers a mapped target value. Targets above the held peak
// capture it and reset the hold timer.
func (p *peakTracker) observe(target float64, now time.Time, cfg peakConfig) {
	if target > p.held {
		p.held = target
		p.holdDeadline = now.Add(time.Duration(cfg.HoldMs * float64(time.Millisecond)))
		p.decaying = false
	}
}

// advance moves the peak needle by one frame and returns its position.
func (p *peakTracker) advance(now time.Time, dtMs float64, cfg peakConfig, r Range) float64 {
	dtMs = math.Min(dtMs, maxStepMs)

	if !p.decaying && !p.holdDeadline.IsZero() && !now.Before(p.holdDeadline) {
		p.decaying = true
	}

	if p.decaying {
		p.visual = approach(p.visual, r.Min, dtMs, cfg.DecayMs)
		if p.visual <= r.Min+decayDoneMargin {
			p.reset(r)
		}
	} else {
		p.visual = approach(p.visual, p.held, dtMs, cfg.AttackMs)
		p.visual = r.Clamp(p.visual, 0)
	}
	return p.visual
}

// clampTo pulls the tracker inside new bounds after a range change.
func (p *peakTracker) clampTo(r Range) {
	p.held = r.Clamp(p.held, 0)
	p.visual = r.Clamp(p.visual, 0)
}

// reset returns the tracker to idle at the scale minimum.
func (p *peakTracker) reset(r Range) {
	p.held = r.Min
	p.visual = r.Min
	p.holdDeadline = time.Time{}
	p.decaying = false
}
