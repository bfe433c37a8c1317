package meter

import (
	"math"
	"testing"
)

var testRange = Range{Min: -60, Max: 3}

func TestBallisticsDisabledTracksTarget(t *testing.T) {
	b := ballistics{}
	b.reset(testRange)
	cfg := ballisticsConfig{Enabled: false}

	if got := b.advance(-12, 16, cfg, testRange); got != -12 {
		t.Errorf("disabled ballistics = %v, want target -12", got)
	}
	// Even without smoothing the needle respects the mechanical ceiling.
	if got := b.advance(4, 16, cfg, testRange); got != testRange.Max+needleCeil {
		t.Errorf("disabled ballistics above max = %v, want %v", got, testRange.Max+needleCeil)
	}
}

func TestBallisticsConvergence(t *testing.T) {
	b := ballistics{}
	b.reset(testRange)
	cfg := ballisticsConfig{Enabled: true, AttackMs: 80, ReleaseMs: 300}

	const target = -10.0
	prevGap := math.Abs(target - b.current)
	steps := 0
	for ; steps < 200; steps++ {
		b.advance(target, 16, cfg, testRange)
		gap := math.Abs(target - b.current)
		if gap >= prevGap {
			t.Fatalf("step %d: gap %v did not shrink from %v", steps, gap, prevGap)
		}
		prevGap = gap
		if b.current == target {
			break
		}
	}
	if b.current != target {
		t.Fatalf("needle never snapped onto target, stuck at %v after %d steps", b.current, steps)
	}
	// Convergence should take on the order of a few tau, not hundreds.
	if steps > 100 {
		t.Errorf("took %d steps to converge", steps)
	}
}

func TestBallisticsDeadbandSnap(t *testing.T) {
	b := ballistics{current: -10.0}
	cfg := ballisticsConfig{Enabled: true, AttackMs: 80, ReleaseMs: 300}

	target := -10.0 + deadband/2
	if got := b.advance(target, 16, cfg, testRange); got != target {
		t.Errorf("inside deadband: got %v, want exact target %v", got, target)
	}
}

func TestBallisticsAsymmetry(t *testing.T) {
	cfg := ballisticsConfig{Enabled: true, AttackMs: 50, ReleaseMs: 500}

	rise := ballistics{current: -30}
	rise.advance(-20, 16, cfg, testRange)
	risen := rise.current - (-30)

	fall := ballistics{current: -10}
	fall.advance(-20, 16, cfg, testRange)
	fallen := -10 - fall.current

	// Same 10 dB gap, same dt: the fast attack moves much further than the
	// slow release.
	if risen <= fallen {
		t.Errorf("attack moved %v, release moved %v; attack should be faster", risen, fallen)
	}
}

func TestBallisticsStepCap(t *testing.T) {
	cfg := ballisticsConfig{Enabled: true, AttackMs: 80, ReleaseMs: 300}

	capped := ballistics{current: -40}
	capped.advance(-10, maxStepMs, cfg, testRange)

	huge := ballistics{current: -40}
	huge.advance(-10, 5000, cfg, testRange)

	if capped.current != huge.current {
		t.Errorf("dt=5000 moved to %v, dt=%v moved to %v; oversized steps must clamp",
			huge.current, maxStepMs, capped.current)
	}
}

func TestBallisticsOvershootCeiling(t *testing.T) {
	b := ballistics{current: 2.0}
	cfg := ballisticsConfig{Enabled: true, AttackMs: 1, ReleaseMs: 300}

	// Target beyond the scale: the mapped value may reach Max+1 but the
	// needle itself stops at Max+0.5.
	for range 50 {
		b.advance(testRange.Max+mapOverrun, 100, cfg, testRange)
	}
	if b.current > testRange.Max+needleCeil {
		t.Errorf("needle at %v exceeds ceiling %v", b.current, testRange.Max+needleCeil)
	}
}
