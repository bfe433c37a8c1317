package meter

import (
	"math"
	"testing"
	"time"
)

var rangeTestCfg = autoRangeConfig{WindowSec: 10, MarginDb: 3}

func TestAutoRangeExpandsImmediately(t *testing.T) {
	base := Range{Min: -60, Max: 3}
	a := newAutoRanger(base)
	t0 := time.Now()

	// A sample below the floor widens the bottom in the same call.
	next, rebuild := a.observe(-70, t0, base, rangeTestCfg)
	if next.Min != -73 {
		t.Errorf("min = %v, want -73 (sample minus margin)", next.Min)
	}
	if next.Max != base.Max {
		t.Errorf("max = %v, want unchanged %v", next.Max, base.Max)
	}
	if !rebuild {
		t.Error("a 13 dB expansion should signal a rebuild")
	}

	// A hot sample widens the top the same way.
	next, _ = a.observe(10, t0.Add(time.Second), next, rangeTestCfg)
	if next.Max != 13 {
		t.Errorf("max = %v, want 13", next.Max)
	}
}

func TestAutoRangeContractionRateLimit(t *testing.T) {
	base := Range{Min: -60, Max: 3}
	a := newAutoRanger(base)
	t0 := time.Now()

	// One quiet mid-scale sample: both bounds want to tighten a long way.
	cur, _ := a.observe(-30, t0, base, rangeTestCfg)
	if cur != base {
		t.Fatalf("mid-scale sample must not expand, got %+v", cur)
	}

	next, _ := a.contract(500, cur)
	if got := next.Min - cur.Min; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("min moved %v in 500ms, want 0.5", got)
	}
	if got := cur.Max - next.Max; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("max moved %v in 500ms, want 0.5", got)
	}
}

func TestAutoRangeContractionNeverOvershoots(t *testing.T) {
	base := Range{Min: -60, Max: 3}
	a := newAutoRanger(base)
	t0 := time.Now()

	cur, _ := a.observe(-30, t0, base, rangeTestCfg)
	// Contraction targets are -33/-27. A giant dt still stops there.
	for range 200 {
		cur, _ = a.contract(1000, cur)
	}
	if cur.Min != -33 || cur.Max != -27 {
		t.Errorf("contracted to %+v, want {-33 -27}", cur)
	}
}

func TestAutoRangeWindowForgetsExtremes(t *testing.T) {
	base := Range{Min: -60, Max: 3}
	cfg := autoRangeConfig{WindowSec: 2, MarginDb: 3}
	a := newAutoRanger(base)
	t0 := time.Now()

	cur, _ := a.observe(-70, t0, base, cfg)
	if cur.Min != -73 {
		t.Fatalf("min = %v, want -73", cur.Min)
	}

	// Three seconds later the loud extreme has left the window; only the
	// recent quiet sample remains, so the bounds want to tighten.
	cur, _ = a.observe(-30, t0.Add(3*time.Second), cur, cfg)
	if cur.Min != -73 {
		t.Fatalf("expansion must not reverse instantly, min = %v", cur.Min)
	}
	if a.targetMin != -33 || a.targetMax != -27 {
		t.Errorf("contraction targets %v/%v, want -33/-27", a.targetMin, a.targetMax)
	}
	if len(a.samples) != 1 {
		t.Errorf("window holds %d samples, want 1", len(a.samples))
	}
}

func TestAutoRangeRebuildThrottle(t *testing.T) {
	base := Range{Min: -60, Max: 3}
	a := newAutoRanger(base)
	t0 := time.Now()

	cur, _ := a.observe(-30, t0, base, rangeTestCfg)

	// 0.3 units of movement per call: the fourth call crosses 1.0 cumulative.
	rebuilds := 0
	for i := range 4 {
		var rebuild bool
		cur, rebuild = a.contract(150, cur)
		if rebuild {
			rebuilds++
			if i < 3 {
				t.Errorf("rebuild fired after only %d steps", i+1)
			}
		}
	}
	if rebuilds != 1 {
		t.Errorf("got %d rebuild signals, want 1", rebuilds)
	}
}

func TestAutoRangeReset(t *testing.T) {
	base := Range{Min: -60, Max: 3}
	a := newAutoRanger(base)
	t0 := time.Now()

	a.observe(-80, t0, base, rangeTestCfg)
	got := a.reset()
	if got != base {
		t.Errorf("reset returned %+v, want %+v", got, base)
	}
	if len(a.samples) != 0 {
		t.Errorf("reset left %d samples in the window", len(a.samples))
	}
}
