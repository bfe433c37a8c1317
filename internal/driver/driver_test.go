package driver

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Deatojef/vumeter/internal/meter"
)

func newTestMeter(t *testing.T, events meter.Events) *meter.Meter {
	t.Helper()
	m, err := meter.New(meter.Options{DisplayMin: -60, DisplayMax: 3}, events)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDriverDeliversFrames(t *testing.T) {
	var frames atomic.Int64
	m := newTestMeter(t, meter.Events{OnFrame: func(meter.Frame) { frames.Add(1) }})

	d := New(m, 100)
	d.Start()
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	for frames.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d frames after 2s", frames.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDriverStopIsIdempotent(t *testing.T) {
	m := newTestMeter(t, meter.Events{})
	d := New(m, 100)
	d.Start()

	d.Stop()
	d.Stop() // must not panic on a closed channel
}

func TestDriverStopHaltsFrames(t *testing.T) {
	var frames atomic.Int64
	m := newTestMeter(t, meter.Events{OnFrame: func(meter.Frame) { frames.Add(1) }})

	d := New(m, 100)
	d.Start()
	time.Sleep(100 * time.Millisecond)
	d.Stop()

	settled := frames.Load()
	time.Sleep(100 * time.Millisecond)
	if got := frames.Load(); got > settled+1 {
		t.Errorf("frames kept arriving after Stop: %d -> %d", settled, got)
	}
}

func TestDefaultFPSFallback(t *testing.T) {
	m := newTestMeter(t, meter.Events{})
	d := New(m, 0)
	if want := time.Second / DefaultFPS; d.interval != want {
		t.Errorf("interval = %v, want %v", d.interval, want)
	}
}
