package driver

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Deatojef/vumeter/internal/meter"
)

// demoSampleInterval matches a typical capture-side level report rate.
const demoSampleInterval = 50 * time.Millisecond

// DemoSource feeds a synthetic program-like signal into a meter so the
// binary can be demonstrated without an audio chain: a slow loudness swell
// with noise on top and an occasional hot burst that pushes into clipping.
type DemoSource struct {
	m *meter.Meter

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewDemoSource creates a demo signal source for the given meter.
func NewDemoSource(m *meter.Meter) *DemoSource {
	return &DemoSource{m: m, stop: make(chan struct{})}
}

// Start launches the signal generator. It returns immediately.
func (s *DemoSource) Start() {
	go s.run()
}

func (s *DemoSource) run() {
	ticker := time.NewTicker(demoSampleInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()

			// Base program: -18 dB center, ±9 dB swell over ~12 s.
			db := -18 + 9*math.Sin(2*math.Pi*t/12)
			db += rand.Float64()*6 - 3

			// Every ~20 s, a two second hot passage.
			if math.Mod(t, 20) > 18 {
				db += 16
			}

			_ = s.m.SetValue(db)
		}
	}
}

// Stop halts the generator. Idempotent.
func (s *DemoSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
}
