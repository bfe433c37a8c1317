// Package driver runs the frame loop for a meter. It stands in for a display
// refresh scheduler: one recurring callback per meter, delivered from a
// single goroutine so all animation math stays serial.
package driver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Deatojef/vumeter/internal/meter"
)

// DefaultFPS is the frame rate used when none is configured. Browser
// renderers repaint comfortably at 30 updates per second over a websocket.
const DefaultFPS = 30

// Driver ticks a meter at a fixed frame rate.
type Driver struct {
	m        *meter.Meter
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// New creates a driver for the given meter. fps values below 1 fall back to
// DefaultFPS.
func New(m *meter.Meter, fps int) *Driver {
	if fps < 1 {
		fps = DefaultFPS
	}
	return &Driver{
		m:        m,
		interval: time.Second / time.Duration(fps),
		stop:     make(chan struct{}),
	}
}

// Start launches the frame loop. It returns immediately.
func (d *Driver) Start() {
	slog.Info("starting frame driver", "interval", d.interval)
	go d.run()
}

// run delivers ticks until Stop is called. The meter handles pause state
// itself; the driver keeps ticking so resume needs no coordination here.
func (d *Driver) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case now := <-ticker.C:
			d.m.Tick(now)
		}
	}
}

// Stop halts the frame loop. It is idempotent and safe to call from a meter
// callback; the loop exits before the next frame.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	close(d.stop)
}
