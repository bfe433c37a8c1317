// Package meter implements the signal-to-needle core of a simulated analog
// level meter: range mapping, exponential needle ballistics, peak hold, clip
// edge detection, and adaptive scale bounds. Rendering is delegated to a
// collaborator through the Events callbacks.
package meter

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Events carries the renderer-facing callbacks. Nil callbacks are skipped.
// Callbacks run on the goroutine that called Tick (or the mutating API call
// that forced a scale rebuild) and must not block.
type Events struct {
	OnFrame     func(Frame)
	OnScale     func(Scale)
	OnClipStart func()
	OnClipEnd   func()
}

// Frame is the per-tick output consumed by the renderer.
type Frame struct {
	Value     float64 `json:"value"`  // filtered needle position in display units
	Target    float64 `json:"target"` // mapped input the needle is chasing
	Angle     float64 `json:"angle"`  // needle angle in degrees
	PeakValue float64 `json:"peak_value,omitzero"`
	PeakAngle float64 `json:"peak_angle,omitzero"`
	Clipping  bool    `json:"clipping,omitzero"`
	Range     Range   `json:"range"`
}

// Status is a point-in-time summary for status consumers. PeakValue falls
// back to the needle position when the peak needle is disabled.
type Status struct {
	Options   Options `json:"options"`
	Range     Range   `json:"range"`
	Value     float64 `json:"value"`
	Target    float64 `json:"target"`
	PeakValue float64 `json:"peak_value"`
	Clipping  bool    `json:"clipping"`
	Paused    bool    `json:"paused"`
}

// Meter owns the full animation state of one simulated level meter. All state
// is guarded by a single mutex; API calls may land between frames and leave
// the state consistent for the next tick. Instances share nothing.
type Meter struct {
	mu sync.Mutex

	opts Options
	rng  Range
	base Range // construction bounds, restored by ResetRange

	target float64
	needle ballistics
	peak   *peakTracker // nil when the peak needle is disabled
	ranger *autoRanger  // nil when auto-ranging is disabled
	clip   clipDetector

	events    Events
	lastTick  time.Time // zero means the elapsed-time baseline was discarded
	paused    bool
	destroyed bool
}

// New builds a meter from the given options. Zero-value numeric fields fall
// back to their defaults; the resulting set is validated before any state is
// created.
func New(opts Options, events Events) (*Meter, error) {
	applyOptionDefaults(&opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := Range{Min: opts.DisplayMin, Max: opts.DisplayMax}
	m := &Meter{
		opts:   opts,
		rng:    r,
		base:   r,
		target: r.Min,
		events: events,
	}
	m.needle.reset(r)
	if opts.Peak {
		m.peak = newPeakTracker(r)
	}
	if opts.AutoRange {
		m.ranger = newAutoRanger(r)
	}
	return m, nil
}

// applyOptionDefaults fills zero-value timing and bounds fields. A fully
// zero Options is indistinguishable from "use the defaults", matching how
// the config layer treats absent JSON keys.
func applyOptionDefaults(o *Options) {
	if o.DisplayMin == 0 && o.DisplayMax == 0 {
		o.DisplayMin = DefaultDisplayMin
		o.DisplayMax = DefaultDisplayMax
	}
	if o.NoiseFloor == nil {
		nf := o.DisplayMin
		o.NoiseFloor = &nf
	}
	if o.AttackMs == 0 {
		o.AttackMs = DefaultAttackMs
	}
	if o.ReleaseMs == 0 {
		o.ReleaseMs = DefaultReleaseMs
	}
	if o.AutoRangeWindowSec == 0 {
		o.AutoRangeWindowSec = DefaultAutoRangeWindowSec
	}
	if o.AutoRangeMarginDb == 0 {
		o.AutoRangeMarginDb = DefaultAutoRangeMarginDb
	}
	if o.PeakAttackMs == 0 {
		o.PeakAttackMs = DefaultPeakAttackMs
	}
	if o.PeakHoldMs == 0 {
		o.PeakHoldMs = DefaultPeakHoldMs
	}
	if o.PeakDecayMs == 0 {
		o.PeakDecayMs = DefaultPeakDecayMs
	}
}

// SetValue feeds a raw dB reading. Negative infinity is the silence sentinel;
// NaN and positive infinity are rejected. Auto-ranging reacts within this
// call: bounds expand immediately when the sample lands outside them.
func (m *Meter) SetValue(rawDb float64) error {
	return m.setValueAt(rawDb, time.Now())
}

// setValueAt is SetValue with an explicit clock, used by tests.
func (m *Meter) setValueAt(rawDb float64, now time.Time) error {
	if math.IsNaN(rawDb) || math.IsInf(rawDb, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidSample, rawDb)
	}

	var rebuild bool
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}
	// Silence never enters the auto-range window; it would drag the observed
	// minimum to the sentinel and blow the scale open.
	if m.ranger != nil && !math.IsInf(rawDb, -1) {
		cfg := autoRangeConfig{WindowSec: m.opts.AutoRangeWindowSec, MarginDb: m.opts.AutoRangeMarginDb}
		m.rng, rebuild = m.ranger.observe(rawDb, now, m.rng, cfg)
	}
	m.target = mapToScale(rawDb, m.rng, *m.opts.NoiseFloor)
	var scale Scale
	if rebuild {
		scale = m.scaleLocked()
	}
	m.mu.Unlock()

	if rebuild {
		m.emitScale(scale)
	}
	return nil
}

// SetAmplitude feeds a linear amplitude sample. Non-positive amplitudes are
// silence; everything else converts to dB and follows the SetValue path.
func (m *Meter) SetAmplitude(amplitude float64) error {
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidSample, amplitude)
	}
	return m.SetValue(DBFromAmplitude(amplitude))
}

// Value returns the current filtered display value.
func (m *Meter) Value() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.needle.current
}

// CurrentRange returns the visible scale bounds.
func (m *Meter) CurrentRange() Range {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng
}

// Status returns a snapshot of the meter state.
func (m *Meter) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	peak := m.needle.current
	if m.peak != nil {
		peak = m.peak.visual
	}
	return Status{
		Options:   m.opts,
		Range:     m.rng,
		Value:     m.needle.current,
		Target:    m.target,
		PeakValue: peak,
		Clipping:  m.clip.active(),
		Paused:    m.paused,
	}
}

// CurrentScale returns the face description for the current bounds, for
// renderers that need an initial draw before the first rebuild signal.
func (m *Meter) CurrentScale() Scale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scaleLocked()
}

// SetRange overrides the scale bounds directly. Current, target, and peak
// values are clamped into the new bounds and a scale rebuild is forced.
// Auto-range sample history is left untouched.
func (m *Meter) SetRange(minDb, maxDb float64) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}

	candidate := m.opts
	candidate.DisplayMin = minDb
	candidate.DisplayMax = maxDb
	if err := candidate.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}

	m.opts = candidate
	m.applyBoundsLocked(Range{Min: minDb, Max: maxDb})
	scale := m.scaleLocked()
	m.mu.Unlock()

	m.emitScale(scale)
	return nil
}

// ResetRange clears the auto-range history, restores the construction-time
// bounds, resets the peak tracker, and forces a scale rebuild.
func (m *Meter) ResetRange() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}

	r := m.base
	if m.ranger != nil {
		r = m.ranger.reset()
	}
	m.opts.DisplayMin = r.Min
	m.opts.DisplayMax = r.Max
	m.applyBoundsLocked(r)
	if m.peak != nil {
		m.peak.reset(r)
	}
	scale := m.scaleLocked()
	m.mu.Unlock()

	m.emitScale(scale)
}

// applyBoundsLocked installs new bounds and clamps all animated state inside
// them. Caller holds m.mu.
func (m *Meter) applyBoundsLocked(r Range) {
	m.rng = r
	m.target = r.Clamp(m.target, mapOverrun)
	m.needle.clampTo(r)
	if m.peak != nil {
		m.peak.clampTo(r)
	}
}

// OptionsPatch is a partial option update. Nil fields keep their current
// value. The patched set is validated as a whole before anything is applied.
type OptionsPatch struct {
	DisplayMin         *float64 `json:"display_min,omitempty"`
	DisplayMax         *float64 `json:"display_max,omitempty"`
	NoiseFloor         *float64 `json:"noise_floor,omitempty"`
	Ballistics         *bool    `json:"ballistics,omitempty"`
	AttackMs           *float64 `json:"attack_ms,omitempty"`
	ReleaseMs          *float64 `json:"release_ms,omitempty"`
	ClipThreshold      *float64 `json:"clip_threshold,omitempty"`
	AutoRange          *bool    `json:"auto_range,omitempty"`
	AutoRangeWindowSec *float64 `json:"auto_range_window_sec,omitempty"`
	AutoRangeMarginDb  *float64 `json:"auto_range_margin_db,omitempty"`
	Peak               *bool    `json:"peak,omitempty"`
	PeakAttackMs       *float64 `json:"peak_attack_ms,omitempty"`
	PeakHoldMs         *float64 `json:"peak_hold_ms,omitempty"`
	PeakDecayMs        *float64 `json:"peak_decay_ms,omitempty"`
	Label              *string  `json:"label,omitempty"`
}

// apply overlays the patch onto opts.
func (p *OptionsPatch) apply(opts *Options) {
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&opts.DisplayMin, p.DisplayMin)
	setFloat(&opts.DisplayMax, p.DisplayMax)
	if p.NoiseFloor != nil {
		opts.NoiseFloor = p.NoiseFloor
	}
	setBool(&opts.Ballistics, p.Ballistics)
	setFloat(&opts.AttackMs, p.AttackMs)
	setFloat(&opts.ReleaseMs, p.ReleaseMs)
	setFloat(&opts.ClipThreshold, p.ClipThreshold)
	setBool(&opts.AutoRange, p.AutoRange)
	setFloat(&opts.AutoRangeWindowSec, p.AutoRangeWindowSec)
	setFloat(&opts.AutoRangeMarginDb, p.AutoRangeMarginDb)
	setBool(&opts.Peak, p.Peak)
	setFloat(&opts.PeakAttackMs, p.PeakAttackMs)
	setFloat(&opts.PeakHoldMs, p.PeakHoldMs)
	setFloat(&opts.PeakDecayMs, p.PeakDecayMs)
	if p.Label != nil {
		opts.Label = *p.Label
	}
}

// SetOptions applies a partial configuration update. Validation happens on
// the complete patched set; a failed update leaves the meter untouched.
func (m *Meter) SetOptions(patch OptionsPatch) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}

	candidate := m.opts
	patch.apply(&candidate)
	if err := candidate.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}

	prev := m.opts
	m.opts = candidate

	boundsChanged := candidate.DisplayMin != prev.DisplayMin || candidate.DisplayMax != prev.DisplayMax
	if boundsChanged {
		m.applyBoundsLocked(Range{Min: candidate.DisplayMin, Max: candidate.DisplayMax})
		m.base = m.rng
		if m.ranger != nil {
			m.ranger.base = m.rng
		}
	}

	if candidate.Peak && m.peak == nil {
		m.peak = newPeakTracker(m.rng)
	} else if !candidate.Peak {
		m.peak = nil
	}
	if candidate.AutoRange && m.ranger == nil {
		m.ranger = newAutoRanger(m.rng)
	} else if !candidate.AutoRange {
		m.ranger = nil
	}

	redraw := boundsChanged || candidate.ClipThreshold != prev.ClipThreshold || candidate.Label != prev.Label
	var scale Scale
	if redraw {
		scale = m.scaleLocked()
	}
	m.mu.Unlock()

	if redraw {
		m.emitScale(scale)
	}
	return nil
}

// Pause suspends frame processing and discards the elapsed-time baseline so
// resuming never applies a stale dt.
func (m *Meter) Pause() {
	m.mu.Lock()
	m.paused = true
	m.lastTick = time.Time{}
	m.mu.Unlock()
}

// Resume re-enables frame processing. The first tick after resuming sees
// dt = 0 because the baseline was discarded on pause.
func (m *Meter) Resume() {
	m.mu.Lock()
	m.paused = false
	m.lastTick = time.Time{}
	m.mu.Unlock()
}

// Destroy permanently stops the meter. It is safe to call from within a
// callback triggered by this meter; no callback fires after it returns.
func (m *Meter) Destroy() {
	m.mu.Lock()
	m.destroyed = true
	m.events = Events{}
	m.mu.Unlock()
}

// Tick advances the animation by one frame. The frame driver calls it once
// per scheduled repaint with the current time; dt is derived from the
// previous tick and capped so pauses and stalls cannot fling the needle.
func (m *Meter) Tick(now time.Time) {
	m.mu.Lock()
	if m.destroyed || m.paused {
		m.mu.Unlock()
		return
	}

	var dtMs float64
	if !m.lastTick.IsZero() {
		dtMs = math.Min(float64(now.Sub(m.lastTick))/float64(time.Millisecond), maxStepMs)
	}
	m.lastTick = now

	var rebuild bool
	if m.ranger != nil {
		m.rng, rebuild = m.ranger.contract(dtMs, m.rng)
		m.target = m.rng.Clamp(m.target, mapOverrun)
	}

	bcfg := ballisticsConfig{Enabled: m.opts.Ballistics, AttackMs: m.opts.AttackMs, ReleaseMs: m.opts.ReleaseMs}
	value := m.needle.advance(m.target, dtMs, bcfg, m.rng)

	frame := Frame{
		Value:  value,
		Target: m.target,
		Angle:  AngleForValue(value, m.rng),
		Range:  m.rng,
	}

	if m.peak != nil {
		pcfg := peakConfig{AttackMs: m.opts.PeakAttackMs, HoldMs: m.opts.PeakHoldMs, DecayMs: m.opts.PeakDecayMs}
		m.peak.observe(m.target, now, pcfg)
		pv := m.peak.advance(now, dtMs, pcfg, m.rng)
		frame.PeakValue = pv
		frame.PeakAngle = AngleForValue(pv, m.rng)
	}

	entered, exited := m.clip.update(value, m.opts.ClipThreshold)
	frame.Clipping = m.clip.active()

	var scale Scale
	if rebuild {
		scale = m.scaleLocked()
	}
	events := m.events
	m.mu.Unlock()

	// Callbacks run outside the lock. Destroy may be called from any of
	// them, so re-check before each dispatch.
	if rebuild {
		m.dispatch(func() {
			if events.OnScale != nil {
				events.OnScale(scale)
			}
		})
	}
	if entered {
		m.dispatch(func() {
			if events.OnClipStart != nil {
				events.OnClipStart()
			}
		})
	}
	if exited {
		m.dispatch(func() {
			if events.OnClipEnd != nil {
				events.OnClipEnd()
			}
		})
	}
	m.dispatch(func() {
		if events.OnFrame != nil {
			events.OnFrame(frame)
		}
	})
}

// dispatch invokes fn unless the meter was destroyed in the meantime.
func (m *Meter) dispatch(fn func()) {
	m.mu.Lock()
	dead := m.destroyed
	m.mu.Unlock()
	if !dead {
		fn()
	}
}

// scaleLocked builds the face description for the current state. Caller
// holds m.mu.
func (m *Meter) scaleLocked() Scale {
	return buildScale(m.rng, m.opts.ClipThreshold, m.opts.Label)
}

// emitScale delivers a scale rebuild outside the lock.
func (m *Meter) emitScale(scale Scale) {
	m.mu.Lock()
	onScale := m.events.OnScale
	dead := m.destroyed
	m.mu.Unlock()
	if !dead && onScale != nil {
		onScale(scale)
	}
}
