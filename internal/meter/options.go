package meter

import (
	"fmt"
	"math"
)

// Default option values.
const (
	DefaultDisplayMin         = -60.0
	DefaultDisplayMax         = 3.0
	DefaultAttackMs           = 80.0
	DefaultReleaseMs          = 300.0
	DefaultClipThreshold      = 0.0
	DefaultAutoRangeWindowSec = 10.0
	DefaultAutoRangeMarginDb  = 3.0
	DefaultPeakAttackMs       = 20.0
	DefaultPeakHoldMs         = 1500.0
	DefaultPeakDecayMs        = 800.0
)

// Options configures a Meter. All fields are applied atomically: construction
// and SetOptions validate the complete resulting set before any field takes
// effect.
type Options struct {
	DisplayMin float64 `json:"display_min"` // scale minimum in dB
	DisplayMax float64 `json:"display_max"` // scale maximum in dB

	// NoiseFloor pins the needle to DisplayMin for inputs at or below it.
	// nil means "use DisplayMin"; a pointer keeps an explicit 0 dB floor
	// distinguishable from an absent one.
	NoiseFloor *float64 `json:"noise_floor,omitempty"`

	Ballistics bool    `json:"ballistics"` // needle inertia on/off
	AttackMs   float64 `json:"attack_ms"`  // rise time constant
	ReleaseMs  float64 `json:"release_ms"` // fall time constant

	ClipThreshold float64 `json:"clip_threshold"` // display value above which the signal clips

	AutoRange          bool    `json:"auto_range"`
	AutoRangeWindowSec float64 `json:"auto_range_window_sec"` // sliding window of raw samples
	AutoRangeMarginDb  float64 `json:"auto_range_margin_db"`  // headroom added beyond observed extremes

	Peak         bool    `json:"peak"` // secondary peak-hold needle on/off
	PeakAttackMs float64 `json:"peak_attack_ms"`
	PeakHoldMs   float64 `json:"peak_hold_ms"`
	PeakDecayMs  float64 `json:"peak_decay_ms"`

	Label string `json:"label,omitempty"` // passed through to the renderer untouched
}

// DefaultOptions returns the option set used when a field group is left at its
// zero value.
func DefaultOptions() Options {
	return Options{
		DisplayMin:         DefaultDisplayMin,
		DisplayMax:         DefaultDisplayMax,
		Ballistics:         true,
		AttackMs:           DefaultAttackMs,
		ReleaseMs:          DefaultReleaseMs,
		ClipThreshold:      DefaultClipThreshold,
		AutoRange:          false,
		AutoRangeWindowSec: DefaultAutoRangeWindowSec,
		AutoRangeMarginDb:  DefaultAutoRangeMarginDb,
		Peak:               true,
		PeakAttackMs:       DefaultPeakAttackMs,
		PeakHoldMs:         DefaultPeakHoldMs,
		PeakDecayMs:        DefaultPeakDecayMs,
	}
}

// Validate checks the option set for configuration errors. It returns a
// wrapped ErrInvalidConfiguration describing the first offending field.
func (o *Options) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"display_min", o.DisplayMin},
		{"display_max", o.DisplayMax},
		{"attack_ms", o.AttackMs},
		{"release_ms", o.ReleaseMs},
		{"clip_threshold", o.ClipThreshold},
		{"auto_range_window_sec", o.AutoRangeWindowSec},
		{"auto_range_margin_db", o.AutoRangeMarginDb},
		{"peak_attack_ms", o.PeakAttackMs},
		{"peak_hold_ms", o.PeakHoldMs},
		{"peak_decay_ms", o.PeakDecayMs},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfiguration, f.name)
		}
	}

	if o.DisplayMax <= o.DisplayMin {
		return fmt.Errorf("%w: display_max (%.1f) must be greater than display_min (%.1f)",
			ErrInvalidConfiguration, o.DisplayMax, o.DisplayMin)
	}
	if o.NoiseFloor != nil {
		if math.IsNaN(*o.NoiseFloor) || math.IsInf(*o.NoiseFloor, 0) {
			return fmt.Errorf("%w: noise_floor must be finite", ErrInvalidConfiguration)
		}
		// The range mapper divides by (DisplayMax - NoiseFloor).
		if o.DisplayMax == *o.NoiseFloor {
			return fmt.Errorf("%w: noise_floor must not equal display_max (%.1f)",
				ErrInvalidConfiguration, o.DisplayMax)
		}
	}
	if o.AttackMs <= 0 || o.ReleaseMs <= 0 {
		return fmt.Errorf("%w: attack_ms and release_ms must be positive", ErrInvalidConfiguration)
	}
	if o.PeakAttackMs <= 0 || o.PeakDecayMs <= 0 {
		return fmt.Errorf("%w: peak_attack_ms and peak_decay_ms must be positive", ErrInvalidConfiguration)
	}
	if o.PeakHoldMs < 0 {
		return fmt.Errorf("%w: peak_hold_ms must not be negative", ErrInvalidConfiguration)
	}
	if o.AutoRangeWindowSec <= 0 {
		return fmt.Errorf("%w: auto_range_window_sec must be positive", ErrInvalidConfiguration)
	}
	if o.AutoRangeMarginDb < 0 {
		return fmt.Errorf("%w: auto_range_margin_db must not be negative", ErrInvalidConfiguration)
	}
	return nil
}
