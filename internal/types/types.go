// Package types provides shared type definitions used across the meter
// service.
package types

// ClipLogEntry is one line in the JSON-lines clip event log.
type ClipLogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"` // "clip_start", "clip_end", "test"
	ThresholdDB float64 `json:"threshold_db"`
	DurationSec float64 `json:"duration_sec,omitzero"`
	PeakDB      float64 `json:"peak_db,omitzero"`
}

// VersionInfo describes the running build and any available update.
type VersionInfo struct {
	Current     string `json:"current"`
	Latest      string `json:"latest,omitzero"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
	UpdateAvail bool   `json:"update_available,omitzero"`
}
