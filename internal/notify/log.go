package notify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Deatojef/vumeter/internal/types"
	"github.com/Deatojef/vumeter/internal/util"
)

// LogClipStart records the beginning of a clip episode together with the
// peak display value at the moment of the crossing.
func LogClipStart(logPath string, threshold, peak float64) error {
	return appendLogEntry(logPath, types.ClipLogEntry{
		Timestamp:   util.RFC3339Now(),
		Event:       "clip_start",
		ThresholdDB: threshold,
		PeakDB:      peak,
	})
}

// LogClipEnd records the end of a clip episode with its total duration.
func LogClipEnd(logPath string, clipDuration, threshold float64) error {
	return appendLogEntry(logPath, types.ClipLogEntry{
		Timestamp:   util.RFC3339Now(),
		Event:       "clip_end",
		ThresholdDB: threshold,
		DurationSec: clipDuration,
	})
}

// WriteTestLog writes a test entry to verify log file configuration.
func WriteTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}

	return appendLogEntry(logPath, types.ClipLogEntry{
		Timestamp: util.RFC3339Now(),
		Event:     "test",
	})
}

// appendLogEntry appends a JSON log entry to the file.
func appendLogEntry(logPath string, entry types.ClipLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeCloseFunc(f, "log file")()

	if _, err := f.Write(jsonData); err != nil {
		return util.WrapError("write log entry", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return util.WrapError("write newline", err)
	}

	return nil
}
