package notify

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Deatojef/vumeter/internal/types"
)

func readEntries(t *testing.T, path string) []types.ClipLogEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []types.ClipLogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e types.ClipLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("malformed log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestClipLogEpisode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips.log")

	if err := LogClipStart(path, -1, 1.8); err != nil {
		t.Fatalf("LogClipStart() error = %v", err)
	}
	if err := LogClipEnd(path, 2.5, -1); err != nil {
		t.Fatalf("LogClipEnd() error = %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event != "clip_start" || entries[0].ThresholdDB != -1 {
		t.Errorf("start entry = %+v", entries[0])
	}
	if entries[0].PeakDB != 1.8 {
		t.Errorf("start entry PeakDB = %v, want 1.8", entries[0].PeakDB)
	}
	if entries[1].Event != "clip_end" || entries[1].DurationSec != 2.5 {
		t.Errorf("end entry = %+v", entries[1])
	}
}

func TestLogToUnconfiguredPathIsNoop(t *testing.T) {
	if err := LogClipStart("", -1, 0); err != nil {
		t.Errorf("LogClipStart(\"\") error = %v, want nil", err)
	}
}

func TestWriteTestLog(t *testing.T) {
	if err := WriteTestLog(""); err == nil {
		t.Error("WriteTestLog(\"\") should report unconfigured path")
	}

	path := filepath.Join(t.TempDir(), "clips.log")
	if err := WriteTestLog(path); err != nil {
		t.Fatalf("WriteTestLog() error = %v", err)
	}
	entries := readEntries(t, path)
	if len(entries) != 1 || entries[0].Event != "test" {
		t.Errorf("entries = %+v, want single test entry", entries)
	}
}
