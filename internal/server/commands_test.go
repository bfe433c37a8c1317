package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Deatojef/vumeter/internal/config"
	"github.com/Deatojef/vumeter/internal/meter"
)

func newTestHandler(t *testing.T, triggers map[string]func() error) (*CommandHandler, *config.Config) {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	m, err := meter.New(cfg.MeterOptions(), meter.Events{})
	if err != nil {
		t.Fatal(err)
	}
	return NewCommandHandler(cfg, m, triggers), cfg
}

func rawCommand(t *testing.T, cmdType string, data any) WSCommand {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return WSCommand{Type: cmdType, Data: raw}
}

func noReply(any) {}

func TestUpdateSettingsPersistsNotificationChannels(t *testing.T) {
	h, cfg := newTestHandler(t, nil)

	h.Handle(rawCommand(t, "update_settings", map[string]any{
		"webhook_url":      "https://example.com/hook",
		"log_path":         "/var/log/clips.log",
		"email_smtp_host":  "smtp.example.com",
		"email_username":   "alerts@example.com",
		"email_recipients": "ops@example.com",
	}), noReply, func() {})

	s := cfg.Snapshot()
	if s.WebhookURL != "https://example.com/hook" {
		t.Errorf("WebhookURL = %q, want set", s.WebhookURL)
	}
	if s.LogPath != "/var/log/clips.log" {
		t.Errorf("LogPath = %q, want set", s.LogPath)
	}
	if !s.HasEmail() {
		t.Error("HasEmail() = false after update_settings")
	}
}

func TestUpdateSettingsMergesEmailFields(t *testing.T) {
	h, cfg := newTestHandler(t, nil)
	if err := cfg.SetEmailConfig("smtp.example.com", 465, "Meter", "old@example.com", "secret", "ops@example.com"); err != nil {
		t.Fatal(err)
	}

	// Patching one field keeps the others.
	h.Handle(rawCommand(t, "update_settings", map[string]any{
		"email_username": "new@example.com",
	}), noReply, func() {})

	s := cfg.Snapshot()
	if s.Email.Username != "new@example.com" {
		t.Errorf("Username = %q, want new@example.com", s.Email.Username)
	}
	if s.Email.Host != "smtp.example.com" || s.Email.Port != 465 || s.Email.Password != "secret" {
		t.Errorf("untouched email fields changed: %+v", s.Email)
	}
}

func TestUpdateSettingsRejectsOversizedValues(t *testing.T) {
	h, cfg := newTestHandler(t, nil)

	h.Handle(rawCommand(t, "update_settings", map[string]any{
		"webhook_url": "https://example.com/" + strings.Repeat("x", 2048),
	}), noReply, func() {})

	if got := cfg.Snapshot().WebhookURL; got != "" {
		t.Errorf("oversized webhook URL was stored: %d chars", len(got))
	}
}

func TestTestTriggerResultsGoThroughReply(t *testing.T) {
	h, _ := newTestHandler(t, map[string]func() error{
		"test_log":     func() error { return nil },
		"test_webhook": func() error { return errors.New("connection refused") },
	})

	got := make(chan map[string]any, 2)
	reply := func(v any) { got <- v.(map[string]any) }

	awaitResult := func() map[string]any {
		select {
		case r := <-got:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("no reply delivered")
			return nil
		}
	}

	h.Handle(WSCommand{Type: "test_log"}, reply, func() {})
	r := awaitResult()
	if r["type"] != "test_log_result" || r["success"] != true {
		t.Errorf("test_log reply = %v", r)
	}

	h.Handle(WSCommand{Type: "test_webhook"}, reply, func() {})
	r = awaitResult()
	if r["success"] != false || r["error"] != "connection refused" {
		t.Errorf("test_webhook reply = %v", r)
	}
}

func TestViewClipLogWithoutPathRepliesEmpty(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	var replies []any
	h.Handle(WSCommand{Type: "view_clip_log"}, func(v any) { replies = append(replies, v) }, func() {})

	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
}

func TestReadClipLogMissingFile(t *testing.T) {
	entries, err := readClipLog(filepath.Join(t.TempDir(), "nope.log"))
	if err != nil {
		t.Fatalf("readClipLog() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries from a missing file, want 0", len(entries))
	}
}

func TestReadClipLogSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips.log")
	content := strings.Join([]string{
		`{"timestamp":"2026-01-01T00:00:00Z","event":"clip_start","threshold_db":-1}`,
		`this is not json`,
		`{"timestamp":"2026-01-01T00:00:05Z","event":"clip_end","threshold_db":-1,"duration_sec":5}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := readClipLog(path)
	if err != nil {
		t.Fatalf("readClipLog() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Event != "clip_start" || entries[1].Event != "clip_end" {
		t.Errorf("unexpected events: %q, %q", entries[0].Event, entries[1].Event)
	}
	if entries[1].DurationSec != 5 {
		t.Errorf("DurationSec = %v, want 5", entries[1].DurationSec)
	}
}

func TestReadClipLogTailsLongFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clips.log")

	var sb strings.Builder
	for i := range clipLogViewLimit + 50 {
		fmt.Fprintf(&sb, `{"timestamp":"2026-01-01T00:00:00Z","event":"clip_start","threshold_db":%d}`+"\n", i)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := readClipLog(path)
	if err != nil {
		t.Fatalf("readClipLog() error = %v", err)
	}
	if len(entries) != clipLogViewLimit {
		t.Fatalf("got %d entries, want %d", len(entries), clipLogViewLimit)
	}
	// The tail keeps the newest entries.
	if entries[len(entries)-1].ThresholdDB != float64(clipLogViewLimit+49) {
		t.Errorf("last entry threshold = %v, want %d", entries[len(entries)-1].ThresholdDB, clipLogViewLimit+49)
	}
}
