package server

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/Deatojef/vumeter/internal/config"
	"github.com/Deatojef/vumeter/internal/meter"
	"github.com/Deatojef/vumeter/internal/types"
	"github.com/Deatojef/vumeter/internal/util"
)

// clipLogViewLimit caps how many trailing log entries a client may request.
const clipLogViewLimit = 200

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands against a meter instance.
type CommandHandler struct {
	cfg          *config.Config
	meter        *meter.Meter
	testTriggers map[string]func() error
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, m *meter.Meter, testTriggers map[string]func() error) *CommandHandler {
	return &CommandHandler{
		cfg:          cfg,
		meter:        m,
		testTriggers: testTriggers,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Replies for the client go through reply, which must be safe to call from
// any goroutine; the connection loop owns the actual socket writes.
func (h *CommandHandler) Handle(cmd WSCommand, reply func(any), triggerStatusUpdate func()) {
	switch cmd.Type {
	case "set_value":
		h.handleSample(cmd, h.meter.SetValue)
	case "set_amplitude":
		h.handleSample(cmd, h.meter.SetAmplitude)
	case "set_range":
		h.handleSetRange(cmd)
	case "reset_range":
		h.meter.ResetRange()
	case "set_options":
		h.handleSetOptions(cmd)
	case "update_settings":
		h.handleUpdateSettings(cmd)
	case "pause":
		h.meter.Pause()
	case "resume":
		h.meter.Resume()
	case "test_webhook", "test_log", "test_email":
		h.handleTest(reply, cmd.Type)
	case "view_clip_log":
		h.handleViewClipLog(reply)
	default:
		slog.Warn("unknown WebSocket command type", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// handleSample feeds a raw reading into the meter via the given entry point.
func (h *CommandHandler) handleSample(cmd WSCommand, feed func(float64) error) {
	var data struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(cmd.Data, &data); err != nil {
		slog.Warn("sample command: invalid JSON data", "type", cmd.Type, "error", err)
		return
	}
	if err := feed(data.Value); err != nil {
		slog.Warn("sample command rejected", "type", cmd.Type, "error", err)
	}
}

func (h *CommandHandler) handleSetRange(cmd WSCommand) {
	var data struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.Unmarshal(cmd.Data, &data); err != nil {
		slog.Warn("set_range: invalid JSON data", "error", err)
		return
	}
	if err := h.meter.SetRange(data.Min, data.Max); err != nil {
		slog.Warn("set_range: rejected", "min", data.Min, "max", data.Max, "error", err)
		return
	}
	slog.Info("set_range: applied", "min", data.Min, "max", data.Max)
}

func (h *CommandHandler) handleSetOptions(cmd WSCommand) {
	var patch meter.OptionsPatch
	if err := json.Unmarshal(cmd.Data, &patch); err != nil {
		slog.Warn("set_options: invalid JSON data", "error", err)
		return
	}
	if err := h.meter.SetOptions(patch); err != nil {
		slog.Warn("set_options: rejected", "error", err)
		return
	}
	// Persist the applied options so they survive a restart.
	if err := h.cfg.SetMeterOptions(h.meter.Status().Options); err != nil {
		slog.Error("set_options: failed to save config", "error", err)
	}
	slog.Info("set_options: applied")
}

// updateStringSetting validates and persists a string setting. Nil means the
// client did not touch the field.
func updateStringSetting(value *string, name string, maxLen int, setter func(string) error) {
	if value == nil {
		return
	}
	if err := util.ValidateMaxLength(name, *value, maxLen); err != nil {
		slog.Warn("update_settings: validation failed", "setting", name, "error", err.Message)
		return
	}
	slog.Info("update_settings: changing setting", "setting", name)
	if err := setter(*value); err != nil {
		slog.Error("update_settings: failed to save", "setting", name, "error", err)
	}
}

// handleUpdateSettings changes notification settings at runtime. Absent
// fields keep their current values; email fields are merged into the stored
// block so a client can change one of them without resending the rest.
func (h *CommandHandler) handleUpdateSettings(cmd WSCommand) {
	var settings struct {
		WebhookURL      *string `json:"webhook_url"`
		LogPath         *string `json:"log_path"`
		EmailSMTPHost   *string `json:"email_smtp_host"`
		EmailSMTPPort   *int    `json:"email_smtp_port"`
		EmailFromName   *string `json:"email_from_name"`
		EmailUsername   *string `json:"email_username"`
		EmailPassword   *string `json:"email_password"`
		EmailRecipients *string `json:"email_recipients"`
	}
	if err := json.Unmarshal(cmd.Data, &settings); err != nil {
		slog.Warn("update_settings: invalid JSON data", "error", err)
		return
	}

	updateStringSetting(settings.WebhookURL, "webhook URL", 2048, h.cfg.SetWebhookURL)
	updateStringSetting(settings.LogPath, "log path", 4096, h.cfg.SetLogPath)

	if settings.EmailSMTPHost == nil && settings.EmailSMTPPort == nil &&
		settings.EmailFromName == nil && settings.EmailUsername == nil &&
		settings.EmailPassword == nil && settings.EmailRecipients == nil {
		return
	}

	email := h.cfg.Snapshot().Email
	if settings.EmailSMTPHost != nil {
		if err := util.ValidateMaxLength("email SMTP host", *settings.EmailSMTPHost, 253); err != nil {
			slog.Warn("update_settings: validation failed", "setting", "email SMTP host", "error", err.Message)
			return
		}
		email.Host = *settings.EmailSMTPHost
	}
	if settings.EmailSMTPPort != nil {
		email.Port = *settings.EmailSMTPPort
	}
	if settings.EmailFromName != nil {
		email.FromName = *settings.EmailFromName
	}
	if settings.EmailUsername != nil {
		email.Username = *settings.EmailUsername
	}
	if settings.EmailPassword != nil {
		email.Password = *settings.EmailPassword
	}
	if settings.EmailRecipients != nil {
		email.Recipients = *settings.EmailRecipients
	}

	slog.Info("update_settings: updating email configuration")
	if err := h.cfg.SetEmailConfig(email.Host, email.Port, email.FromName,
		email.Username, email.Password, email.Recipients); err != nil {
		slog.Error("update_settings: failed to save email config", "error", err)
	}
}

// handleTest runs a notification test trigger and reports the result to the
// client. Triggers can block on network delivery, so they run detached.
func (h *CommandHandler) handleTest(reply func(any), testType string) {
	trigger, ok := h.testTriggers[testType]
	if !ok {
		slog.Warn("unknown test trigger", "type", testType)
		return
	}

	go func() {
		result := map[string]any{"type": testType + "_result", "success": true}
		if err := trigger(); err != nil {
			result["success"] = false
			result["error"] = err.Error()
		}
		reply(result)
	}()
}

// handleViewClipLog sends the tail of the clip event log to the client.
func (h *CommandHandler) handleViewClipLog(reply func(any)) {
	snapshot := h.cfg.Snapshot()
	if !snapshot.HasLogPath() {
		reply(map[string]any{"type": "clip_log", "entries": []types.ClipLogEntry{}})
		return
	}

	entries, err := readClipLog(snapshot.LogPath)
	if err != nil {
		slog.Warn("failed to read clip log", "path", snapshot.LogPath, "error", err)
		return
	}
	reply(map[string]any{"type": "clip_log", "entries": entries})
}

// readClipLog parses the JSON-lines log file and returns the trailing
// entries, newest last.
func readClipLog(path string) ([]types.ClipLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.ClipLogEntry{}, nil
		}
		return nil, util.WrapError("open clip log", err)
	}
	defer util.SafeCloseFunc(f, "clip log")()

	var entries []types.ClipLogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry types.ClipLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, util.WrapError("scan clip log", err)
	}

	if len(entries) > clipLogViewLimit {
		entries = entries[len(entries)-clipLogViewLimit:]
	}
	return entries, nil
}
