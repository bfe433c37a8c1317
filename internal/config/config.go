// Package config provides application configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Deatojef/vumeter/internal/meter"
	"github.com/Deatojef/vumeter/internal/util"
)

// Configuration defaults.
const (
	DefaultWebPort       = 8080
	DefaultWebUsername   = "admin"
	DefaultWebPassword   = "vumeter"
	DefaultFPS           = 30
	DefaultEmailSMTPPort = 587
	DefaultEmailFromName = "VU Meter"
)

// WebConfig contains web server configuration.
type WebConfig struct {
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// MeterConfig contains the meter options plus the frame rate the driver
// runs at.
type MeterConfig struct {
	meter.Options
	FPS int `json:"fps,omitempty"`
}

// EmailConfig contains email notification configuration.
type EmailConfig struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	FromName   string `json:"from_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Recipients string `json:"recipients,omitempty"`
}

// NotificationsConfig contains all clip notification configuration.
type NotificationsConfig struct {
	WebhookURL string      `json:"webhook_url,omitempty"`
	LogPath    string      `json:"log_path,omitempty"`
	Email      EmailConfig `json:"email,omitempty"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Web           WebConfig           `json:"web"`
	Meter         MeterConfig         `json:"meter"`
	Notifications NotificationsConfig `json:"notifications,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Web: WebConfig{
			Port:     DefaultWebPort,
			Username: DefaultWebUsername,
			Password: DefaultWebPassword,
		},
		Meter: MeterConfig{
			Options: meter.DefaultOptions(),
			FPS:     DefaultFPS,
		},
		Notifications: NotificationsConfig{},
		filePath:      filePath,
	}
}

// Load reads config from file, creating a default one if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return util.WrapError("read config", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	if err := c.Meter.Validate(); err != nil {
		return util.WrapError("validate meter options", err)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.Web.Port == 0 {
		c.Web.Port = DefaultWebPort
	}
	if c.Web.Username == "" {
		c.Web.Username = DefaultWebUsername
	}
	if c.Web.Password == "" {
		c.Web.Password = DefaultWebPassword
	}
	if c.Meter.FPS == 0 {
		c.Meter.FPS = DefaultFPS
	}
	if c.Meter.DisplayMin == 0 && c.Meter.DisplayMax == 0 {
		c.Meter.DisplayMin = meter.DefaultDisplayMin
		c.Meter.DisplayMax = meter.DefaultDisplayMax
	}
	if c.Meter.NoiseFloor == nil {
		nf := c.Meter.DisplayMin
		c.Meter.NoiseFloor = &nf
	}
	if c.Meter.AttackMs == 0 {
		c.Meter.AttackMs = meter.DefaultAttackMs
	}
	if c.Meter.ReleaseMs == 0 {
		c.Meter.ReleaseMs = meter.DefaultReleaseMs
	}
	if c.Meter.AutoRangeWindowSec == 0 {
		c.Meter.AutoRangeWindowSec = meter.DefaultAutoRangeWindowSec
	}
	if c.Meter.AutoRangeMarginDb == 0 {
		c.Meter.AutoRangeMarginDb = meter.DefaultAutoRangeMarginDb
	}
	if c.Meter.PeakAttackMs == 0 {
		c.Meter.PeakAttackMs = meter.DefaultPeakAttackMs
	}
	if c.Meter.PeakHoldMs == 0 {
		c.Meter.PeakHoldMs = meter.DefaultPeakHoldMs
	}
	if c.Meter.PeakDecayMs == 0 {
		c.Meter.PeakDecayMs = meter.DefaultPeakDecayMs
	}
	if c.Notifications.Email.Port == 0 {
		c.Notifications.Email.Port = DefaultEmailSMTPPort
	}
	if c.Notifications.Email.FromName == "" {
		c.Notifications.Email.FromName = DefaultEmailFromName
	}
}

// Save writes the configuration to file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked writes config to file. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}
	return nil
}

// WebPort returns the configured web server port.
func (c *Config) WebPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Port
}

// WebUser returns the configured web username.
func (c *Config) WebUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Username
}

// WebPassword returns the configured web password.
func (c *Config) WebPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Password
}

// MeterOptions returns a copy of the configured meter options.
func (c *Config) MeterOptions() meter.Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Meter.Options
}

// FPS returns the configured frame rate.
func (c *Config) FPS() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Meter.FPS
}

// SetMeterOptions validates and persists new meter options.
func (c *Config) SetMeterOptions(opts meter.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Meter.Options = opts
	return c.saveLocked()
}

// SetWebhookURL sets the clip webhook URL and persists the config.
func (c *Config) SetWebhookURL(url string) error {
	if err := util.ValidateMaxLength("webhook_url", url, 2048); err != nil {
		return fmt.Errorf("%s", err.Message)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.WebhookURL = url
	return c.saveLocked()
}

// SetLogPath sets the clip event log path and persists the config.
func (c *Config) SetLogPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.LogPath = path
	return c.saveLocked()
}

// SetEmailConfig sets the SMTP notification settings and persists the config.
func (c *Config) SetEmailConfig(host string, port int, fromName, username, password, recipients string) error {
	if port != 0 {
		if err := util.ValidatePort("email port", port); err != nil {
			return fmt.Errorf("%s", err.Message)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Email = EmailConfig{
		Host:       host,
		Port:       port,
		FromName:   fromName,
		Username:   username,
		Password:   password,
		Recipients: recipients,
	}
	if c.Notifications.Email.Port == 0 {
		c.Notifications.Email.Port = DefaultEmailSMTPPort
	}
	return c.saveLocked()
}

// Snapshot is a point-in-time copy of the notification settings, safe to use
// without holding the config lock.
type Snapshot struct {
	WebhookURL string
	LogPath    string
	Email      EmailConfig
}

// Snapshot returns a copy of the notification settings.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		WebhookURL: c.Notifications.WebhookURL,
		LogPath:    c.Notifications.LogPath,
		Email:      c.Notifications.Email,
	}
}

// HasWebhook reports whether a clip webhook is configured.
func (s *Snapshot) HasWebhook() bool {
	return util.IsConfigured(s.WebhookURL)
}

// HasEmail reports whether SMTP notifications are configured.
func (s *Snapshot) HasEmail() bool {
	return util.IsConfigured(s.Email.Host, s.Email.Username, s.Email.Recipients)
}

// HasLogPath reports whether the clip event log is configured.
func (s *Snapshot) HasLogPath() bool {
	return util.IsConfigured(s.LogPath)
}
