// Package notify provides notification services for clip alerts.
package notify

import (
	"sync"
	"time"

	"github.com/Deatojef/vumeter/internal/config"
)

// ClipNotifier orchestrates notifications for clip episodes. It tracks which
// channels fired for the current episode so each sends at most once, and
// pairs every recovery notification with the start notification that
// preceded it.
//
// The meter's edge detector guarantees one enter and one exit per episode;
// the notifier only adds fan-out and delivery concerns on top.
type ClipNotifier struct {
	cfg *config.Config

	// mu protects the notification state fields below
	mu sync.Mutex

	started     time.Time
	webhookSent bool
	emailSent   bool
	logSent     bool
}

// NewClipNotifier returns a ClipNotifier configured with the given config.
func NewClipNotifier(cfg *config.Config) *ClipNotifier {
	return &ClipNotifier{cfg: cfg}
}

// ClipStarted dispatches start-of-clipping notifications. threshold is the
// display value the needle crossed; peak is the peak display value at the
// moment of the crossing, recorded in the event log.
func (n *ClipNotifier) ClipStarted(threshold, peak float64) {
	cfg := n.cfg.Snapshot()

	n.mu.Lock()
	n.started = time.Now()
	n.mu.Unlock()

	n.trySend(&n.webhookSent, cfg.HasWebhook(), func() { n.sendClipWebhook(threshold) })
	n.trySend(&n.emailSent, cfg.HasEmail(), func() { n.sendClipEmail(threshold) })
	n.trySend(&n.logSent, cfg.HasLogPath(), func() { n.logClipStart(threshold, peak) })
}

// trySend atomically checks and sets a notification flag, then spawns the
// sender if needed.
func (n *ClipNotifier) trySend(sent *bool, condition bool, sender func()) {
	n.mu.Lock()
	shouldSend := !*sent && condition
	if shouldSend {
		*sent = true
	}
	n.mu.Unlock()
	if shouldSend {
		go sender()
	}
}

// ClipEnded dispatches recovery notifications for channels that announced
// the start, then rearms for the next episode.
func (n *ClipNotifier) ClipEnded(threshold float64) {
	n.mu.Lock()
	duration := 0.0
	if !n.started.IsZero() {
		duration = time.Since(n.started).Seconds()
	}
	sendWebhook := n.webhookSent
	sendEmail := n.emailSent
	sendLog := n.logSent
	n.started = time.Time{}
	n.webhookSent = false
	n.emailSent = false
	n.logSent = false
	n.mu.Unlock()

	if sendWebhook {
		go n.sendRecoveryWebhook(duration)
	}
	if sendEmail {
		go n.sendRecoveryEmail(duration)
	}
	if sendLog {
		go n.logClipEnd(duration, threshold)
	}
}

// Reset clears the notification state.
func (n *ClipNotifier) Reset() {
	n.mu.Lock()
	n.started = time.Time{}
	n.webhookSent = false
	n.emailSent = false
	n.logSent = false
	n.mu.Unlock()
}

// Notification senders.

func (n *ClipNotifier) sendClipWebhook(threshold float64) {
	cfg := n.cfg.Snapshot()
	logNotifyResult(
		func() error { return SendClipWebhook(cfg.WebhookURL, threshold) },
		"clip webhook",
	)
}

func (n *ClipNotifier) sendRecoveryWebhook(duration float64) {
	cfg := n.cfg.Snapshot()
	logNotifyResult(
		func() error { return SendRecoveryWebhook(cfg.WebhookURL, duration) },
		"recovery webhook",
	)
}

func (n *ClipNotifier) sendClipEmail(threshold float64) {
	cfg := n.cfg.Snapshot()
	logNotifyResult(
		func() error { return SendClipAlert(EmailConfigFromSnapshot(cfg), threshold) },
		"clip email",
	)
}

func (n *ClipNotifier) sendRecoveryEmail(duration float64) {
	cfg := n.cfg.Snapshot()
	logNotifyResult(
		func() error { return SendRecoveryAlert(EmailConfigFromSnapshot(cfg), duration) },
		"recovery email",
	)
}

func (n *ClipNotifier) logClipStart(threshold, peak float64) {
	cfg := n.cfg.Snapshot()
	logNotifyResult(
		func() error { return LogClipStart(cfg.LogPath, threshold, peak) },
		"clip log",
	)
}

func (n *ClipNotifier) logClipEnd(duration, threshold float64) {
	cfg := n.cfg.Snapshot()
	logNotifyResult(
		func() error { return LogClipEnd(cfg.LogPath, duration, threshold) },
		"recovery log",
	)
}

// EmailConfigFromSnapshot builds sender settings from a config snapshot.
func EmailConfigFromSnapshot(s config.Snapshot) *EmailConfig {
	return &EmailConfig{
		Host:       s.Email.Host,
		Port:       s.Email.Port,
		FromName:   s.Email.FromName,
		Username:   s.Email.Username,
		Password:   s.Email.Password,
		Recipients: s.Email.Recipients,
	}
}
