// Package main implements a simulated analog VU meter: a ballistics core
// animating a needle over a dB scale, served to a browser renderer over
// WebSocket.
//
// Usage:
//
//	vumeter [-config path/to/config.json] [-demo]
//
// If -config is not specified, the meter looks for config.json in the same
// directory as the binary. With -demo, a synthetic program signal drives the
// needle so the interface can be tried without a level source.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/Deatojef/vumeter/internal/config"
	"github.com/Deatojef/vumeter/internal/driver"
	"github.com/Deatojef/vumeter/internal/meter"
	"github.com/Deatojef/vumeter/internal/notify"
	"github.com/Deatojef/vumeter/internal/server"
	"github.com/Deatojef/vumeter/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	demo := flag.Bool("demo", false, "Feed a synthetic demo signal into the meter")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	notifier := notify.NewClipNotifier(cfg)
	srv := NewServer(cfg)

	// Declared before the callbacks so they can read meter state.
	var m *meter.Meter
	m, err := meter.New(cfg.MeterOptions(), meter.Events{
		OnFrame: srv.PublishFrame,
		OnScale: srv.PublishScale,
		OnClipStart: func() {
			st := m.Status()
			notifier.ClipStarted(st.Options.ClipThreshold, st.PeakValue)
		},
		OnClipEnd: func() {
			notifier.ClipEnded(m.Status().Options.ClipThreshold)
		},
	})
	if err != nil {
		slog.Error("failed to create meter", "error", err)
		os.Exit(1)
	}

	commands := server.NewCommandHandler(cfg, m, map[string]func() error{
		"test_webhook": func() error {
			return notify.SendTestWebhook(cfg.Snapshot().WebhookURL)
		},
		"test_email": func() error {
			return notify.SendTestEmail(notify.EmailConfigFromSnapshot(cfg.Snapshot()))
		},
		"test_log": func() error {
			return notify.WriteTestLog(cfg.Snapshot().LogPath)
		},
	})
	srv.AttachMeter(m, commands)

	frames := driver.New(m, cfg.FPS())
	frames.Start()

	var demoSource *driver.DemoSource
	if *demo {
		slog.Info("starting demo signal source")
		demoSource = driver.NewDemoSource(m)
		demoSource.Start()
	}

	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if demoSource != nil {
		demoSource.Stop()
	}
	frames.Stop()
	m.Destroy()

	slog.Info("shutdown complete")
}
