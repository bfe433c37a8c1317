package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Deatojef/vumeter/internal/config"
	"github.com/Deatojef/vumeter/internal/meter"
	"github.com/Deatojef/vumeter/internal/server"
	"github.com/Deatojef/vumeter/internal/util"
)

// statusInterval is how often connected clients receive a full status push.
const statusInterval = 3 * time.Second

// Server is an HTTP server that feeds the web renderer: meter frames at the
// configured frame rate, scale geometry on rebuilds, and status on change.
type Server struct {
	config   *config.Config
	meter    *meter.Meter
	commands *server.CommandHandler
	version  *VersionChecker

	// mu protects the latest published render state below
	mu        sync.RWMutex
	lastFrame meter.Frame
	lastScale meter.Scale
	scaleGen  uint64
}

// NewServer returns a new Server configured with the provided config.
// AttachMeter must be called before Start.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		config:  cfg,
		version: NewVersionChecker(),
	}
}

// AttachMeter wires the meter and its command handler into the server and
// seeds the renderer state with the initial scale.
func (s *Server) AttachMeter(m *meter.Meter, commands *server.CommandHandler) {
	s.meter = m
	s.commands = commands

	s.mu.Lock()
	s.lastScale = m.CurrentScale()
	s.scaleGen = 1
	s.mu.Unlock()
}

// PublishFrame records the newest frame for delivery to clients. Wired to
// the meter's OnFrame callback.
func (s *Server) PublishFrame(f meter.Frame) {
	s.mu.Lock()
	s.lastFrame = f
	s.mu.Unlock()
}

// PublishScale records a rebuilt scale for delivery to clients. Wired to the
// meter's OnScale callback.
func (s *Server) PublishScale(sc meter.Scale) {
	s.mu.Lock()
	s.lastScale = sc
	s.scaleGen++
	s.mu.Unlock()
}

// handleWebSocket streams frames, scale rebuilds, and status to the client
// and processes its commands.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer util.SafeCloseFunc(conn, "WebSocket connection")()

	// Channel to signal a status update is needed
	statusUpdate := make(chan bool, 1)
	done := make(chan bool)

	// Command replies funnel through the select loop below; the socket has
	// exactly one writer.
	replies := make(chan any, 8)
	reply := func(v any) {
		select {
		case replies <- v:
		default:
			slog.Warn("dropping command reply, client not draining")
		}
	}

	// Goroutine to read and process commands from the client
	go func() {
		for {
			var cmd server.WSCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				close(done)
				return
			}
			s.commands.Handle(cmd, reply, func() {
				select {
				case statusUpdate <- true:
				default:
				}
			})
		}
	}()

	fps := s.config.FPS()
	if fps < 1 {
		fps = config.DefaultFPS
	}
	frameTicker := time.NewTicker(time.Second / time.Duration(fps))
	statusTicker := time.NewTicker(statusInterval)
	defer frameTicker.Stop()
	defer statusTicker.Stop()

	sendStatus := func() error {
		snapshot := s.config.Snapshot()
		return conn.WriteJSON(map[string]any{
			"type":             "status",
			"meter":            s.meter.Status(),
			"fps":              fps,
			"webhook_url":      snapshot.WebhookURL,
			"log_path":         snapshot.LogPath,
			"email_smtp_host":  snapshot.Email.Host,
			"email_smtp_port":  snapshot.Email.Port,
			"email_from_name":  snapshot.Email.FromName,
			"email_username":   snapshot.Email.Username,
			"email_recipients": snapshot.Email.Recipients,
			"version":          s.version.GetInfo(),
		})
	}

	// sentGen tracks which scale the client has; zero forces an initial send.
	var sentGen uint64

	sendScale := func() error {
		s.mu.RLock()
		scale, gen := s.lastScale, s.scaleGen
		s.mu.RUnlock()
		if gen == sentGen {
			return nil
		}
		sentGen = gen
		return conn.WriteJSON(map[string]any{"type": "scale", "scale": scale})
	}

	if err := sendScale(); err != nil {
		return
	}
	if err := sendStatus(); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case v := <-replies:
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-statusUpdate:
			if err := sendStatus(); err != nil {
				return
			}
		case <-frameTicker.C:
			if err := sendScale(); err != nil {
				return
			}
			s.mu.RLock()
			frame := s.lastFrame
			s.mu.RUnlock()
			if err := conn.WriteJSON(map[string]any{"type": "frame", "frame": frame}); err != nil {
				return
			}
		case <-statusTicker.C:
			if err := sendStatus(); err != nil {
				return
			}
		}
	}
}

// SetupRoutes returns an [http.Handler] configured with all application
// routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	auth := server.BasicAuth(s.config.WebUser(), s.config.WebPassword())

	// WebSocket for all real-time communication (protected)
	mux.HandleFunc("/ws", auth(s.handleWebSocket))

	// Static files (also protected)
	mux.HandleFunc("/", auth(s.handleStatic))

	return mux
}

// staticFile represents an embedded static file with its content type.
type staticFile struct {
	contentType string
	content     string
	name        string
}

// staticFiles maps URL paths to their corresponding static file definitions.
var staticFiles = map[string]staticFile{
	"/style.css": {
		contentType: "text/css",
		content:     styleCSS,
		name:        "style.css",
	},
	"/app.js": {
		contentType: "application/javascript",
		content:     appJS,
		name:        "app.js",
	},
}

// handleStatic serves the embedded static web interface files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	if path == "/index.html" {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(indexHTML)); err != nil {
			slog.Error("failed to write index.html", "error", err)
		}
		return
	}

	if file, ok := staticFiles[path]; ok {
		w.Header().Set("Content-Type", file.contentType)
		if _, err := w.Write([]byte(file.content)); err != nil {
			slog.Error("failed to write static file", "file", file.name, "error", err)
		}
		return
	}

	http.NotFound(w, r)
}

// Start begins listening and serving HTTP requests on the configured port.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.WebPort())
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
