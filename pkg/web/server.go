// Package web serves the tracking dashboard: JSON state and config
// endpoints, plus websocket feeds for live status and the annotated
// camera view.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/mtdev/go-dogtrack/internal/log"
	"github.com/mtdev/go-dogtrack/pkg/detect"
	"github.com/mtdev/go-dogtrack/pkg/hub"
	"github.com/mtdev/go-dogtrack/pkg/tracking"
)

// Server exposes one tracking session over HTTP.
type Server struct {
	app     *fiber.App
	port    string
	session *tracking.Session

	statusHub *hub.Hub
	cameraHub *hub.Hub

	// OnDetectReport, when set, serves the detector's last per-frame
	// report on /api/detect.
	OnDetectReport func() detect.Report
}

// NewServer wires the routes around the given session.
func NewServer(port string, session *tracking.Session) *Server {
	s := &Server{
		port:      port,
		session:   session,
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "dogtrack",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/config", s.handleGetConfig)
	api.Post("/config", s.handleSetConfig)
	api.Post("/enable", s.handleEnable)
	api.Post("/reset", s.handleReset)
	api.Get("/detect", s.handleDetectReport)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start runs the hubs and listens. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.cameraHub.Run()
	log.Info("dashboard listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync runs Start in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server failed", "error", err)
		}
	}()
}

// PublishReport pushes a tick snapshot to all status subscribers. Called
// from the tick loop; never blocks.
func (s *Server) PublishReport(r tracking.TickReport) {
	s.statusHub.BroadcastJSON(r)
}

// PublishFrame pushes an annotated JPEG to all camera subscribers.
func (s *Server) PublishFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// Shutdown stops the listener and the hubs.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.cameraHub.Stop()
	return s.app.Shutdown()
}
