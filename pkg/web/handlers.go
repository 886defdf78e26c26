package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mtdev/go-dogtrack/pkg/hub"
)

// handleState returns the latest tick snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.session.Report())
}

// handleGetConfig returns the active configuration.
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.session.Config())
}

// handleSetConfig replaces the configuration. The body is a full config;
// partial updates should GET, modify, and POST back. Values are clamped,
// never rejected.
func (s *Server) handleSetConfig(c *fiber.Ctx) error {
	cfg := s.session.Config()
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.session.SetConfig(cfg)
	return c.JSON(s.session.Config())
}

// EnableRequest toggles tracking actuation.
type EnableRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleEnable(c *fiber.Ctx) error {
	var req EnableRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	s.session.SetEnabled(req.Enabled)
	return c.JSON(fiber.Map{"enabled": s.session.Enabled()})
}

// handleReset clears the completion latch so a new approach can run.
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.session.ResetCompletion()
	return c.JSON(fiber.Map{"reset": true})
}

// handleDetectReport serves the detector's last per-frame diagnostics.
func (s *Server) handleDetectReport(c *fiber.Ctx) error {
	if s.OnDetectReport == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "detector report not available",
		})
	}
	return c.JSON(s.OnDetectReport())
}

// handleStatusWS streams tick snapshots; the current one is sent first.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	c.WriteJSON(s.session.Report())
	client.Run()
}

// handleCameraWS streams annotated JPEG frames.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run()
}
