package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StatsHandler exposes the technician statistics endpoint.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs handler.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: statsService}
}

// Technicians GET /stats/technicians. Accepts either day=YYYY-MM-DD, a
// from/to range, or nothing for the trailing default window.
func (h *StatsHandler) Technicians(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	window := service.StatsWindow{
		From: parseTime(c.Query("from")),
		To:   parseTime(c.Query("to")),
		Day:  parseTime(c.Query("day")),
	}
	report, err := h.stats.TechnicianStatistics(c.UserContext(), actor, window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
