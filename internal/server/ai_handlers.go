package server

import (
	"errors"
	"log/slog"
	"strings"

	"safeguard/internal/ai"
	"safeguard/internal/middleware"
	"safeguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AskAI handles POST /ai/ask with {question, location}.
func (s *Server) AskAI(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
		Location string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Question) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Question is required"))
	}

	answer, err := s.ai.Ask(c.UserContext(), req.Question, req.Location)
	if errors.Is(err, ai.ErrNotConfigured) {
		return respondAppError(c, models.NewAINotConfiguredError())
	}
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "ai ask failed", slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusBadGateway,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"answer": answer})
}
