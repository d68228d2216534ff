package server

import (
	"safeguard/internal/models"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AnalyzeObservation handles POST /observations/analyze. It returns the AI
// assessment without storing anything.
func (s *Server) AnalyzeObservation(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var req struct {
		Description   string `json:"description"`
		AreaEquipment string `json:"area_equipment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	analysis, err := s.observationService.Analyze(c.UserContext(), actor, req.Description, req.AreaEquipment)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(analysis)
}

// CreateObservation handles POST /observations as JSON or as a multipart
// form with an optional "photo".
func (s *Server) CreateObservation(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}

	var req struct {
		Date             string `json:"date" form:"date"`
		AreaEquipment    string `json:"area_equipment" form:"area_equipment"`
		Description      string `json:"description" form:"description"`
		Impact           string `json:"impact" form:"impact"`
		Likelihood       int    `json:"likelihood" form:"likelihood"`
		Severity         int    `json:"severity" form:"severity"`
		CorrectiveAction string `json:"corrective_action" form:"corrective_action"`
		Deadline         string `json:"deadline" form:"deadline"`
		Analyze          bool   `json:"analyze" form:"analyze"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var photo []byte
	if isMultipart(c) {
		if photo, _, _, err = readFormFile(c, "photo"); err != nil {
			return respondAppError(c, err)
		}
	}

	o, err := s.observationService.Create(c.UserContext(), actor, service.CreateObservationInput{
		Date:             req.Date,
		AreaEquipment:    req.AreaEquipment,
		Description:      req.Description,
		Impact:           req.Impact,
		Likelihood:       req.Likelihood,
		Severity:         req.Severity,
		CorrectiveAction: req.CorrectiveAction,
		Deadline:         req.Deadline,
		Photo:            photo,
		Analyze:          req.Analyze,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

// ListObservations handles GET /observations?search=&sort=
// sort=risk_high orders by risk rating, highest first.
func (s *Server) ListObservations(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	list, err := s.observationService.List(c.UserContext(), actor, c.Query("search"), c.Query("sort"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(list)
}

// GetObservation handles GET /observations/:id
func (s *Server) GetObservation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	o, err := s.observationService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(o)
}

// GetObservationPhoto handles GET /observations/:id/photo
func (s *Server) GetObservationPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	photo, err := s.observationService.Photo(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return sendImage(c, photo)
}

// DeleteObservation handles DELETE /observations/:id
func (s *Server) DeleteObservation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.observationService.Delete(c.UserContext(), actor, id); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
