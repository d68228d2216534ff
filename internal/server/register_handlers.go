package server

import (
	"safeguard/internal/models"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// bindWithPhoto parses a JSON or multipart body into dst and returns the
// optional "photo" upload.
func bindWithPhoto(c *fiber.Ctx, dst any) ([]byte, error) {
	if err := c.BodyParser(dst); err != nil {
		return nil, models.NewValidationError("Invalid request body")
	}
	if !isMultipart(c) {
		return nil, nil
	}
	photo, _, _, err := readFormFile(c, "photo")
	return photo, err
}

// ListLostFound handles GET /lost-found?search=
func (s *Server) ListLostFound(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	items, err := s.lostFoundService.List(c.UserContext(), actor, c.Query("search"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(items)
}

// CreateLostFound handles POST /lost-found
func (s *Server) CreateLostFound(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var in service.LostFoundInput
	if in.Photo, err = bindWithPhoto(c, &in); err != nil {
		return respondAppError(c, err)
	}
	item, err := s.lostFoundService.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// GetLostFound handles GET /lost-found/:id
func (s *Server) GetLostFound(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	item, err := s.lostFoundService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(item)
}

// GetLostFoundPhoto handles GET /lost-found/:id/photo
func (s *Server) GetLostFoundPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	photo, err := s.lostFoundService.Photo(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return sendImage(c, photo)
}

// ClaimLostFound handles PUT /lost-found/:id/claim
func (s *Server) ClaimLostFound(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var in service.ClaimInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	item, err := s.lostFoundService.Claim(c.UserContext(), actor, id, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(item)
}

// DeleteLostFound handles DELETE /lost-found/:id
func (s *Server) DeleteLostFound(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.lostFoundService.Delete(c.UserContext(), actor, id); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListGatePasses handles GET /gate-passes?search=
func (s *Server) ListGatePasses(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	passes, err := s.gatePassService.List(c.UserContext(), actor, c.Query("search"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(passes)
}

// CreateGatePass handles POST /gate-passes
func (s *Server) CreateGatePass(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var in service.GatePassInput
	if in.Photo, err = bindWithPhoto(c, &in); err != nil {
		return respondAppError(c, err)
	}
	gp, err := s.gatePassService.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(gp)
}

// GetGatePass handles GET /gate-passes/:id
func (s *Server) GetGatePass(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	gp, err := s.gatePassService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(gp)
}

func (s *Server) gatePassPhoto(c *fiber.Ctx, returned bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	photo, err := s.gatePassService.Photo(c.UserContext(), actor, id, returned)
	if err != nil {
		return respondAppError(c, err)
	}
	return sendImage(c, photo)
}

// GetGatePassPhoto handles GET /gate-passes/:id/photo
func (s *Server) GetGatePassPhoto(c *fiber.Ctx) error {
	return s.gatePassPhoto(c, false)
}

// GetGatePassReturnPhoto handles GET /gate-passes/:id/return-photo
func (s *Server) GetGatePassReturnPhoto(c *fiber.Ctx) error {
	return s.gatePassPhoto(c, true)
}

// ReturnGatePass handles PUT /gate-passes/:id/return
func (s *Server) ReturnGatePass(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var in service.ReturnInput
	if in.Photo, err = bindWithPhoto(c, &in); err != nil {
		return respondAppError(c, err)
	}
	gp, err := s.gatePassService.Return(c.UserContext(), actor, id, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(gp)
}

// DeleteGatePass handles DELETE /gate-passes/:id
func (s *Server) DeleteGatePass(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.gatePassService.Delete(c.UserContext(), actor, id); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
