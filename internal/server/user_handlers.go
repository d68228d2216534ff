package server

import (
	"safeguard/internal/models"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(user.Public())
}

// UpdateMyProfile handles PUT /users/me. Omitted fields are left unchanged.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		FullName *string `json:"full_name"`
		Phone    *string `json:"phone"`
		JobTitle *string `json:"job_title"`
		Industry *string `json:"industry"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), userIDFrom(c), service.UpdateProfileInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		JobTitle: req.JobTitle,
		Industry: req.Industry,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(user.Public())
}

// UploadMyPhoto handles POST /users/me/photo with a multipart "file".
func (s *Server) UploadMyPhoto(c *fiber.Ctx) error {
	data, _, _, err := readFormFile(c, "file")
	if err != nil {
		return respondAppError(c, err)
	}
	if len(data) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	if err := s.userService.SetPhoto(c.UserContext(), userIDFrom(c), data); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Photo updated"})
}

// GetUserPhoto handles GET /users/:id/photo
func (s *Server) GetUserPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	photo, err := s.userService.GetPhoto(c.UserContext(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	return sendImage(c, photo)
}
