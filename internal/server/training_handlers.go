package server

import (
	"strconv"

	"safeguard/internal/models"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListTrainings handles GET /trainings?search=&sort=
func (s *Server) ListTrainings(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	list, err := s.trainingService.List(c.UserContext(), actor, c.Query("search"), c.Query("sort"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(list)
}

func parseTrainingInput(c *fiber.Ctx) (service.TrainingInput, error) {
	var in service.TrainingInput
	if err := c.BodyParser(&in); err != nil {
		return in, models.NewValidationError("Invalid request body")
	}
	return in, nil
}

// CreateTraining handles POST /trainings
func (s *Server) CreateTraining(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	in, err := parseTrainingInput(c)
	if err != nil {
		return respondAppError(c, err)
	}
	t, err := s.trainingService.Create(c.UserContext(), actor, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// GetTraining handles GET /trainings/:id
func (s *Server) GetTraining(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	t, err := s.trainingService.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(t)
}

// UpdateTraining handles PUT /trainings/:id. The question set is replaced.
func (s *Server) UpdateTraining(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	in, err := parseTrainingInput(c)
	if err != nil {
		return respondAppError(c, err)
	}
	t, err := s.trainingService.Update(c.UserContext(), actor, id, in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(t)
}

// DeleteTraining handles DELETE /trainings/:id
func (s *Server) DeleteTraining(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.trainingService.Delete(c.UserContext(), actor, id); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SubmitAttempt handles POST /trainings/:id/attempts with
// {"answers": {"<question id>": <1-4>}}.
func (s *Server) SubmitAttempt(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}

	var req struct {
		Answers map[string]int `json:"answers"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	answers := make(map[uint]int, len(req.Answers))
	for k, v := range req.Answers {
		qid, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid question ID "+strconv.Quote(k)))
		}
		answers[uint(qid)] = v
	}

	attempt, err := s.trainingService.SubmitAttempt(c.UserContext(), actor, id, answers)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"attempt_id": attempt.ID,
		"score":      attempt.Score,
	})
}

// TrainingResults handles GET /trainings/:id/results
func (s *Server) TrainingResults(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	results, err := s.trainingService.Results(c.UserContext(), actor, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(results)
}

// GetMyAttempt handles GET /training-attempts/:attemptId
func (s *Server) GetMyAttempt(c *fiber.Ctx) error {
	attemptID, err := s.parseID(c, "attemptId")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	review, err := s.trainingService.MyAttempt(c.UserContext(), actor, attemptID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(review)
}
