package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"safeguard/internal/ai"
	"safeguard/internal/models"
	"safeguard/internal/repository"
	"safeguard/internal/validation"
)

// ObservationService handles safety observations and their AI analysis.
type ObservationService struct {
	repo repository.ObservationRepository
	ai   ai.Client
}

// CreateObservationInput is one new observation. When Analyze is set the AI
// assessment fills every field left empty.
type CreateObservationInput struct {
	Date             string
	AreaEquipment    string
	Description      string
	Impact           string
	Likelihood       int
	Severity         int
	CorrectiveAction string
	Deadline         string
	Photo            []byte
	Analyze          bool
}

func NewObservationService(repo repository.ObservationRepository, client ai.Client) *ObservationService {
	return &ObservationService{repo: repo, ai: client}
}

// Analyze runs the AI assessment alone.
func (s *ObservationService) Analyze(ctx context.Context, actor *models.User, text, area string) (ai.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return ai.Analysis{}, models.NewValidationError("Observation description is required")
	}
	a, err := s.ai.AnalyzeObservation(ctx, text, area, actor.Industry)
	if errors.Is(err, ai.ErrNotConfigured) {
		return ai.Analysis{}, models.NewAINotConfiguredError()
	}
	if err != nil {
		return ai.Analysis{}, models.NewInternalError(err)
	}
	return a, nil
}

func (s *ObservationService) Create(ctx context.Context, actor *models.User, in CreateObservationInput) (*models.Observation, error) {
	if in.Analyze {
		a, err := s.Analyze(ctx, actor, in.Description, in.AreaEquipment)
		if err != nil {
			return nil, err
		}
		fillFromAnalysis(&in, a)
	}

	in.AreaEquipment = strings.TrimSpace(in.AreaEquipment)
	if in.AreaEquipment == "" {
		return nil, models.NewValidationError("Area/equipment is required")
	}
	if err := invalid(validation.ValidateScale("likelihood", in.Likelihood, models.RiskScaleMin, models.RiskScaleMax)); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidateScale("severity", in.Severity, models.RiskScaleMin, models.RiskScaleMax)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Date) == "" {
		in.Date = time.Now().UTC().Format(time.DateOnly)
	}

	var photo []byte
	if len(in.Photo) > 0 {
		normalized, err := NormalizePhoto(in.Photo, RecordPhotoMaxSide)
		if err != nil {
			return nil, err
		}
		photo = normalized
	}

	o := &models.Observation{
		UserID:           actor.ID,
		CompanyID:        actor.CompanyID,
		Date:             in.Date,
		AreaEquipment:    in.AreaEquipment,
		Description:      strings.TrimSpace(in.Description),
		Impact:           strings.TrimSpace(in.Impact),
		Likelihood:       in.Likelihood,
		Severity:         in.Severity,
		RiskRating:       models.RiskRating(in.Likelihood, in.Severity),
		CorrectiveAction: strings.TrimSpace(in.CorrectiveAction),
		Deadline:         strings.TrimSpace(in.Deadline),
		Photo:            photo,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	o.HasPhoto = len(photo) > 0
	return o, nil
}

// fillFromAnalysis copies analysis values into empty fields only. A failed
// analysis still fills text fields with its sentinel but never the scale.
func fillFromAnalysis(in *CreateObservationInput, a ai.Analysis) {
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&in.Description, a.CorrectedDescription)
	fill(&in.Impact, a.ImpactOnOperations)
	fill(&in.CorrectiveAction, a.CorrectiveAction)
	fill(&in.Deadline, a.DeadlineSuggestion)
	if a.Failed() {
		return
	}
	if in.Likelihood == 0 {
		in.Likelihood = a.Likelihood
	}
	if in.Severity == 0 {
		in.Severity = a.Severity
	}
}

func (s *ObservationService) List(ctx context.Context, actor *models.User, search, sort string) ([]models.Observation, error) {
	return s.repo.List(ctx, repository.ScopeFor(actor), search, sort)
}

func (s *ObservationService) Get(ctx context.Context, actor *models.User, id uint) (*models.Observation, error) {
	return s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
}

// Delete removes an observation. Only its author, an admin of the same
// company or a super admin may delete it.
func (s *ObservationService) Delete(ctx context.Context, actor *models.User, id uint) error {
	o, err := s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
	if err != nil {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	allowed := actor.IsSuperAdmin() ||
		o.UserID == actor.ID ||
		(actor.Role == models.RoleAdmin && actor.SameCompany(o.CompanyID))
	if !allowed {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return s.repo.Delete(ctx, o.ID)
}

func (s *ObservationService) Photo(ctx context.Context, actor *models.User, id uint) ([]byte, error) {
	o, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(o.Photo) == 0 {
		return nil, models.NewNotFoundError("Photo", "Photo not found")
	}
	return o.Photo, nil
}
