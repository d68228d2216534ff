package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"safeguard/internal/models"
	"safeguard/internal/observability"
	"safeguard/internal/repository"
)

type TrainingService struct {
	repo repository.TrainingRepository
}

func NewTrainingService(repo repository.TrainingRepository) *TrainingService {
	return &TrainingService{repo: repo}
}

// QuestionInput is one authored question. CorrectAnswer is 1-based.
type QuestionInput struct {
	Text          string    `json:"question_text"`
	Options       [4]string `json:"options"`
	CorrectAnswer int       `json:"correct_answer"`
}

type TrainingInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	VideoLink   string          `json:"video_link"`
	Questions   []QuestionInput `json:"questions"`
}

// AnswerReview is one question of a finished attempt.
type AnswerReview struct {
	QuestionID        uint   `json:"question_id"`
	QuestionText      string `json:"question_text"`
	SelectedAnswer    int    `json:"selected_answer"`
	SelectedAnswerTxt string `json:"selected_answer_text"`
	CorrectAnswer     int    `json:"correct_answer"`
	CorrectAnswerTxt  string `json:"correct_answer_text"`
	IsCorrect         bool   `json:"is_correct"`
}

type AttemptReview struct {
	AttemptID    uint           `json:"attempt_id"`
	TrainingID   uint           `json:"training_id"`
	TrainingName string         `json:"training_name"`
	Score        float64        `json:"score"`
	Answers      []AnswerReview `json:"answers"`
}

func (in TrainingInput) questions() ([]models.TrainingQuestion, error) {
	qs := make([]models.TrainingQuestion, 0, len(in.Questions))
	for i, q := range in.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			return nil, models.NewValidationError(fmt.Sprintf("Question %d has no text", i+1))
		}
		if q.CorrectAnswer < 1 || q.CorrectAnswer > 4 {
			return nil, models.NewValidationError(fmt.Sprintf("Question %d: correct answer must be between 1 and 4", i+1))
		}
		qs = append(qs, models.TrainingQuestion{
			QuestionOrder: i + 1,
			QuestionText:  text,
			Option1:       strings.TrimSpace(q.Options[0]),
			Option2:       strings.TrimSpace(q.Options[1]),
			Option3:       strings.TrimSpace(q.Options[2]),
			Option4:       strings.TrimSpace(q.Options[3]),
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return qs, nil
}

func requireCompanyAdmin(actor *models.User) error {
	if !actor.IsAdmin() || actor.CompanyID == nil {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return nil
}

func (s *TrainingService) Create(ctx context.Context, actor *models.User, in TrainingInput) (*models.Training, error) {
	if err := requireCompanyAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Training name is required")
	}
	qs, err := in.questions()
	if err != nil {
		return nil, err
	}
	t := &models.Training{
		CompanyID:   *actor.CompanyID,
		CreatedBy:   actor.ID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		VideoLink:   strings.TrimSpace(in.VideoLink),
		Questions:   qs,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	observability.GlobalLogger.InfoContext(ctx, "training created",
		slog.Uint64("training_id", uint64(t.ID)),
		slog.Int("questions", len(qs)),
	)
	return t, nil
}

// Update replaces the training's fields and its whole question set.
func (s *TrainingService) Update(ctx context.Context, actor *models.User, id uint, in TrainingInput) (*models.Training, error) {
	if err := requireCompanyAdmin(actor); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Training name is required")
	}
	qs, err := in.questions()
	if err != nil {
		return nil, err
	}
	existing.Name = name
	existing.Description = strings.TrimSpace(in.Description)
	existing.VideoLink = strings.TrimSpace(in.VideoLink)
	existing.Questions = qs
	if err := s.repo.Replace(ctx, existing); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
}

func (s *TrainingService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := requireCompanyAdmin(actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, repository.ScopeFor(actor), id)
}

func (s *TrainingService) List(ctx context.Context, actor *models.User, search, sort string) ([]models.Training, error) {
	return s.repo.List(ctx, repository.ScopeFor(actor), search, sort)
}

// Get returns the training with its questions. Answer keys are only shown
// to admins.
func (s *TrainingService) Get(ctx context.Context, actor *models.User, id uint) (*models.Training, error) {
	t, err := s.repo.GetByID(ctx, repository.ScopeFor(actor), id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		for i := range t.Questions {
			t.Questions[i].CorrectAnswer = 0
		}
	}
	return t, nil
}

// SubmitAttempt scores answers keyed by question id. Unanswered questions
// count as wrong. A training without questions scores 100.
func (s *TrainingService) SubmitAttempt(ctx context.Context, actor *models.User, trainingID uint, answers map[uint]int) (*models.TrainingAttempt, error) {
	t, err := s.repo.GetByID(ctx, repository.ScopeFor(actor), trainingID)
	if err != nil {
		return nil, err
	}

	attempt := &models.TrainingAttempt{
		UserID:     actor.ID,
		TrainingID: t.ID,
		Answers:    make([]models.TrainingUserAnswer, 0, len(t.Questions)),
	}
	correct := 0
	for _, q := range t.Questions {
		selected := answers[q.ID]
		ok := selected == q.CorrectAnswer
		if ok {
			correct++
		}
		attempt.Answers = append(attempt.Answers, models.TrainingUserAnswer{
			QuestionID:     q.ID,
			SelectedAnswer: selected,
			IsCorrect:      ok,
		})
	}
	attempt.Score = score(correct, len(t.Questions))

	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	observability.GlobalLogger.InfoContext(ctx, "training attempt submitted",
		slog.Uint64("training_id", uint64(t.ID)),
		slog.Uint64("user_id", uint64(actor.ID)),
		slog.Float64("score", attempt.Score),
	)
	return attempt, nil
}

func score(correct, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(correct) / float64(total) * 100
}

// Results summarizes attempts per user. Admin only.
func (s *TrainingService) Results(ctx context.Context, actor *models.User, trainingID uint) ([]models.TrainingResult, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	scope := repository.ScopeFor(actor)
	if _, err := s.repo.GetByID(ctx, scope, trainingID); err != nil {
		return nil, err
	}
	return s.repo.Results(ctx, scope, trainingID)
}

// MyAttempt reviews one of the caller's own attempts question by question.
func (s *TrainingService) MyAttempt(ctx context.Context, actor *models.User, attemptID uint) (*AttemptReview, error) {
	a, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != actor.ID {
		return nil, models.NewNotFoundError("Attempt", "Attempt not found")
	}

	review := &AttemptReview{
		AttemptID:  a.ID,
		TrainingID: a.TrainingID,
		Score:      a.Score,
		Answers:    []AnswerReview{},
	}
	if a.Training == nil {
		return review, nil
	}
	review.TrainingName = a.Training.Name

	selected := make(map[uint]models.TrainingUserAnswer, len(a.Answers))
	for _, ans := range a.Answers {
		selected[ans.QuestionID] = ans
	}
	for _, q := range a.Training.Questions {
		ans, ok := selected[q.ID]
		if !ok {
			continue
		}
		review.Answers = append(review.Answers, AnswerReview{
			QuestionID:        q.ID,
			QuestionText:      q.QuestionText,
			SelectedAnswer:    ans.SelectedAnswer,
			SelectedAnswerTxt: optionText(q, ans.SelectedAnswer),
			CorrectAnswer:     q.CorrectAnswer,
			CorrectAnswerTxt:  optionText(q, q.CorrectAnswer),
			IsCorrect:         ans.IsCorrect,
		})
	}
	return review, nil
}

func optionText(q models.TrainingQuestion, n int) string {
	switch n {
	case 1:
		return q.Option1
	case 2:
		return q.Option2
	case 3:
		return q.Option3
	case 4:
		return q.Option4
	}
	return ""
}
