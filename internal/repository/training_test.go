package repository

import (
	"context"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTrainingRepository(db)
	ctx := context.Background()

	acme := testutil.MakeCompany(t, db)
	admin := testutil.MakeUser(t, db, models.RoleAdmin, acme)
	learner := testutil.MakeUser(t, db, models.RoleUser, acme)
	scope := Scope{CompanyID: &acme.ID}

	training := &models.Training{
		CompanyID: acme.ID,
		CreatedBy: admin.ID,
		Name:      "Working at height",
		Questions: []models.TrainingQuestion{
			{QuestionOrder: 2, QuestionText: "Second?", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectAnswer: 2},
			{QuestionOrder: 1, QuestionText: "First?", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectAnswer: 1},
		},
	}
	require.NoError(t, repo.Create(ctx, training))

	t.Run("questions load in order", func(t *testing.T) {
		got, err := repo.GetByID(ctx, scope, training.ID)
		require.NoError(t, err)
		require.Len(t, got.Questions, 2)
		assert.Equal(t, "First?", got.Questions[0].QuestionText)
	})

	t.Run("replace swaps the question set", func(t *testing.T) {
		training.Name = "Working at height v2"
		training.Questions = []models.TrainingQuestion{
			{QuestionOrder: 1, QuestionText: "Only?", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectAnswer: 4},
		}
		require.NoError(t, repo.Replace(ctx, training))

		got, err := repo.GetByID(ctx, scope, training.ID)
		require.NoError(t, err)
		assert.Equal(t, "Working at height v2", got.Name)
		require.Len(t, got.Questions, 1)
		assert.Equal(t, 4, got.Questions[0].CorrectAnswer)
	})

	t.Run("attempts aggregate into results", func(t *testing.T) {
		for _, score := range []float64{50, 100} {
			attempt := &models.TrainingAttempt{
				UserID:     learner.ID,
				TrainingID: training.ID,
				Score:      score,
				Answers:    []models.TrainingUserAnswer{{QuestionID: 1, SelectedAnswer: 4, IsCorrect: score == 100}},
			}
			require.NoError(t, repo.CreateAttempt(ctx, attempt))
			assert.NotZero(t, attempt.Answers[0].AttemptID)
		}

		results, err := repo.Results(ctx, scope, training.ID)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, learner.ID, results[0].UserID)
		assert.Equal(t, int64(2), results[0].AttemptCount)
		assert.Equal(t, float64(100), results[0].BestScore)
		assert.False(t, results[0].LastAttemptDate.IsZero())
	})

	t.Run("other company cannot delete", func(t *testing.T) {
		other := testutil.MakeCompany(t, db)
		err := repo.Delete(ctx, Scope{CompanyID: &other.ID}, training.ID)
		assert.True(t, models.HasCode(err, models.CodeForbidden))

		require.NoError(t, repo.Delete(ctx, scope, training.ID))
		var answers int64
		db.Model(&models.TrainingUserAnswer{}).Count(&answers)
		assert.Zero(t, answers)
	})
}
