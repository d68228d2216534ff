package service

import (
	"context"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/repository"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTraining() TrainingInput {
	return TrainingInput{
		Name:        "Forklift basics",
		Description: "Yard safety",
		Questions: []QuestionInput{
			{Text: "Max speed indoors?", Options: [4]string{"5 km/h", "10 km/h", "20 km/h", "30 km/h"}, CorrectAnswer: 1},
			{Text: "Seatbelt required?", Options: [4]string{"No", "Yes", "Sometimes", "Only outside"}, CorrectAnswer: 2},
			{Text: "Forks when driving?", Options: [4]string{"High", "Middle", "Lowered", "Tilted up"}, CorrectAnswer: 3},
			{Text: "Passengers allowed?", Options: [4]string{"Yes", "One", "Two", "No"}, CorrectAnswer: 4},
		},
	}
}

func TestTrainingService_AuthoringAndScoring(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := NewTrainingService(repository.NewTrainingRepository(db))
	acme := testutil.MakeCompany(t, db)
	admin := testutil.MakeUser(t, db, models.RoleAdmin, acme)
	worker := testutil.MakeUser(t, db, models.RoleUser, acme, testutil.WithCapabilities(models.CapTraining))

	_, err := svc.Create(ctx, worker, sampleTraining())
	assertAppCode(t, err, models.CodeForbidden)

	tr, err := svc.Create(ctx, admin, sampleTraining())
	require.NoError(t, err)
	require.Len(t, tr.Questions, 4)

	t.Run("answer keys are hidden from users", func(t *testing.T) {
		got, err := svc.Get(ctx, worker, tr.ID)
		require.NoError(t, err)
		for _, q := range got.Questions {
			assert.Zero(t, q.CorrectAnswer)
		}
		got, err = svc.Get(ctx, admin, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Questions[0].CorrectAnswer)
	})

	var attemptID uint
	t.Run("score is the share of correct answers", func(t *testing.T) {
		full, err := svc.Get(ctx, admin, tr.ID)
		require.NoError(t, err)
		answers := map[uint]int{
			full.Questions[0].ID: 1,
			full.Questions[1].ID: 2,
			full.Questions[2].ID: 1,
		}
		attempt, err := svc.SubmitAttempt(ctx, worker, tr.ID, answers)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, attempt.Score, 0.001)
		assert.Len(t, attempt.Answers, 4)
		attemptID = attempt.ID

		best, err := svc.SubmitAttempt(ctx, worker, tr.ID, map[uint]int{
			full.Questions[0].ID: 1, full.Questions[1].ID: 2, full.Questions[2].ID: 3, full.Questions[3].ID: 4,
		})
		require.NoError(t, err)
		assert.InDelta(t, 100.0, best.Score, 0.001)
	})

	t.Run("results summary", func(t *testing.T) {
		_, err := svc.Results(ctx, worker, tr.ID)
		assertAppCode(t, err, models.CodeForbidden)

		results, err := svc.Results(ctx, admin, tr.ID)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, worker.ID, results[0].UserID)
		assert.Equal(t, int64(2), results[0].AttemptCount)
		assert.InDelta(t, 100.0, results[0].BestScore, 0.001)
	})

	t.Run("attempt review", func(t *testing.T) {
		review, err := svc.MyAttempt(ctx, worker, attemptID)
		require.NoError(t, err)
		assert.Equal(t, "Forklift basics", review.TrainingName)
		require.Len(t, review.Answers, 4)
		assert.Equal(t, "High", review.Answers[2].SelectedAnswerTxt)
		assert.Equal(t, "Lowered", review.Answers[2].CorrectAnswerTxt)
		assert.False(t, review.Answers[2].IsCorrect)
		assert.Equal(t, "", review.Answers[3].SelectedAnswerTxt)

		_, err = svc.MyAttempt(ctx, admin, attemptID)
		assertAppCode(t, err, models.CodeNotFound)
	})

	t.Run("update replaces questions", func(t *testing.T) {
		in := sampleTraining()
		in.Name = "Forklift refresher"
		in.Questions = in.Questions[:1]
		updated, err := svc.Update(ctx, admin, tr.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Forklift refresher", updated.Name)
		assert.Len(t, updated.Questions, 1)
	})

	t.Run("other companies cannot see or delete", func(t *testing.T) {
		otherAdmin := testutil.MakeUser(t, db, models.RoleAdmin, testutil.MakeCompany(t, db))
		list, err := svc.List(ctx, otherAdmin, "", "")
		require.NoError(t, err)
		assert.Empty(t, list)
		assertAppCode(t, svc.Delete(ctx, otherAdmin, tr.ID), models.CodeForbidden)
		require.NoError(t, svc.Delete(ctx, admin, tr.ID))
	})
}

func TestTrainingService_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := NewTrainingService(repository.NewTrainingRepository(db))
	admin := testutil.MakeUser(t, db, models.RoleAdmin, testutil.MakeCompany(t, db))

	in := sampleTraining()
	in.Name = " "
	_, err := svc.Create(ctx, admin, in)
	assertAppCode(t, err, models.CodeValidation)

	in = sampleTraining()
	in.Questions[1].CorrectAnswer = 5
	_, err = svc.Create(ctx, admin, in)
	assertAppCode(t, err, models.CodeValidation)

	in = sampleTraining()
	in.Questions[0].Text = ""
	_, err = svc.Create(ctx, admin, in)
	assertAppCode(t, err, models.CodeValidation)
}

func TestTrainingService_NoQuestionsScoresFull(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := NewTrainingService(repository.NewTrainingRepository(db))
	acme := testutil.MakeCompany(t, db)
	admin := testutil.MakeUser(t, db, models.RoleAdmin, acme)
	worker := testutil.MakeUser(t, db, models.RoleUser, acme)

	tr, err := svc.Create(ctx, admin, TrainingInput{Name: "Read the handbook"})
	require.NoError(t, err)
	attempt, err := svc.SubmitAttempt(ctx, worker, tr.ID, nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, attempt.Score, 0.001)
}
