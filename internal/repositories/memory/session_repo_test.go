package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/repositories"
	"github.com/yoockh/mockinterview/internal/utils"
)

func session(id, user string, at time.Time, status models.InterviewStatus) *models.InterviewSession {
	return &models.InterviewSession{
		SessionID: id,
		UserID:    user,
		Status:    status,
		CreatedAt: at,
		Questions: []models.QuestionSlot{{}},
	}
}

func TestCreateAndGetReturnCopies(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()
	s := session("s1", "u1", time.Now(), models.StatusDraft)

	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, int64(1), s.Version)

	err := repo.Create(ctx, session("s1", "u1", time.Now(), models.StatusDraft))
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	got, err := repo.GetBySessionID(ctx, "s1")
	require.NoError(t, err)
	got.Questions[0].Answer = "mutated"

	again, err := repo.GetBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Questions[0].Answer)

	_, err = repo.GetBySessionID(ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestReplaceChecksVersion(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, session("s1", "u1", time.Now(), models.StatusDraft)))

	a, _ := repo.GetBySessionID(ctx, "s1")
	b, _ := repo.GetBySessionID(ctx, "s1")

	a.Status = models.StatusInProgress
	require.NoError(t, repo.Replace(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Status = models.StatusCancelled
	assert.ErrorIs(t, repo.Replace(ctx, b), utils.ErrConflict)

	got, _ := repo.GetBySessionID(ctx, "s1")
	assert.Equal(t, models.StatusInProgress, got.Status)

	assert.ErrorIs(t, repo.Replace(ctx, session("nope", "u1", time.Now(), models.StatusDraft)), utils.ErrNotFound)
}

func TestListFiltersAndPages(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, session("old", "u1", base, models.StatusCompleted)))
	require.NoError(t, repo.Create(ctx, session("mid", "u1", base.Add(time.Hour), models.StatusDraft)))
	require.NoError(t, repo.Create(ctx, session("new", "u1", base.Add(2*time.Hour), models.StatusCompleted)))
	require.NoError(t, repo.Create(ctx, session("other", "u2", base, models.StatusDraft)))

	all, err := repo.List(ctx, repositories.ListFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].SessionID)
	assert.Equal(t, "old", all[2].SessionID)

	done, err := repo.List(ctx, repositories.ListFilter{UserID: "u1", Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, done, 2)

	page, err := repo.List(ctx, repositories.ListFilter{UserID: "u1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "mid", page[0].SessionID)

	empty, err := repo.List(ctx, repositories.ListFilter{UserID: "u1", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
