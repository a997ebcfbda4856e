package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultRepo interface {
	Upsert(ctx context.Context, res *models.InterviewResult) error
	GetBySession(ctx context.Context, userID, sessionID string) (*models.InterviewResult, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.InterviewResult, error)
}

type resultRepo struct {
	db *gorm.DB
}

func NewResultRepo(db *gorm.DB) ResultRepo {
	return &resultRepo{db: db}
}

func (r *resultRepo) Upsert(ctx context.Context, res *models.InterviewResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(res).Error
}

func (r *resultRepo) GetBySession(ctx context.Context, userID, sessionID string) (*models.InterviewResult, error) {
	var row models.InterviewResult
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *resultRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.InterviewResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var rows []models.InterviewResult
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}
