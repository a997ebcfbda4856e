// Package repositories holds the storage contract for interview sessions.
// Implementations live in the mongo and memory subpackages.
package repositories

import (
	"context"

	"github.com/yoockh/mockinterview/internal/models"
)

type ListFilter struct {
	UserID string
	Status models.InterviewStatus // empty matches every status
	Limit  int
	Offset int
}

type InterviewRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	List(ctx context.Context, f ListFilter) ([]models.InterviewSession, error)
	// Replace writes s only if the stored version still equals s.Version, then
	// bumps s.Version. A stale write returns utils.ErrConflict.
	Replace(ctx context.Context, s *models.InterviewSession) error
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
