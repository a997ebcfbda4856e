// Package memory is an in-process InterviewRepository for tests and local
// runs without MongoDB.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/repositories"
	"github.com/yoockh/mockinterview/internal/utils"
)

type sessionRepo struct {
	mu   sync.RWMutex
	rows map[string]models.InterviewSession
}

func NewSessionRepo() repositories.InterviewRepository {
	return &sessionRepo{rows: make(map[string]models.InterviewSession)}
}

func (r *sessionRepo) Create(_ context.Context, s *models.InterviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[s.SessionID]; ok {
		return utils.E(utils.CodeConflict, "memory.Create", "session already exists", nil)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	r.rows[s.SessionID] = engine.Clone(*s)
	return nil
}

func (r *sessionRepo) GetBySessionID(_ context.Context, sessionID string) (*models.InterviewSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.rows[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := engine.Clone(s)
	return &out, nil
}

func (r *sessionRepo) List(_ context.Context, f repositories.ListFilter) ([]models.InterviewSession, error) {
	r.mu.RLock()
	out := []models.InterviewSession{}
	for _, s := range r.rows {
		if s.UserID != f.UserID || (f.Status != "" && s.Status != f.Status) {
			continue
		}
		out = append(out, engine.Clone(s))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.InterviewSession{}, nil
		}
		out = out[f.Offset:]
	}
	if limit := repositories.ClampLimit(f.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *sessionRepo) Replace(_ context.Context, s *models.InterviewSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[s.SessionID]
	if !ok {
		return utils.ErrNotFound
	}
	if cur.Version != s.Version {
		return utils.ErrConflict
	}
	s.Version++
	r.rows[s.SessionID] = engine.Clone(*s)
	return nil
}
