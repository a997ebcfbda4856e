// Package events fans interview progress out over Redis: pub/sub for live
// clients and a stream for the archive workers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/mockinterview/internal/models"
)

const (
	TypeStarted   = "session_started"
	TypeQuestion  = "question"
	TypeFollowUp  = "follow_up"
	TypeAnswer    = "answer_recorded"
	TypeCompleted = "session_completed"
	TypeCancelled = "session_cancelled"
	TypeFeedback  = "feedback_ready"

	CompletedStream = "interview:completed"
)

// Channel is the pub/sub channel of one session.
func Channel(sessionID string) string {
	return "interview:" + sessionID + ":events"
}

type Event struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id"`
	Status    models.InterviewStatus `json:"status"`
	Phase     models.InterviewPhase  `json:"phase,omitempty"`
	Prompt    string                 `json:"prompt,omitempty"`
	Progress  *models.ProgressView   `json:"progress,omitempty"`
	Version   int64                  `json:"version"`
	At        time.Time              `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	// EnqueueCompleted hands a finished session to the archive workers.
	EnqueueCompleted(ctx context.Context, sessionID, userID string) error
}

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel(ev.SessionID), string(b)).Err()
}

func (p *RedisPublisher) EnqueueCompleted(ctx context.Context, sessionID, userID string) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: CompletedStream,
		Values: map[string]any{
			"session_id": sessionID,
			"user_id":    userID,
			"ts_unix":    time.Now().UTC().Unix(),
		},
	}).Err()
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) EnqueueCompleted(context.Context, string, string) error { return nil }

// FromSession builds the event describing s after a step.
func FromSession(typ string, s *models.InterviewSession) Event {
	view := s.View()
	return Event{
		Type:      typ,
		SessionID: s.SessionID,
		Status:    s.Status,
		Phase:     s.Phase,
		Prompt:    s.Progress.CurrentPrompt,
		Progress:  &view,
		Version:   s.Version,
		At:        s.UpdatedAt,
	}
}
