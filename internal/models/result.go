package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// InterviewResult is the archived outcome of a completed interview, used for
// the per-user history.
type InterviewResult struct {
	SessionID       string         `gorm:"column:session_id;type:uuid;primaryKey" json:"session_id"`
	UserID          string         `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	TargetRole      string         `gorm:"column:target_role;type:text" json:"target_role"`
	InterviewType   string         `gorm:"column:interview_type;type:text" json:"interview_type"`
	Difficulty      string         `gorm:"column:difficulty;type:text" json:"difficulty"`
	Skills          pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`
	TotalQuestions  int            `gorm:"column:total_questions" json:"total_questions"`
	FollowUpsAsked  int            `gorm:"column:follow_ups_asked" json:"follow_ups_asked"`
	OverallScore    int            `gorm:"column:overall_score;index" json:"overall_score"`
	Degraded        bool           `gorm:"column:degraded" json:"degraded"`
	Feedback        datatypes.JSON `gorm:"column:feedback;type:jsonb" json:"feedback"`
	DurationSeconds int64          `gorm:"column:duration_seconds" json:"duration_seconds"`
	StartedAt       *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt     time.Time      `gorm:"column:completed_at;index" json:"completed_at"`
	ArchivedAt      time.Time      `gorm:"column:archived_at" json:"archived_at"`
}

func (InterviewResult) TableName() string { return "interview_results" }
