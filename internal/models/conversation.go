package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
)

// ConversationLog is one archived transcript line of a finished interview.
// (session_id, seq) is unique so a redelivered archive job inserts nothing new.
type ConversationLog struct {
	ID            string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        string           `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	SessionID     string           `gorm:"column:session_id;type:uuid;uniqueIndex:idx_conversation_session_seq" json:"session_id"`
	Seq           int              `gorm:"column:seq;uniqueIndex:idx_conversation_session_seq" json:"seq"`
	Kind          EventKind        `gorm:"column:kind;type:text" json:"kind"`
	Role          string           `gorm:"column:role;type:text" json:"role"` // "interviewer" | "candidate"
	Content       string           `gorm:"column:content;type:text" json:"content"`
	QuestionIndex int              `gorm:"column:question_index" json:"question_index"`
	IsFollowUp    bool             `gorm:"column:is_follow_up" json:"is_follow_up"`
	Embedding     *pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding,omitempty"`
	Timestamp     time.Time        `gorm:"column:timestamp;index" json:"timestamp"`
	Metadata      datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (ConversationLog) TableName() string { return "conversation_logs" }

// RoleFor maps an event kind to the speaker.
func RoleFor(k EventKind) string {
	if k == EventAnswer {
		return RoleCandidate
	}
	return RoleInterviewer
}
