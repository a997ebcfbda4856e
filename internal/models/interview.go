package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InterviewStatus string

const (
	StatusDraft      InterviewStatus = "draft"
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
	StatusCancelled  InterviewStatus = "cancelled"
)

// Closed reports whether the status is terminal.
func (s InterviewStatus) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type InterviewPhase string

const (
	PhaseIntroduction InterviewPhase = "introduction"
	PhaseTechnical    InterviewPhase = "technical"
	PhaseBehavioral   InterviewPhase = "behavioral"
	PhaseClosing      InterviewPhase = "closing"
)

type EventKind string

const (
	EventQuestion EventKind = "question"
	EventFollowUp EventKind = "follow_up"
	EventAnswer   EventKind = "answer"
)

const (
	TypeTechnical  = "technical"
	TypeBehavioral = "behavioral"
	TypeMixed      = "mixed"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// InterviewSession is one mock-interview attempt, persisted as a single document
// keyed by session_id.
type InterviewSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`

	Config InterviewConfig `bson:"config" json:"config"`

	Questions    []QuestionSlot      `bson:"questions" json:"questions"`
	Conversation []ConversationEvent `bson:"conversation" json:"conversation"`
	FollowUps    []FollowUpCandidate `bson:"follow_ups" json:"follow_ups"`
	Progress     Progress            `bson:"progress" json:"progress"`

	Phase  InterviewPhase  `bson:"phase" json:"phase"`
	Status InterviewStatus `bson:"status" json:"status"`

	Feedback *Feedback `bson:"feedback,omitempty" json:"feedback,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	StartedAt   *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`

	Version int64 `bson:"version" json:"version"`
}

// InterviewConfig is fixed at creation.
type InterviewConfig struct {
	TargetRole        string   `bson:"target_role" json:"target_role"`
	InterviewType     string   `bson:"interview_type" json:"interview_type"` // technical|behavioral|mixed
	Difficulty        string   `bson:"difficulty" json:"difficulty"`         // easy|medium|hard
	Skills            []string `bson:"skills" json:"skills"`
	YearsOfExperience int      `bson:"years_of_experience" json:"years_of_experience"`
	TotalQuestions    int      `bson:"total_questions" json:"total_questions"`
	MaxFollowUpDepth  int      `bson:"max_follow_up_depth" json:"max_follow_up_depth"`
}

type QuestionSlot struct {
	Question         string     `bson:"question" json:"question"`
	Answer           string     `bson:"answer" json:"answer"`
	Transcript       string     `bson:"transcript" json:"transcript"`
	AudioURL         string     `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	TimeSpentSeconds int        `bson:"time_spent_seconds" json:"time_spent_seconds"`
	Answered         bool       `bson:"answered" json:"answered"`
	AnsweredAt       *time.Time `bson:"answered_at,omitempty" json:"answered_at,omitempty"`
}

type ConversationEvent struct {
	Seq           int       `bson:"seq" json:"seq"`
	Kind          EventKind `bson:"kind" json:"kind"`
	Content       string    `bson:"content" json:"content"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
	QuestionIndex int       `bson:"question_index" json:"question_index"`
	IsFollowUp    bool      `bson:"is_follow_up" json:"is_follow_up"`
}

type FollowUpCandidate struct {
	ID            string     `bson:"id" json:"id"`
	QuestionIndex int        `bson:"question_index" json:"question_index"`
	Question      string     `bson:"question" json:"question"`
	Consumed      bool       `bson:"consumed" json:"consumed"`
	AskedAt       *time.Time `bson:"asked_at,omitempty" json:"asked_at,omitempty"`
	Answer        string     `bson:"answer,omitempty" json:"answer,omitempty"`
	Transcript    string     `bson:"transcript,omitempty" json:"transcript,omitempty"`
	AudioURL      string     `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
}

type Progress struct {
	CurrentIndex       int    `bson:"current_index" json:"current_index"`
	CurrentDepth       int    `bson:"current_depth" json:"current_depth"`
	MainQuestionsAsked int    `bson:"main_questions_asked" json:"main_questions_asked"`
	FollowUpsAsked     int    `bson:"follow_ups_asked" json:"follow_ups_asked"`
	LastWasFollowUp    bool   `bson:"last_was_follow_up" json:"last_was_follow_up"`
	CurrentPrompt      string `bson:"current_prompt" json:"current_prompt"`
	CurrentFollowUpID  string `bson:"current_follow_up_id,omitempty" json:"current_follow_up_id,omitempty"`
}

type Feedback struct {
	Strengths        []string            `bson:"strengths" json:"strengths"`
	Weaknesses       []string            `bson:"weaknesses" json:"weaknesses"`
	Suggestions      []string            `bson:"suggestions" json:"suggestions"`
	OverallScore     int                 `bson:"overall_score" json:"overall_score"` // 0-100
	Summary          string              `bson:"summary" json:"summary"`
	DetailedAnalysis []DimensionAnalysis `bson:"detailed_analysis" json:"detailed_analysis"`
	GeneratedAt      time.Time           `bson:"generated_at" json:"generated_at"`
	Degraded         bool                `bson:"degraded" json:"degraded"`
}

type DimensionAnalysis struct {
	Dimension string `bson:"dimension" json:"dimension"`
	Score     int    `bson:"score" json:"score"`
	Comment   string `bson:"comment" json:"comment"`
}

// ProgressView is the summary returned to clients after each step.
type ProgressView struct {
	CurrentIndex    int  `json:"current_index"`
	TotalQuestions  int  `json:"total_questions"`
	Answered        int  `json:"answered"`
	Remaining       int  `json:"remaining"`
	CurrentDepth    int  `json:"current_depth"`
	LastWasFollowUp bool `json:"last_was_follow_up"`
}

func (s *InterviewSession) View() ProgressView {
	answered := 0
	for _, q := range s.Questions {
		if q.Answered {
			answered++
		}
	}
	return ProgressView{
		CurrentIndex:    s.Progress.CurrentIndex,
		TotalQuestions:  s.Config.TotalQuestions,
		Answered:        answered,
		Remaining:       s.Config.TotalQuestions - answered,
		CurrentDepth:    s.Progress.CurrentDepth,
		LastWasFollowUp: s.Progress.LastWasFollowUp,
	}
}
