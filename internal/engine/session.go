// Package engine holds the interview session state machine as pure functions.
// Every operation takes a session value and returns a new one; nothing here
// performs I/O, so callers decide when and how a step is persisted.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	MinQuestions = 1
	MaxQuestions = 20

	MinFollowUpDepth     = 1
	MaxFollowUpDepth     = 5
	DefaultFollowUpDepth = 2

	MaxYearsOfExperience = 60
)

// NormalizeConfig trims and lowercases free-form fields and applies defaults.
func NormalizeConfig(cfg models.InterviewConfig) models.InterviewConfig {
	cfg.TargetRole = strings.TrimSpace(cfg.TargetRole)
	cfg.InterviewType = strings.ToLower(strings.TrimSpace(cfg.InterviewType))
	cfg.Difficulty = strings.ToLower(strings.TrimSpace(cfg.Difficulty))
	if cfg.InterviewType == "" {
		cfg.InterviewType = models.TypeMixed
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = models.DifficultyMedium
	}
	if cfg.MaxFollowUpDepth == 0 {
		cfg.MaxFollowUpDepth = DefaultFollowUpDepth
	}

	seen := make(map[string]struct{}, len(cfg.Skills))
	skills := make([]string, 0, len(cfg.Skills))
	for _, sk := range cfg.Skills {
		sk = strings.TrimSpace(sk)
		key := strings.ToLower(sk)
		if sk == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, sk)
	}
	cfg.Skills = skills
	return cfg
}

// ValidateConfig reports the first problem with cfg as an INVALID_ARGUMENT error.
func ValidateConfig(cfg models.InterviewConfig) error {
	const op = "engine.ValidateConfig"

	invalid := func(format string, args ...any) error {
		return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf(format, args...), nil)
	}

	if cfg.TargetRole == "" {
		return invalid("target_role is required")
	}
	switch cfg.InterviewType {
	case models.TypeTechnical, models.TypeBehavioral, models.TypeMixed:
	default:
		return invalid("interview_type must be one of technical, behavioral, mixed (got %q)", cfg.InterviewType)
	}
	switch cfg.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return invalid("difficulty must be one of easy, medium, hard (got %q)", cfg.Difficulty)
	}
	if cfg.TotalQuestions < MinQuestions || cfg.TotalQuestions > MaxQuestions {
		return invalid("total_questions must be between %d and %d", MinQuestions, MaxQuestions)
	}
	if cfg.MaxFollowUpDepth < MinFollowUpDepth || cfg.MaxFollowUpDepth > MaxFollowUpDepth {
		return invalid("max_follow_up_depth must be between %d and %d", MinFollowUpDepth, MaxFollowUpDepth)
	}
	if cfg.YearsOfExperience < 0 || cfg.YearsOfExperience > MaxYearsOfExperience {
		return invalid("years_of_experience must be between 0 and %d", MaxYearsOfExperience)
	}
	return nil
}

// New builds a draft session with empty conversation and follow-up queue.
func New(sessionID, userID string, cfg models.InterviewConfig, now time.Time) (models.InterviewSession, error) {
	const op = "engine.New"

	if sessionID == "" || userID == "" {
		return models.InterviewSession{}, utils.E(utils.CodeInvalidArgument, op, "session_id and user_id are required", nil)
	}
	cfg = NormalizeConfig(cfg)
	if err := ValidateConfig(cfg); err != nil {
		return models.InterviewSession{}, err
	}

	now = now.UTC()
	return models.InterviewSession{
		SessionID:    sessionID,
		UserID:       userID,
		Config:       cfg,
		Questions:    make([]models.QuestionSlot, cfg.TotalQuestions),
		Conversation: []models.ConversationEvent{},
		FollowUps:    []models.FollowUpCandidate{},
		Phase:        models.PhaseIntroduction,
		Status:       models.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Clone returns a deep copy so a step never aliases the previous state.
func Clone(s models.InterviewSession) models.InterviewSession {
	out := s
	out.Config.Skills = append([]string(nil), s.Config.Skills...)

	out.Questions = make([]models.QuestionSlot, len(s.Questions))
	for i, q := range s.Questions {
		q.AnsweredAt = cloneTime(q.AnsweredAt)
		out.Questions[i] = q
	}

	out.Conversation = append(make([]models.ConversationEvent, 0, len(s.Conversation)+2), s.Conversation...)

	out.FollowUps = make([]models.FollowUpCandidate, len(s.FollowUps))
	for i, f := range s.FollowUps {
		f.AskedAt = cloneTime(f.AskedAt)
		out.FollowUps[i] = f
	}

	if s.Feedback != nil {
		fb := *s.Feedback
		fb.Strengths = append([]string(nil), s.Feedback.Strengths...)
		fb.Weaknesses = append([]string(nil), s.Feedback.Weaknesses...)
		fb.Suggestions = append([]string(nil), s.Feedback.Suggestions...)
		fb.DetailedAnalysis = append([]models.DimensionAnalysis(nil), s.Feedback.DetailedAnalysis...)
		out.Feedback = &fb
	}

	out.StartedAt = cloneTime(s.StartedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	out.CancelledAt = cloneTime(s.CancelledAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time { return &t }
