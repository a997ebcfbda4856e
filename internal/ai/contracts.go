// Package ai defines the contracts of the external language-model
// collaborators (answer judging, feedback synthesis, question generation) and
// the fallbacks used when they fail.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/models"
)

const (
	QualityPoor      = "poor"
	QualityFair      = "fair"
	QualityGood      = "good"
	QualityExcellent = "excellent"

	CompletenessIncomplete = "incomplete"
	CompletenessPartial    = "partial"
	CompletenessComplete   = "complete"

	TierUnknown = "unknown"

	maxCandidateFollowUps = 3
)

type JudgeInput struct {
	Question   string
	Answer     string
	IsFollowUp bool
	Depth      int
	Config     models.InterviewConfig
}

// Judgment is the oracle's verdict on one answer.
type Judgment struct {
	QualityTier        string   `json:"quality_tier"`
	CompletenessTier   string   `json:"completeness_tier"`
	FollowUpWarranted  bool     `json:"follow_up_warranted"`
	Reasoning          string   `json:"reasoning"`
	CandidateFollowUps []string `json:"candidate_follow_ups"`

	Fallback bool `json:"-"`
}

func (j Judgment) Signal() engine.Signal {
	return engine.Signal{FollowUpWarranted: j.FollowUpWarranted, Candidates: j.CandidateFollowUps}
}

// FallbackJudgment never asks for a follow-up, so the session always advances.
func FallbackJudgment(reason string) Judgment {
	return Judgment{
		QualityTier:      TierUnknown,
		CompletenessTier: TierUnknown,
		Reasoning:        reason,
		Fallback:         true,
	}
}

func (j Judgment) normalized() Judgment {
	j.QualityTier = oneOf(j.QualityTier, QualityPoor, QualityFair, QualityGood, QualityExcellent)
	j.CompletenessTier = oneOf(j.CompletenessTier, CompletenessIncomplete, CompletenessPartial, CompletenessComplete)
	j.Reasoning = strings.TrimSpace(j.Reasoning)

	cands := make([]string, 0, len(j.CandidateFollowUps))
	for _, c := range j.CandidateFollowUps {
		if c = strings.TrimSpace(c); c != "" && len(cands) < maxCandidateFollowUps {
			cands = append(cands, c)
		}
	}
	j.CandidateFollowUps = cands
	return j
}

// FeedbackResult is the synthesizer's assessment of a finished transcript.
type FeedbackResult struct {
	Strengths        []string                   `json:"strengths"`
	Weaknesses       []string                   `json:"weaknesses"`
	Suggestions      []string                   `json:"suggestions"`
	OverallScore     int                        `json:"overall_score"`
	Summary          string                     `json:"summary"`
	DetailedAnalysis []models.DimensionAnalysis `json:"detailed_analysis"`

	Fallback bool `json:"-"`
}

func (f FeedbackResult) ToModel(now time.Time) models.Feedback {
	return models.Feedback{
		Strengths:        nonNil(f.Strengths),
		Weaknesses:       nonNil(f.Weaknesses),
		Suggestions:      nonNil(f.Suggestions),
		OverallScore:     f.OverallScore,
		Summary:          f.Summary,
		DetailedAnalysis: append([]models.DimensionAnalysis{}, f.DetailedAnalysis...),
		GeneratedAt:      now.UTC(),
		Degraded:         f.Fallback,
	}
}

const NeutralScore = 50

// FallbackFeedback is generic feedback with a neutral score.
func FallbackFeedback(s models.InterviewSession) FeedbackResult {
	answered := 0
	for _, q := range s.Questions {
		if q.Answered {
			answered++
		}
	}
	summary := fmt.Sprintf("You answered %d of %d questions for the %s role. Automated feedback could not be generated, so this is a neutral placeholder assessment.",
		answered, s.Config.TotalQuestions, s.Config.TargetRole)

	return FeedbackResult{
		Strengths:    []string{"Completed the interview and answered every question"},
		Weaknesses:   []string{"Detailed analysis is unavailable for this session"},
		Suggestions:  []string{"Review each answer and practise structuring responses (situation, action, result)"},
		OverallScore: NeutralScore,
		Summary:      summary,
		DetailedAnalysis: []models.DimensionAnalysis{
			{Dimension: "communication", Score: NeutralScore},
			{Dimension: "technical_depth", Score: NeutralScore},
			{Dimension: "problem_solving", Score: NeutralScore},
		},
		Fallback: true,
	}
}

type QuestionRequest struct {
	Config     models.InterviewConfig
	Index      int
	Phase      models.InterviewPhase
	Previous   []string
	LastAnswer string
}

type Oracle interface {
	Judge(ctx context.Context, in JudgeInput) (Judgment, error)
}

type Synthesizer interface {
	Summarize(ctx context.Context, transcript models.InterviewSession) (FeedbackResult, error)
}

type QuestionGenerator interface {
	NextQuestion(ctx context.Context, req QuestionRequest) (string, error)
}

func oneOf(v string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return TierUnknown
}

func nonNil(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
