package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

// Answer is one submitted response to the current prompt.
type Answer struct {
	Text             string
	Transcript       string
	TimeSpentSeconds int
	AudioURL         string
}

func rejected(op, action string, status models.InterviewStatus) error {
	code := utils.CodeInvalidTransition
	if status.Closed() {
		code = utils.CodeSessionClosed
	}
	return utils.E(code, op, fmt.Sprintf("cannot %s: session is %s", action, status), nil)
}

// Start moves a draft session to in_progress. The first main question is asked
// separately through AskMain.
func Start(s models.InterviewSession, now time.Time) (models.InterviewSession, error) {
	const op = "engine.Start"

	if s.Status != models.StatusDraft {
		return s, utils.E(utils.CodeInvalidTransition, op, fmt.Sprintf("cannot start: session is %s", s.Status), nil)
	}

	out := Clone(s)
	now = now.UTC()
	out.Status = models.StatusInProgress
	out.StartedAt = timePtr(now)
	out.Progress = models.Progress{}
	out.UpdatedAt = now
	return out, nil
}

// NeedsQuestion reports whether the current slot is waiting for its main question.
func NeedsQuestion(s models.InterviewSession) bool {
	idx := s.Progress.CurrentIndex
	return s.Status == models.StatusInProgress &&
		idx < len(s.Questions) &&
		s.Questions[idx].Question == ""
}

// AskMain records the main question for the current slot and logs it.
func AskMain(s models.InterviewSession, question string, now time.Time) (models.InterviewSession, error) {
	const op = "engine.AskMain"

	if s.Status != models.StatusInProgress {
		return s, rejected(op, "ask a question", s.Status)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return s, utils.E(utils.CodeInvalidArgument, op, "question text is required", nil)
	}
	if !NeedsQuestion(s) {
		return s, utils.E(utils.CodeNoCurrentQuestion, op, "current slot already has a question or no slots remain", nil)
	}

	out := Clone(s)
	idx := out.Progress.CurrentIndex
	out.Questions[idx].Question = question
	out.Phase = PhaseFor(out.Config, idx)
	out.Progress.CurrentPrompt = question
	out.Progress.CurrentFollowUpID = ""
	out.Progress.LastWasFollowUp = false
	out.Progress.MainQuestionsAsked++
	out.Conversation = appendEvent(out.Conversation, models.EventQuestion, question, idx, false, now)
	out.UpdatedAt = lastEventTime(out, now)
	return out, nil
}

// RecordAnswer writes the answer into the current slot (or the pending
// follow-up) and appends an answer event. It does not decide what comes next.
func RecordAnswer(s models.InterviewSession, a Answer, now time.Time) (models.InterviewSession, error) {
	const op = "engine.RecordAnswer"

	if s.Status != models.StatusInProgress {
		return s, rejected(op, "record an answer", s.Status)
	}

	idx := s.Progress.CurrentIndex
	if idx >= len(s.Questions) || s.Questions[idx].Question == "" {
		return s, utils.E(utils.CodeNoCurrentQuestion, op, "there is no open question to answer", nil)
	}

	text := strings.TrimSpace(a.Text)
	transcript := strings.TrimSpace(a.Transcript)
	if text == "" {
		text = transcript
	}
	if text == "" {
		return s, utils.E(utils.CodeInvalidArgument, op, "answer text or transcript is required", nil)
	}
	if a.TimeSpentSeconds < 0 {
		return s, utils.E(utils.CodeInvalidArgument, op, "time_spent_seconds must be >= 0", nil)
	}

	out := Clone(s)
	ts := lastEventTime(out, now)
	slot := &out.Questions[idx]

	if out.Progress.LastWasFollowUp {
		pos := followUpPos(out.FollowUps, out.Progress.CurrentFollowUpID)
		if pos < 0 || out.FollowUps[pos].Answer != "" {
			return s, utils.E(utils.CodeNoCurrentQuestion, op, "pending follow-up not found", nil)
		}
		out.FollowUps[pos].Answer = text
		out.FollowUps[pos].Transcript = transcript
		if a.AudioURL != "" {
			out.FollowUps[pos].AudioURL = a.AudioURL
		}
		slot.TimeSpentSeconds += a.TimeSpentSeconds
	} else {
		if slot.Answered {
			return s, utils.E(utils.CodeNoCurrentQuestion, op, "current question is already answered", nil)
		}
		slot.Answer = text
		slot.Transcript = transcript
		slot.TimeSpentSeconds += a.TimeSpentSeconds
		if a.AudioURL != "" {
			slot.AudioURL = a.AudioURL
		}
		slot.Answered = true
		slot.AnsweredAt = timePtr(ts)
	}

	out.Conversation = appendEvent(out.Conversation, models.EventAnswer, text, idx, out.Progress.LastWasFollowUp, ts)
	out.UpdatedAt = ts
	return out, nil
}

// Complete closes a session whose cursor has reached the end.
func Complete(s models.InterviewSession, now time.Time) (models.InterviewSession, error) {
	const op = "engine.Complete"

	if s.Status != models.StatusInProgress {
		return s, rejected(op, "complete", s.Status)
	}
	if remaining := s.Config.TotalQuestions - s.Progress.CurrentIndex; remaining > 0 {
		return s, utils.E(utils.CodeInvalidTransition, op,
			fmt.Sprintf("cannot complete: %d question(s) remain", remaining), nil)
	}

	out := Clone(s)
	ts := lastEventTime(out, now)
	out.Status = models.StatusCompleted
	out.CompletedAt = timePtr(ts)
	out.Phase = models.PhaseClosing
	out.Progress.CurrentPrompt = ""
	out.Progress.CurrentFollowUpID = ""
	out.UpdatedAt = ts
	return out, nil
}

// AttachFeedback stores the feedback block. It can happen once, and only on a
// completed session.
func AttachFeedback(s models.InterviewSession, fb models.Feedback, now time.Time) (models.InterviewSession, error) {
	const op = "engine.AttachFeedback"

	if s.Status != models.StatusCompleted {
		return s, rejected(op, "attach feedback", s.Status)
	}
	if s.Feedback != nil {
		return s, utils.E(utils.CodeFeedbackAlreadyGenerated, op, "feedback was already generated for this session", nil)
	}

	out := Clone(s)
	now = now.UTC()
	fb.OverallScore = clampScore(fb.OverallScore)
	for i := range fb.DetailedAnalysis {
		fb.DetailedAnalysis[i].Score = clampScore(fb.DetailedAnalysis[i].Score)
	}
	if fb.GeneratedAt.IsZero() {
		fb.GeneratedAt = now
	}
	out.Feedback = &fb
	out.UpdatedAt = now
	return out, nil
}

// Cancel is terminal. Cancelling a cancelled session returns it unchanged.
func Cancel(s models.InterviewSession, now time.Time) (models.InterviewSession, error) {
	const op = "engine.Cancel"

	switch s.Status {
	case models.StatusCancelled:
		return s, nil
	case models.StatusCompleted:
		return s, rejected(op, "cancel", s.Status)
	}

	out := Clone(s)
	ts := lastEventTime(out, now)
	out.Status = models.StatusCancelled
	out.CancelledAt = timePtr(ts)
	out.Progress.CurrentPrompt = ""
	out.Progress.CurrentFollowUpID = ""
	out.UpdatedAt = ts
	return out, nil
}

// PhaseFor picks the advisory phase for the main question at idx.
func PhaseFor(cfg models.InterviewConfig, idx int) models.InterviewPhase {
	total := cfg.TotalQuestions
	switch {
	case total > 1 && idx == 0:
		return models.PhaseIntroduction
	case total > 2 && idx == total-1:
		return models.PhaseClosing
	}

	switch cfg.InterviewType {
	case models.TypeBehavioral:
		return models.PhaseBehavioral
	case models.TypeTechnical:
		return models.PhaseTechnical
	}
	// mixed: technical first, behavioral in the second half
	if idx*2 < total {
		return models.PhaseTechnical
	}
	return models.PhaseBehavioral
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
