package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

// Signal is the part of an answer judgment the tracker acts on.
type Signal struct {
	FollowUpWarranted bool
	Candidates        []string
}

type DecisionKind string

const (
	DecisionAdvance  DecisionKind = "advance"
	DecisionFollowUp DecisionKind = "follow_up"
)

// Decision is what happens after an answer. For a follow-up, QueuePos points at
// the candidate to serve, counted after Enqueue has been appended to the queue.
type Decision struct {
	Kind     DecisionKind
	Reason   string
	Enqueue  []string
	QueuePos int
}

const (
	ReasonNotWarranted = "follow-up not warranted"
	ReasonDepthLimit   = "follow-up depth limit reached"
	ReasonNoCandidate  = "no follow-up candidate available"
	ReasonQueued       = "queued follow-up"
	ReasonOracle       = "oracle follow-up"
)

// Decide applies the follow-up rule for the current topic. A warranted
// follow-up with no candidate anywhere advances instead of blocking.
func Decide(s models.InterviewSession, sig Signal) Decision {
	if !sig.FollowUpWarranted {
		return Decision{Kind: DecisionAdvance, Reason: ReasonNotWarranted}
	}
	if s.Progress.CurrentDepth >= s.Config.MaxFollowUpDepth {
		return Decision{Kind: DecisionAdvance, Reason: ReasonDepthLimit}
	}

	if pos := nextCandidate(s.FollowUps, s.Progress.CurrentIndex); pos >= 0 {
		return Decision{Kind: DecisionFollowUp, Reason: ReasonQueued, QueuePos: pos}
	}

	fresh := make([]string, 0, len(sig.Candidates))
	for _, c := range sig.Candidates {
		if c = strings.TrimSpace(c); c != "" {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return Decision{Kind: DecisionAdvance, Reason: ReasonNoCandidate}
	}
	return Decision{Kind: DecisionFollowUp, Reason: ReasonOracle, Enqueue: fresh, QueuePos: len(s.FollowUps)}
}

// Apply carries out a decision. Advancing past the last slot completes the
// session; asking the next main question is left to AskMain.
func Apply(s models.InterviewSession, d Decision, now time.Time) (models.InterviewSession, error) {
	const op = "engine.Apply"

	if s.Status != models.StatusInProgress {
		return s, rejected(op, "advance", s.Status)
	}

	switch d.Kind {
	case DecisionAdvance:
		return advance(s, now)
	case DecisionFollowUp:
		return askFollowUp(s, d, now)
	default:
		return s, utils.E(utils.CodeInternal, op, fmt.Sprintf("unknown decision %q", d.Kind), nil)
	}
}

func advance(s models.InterviewSession, now time.Time) (models.InterviewSession, error) {
	if s.Progress.CurrentIndex >= s.Config.TotalQuestions {
		return s, utils.E(utils.CodeNoCurrentQuestion, "engine.Apply", "no main question left to advance from", nil)
	}

	out := Clone(s)
	out.Progress.CurrentIndex++
	out.Progress.CurrentDepth = 0
	out.Progress.LastWasFollowUp = false
	out.Progress.CurrentPrompt = ""
	out.Progress.CurrentFollowUpID = ""
	out.UpdatedAt = lastEventTime(out, now)

	if out.Progress.CurrentIndex == out.Config.TotalQuestions {
		return Complete(out, now)
	}
	return out, nil
}

func askFollowUp(s models.InterviewSession, d Decision, now time.Time) (models.InterviewSession, error) {
	const op = "engine.Apply"

	out := Clone(s)
	idx := out.Progress.CurrentIndex
	for _, q := range d.Enqueue {
		out.FollowUps = append(out.FollowUps, models.FollowUpCandidate{
			ID:            fmt.Sprintf("fu-%d-%d", idx, len(out.FollowUps)+1),
			QuestionIndex: idx,
			Question:      q,
		})
	}

	pos := d.QueuePos
	if pos < 0 || pos >= len(out.FollowUps) || out.FollowUps[pos].Consumed || out.FollowUps[pos].QuestionIndex != idx {
		// stale decision; never block progress on it
		return advance(s, now)
	}

	ts := lastEventTime(out, now)
	c := &out.FollowUps[pos]
	c.Consumed = true
	c.AskedAt = timePtr(ts)

	out.Conversation = appendEvent(out.Conversation, models.EventFollowUp, c.Question, idx, true, ts)
	out.Progress.CurrentDepth++
	out.Progress.FollowUpsAsked++
	out.Progress.LastWasFollowUp = true
	out.Progress.CurrentPrompt = c.Question
	out.Progress.CurrentFollowUpID = c.ID
	out.UpdatedAt = ts

	if out.Progress.CurrentDepth > out.Config.MaxFollowUpDepth {
		return s, utils.E(utils.CodeInternal, op, "follow-up depth would exceed configured maximum", nil)
	}
	return out, nil
}

func nextCandidate(queue []models.FollowUpCandidate, idx int) int {
	for i, c := range queue {
		if c.QuestionIndex == idx && !c.Consumed {
			return i
		}
	}
	return -1
}

func followUpPos(queue []models.FollowUpCandidate, id string) int {
	if id == "" {
		return -1
	}
	for i, c := range queue {
		if c.ID == id {
			return i
		}
	}
	return -1
}
