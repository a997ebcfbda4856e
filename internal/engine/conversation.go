package engine

import (
	"time"

	"github.com/yoockh/mockinterview/internal/models"
)

// appendEvent adds one event to the end of the log. Seq follows call order and
// the timestamp is clamped so it never precedes the previous event.
func appendEvent(log []models.ConversationEvent, kind models.EventKind, content string, index int, followUp bool, now time.Time) []models.ConversationEvent {
	ts := now.UTC()
	if n := len(log); n > 0 && ts.Before(log[n-1].Timestamp) {
		ts = log[n-1].Timestamp
	}
	return append(log, models.ConversationEvent{
		Seq:           len(log) + 1,
		Kind:          kind,
		Content:       content,
		Timestamp:     ts,
		QuestionIndex: index,
		IsFollowUp:    followUp,
	})
}

// lastEventTime is the lower bound for any timestamp written next.
func lastEventTime(s models.InterviewSession, now time.Time) time.Time {
	now = now.UTC()
	if n := len(s.Conversation); n > 0 && now.Before(s.Conversation[n-1].Timestamp) {
		return s.Conversation[n-1].Timestamp
	}
	return now
}
