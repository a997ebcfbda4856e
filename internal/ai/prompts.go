package ai

import (
	"fmt"
	"strings"

	"github.com/yoockh/mockinterview/internal/models"
)

func writeCandidate(b *strings.Builder, cfg models.InterviewConfig) {
	b.WriteString("CANDIDATE PROFILE:\n")
	fmt.Fprintf(b, "- Target role: %s\n", cfg.TargetRole)
	fmt.Fprintf(b, "- Interview type: %s\n", cfg.InterviewType)
	fmt.Fprintf(b, "- Difficulty: %s\n", cfg.Difficulty)
	fmt.Fprintf(b, "- Years of experience: %d\n", cfg.YearsOfExperience)
	if len(cfg.Skills) > 0 {
		fmt.Fprintf(b, "- Skills: %s\n", strings.Join(cfg.Skills, ", "))
	}
	b.WriteString("\n")
}

func judgePrompt(in JudgeInput) string {
	var b strings.Builder

	b.WriteString("You are an experienced interviewer evaluating one answer in a mock interview.\n\n")
	writeCandidate(&b, in.Config)

	kind := "main question"
	if in.IsFollowUp {
		kind = fmt.Sprintf("follow-up question (depth %d)", in.Depth)
	}
	fmt.Fprintf(&b, "QUESTION (%s):\n%s\n\n", kind, in.Question)
	fmt.Fprintf(&b, "ANSWER:\n%s\n\n", in.Answer)

	b.WriteString("Decide whether a follow-up question would reveal something important that the answer left out.\n")
	b.WriteString("Reply with JSON only, no prose, using exactly these keys:\n")
	b.WriteString(`{"quality_tier":"poor|fair|good|excellent","completeness_tier":"incomplete|partial|complete","follow_up_warranted":true,"reasoning":"one sentence","candidate_follow_ups":["question"]}`)
	b.WriteString("\nGive at most 3 candidate follow-ups, most useful first. Leave the list empty when no follow-up is warranted.")
	return b.String()
}

func questionPrompt(req QuestionRequest) string {
	var b strings.Builder

	b.WriteString("You are conducting a mock job interview. Ask the next main question.\n\n")
	writeCandidate(&b, req.Config)

	fmt.Fprintf(&b, "This is question %d of %d. Current phase: %s.\n", req.Index+1, req.Config.TotalQuestions, req.Phase)
	if len(req.Previous) > 0 {
		b.WriteString("Questions already asked (do not repeat them):\n")
		for i, q := range req.Previous {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	if req.LastAnswer != "" {
		fmt.Fprintf(&b, "\nThe candidate's previous answer:\n%s\n", req.LastAnswer)
	}
	b.WriteString("\nReply with the question text only. One question, no numbering, no preamble.")
	return b.String()
}

func feedbackPrompt(s models.InterviewSession) string {
	var b strings.Builder

	b.WriteString("You are an interview coach. Assess the complete mock interview transcript below.\n\n")
	writeCandidate(&b, s.Config)

	b.WriteString("TRANSCRIPT:\n")
	for _, ev := range s.Conversation {
		who := "Interviewer"
		if ev.Kind == models.EventAnswer {
			who = "Candidate"
		}
		label := ""
		if ev.IsFollowUp {
			label = " (follow-up)"
		}
		fmt.Fprintf(&b, "[Q%d] %s%s: %s\n", ev.QuestionIndex+1, who, label, ev.Content)
	}

	b.WriteString("\nReply with JSON only, no prose, using exactly these keys:\n")
	b.WriteString(`{"strengths":["..."],"weaknesses":["..."],"suggestions":["..."],"overall_score":0,"summary":"...","detailed_analysis":[{"dimension":"communication","score":0,"comment":"..."}]}`)
	b.WriteString("\nScores are integers from 0 to 100. Cover the dimensions communication, technical_depth and problem_solving.")
	return b.String()
}
