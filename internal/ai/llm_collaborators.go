package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
)

var errNoJSON = errors.New("reply does not contain a JSON object")

// extractJSON pulls the outermost JSON object out of a model reply, which may
// be wrapped in a markdown code fence or surrounded by prose.
func extractJSON(reply string) ([]byte, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	return []byte(reply[start : end+1]), nil
}

// LLMOracle judges answers with a language model.
type LLMOracle struct {
	p llm.Provider
}

func NewLLMOracle(p llm.Provider) *LLMOracle { return &LLMOracle{p: p} }

func (o *LLMOracle) Judge(ctx context.Context, in JudgeInput) (Judgment, error) {
	reply, err := llm.Complete(ctx, o.p, judgePrompt(in))
	if err != nil {
		return Judgment{}, err
	}
	return parseJudgment(reply)
}

func parseJudgment(reply string) (Judgment, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return Judgment{}, err
	}
	var j Judgment
	if err := json.Unmarshal(raw, &j); err != nil {
		return Judgment{}, fmt.Errorf("decode judgment: %w", err)
	}
	return j.normalized(), nil
}

// LLMSynthesizer writes final feedback with a language model.
type LLMSynthesizer struct {
	p llm.Provider
}

func NewLLMSynthesizer(p llm.Provider) *LLMSynthesizer { return &LLMSynthesizer{p: p} }

func (s *LLMSynthesizer) Summarize(ctx context.Context, transcript models.InterviewSession) (FeedbackResult, error) {
	reply, err := llm.Complete(ctx, s.p, feedbackPrompt(transcript))
	if err != nil {
		return FeedbackResult{}, err
	}
	return parseFeedback(reply)
}

func parseFeedback(reply string) (FeedbackResult, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return FeedbackResult{}, err
	}
	var fb FeedbackResult
	if err := json.Unmarshal(raw, &fb); err != nil {
		return FeedbackResult{}, fmt.Errorf("decode feedback: %w", err)
	}
	if strings.TrimSpace(fb.Summary) == "" {
		return FeedbackResult{}, errors.New("feedback summary is empty")
	}
	if fb.OverallScore < 0 || fb.OverallScore > 100 {
		return FeedbackResult{}, fmt.Errorf("overall_score %d out of range", fb.OverallScore)
	}
	return fb, nil
}

// LLMQuestions asks a language model for the next main question.
type LLMQuestions struct {
	p llm.Provider
}

func NewLLMQuestions(p llm.Provider) *LLMQuestions { return &LLMQuestions{p: p} }

func (q *LLMQuestions) NextQuestion(ctx context.Context, req QuestionRequest) (string, error) {
	reply, err := llm.Complete(ctx, q.p, questionPrompt(req))
	if err != nil {
		return "", err
	}
	return cleanQuestion(reply), nil
}

// cleanQuestion keeps the first non-empty line of the reply, skipping code
// fence lines and stripping quotes.
func cleanQuestion(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.TrimSpace(strings.Trim(line, "`\""))
		if line != "" {
			return line
		}
	}
	return ""
}
