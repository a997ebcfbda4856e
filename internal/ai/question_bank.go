package ai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yoockh/mockinterview/internal/models"
)

// Bank is the fallback question source used when generation fails. The
// default bank is the same for every role and interview type.
type Bank struct {
	Questions []string `yaml:"questions"`
}

var defaultQuestions = []string{
	"Tell me about yourself and what draws you to this role.",
	"Describe a challenging project you worked on. What was your contribution?",
	"Walk me through how you approach a problem you have never seen before.",
	"Tell me about a time you disagreed with a teammate. How did you resolve it?",
	"How do you make sure the quality of your work stays high under a tight deadline?",
	"Describe a mistake you made and what you learned from it.",
	"How do you keep your skills up to date?",
	"Tell me about a time you had to learn something new quickly.",
	"Describe a decision you made with incomplete information.",
	"Where do you see yourself growing in the next few years?",
}

func DefaultBank() *Bank {
	return &Bank{Questions: append([]string(nil), defaultQuestions...)}
}

// LoadBank reads a YAML file of the form `questions: [..]`.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", path, err)
	}

	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse question bank %s: %w", path, err)
	}

	qs := b.Questions[:0]
	for _, q := range b.Questions {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("question bank %s has no questions", path)
	}
	b.Questions = qs
	return &b, nil
}

// Pick returns the first bank question not already asked, starting at the
// slot index so consecutive slots get different questions.
func (b *Bank) Pick(req QuestionRequest) string {
	if b == nil || len(b.Questions) == 0 {
		return fallbackForPhase(req.Phase)
	}

	asked := make(map[string]struct{}, len(req.Previous))
	for _, p := range req.Previous {
		asked[strings.TrimSpace(p)] = struct{}{}
	}

	n := len(b.Questions)
	for i := 0; i < n; i++ {
		q := b.Questions[(req.Index+i)%n]
		if _, dup := asked[q]; !dup {
			return q
		}
	}
	return b.Questions[req.Index%n]
}

func fallbackForPhase(p models.InterviewPhase) string {
	if p == models.PhaseClosing {
		return "Is there anything else you would like to add before we finish?"
	}
	return defaultQuestions[0]
}
