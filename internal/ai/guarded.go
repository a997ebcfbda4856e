package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/metrics"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	collabOracle      = "oracle"
	collabSynthesizer = "synthesizer"
	collabQuestions   = "question_generator"
)

// Default call budgets, used when a guard is built with timeout <= 0.
const (
	DefaultOracleTimeout   = 8 * time.Second
	DefaultSynthTimeout    = 20 * time.Second
	DefaultQuestionTimeout = 8 * time.Second
)

func orDefault(timeout, def time.Duration) time.Duration {
	if timeout <= 0 {
		return def
	}
	return timeout
}

// callBounded runs call with a deadline. The call runs in its own goroutine so
// an implementation that ignores ctx still cannot hold the caller past timeout.
func callBounded[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (out T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := call(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return out, ctx.Err()
	}
}

// GuardedOracle never returns an error: failures and timeouts turn into
// FallbackJudgment.
type GuardedOracle struct {
	inner   Oracle
	timeout time.Duration
	log     *logrus.Logger
}

func NewGuardedOracle(inner Oracle, timeout time.Duration, log *logrus.Logger) *GuardedOracle {
	if log == nil {
		log = logrus.New()
	}
	return &GuardedOracle{inner: inner, timeout: orDefault(timeout, DefaultOracleTimeout), log: log}
}

func (g *GuardedOracle) Judge(ctx context.Context, in JudgeInput) (Judgment, error) {
	const op = "GuardedOracle.Judge"

	if g.inner == nil {
		return FallbackJudgment("oracle not configured"), nil
	}

	start := time.Now()
	j, err := callBounded(ctx, g.timeout, func(ctx context.Context) (Judgment, error) {
		return g.inner.Judge(ctx, in)
	})
	metrics.ObserveCollaborator(collabOracle, time.Since(start), err)
	if err != nil {
		metrics.ObserveFallback(collabOracle)
		g.log.WithError(utils.E(utils.CodeOracleUnavailable, op, "oracle call failed", err)).
			Warn("using fallback judgment")
		return FallbackJudgment("oracle unavailable: " + err.Error()), nil
	}
	return j.normalized(), nil
}

// GuardedSynthesizer never returns an error: failures turn into FallbackFeedback.
type GuardedSynthesizer struct {
	inner   Synthesizer
	timeout time.Duration
	log     *logrus.Logger
}

func NewGuardedSynthesizer(inner Synthesizer, timeout time.Duration, log *logrus.Logger) *GuardedSynthesizer {
	if log == nil {
		log = logrus.New()
	}
	return &GuardedSynthesizer{inner: inner, timeout: orDefault(timeout, DefaultSynthTimeout), log: log}
}

func (g *GuardedSynthesizer) Summarize(ctx context.Context, s models.InterviewSession) (FeedbackResult, error) {
	const op = "GuardedSynthesizer.Summarize"

	if g.inner == nil {
		return FallbackFeedback(s), nil
	}

	start := time.Now()
	fb, err := callBounded(ctx, g.timeout, func(ctx context.Context) (FeedbackResult, error) {
		return g.inner.Summarize(ctx, s)
	})
	metrics.ObserveCollaborator(collabSynthesizer, time.Since(start), err)
	if err != nil {
		metrics.ObserveFallback(collabSynthesizer)
		g.log.WithError(utils.E(utils.CodeSynthesizerUnavailable, op, "synthesizer call failed", err)).
			WithField("session_id", s.SessionID).
			Warn("using fallback feedback")
		return FallbackFeedback(s), nil
	}
	return fb, nil
}

// GuardedQuestions falls back to the question bank.
type GuardedQuestions struct {
	inner   QuestionGenerator
	bank    *Bank
	timeout time.Duration
	log     *logrus.Logger
}

func NewGuardedQuestions(inner QuestionGenerator, bank *Bank, timeout time.Duration, log *logrus.Logger) *GuardedQuestions {
	if bank == nil {
		bank = DefaultBank()
	}
	if log == nil {
		log = logrus.New()
	}
	return &GuardedQuestions{inner: inner, bank: bank, timeout: orDefault(timeout, DefaultQuestionTimeout), log: log}
}

func (g *GuardedQuestions) NextQuestion(ctx context.Context, req QuestionRequest) (string, error) {
	if g.inner == nil {
		return g.bank.Pick(req), nil
	}

	start := time.Now()
	q, err := callBounded(ctx, g.timeout, func(ctx context.Context) (string, error) {
		return g.inner.NextQuestion(ctx, req)
	})
	metrics.ObserveCollaborator(collabQuestions, time.Since(start), err)
	if err == nil && q != "" {
		return q, nil
	}
	if err == nil {
		err = fmt.Errorf("empty question")
	}
	metrics.ObserveFallback(collabQuestions)
	g.log.WithError(err).WithField("index", req.Index).Warn("question generation failed, using question bank")
	return g.bank.Pick(req), nil
}
