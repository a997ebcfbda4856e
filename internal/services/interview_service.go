package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/ai"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/events"
	"github.com/yoockh/mockinterview/internal/lock"
	"github.com/yoockh/mockinterview/internal/metrics"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/repositories"
	"github.com/yoockh/mockinterview/internal/utils"
)

type InterviewService interface {
	Create(ctx context.Context, userID string, cfg models.InterviewConfig) (*models.InterviewSession, error)
	Start(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	RecordAnswer(ctx context.Context, userID, sessionID string, a engine.Answer) (*AnswerResult, error)
	CompleteAndFeedback(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	Cancel(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)

	Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	// Lookup reads a session without an ownership check (admin use).
	Lookup(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	ListByUser(ctx context.Context, userID string, status models.InterviewStatus, limit, offset int) ([]models.InterviewSession, error)
}

// AnswerResult is the outcome of one recorded answer.
type AnswerResult struct {
	Session  *models.InterviewSession `json:"session"`
	Progress models.ProgressView      `json:"progress"`
	Judgment ai.Judgment              `json:"judgment"`
	Decision engine.Decision          `json:"decision"`
}

type InterviewDeps struct {
	Repo      repositories.InterviewRepository
	Locker    lock.Locker
	Cache     cache.Cache
	Events    events.Publisher
	Oracle    ai.Oracle
	Synth     ai.Synthesizer
	Questions ai.QuestionGenerator
	Logger    *logrus.Logger

	LockWait time.Duration
	CacheTTL time.Duration
	Now      func() time.Time
}

type interviewService struct {
	repo      repositories.InterviewRepository
	locker    lock.Locker
	cache     cache.Cache
	events    events.Publisher
	oracle    ai.Oracle
	synth     ai.Synthesizer
	questions ai.QuestionGenerator
	log       *logrus.Logger

	lockWait time.Duration
	cacheTTL time.Duration
	now      func() time.Time
}

// NewInterviewService fills unset collaborators with in-process defaults. The
// AI collaborators are expected to be guarded already; bare ones are wrapped.
func NewInterviewService(d InterviewDeps) InterviewService {
	s := &interviewService{
		repo:      d.Repo,
		locker:    d.Locker,
		cache:     d.Cache,
		events:    d.Events,
		oracle:    d.Oracle,
		synth:     d.Synth,
		questions: d.Questions,
		log:       d.Logger,
		lockWait:  d.LockWait,
		cacheTTL:  d.CacheTTL,
		now:       d.Now,
	}
	if s.log == nil {
		s.log = logrus.New()
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if _, ok := s.oracle.(*ai.GuardedOracle); !ok {
		s.oracle = ai.NewGuardedOracle(s.oracle, ai.DefaultOracleTimeout, s.log)
	}
	if _, ok := s.synth.(*ai.GuardedSynthesizer); !ok {
		s.synth = ai.NewGuardedSynthesizer(s.synth, ai.DefaultSynthTimeout, s.log)
	}
	if _, ok := s.questions.(*ai.GuardedQuestions); !ok {
		s.questions = ai.NewGuardedQuestions(s.questions, nil, ai.DefaultQuestionTimeout, s.log)
	}
	if s.lockWait <= 0 {
		s.lockWait = 30 * time.Second
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 10 * time.Minute
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *interviewService) Create(ctx context.Context, userID string, cfg models.InterviewConfig) (*models.InterviewSession, error) {
	const op = "InterviewService.Create"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	sess, err := engine.New(uuid.NewString(), userID, cfg, s.now())
	if err != nil {
		metrics.ObserveOperation("create", string(utils.CodeOf(err)))
		return nil, err
	}
	if err := s.repo.Create(ctx, &sess); err != nil {
		metrics.ObserveOperation("create", string(utils.CodeInternal))
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	metrics.ObserveOperation("create", "ok")
	s.log.WithFields(logrus.Fields{
		"op":              op,
		"session_id":      sess.SessionID,
		"user_id":         userID,
		"total_questions": sess.Config.TotalQuestions,
	}).Info("interview session created")
	return &sess, nil
}

func (s *interviewService) Start(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Start"

	return s.mutate(ctx, op, "start", userID, sessionID, func(ctx context.Context, cur models.InterviewSession) (models.InterviewSession, []string, error) {
		now := s.now()
		next, err := engine.Start(cur, now)
		if err != nil {
			return cur, nil, err
		}
		next, err = s.askNext(ctx, next, now)
		if err != nil {
			return cur, nil, err
		}
		return next, []string{events.TypeStarted, events.TypeQuestion}, nil
	})
}

func (s *interviewService) RecordAnswer(ctx context.Context, userID, sessionID string, a engine.Answer) (*AnswerResult, error) {
	const op = "InterviewService.RecordAnswer"

	res := &AnswerResult{}
	sess, err := s.mutate(ctx, op, "answer", userID, sessionID, func(ctx context.Context, cur models.InterviewSession) (models.InterviewSession, []string, error) {
		now := s.now()
		answered, err := engine.RecordAnswer(cur, a, now)
		if err != nil {
			return cur, nil, err
		}

		// the oracle never fails; a fallback judgment simply advances
		j, _ := s.oracle.Judge(ctx, ai.JudgeInput{
			Question:   cur.Progress.CurrentPrompt,
			Answer:     lastAnswer(answered),
			IsFollowUp: cur.Progress.LastWasFollowUp,
			Depth:      cur.Progress.CurrentDepth,
			Config:     cur.Config,
		})
		res.Judgment = j

		d := engine.Decide(answered, j.Signal())
		res.Decision = d

		next, err := engine.Apply(answered, d, now)
		if err != nil {
			return cur, nil, err
		}

		evs := []string{events.TypeAnswer}
		switch {
		case next.Status == models.StatusCompleted:
			next, err = s.attachFeedback(ctx, next)
			if err != nil {
				return cur, nil, err
			}
			evs = append(evs, events.TypeCompleted, events.TypeFeedback)
		case d.Kind == engine.DecisionFollowUp && next.Progress.LastWasFollowUp:
			evs = append(evs, events.TypeFollowUp)
		default:
			next, err = s.askNext(ctx, next, now)
			if err != nil {
				return cur, nil, err
			}
			evs = append(evs, events.TypeQuestion)
		}
		return next, evs, nil
	})
	if err != nil {
		return nil, err
	}

	res.Session = sess
	res.Progress = sess.View()
	return res, nil
}

func (s *interviewService) CompleteAndFeedback(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.CompleteAndFeedback"

	return s.mutate(ctx, op, "complete", userID, sessionID, func(ctx context.Context, cur models.InterviewSession) (models.InterviewSession, []string, error) {
		if cur.Status == models.StatusCompleted && cur.Feedback != nil {
			// already generated; repeat calls return the stored block
			return cur, nil, nil
		}

		next := cur
		var evs []string
		if cur.Status != models.StatusCompleted {
			var err error
			next, err = engine.Complete(cur, s.now())
			if err != nil {
				return cur, nil, err
			}
			evs = append(evs, events.TypeCompleted)
		}

		next, err := s.attachFeedback(ctx, next)
		if err != nil {
			return cur, nil, err
		}
		return next, append(evs, events.TypeFeedback), nil
	})
}

func (s *interviewService) Cancel(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Cancel"

	return s.mutate(ctx, op, "cancel", userID, sessionID, func(_ context.Context, cur models.InterviewSession) (models.InterviewSession, []string, error) {
		if cur.Status == models.StatusCancelled {
			return cur, nil, nil
		}
		next, err := engine.Cancel(cur, s.now())
		if err != nil {
			return cur, nil, err
		}
		return next, []string{events.TypeCancelled}, nil
	})
}

func (s *interviewService) Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Get"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	sess, err := s.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	return sess, nil
}

func (s *interviewService) Lookup(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Lookup"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	key := cache.SessionKey(sessionID)
	var cached models.InterviewSession
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("session cache read failed")
	} else if hit {
		return &cached, nil
	}

	sess, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	// the read is unlocked; a write that committed meanwhile has already
	// cached a newer version, which the guarded set leaves in place
	if _, err := s.cache.SetVersionedJSON(ctx, key, sess.Version, sess, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("session cache write failed")
	}
	return sess, nil
}

func (s *interviewService) ListByUser(ctx context.Context, userID string, status models.InterviewStatus, limit, offset int) ([]models.InterviewSession, error) {
	const op = "InterviewService.ListByUser"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	switch status {
	case "", models.StatusDraft, models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown status filter", nil)
	}
	if offset < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "offset must be >= 0", nil)
	}

	out, err := s.repo.List(ctx, repositories.ListFilter{UserID: userID, Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return out, nil
}

type stepFunc func(ctx context.Context, cur models.InterviewSession) (next models.InterviewSession, evs []string, err error)

// mutate runs one step under the session lock and persists the result with a
// version check. A step that returns no events made no change and is not
// written.
func (s *interviewService) mutate(ctx context.Context, op, action, userID, sessionID string, step stepFunc) (*models.InterviewSession, error) {
	sess, err := s.mutateLocked(ctx, op, userID, sessionID, step)
	result := "ok"
	if err != nil {
		result = string(utils.CodeOf(err))
	}
	metrics.ObserveOperation(action, result)
	return sess, err
}

func (s *interviewService) mutateLocked(ctx context.Context, op, userID, sessionID string, step stepFunc) (*models.InterviewSession, error) {
	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	lctx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Lock(lctx, sessionID)
	cancel()
	if err != nil {
		return nil, utils.E(utils.CodeTimeout, op, "session is busy, retry later", err)
	}
	defer release()

	cur, err := s.load(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if cur.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}

	next, evs, err := step(ctx, *cur)
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return cur, nil
	}

	if err := s.repo.Replace(ctx, &next); err != nil {
		if errors.Is(err, utils.ErrConflict) {
			return nil, utils.E(utils.CodeConflict, op, "session was modified concurrently, retry", err)
		}
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to save session", err)
	}

	s.afterWrite(ctx, op, cur, &next, evs)
	return &next, nil
}

// afterWrite runs the best-effort side effects of a persisted step.
func (s *interviewService) afterWrite(ctx context.Context, op string, prev, next *models.InterviewSession, evs []string) {
	log := s.log.WithFields(logrus.Fields{
		"op":         op,
		"session_id": next.SessionID,
		"status":     next.Status,
		"index":      next.Progress.CurrentIndex,
		"depth":      next.Progress.CurrentDepth,
		"version":    next.Version,
	})

	key := cache.SessionKey(next.SessionID)
	if _, err := s.cache.SetVersionedJSON(ctx, key, next.Version, next, s.cacheTTL); err != nil {
		log.WithError(err).Warn("session cache write failed, invalidating")
		if err := s.cache.Del(ctx, key); err != nil {
			log.WithError(err).Warn("session cache invalidation failed")
		}
	}
	for _, typ := range evs {
		if err := s.events.Publish(ctx, events.FromSession(typ, next)); err != nil {
			log.WithError(err).WithField("event", typ).Warn("event publish failed")
		}
	}
	if prev.Status != models.StatusCompleted && next.Status == models.StatusCompleted {
		if err := s.events.EnqueueCompleted(ctx, next.SessionID, next.UserID); err != nil {
			log.WithError(err).Error("failed to enqueue completed session for archiving")
		}
	}

	log.Info("interview session updated")
}

func (s *interviewService) load(ctx context.Context, op, sessionID string) (*models.InterviewSession, error) {
	sess, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return sess, nil
}

// askNext asks the main question for the current slot if it has none yet.
func (s *interviewService) askNext(ctx context.Context, sess models.InterviewSession, now time.Time) (models.InterviewSession, error) {
	if !engine.NeedsQuestion(sess) {
		return sess, nil
	}

	idx := sess.Progress.CurrentIndex
	req := ai.QuestionRequest{
		Config: sess.Config,
		Index:  idx,
		Phase:  engine.PhaseFor(sess.Config, idx),
	}
	for _, q := range sess.Questions[:idx] {
		req.Previous = append(req.Previous, q.Question)
	}
	if idx > 0 {
		req.LastAnswer = sess.Questions[idx-1].Answer
	}

	q, _ := s.questions.NextQuestion(ctx, req)
	return engine.AskMain(sess, q, now)
}

// attachFeedback calls the synthesizer once for a completed session.
func (s *interviewService) attachFeedback(ctx context.Context, sess models.InterviewSession) (models.InterviewSession, error) {
	fb, _ := s.synth.Summarize(ctx, engine.Clone(sess))
	return engine.AttachFeedback(sess, fb.ToModel(s.now()), s.now())
}

func lastAnswer(s models.InterviewSession) string {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Kind == models.EventAnswer {
			return s.Conversation[i].Content
		}
	}
	return ""
}
