package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	"github.com/yoockh/mockinterview/internal/repositories"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

// ArchiveService copies finished interviews into Postgres for transcript and
// history queries.
type ArchiveService interface {
	Archive(ctx context.Context, sessionID string) error
	Transcript(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
	History(ctx context.Context, userID string, limit, offset int) ([]models.InterviewResult, error)
}

type archiveService struct {
	sessions repositories.InterviewRepository
	convos   pgrepo.ConversationRepo
	results  pgrepo.ResultRepo
	embedder llm.Embedder
	log      *logrus.Logger
	now      func() time.Time
}

// NewArchiveService archives without embeddings when embedder is nil.
func NewArchiveService(sessions repositories.InterviewRepository, convos pgrepo.ConversationRepo, results pgrepo.ResultRepo, embedder llm.Embedder, log *logrus.Logger) ArchiveService {
	if log == nil {
		log = logrus.New()
	}
	return &archiveService{
		sessions: sessions,
		convos:   convos,
		results:  results,
		embedder: embedder,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Archive is safe to repeat: log rows are keyed by (session_id, seq) and the
// result row is upserted.
func (s *archiveService) Archive(ctx context.Context, sessionID string) error {
	const op = "ArchiveService.Archive"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	if sess.Status != models.StatusCompleted {
		return utils.E(utils.CodeInvalidTransition, op, "cannot archive: session is "+string(sess.Status), nil)
	}

	rows := transcriptRows(sess)
	s.embedAnswers(ctx, rows)
	if err := s.convos.InsertBatch(ctx, rows); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert conversation logs", err)
	}

	res, err := resultRow(sess, s.now())
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to encode feedback", err)
	}
	if err := s.results.Upsert(ctx, res); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to save interview result", err)
	}
	return nil
}

func (s *archiveService) Transcript(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	const op = "ArchiveService.Transcript"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id are required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	return rows, nil
}

func (s *archiveService) History(ctx context.Context, userID string, limit, offset int) ([]models.InterviewResult, error) {
	const op = "ArchiveService.History"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	rows, err := s.results.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list interview results", err)
	}
	return rows, nil
}

// embedAnswers fills Embedding on candidate rows. A failed or malformed
// embedding leaves the row without one; the transcript is archived regardless.
func (s *archiveService) embedAnswers(ctx context.Context, rows []models.ConversationLog) {
	if s.embedder == nil {
		return
	}
	for i := range rows {
		if rows[i].Role != models.RoleCandidate || strings.TrimSpace(rows[i].Content) == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, rows[i].Content)
		if err == nil && len(vec) != llm.EmbeddingDims {
			err = fmt.Errorf("embedding has %d dims, want %d", len(vec), llm.EmbeddingDims)
		}
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"session_id": rows[i].SessionID,
				"seq":        rows[i].Seq,
			}).Warn("answer embedding skipped")
			if ctx.Err() != nil {
				return
			}
			continue
		}
		v := pgvector.NewVector(vec)
		rows[i].Embedding = &v
	}
}

func transcriptRows(sess *models.InterviewSession) []models.ConversationLog {
	rows := make([]models.ConversationLog, 0, len(sess.Conversation))
	for _, ev := range sess.Conversation {
		md, _ := json.Marshal(map[string]any{
			"phase":       engine.PhaseFor(sess.Config, ev.QuestionIndex),
			"target_role": sess.Config.TargetRole,
		})
		rows = append(rows, models.ConversationLog{
			ID:            uuid.NewSHA1(uuid.NameSpaceOID, []byte(sess.SessionID+":"+strconv.Itoa(ev.Seq))).String(),
			UserID:        sess.UserID,
			SessionID:     sess.SessionID,
			Seq:           ev.Seq,
			Kind:          ev.Kind,
			Role:          models.RoleFor(ev.Kind),
			Content:       ev.Content,
			QuestionIndex: ev.QuestionIndex,
			IsFollowUp:    ev.IsFollowUp,
			Timestamp:     ev.Timestamp,
			Metadata:      datatypes.JSON(md),
		})
	}
	return rows
}

func resultRow(sess *models.InterviewSession, now time.Time) (*models.InterviewResult, error) {
	res := &models.InterviewResult{
		SessionID:      sess.SessionID,
		UserID:         sess.UserID,
		TargetRole:     sess.Config.TargetRole,
		InterviewType:  sess.Config.InterviewType,
		Difficulty:     sess.Config.Difficulty,
		Skills:         pq.StringArray(append([]string{}, sess.Config.Skills...)),
		TotalQuestions: sess.Config.TotalQuestions,
		FollowUpsAsked: sess.Progress.FollowUpsAsked,
		StartedAt:      sess.StartedAt,
		CompletedAt:    sess.UpdatedAt,
		ArchivedAt:     now,
		Feedback:       datatypes.JSON("null"),
	}
	if sess.CompletedAt != nil {
		res.CompletedAt = *sess.CompletedAt
		if sess.StartedAt != nil {
			res.DurationSeconds = int64(sess.CompletedAt.Sub(*sess.StartedAt).Seconds())
		}
	}
	if sess.Feedback != nil {
		b, err := json.Marshal(sess.Feedback)
		if err != nil {
			return nil, err
		}
		res.Feedback = datatypes.JSON(b)
		res.OverallScore = sess.Feedback.OverallScore
		res.Degraded = sess.Feedback.Degraded
	}
	return res, nil
}
