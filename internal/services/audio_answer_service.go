package services

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/storage"
	"github.com/yoockh/mockinterview/internal/utils"
)

const MaxAnswerAudioBytes = 10 << 20

type AudioAnswer struct {
	Content          []byte
	ContentType      string
	Language         string
	TimeSpentSeconds int
}

// AudioAnswerService turns a recorded spoken answer into a RecordAnswer call.
type AudioAnswerService interface {
	Submit(ctx context.Context, userID, sessionID string, in AudioAnswer) (*AnswerResult, error)
	// RecordingURL signs the recording of a main answer (ref is its index) or
	// of a follow-up answer (ref is the follow-up id).
	RecordingURL(ctx context.Context, userID, sessionID, ref string) (string, error)
}

type audioAnswerService struct {
	interviews InterviewService
	uploader   storage.Uploader
	signer     storage.Signer
	stt        stt.Provider
	log        *logrus.Logger
}

func NewAudioAnswerService(interviews InterviewService, uploader storage.Uploader, signer storage.Signer, sttProvider stt.Provider, log *logrus.Logger) AudioAnswerService {
	if log == nil {
		log = logrus.New()
	}
	return &audioAnswerService{interviews: interviews, uploader: uploader, signer: signer, stt: sttProvider, log: log}
}

func (s *audioAnswerService) Submit(ctx context.Context, userID, sessionID string, in AudioAnswer) (*AnswerResult, error) {
	const op = "AudioAnswerService.Submit"

	if len(in.Content) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is required", nil)
	}
	if len(in.Content) > MaxAnswerAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio exceeds 10MB", nil)
	}
	if s.stt == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "speech transcription is not configured", nil)
	}

	// reject closed or foreign sessions before paying for upload and STT
	sess, err := s.interviews.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusInProgress {
		code := utils.CodeInvalidTransition
		if sess.Status.Closed() {
			code = utils.CodeSessionClosed
		}
		return nil, utils.E(code, op, "cannot record an answer: session is "+string(sess.Status), nil)
	}
	if sess.Progress.CurrentPrompt == "" {
		return nil, utils.E(utils.CodeNoCurrentQuestion, op, "there is no open question to answer", nil)
	}

	log := s.log.WithFields(logrus.Fields{"op": op, "session_id": sessionID, "index": sess.Progress.CurrentIndex})

	var audioURL string
	if s.uploader != nil {
		nonce := uuid.NewString()[:8]
		name := storage.AnswerObjectName(sessionID, sess.Progress.CurrentIndex, nonce, in.ContentType)
		if sess.Progress.LastWasFollowUp {
			name = storage.FollowUpObjectName(sessionID, sess.Progress.CurrentFollowUpID, nonce, in.ContentType)
		}
		audioURL, err = s.uploader.Upload(ctx, name, in.ContentType, bytes.NewReader(in.Content))
		if err != nil {
			// the transcript still counts as an answer without the recording
			log.WithError(err).Warn("answer audio upload failed")
			audioURL = ""
		}
	}

	text, conf, err := s.stt.Transcribe(ctx, stt.Audio{Content: in.Content, ContentType: in.ContentType, Language: in.Language})
	if err != nil {
		log.WithError(err).Error("stt failed")
		return nil, utils.E(utils.CodeUnavailable, op, "speech transcription failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no speech detected in audio", nil)
	}
	log.WithField("confidence", conf).Debug("answer transcribed")

	return s.interviews.RecordAnswer(ctx, userID, sessionID, engine.Answer{
		Transcript:       text,
		TimeSpentSeconds: in.TimeSpentSeconds,
		AudioURL:         audioURL,
	})
}

func (s *audioAnswerService) RecordingURL(ctx context.Context, userID, sessionID, ref string) (string, error) {
	const op = "AudioAnswerService.RecordingURL"

	if s.signer == nil {
		return "", utils.E(utils.CodeUnavailable, op, "recording storage is not configured", nil)
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "recording ref is required", nil)
	}
	sess, err := s.interviews.Get(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}

	stored := recordingOf(sess, ref)
	if stored == "" {
		return "", utils.E(utils.CodeNotFound, op, "no recording for this answer", nil)
	}

	object := objectFromURL(stored)
	url, err := s.signer.SignedGetURL(ctx, object, 15*time.Minute)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to sign recording url", err)
	}
	return url, nil
}

// recordingOf resolves a main question index or a follow-up id to the stored
// recording path, "" when there is none.
func recordingOf(sess *models.InterviewSession, ref string) string {
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 || idx >= len(sess.Questions) {
			return ""
		}
		return sess.Questions[idx].AudioURL
	}
	for _, fu := range sess.FollowUps {
		if fu.ID == ref {
			return fu.AudioURL
		}
	}
	return ""
}

// objectFromURL strips gs://<bucket>/ from a stored path.
func objectFromURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "gs://"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return rest[i+1:]
		}
	}
	return u
}
