package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/ai"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/utils"
)

type memUploader struct {
	objects map[string][]byte
	err     error
}

func (u *memUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[name] = b
	return "gs://answers/" + name, nil
}

func (u *memUploader) SignedGetURL(_ context.Context, name string, _ time.Duration) (string, error) {
	if _, ok := u.objects[name]; !ok {
		return "", errors.New("no such object")
	}
	return "https://signed.example/" + name, nil
}

type fakeSTT struct {
	text string
	err  error
	got  stt.Audio
}

func (f *fakeSTT) Transcribe(_ context.Context, a stt.Audio) (string, float64, error) {
	f.got = a
	return f.text, 0.9, f.err
}

func (*fakeSTT) Close() error { return nil }

func TestAudioAnswerRecordsTranscript(t *testing.T) {
	f := newFixture(t, nil)
	s := f.started(t, 2, 1)
	up := &memUploader{}
	speech := &fakeSTT{text: "I would shard by tenant."}
	log, _ := test.NewNullLogger()
	svc := NewAudioAnswerService(f.svc, up, up, speech, log)
	ctx := context.Background()

	res, err := svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{
		Content:          []byte("RIFF....WAVE"),
		ContentType:      "audio/wav",
		Language:         "en",
		TimeSpentSeconds: 35,
	})
	require.NoError(t, err)

	slot := res.Session.Questions[0]
	assert.Equal(t, "I would shard by tenant.", slot.Answer)
	assert.Equal(t, "I would shard by tenant.", slot.Transcript)
	assert.Equal(t, 35, slot.TimeSpentSeconds)
	assert.Contains(t, slot.AudioURL, "gs://answers/interviews/"+s.SessionID+"/q01-")
	assert.Equal(t, "audio/wav", speech.got.ContentType)
	assert.Len(t, up.objects, 1)

	url, err := svc.RecordingURL(ctx, "user-1", s.SessionID, "0")
	require.NoError(t, err)
	assert.Contains(t, url, "https://signed.example/interviews/")

	_, err = svc.RecordingURL(ctx, "user-1", s.SessionID, "1")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestAudioFollowUpAnswerKeepsRecording(t *testing.T) {
	f := newFixture(t, nil)
	s := f.started(t, 2, 1)
	up := &memUploader{}
	speech := &fakeSTT{text: "I led the migration."}
	log, _ := test.NewNullLogger()
	svc := NewAudioAnswerService(f.svc, up, up, speech, log)
	ctx := context.Background()

	f.oracle.script = []ai.Judgment{warranted("Why that order?"), {QualityTier: ai.QualityGood}}

	res, err := svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{Content: []byte("main"), ContentType: "audio/webm"})
	require.NoError(t, err)
	require.True(t, res.Session.Progress.LastWasFollowUp)
	fuID := res.Session.Progress.CurrentFollowUpID

	speech.text = "Because reads dominate."
	res, err = svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{Content: []byte("follow-up"), ContentType: "audio/webm"})
	require.NoError(t, err)

	require.Len(t, res.Session.FollowUps, 1)
	fu := res.Session.FollowUps[0]
	assert.Equal(t, fuID, fu.ID)
	assert.Equal(t, "Because reads dominate.", fu.Transcript)
	assert.Contains(t, fu.AudioURL, "gs://answers/interviews/"+s.SessionID+"/"+fuID+"-")
	assert.Contains(t, res.Session.Questions[0].AudioURL, "/q01-")
	assert.Len(t, up.objects, 2)

	url, err := svc.RecordingURL(ctx, "user-1", s.SessionID, fuID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/"+objectFromURL(fu.AudioURL), url)

	mainURL, err := svc.RecordingURL(ctx, "user-1", s.SessionID, "0")
	require.NoError(t, err)
	assert.NotEqual(t, url, mainURL)

	_, err = svc.RecordingURL(ctx, "user-1", s.SessionID, "fu-9-9")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
	_, err = svc.RecordingURL(ctx, "user-1", s.SessionID, " ")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestAudioAnswerUploadFailureStillRecords(t *testing.T) {
	f := newFixture(t, nil)
	s := f.started(t, 2, 1)
	log, _ := test.NewNullLogger()
	svc := NewAudioAnswerService(f.svc, &memUploader{err: errors.New("bucket gone")}, nil, &fakeSTT{text: "answer"}, log)

	res, err := svc.Submit(context.Background(), "user-1", s.SessionID, AudioAnswer{Content: []byte("x"), ContentType: "audio/webm"})
	require.NoError(t, err)
	assert.Empty(t, res.Session.Questions[0].AudioURL)
	assert.Equal(t, 1, res.Session.Progress.CurrentIndex)
}

func TestAudioAnswerRejections(t *testing.T) {
	f := newFixture(t, nil)
	log, _ := test.NewNullLogger()
	ctx := context.Background()

	svc := NewAudioAnswerService(f.svc, nil, nil, &fakeSTT{text: ""}, log)
	s := f.started(t, 2, 1)

	_, err := svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{Content: make([]byte, MaxAnswerAudioBytes+1)})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{Content: []byte("silence")})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	svc = NewAudioAnswerService(f.svc, nil, nil, &fakeSTT{err: errors.New("stt down")}, log)
	_, err = svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{Content: []byte("x")})
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))

	draft, err := f.svc.Create(ctx, "user-1", testConfig(1, 1))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "user-1", draft.SessionID, AudioAnswer{Content: []byte("x")})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidTransition))

	_, err = f.svc.Cancel(ctx, "user-1", s.SessionID)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "user-1", s.SessionID, AudioAnswer{Content: []byte("x")})
	assert.True(t, utils.IsCode(err, utils.CodeSessionClosed))

	stored, err := f.repo.GetBySessionID(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Empty(t, stored.Questions[0].Answer)

	_, err = NewAudioAnswerService(f.svc, nil, nil, nil, log).RecordingURL(ctx, "user-1", s.SessionID, "0")
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}
