package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/api/middleware"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/repositories/memory"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

// fakeAuth stands in for JWTAuth: X-User and X-Role headers become the identity.
func fakeAuth(c *gin.Context) {
	if u := c.GetHeader("X-User"); u != "" {
		c.Set("user_id", u)
		role := c.GetHeader("X-Role")
		if role == "" {
			role = "user"
		}
		c.Set("role", role)
	}
	c.Next()
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, _ := test.NewNullLogger()
	svc := services.NewInterviewService(services.InterviewDeps{
		Repo:   memory.NewSessionRepo(),
		Logger: log,
	})
	h := NewInterviewHandler(svc, nil)

	r := gin.New()
	auth := r.Group("/", fakeAuth)
	auth.POST("/interviews", h.Create)
	auth.GET("/interviews", h.List)
	auth.GET("/interviews/:session_id", h.Get)
	auth.POST("/interviews/:session_id/start", h.Start)
	auth.POST("/interviews/:session_id/answer", h.Answer)
	auth.POST("/interviews/:session_id/answer/audio", h.AnswerAudio)
	auth.POST("/interviews/:session_id/complete", h.Complete)
	auth.POST("/interviews/:session_id/cancel", h.Cancel)
	auth.GET("/admin/interviews/:session_id", middleware.RequireAdmin(), h.AdminGet)
	return r
}

func do(r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type sessionBody struct {
	SessionID    string                 `json:"session_id"`
	Status       models.InterviewStatus `json:"status"`
	Feedback     *models.Feedback       `json:"feedback"`
	Progress     models.Progress        `json:"progress"`
	ProgressView models.ProgressView    `json:"progress_view"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createStarted(t *testing.T, r http.Handler, total int) string {
	t.Helper()
	w := do(r, http.MethodPost, "/interviews", "user-1", gin.H{"target_role": "Backend Engineer", "total_questions": total, "max_follow_up_depth": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[sessionBody](t, w)
	assert.Equal(t, models.StatusDraft, created.Status)

	w = do(r, http.MethodPost, "/interviews/"+created.SessionID+"/start", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	started := decode[sessionBody](t, w)
	assert.Equal(t, models.StatusInProgress, started.Status)
	assert.NotEmpty(t, started.Progress.CurrentPrompt)
	return created.SessionID
}

func TestInterviewHTTPFlow(t *testing.T) {
	r := newRouter(t)
	id := createStarted(t, r, 2)

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/interviews/"+id+"/answer", "user-1", gin.H{"answer": "an answer", "time_spent_seconds": 30})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(r, http.MethodGet, "/interviews/"+id, "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[sessionBody](t, w)
	assert.Equal(t, 2, got.ProgressView.Answered)
	assert.Equal(t, 0, got.ProgressView.Remaining)

	w = do(r, http.MethodPost, "/interviews/"+id+"/complete", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[sessionBody](t, w)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.Feedback)
	// no synthesizer configured
	assert.True(t, done.Feedback.Degraded)

	w = do(r, http.MethodPost, "/interviews/"+id+"/answer", "user-1", gin.H{"answer": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeSessionClosed, decode[APIError](t, w).Code)

	w = do(r, http.MethodGet, "/interviews?status=completed", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Interviews []sessionBody `json:"interviews"`
	}](t, w)
	require.Len(t, list.Interviews, 1)
	assert.Equal(t, id, list.Interviews[0].SessionID)
}

func TestInterviewHTTPErrors(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/interviews", "", gin.H{"target_role": "x", "total_questions": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/interviews", "user-1", gin.H{"total_questions": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/interviews", "user-1", gin.H{"target_role": "x", "total_questions": 1, "interview_type": "poetry"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/interviews/missing", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := createStarted(t, r, 1)

	w = do(r, http.MethodGet, "/interviews/"+id, "user-2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/interviews/"+id+"/start", "user-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeInvalidTransition, decode[APIError](t, w).Code)

	w = do(r, http.MethodPost, "/interviews/"+id+"/answer", "user-1", gin.H{"answer": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/interviews/"+id+"/complete", "user-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/interviews/"+id+"/cancel", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCancelled, decode[sessionBody](t, w).Status)

	w = do(r, http.MethodPost, "/interviews/"+id+"/cancel", "user-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGet(t *testing.T) {
	r := newRouter(t)
	id := createStarted(t, r, 1)

	req := httptest.NewRequest(http.MethodGet, "/admin/interviews/"+id, nil)
	req.Header.Set("X-User", "ops")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/interviews/"+id, nil)
	req.Header.Set("X-User", "ops")
	req.Header.Set("X-Role", "admin")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[sessionBody](t, w).SessionID)
}

func TestAnswerAudioDisabled(t *testing.T) {
	r := newRouter(t)
	id := createStarted(t, r, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "answer.wav")
	require.NoError(t, err)
	_, _ = part.Write([]byte("RIFF"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/interviews/"+id+"/answer/audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User", "user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, utils.CodeUnavailable, decode[APIError](t, w).Code)
}

func TestWebSocketOriginCheck(t *testing.T) {
	allowed := []string{"https://app.example.com/", "http://localhost:3000"}
	cases := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"", allowed, true},
		{"https://api.example.com", nil, true},
		{"https://app.example.com", allowed, true},
		{"HTTP://LOCALHOST:3000", allowed, true},
		{"https://evil.example", allowed, false},
		{"https://evil.example", nil, false},
		{"https://evil.example", []string{"*"}, true},
		{"not a url", allowed, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://api.example.com/ws/interviews/s1", nil)
		req.Host = "api.example.com"
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.want, originAllowed(req, tc.allowed), tc.origin)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	svc := services.NewInterviewService(services.InterviewDeps{Repo: memory.NewSessionRepo(), Logger: log})
	s, err := svc.Create(context.Background(), "user-1", models.InterviewConfig{TargetRole: "SRE", TotalQuestions: 1})
	require.NoError(t, err)

	h := NewWSHandler(svc, nil, []string{"https://app.example.com"})
	r := gin.New()
	r.GET("/ws/interviews/:session_id", fakeAuth, h.SessionWS)

	req := httptest.NewRequest(http.MethodGet, "/ws/interviews/"+s.SessionID, nil)
	req.Header.Set("X-User", "user-1")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
