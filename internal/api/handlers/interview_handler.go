package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/repositories"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type InterviewHandler struct {
	svc   services.InterviewService
	audio services.AudioAnswerService
}

func NewInterviewHandler(svc services.InterviewService, audio services.AudioAnswerService) *InterviewHandler {
	return &InterviewHandler{svc: svc, audio: audio}
}

type CreateInterviewRequest struct {
	TargetRole        string   `json:"target_role" binding:"required"`
	InterviewType     string   `json:"interview_type"` // technical|behavioral|mixed
	Difficulty        string   `json:"difficulty"`     // easy|medium|hard
	Skills            []string `json:"skills"`
	YearsOfExperience int      `json:"years_of_experience"`
	TotalQuestions    int      `json:"total_questions" binding:"required"`
	MaxFollowUpDepth  *int     `json:"max_follow_up_depth"`
}

type AnswerRequest struct {
	Answer           string `json:"answer"`
	Transcript       string `json:"transcript"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

type InterviewResponse struct {
	*models.InterviewSession
	ProgressView models.ProgressView `json:"progress_view"`
}

func respond(c *gin.Context, status int, s *models.InterviewSession) {
	c.JSON(status, InterviewResponse{InterviewSession: s, ProgressView: s.View()})
}

func (h *InterviewHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Create", "invalid request body", err))
		return
	}

	cfg := models.InterviewConfig{
		TargetRole:        req.TargetRole,
		InterviewType:     req.InterviewType,
		Difficulty:        req.Difficulty,
		Skills:            req.Skills,
		YearsOfExperience: req.YearsOfExperience,
		TotalQuestions:    req.TotalQuestions,
	}
	if req.MaxFollowUpDepth != nil {
		cfg.MaxFollowUpDepth = *req.MaxFollowUpDepth
	}

	sess, err := h.svc.Create(c.Request.Context(), userID, cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, sess)
}

func (h *InterviewHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	status := models.InterviewStatus(c.Query("status"))
	limit := repositories.ClampLimit(queryInt(c, "limit", 0))
	offset := queryInt(c, "offset", 0)

	rows, err := h.svc.ListByUser(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interviews": rows,
		"limit":      limit,
		"offset":     offset,
	})
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Get(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (h *InterviewHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Start(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (h *InterviewHandler) Answer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Answer", "invalid request body", err))
		return
	}

	res, err := h.svc.RecordAnswer(c.Request.Context(), userID, c.Param("session_id"), engine.Answer{
		Text:             req.Answer,
		Transcript:       req.Transcript,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AnswerAudio accepts multipart form field "audio" plus optional "language" and
// "time_spent_seconds".
func (h *InterviewHandler) AnswerAudio(c *gin.Context) {
	const op = "InterviewHandler.AnswerAudio"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if h.audio == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "spoken answers are not enabled", nil))
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file is required", err))
		return
	}
	if fh.Size > services.MaxAnswerAudioBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio exceeds 10MB", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "cannot read audio", err))
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, services.MaxAnswerAudioBytes+1))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "cannot read audio", err))
		return
	}

	spent, _ := strconv.Atoi(c.PostForm("time_spent_seconds"))

	res, err := h.audio.Submit(c.Request.Context(), userID, c.Param("session_id"), services.AudioAnswer{
		Content:          content,
		ContentType:      fh.Header.Get("Content-Type"),
		Language:         c.PostForm("language"),
		TimeSpentSeconds: spent,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) Recording(c *gin.Context) {
	const op = "InterviewHandler.Recording"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if h.audio == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "spoken answers are not enabled", nil))
		return
	}

	// a main question index or a follow-up id such as fu-0-1
	url, err := h.audio.RecordingURL(c.Request.Context(), userID, c.Param("session_id"), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *InterviewHandler) Complete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.CompleteAndFeedback(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

func (h *InterviewHandler) Cancel(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Cancel(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}

// AdminGet skips the ownership check; the route is behind RequireAdmin.
func (h *InterviewHandler) AdminGet(c *gin.Context) {
	sess, err := h.svc.Lookup(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, sess)
}
