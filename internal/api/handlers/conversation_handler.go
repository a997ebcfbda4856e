package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockinterview/internal/repositories"
	"github.com/yoockh/mockinterview/internal/services"
)

type ConversationHandler struct {
	svc services.ArchiveService
}

func NewConversationHandler(svc services.ArchiveService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// ListBySession returns the archived transcript, oldest first. Sessions that
// have not been archived yet return an empty list.
func (h *ConversationHandler) ListBySession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")

	limit := 200
	if n := queryInt(c, "limit", 0); n > 0 && n <= 500 {
		limit = n
	}

	rows, err := h.svc.Transcript(c.Request.Context(), userID, sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    sessionID,
		"conversations": rows,
	})
}

func (h *ConversationHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := repositories.ClampLimit(queryInt(c, "limit", 0))
	offset := queryInt(c, "offset", 0)

	rows, err := h.svc.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": rows,
		"limit":   limit,
		"offset":  offset,
	})
}
