package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/mockinterview/internal/engine"
	"github.com/yoockh/mockinterview/internal/events"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type WSHandler struct {
	interviews services.InterviewService
	redis      *redis.Client
	upgrader   websocket.Upgrader
}

// NewWSHandler accepts upgrades from the server's own host and from the listed
// origins ("*" allows any).
func NewWSHandler(interviews services.InterviewService, rdb *redis.Client, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		interviews: interviews,
		redis:      rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return originAllowed(r, allowedOrigins) },
		},
	}
}

// originAllowed lets non-browser clients (no Origin header) through.
func originAllowed(r *http.Request, allowed []string) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, a := range allowed {
		a = strings.TrimSuffix(strings.TrimSpace(a), "/")
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

type wsClientMsg struct {
	Type             string `json:"type"` // answer|complete|cancel|ping
	Answer           string `json:"answer"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

type wsServerMsg struct {
	Type    string     `json:"type"`
	Code    utils.Code `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(m wsServerMsg) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeErr(err error) {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		_ = w.writeJSON(wsServerMsg{Type: "error", Code: ae.Code, Message: ae.Message})
		return
	}
	_ = w.writeJSON(wsServerMsg{Type: "error", Code: utils.CodeInternal, Message: "internal error"})
}

// SessionWS streams the session's live events and accepts answers over the
// same socket. State changes still go through InterviewService, so events
// reach every subscriber of the session, not only this connection.
func (h *WSHandler) SessionWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "missing session_id", nil))
		return
	}

	// ownership check happens inside Get
	if _, err := h.interviews.Get(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, events.Channel(sessionID))
	defer pubsub.Close()

	// reader: WS -> InterviewService
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				wc.writeErr(utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "invalid json", err))
				continue
			}

			switch msg.Type {
			case "answer":
				res, err := h.interviews.RecordAnswer(ctx, userID, sessionID, engine.Answer{
					Text:             msg.Answer,
					TimeSpentSeconds: msg.TimeSpentSeconds,
				})
				if err != nil {
					wc.writeErr(err)
					continue
				}
				_ = wc.writeJSON(wsServerMsg{Type: "answer_result", Data: gin.H{
					"progress": res.Progress,
					"judgment": res.Judgment,
					"decision": res.Decision,
				}})

			case "complete":
				if _, err := h.interviews.CompleteAndFeedback(ctx, userID, sessionID); err != nil {
					wc.writeErr(err)
				}

			case "cancel":
				if _, err := h.interviews.Cancel(ctx, userID, sessionID); err != nil {
					wc.writeErr(err)
				}

			case "ping":
				_ = wc.writeJSON(wsServerMsg{Type: "pong"})

			default:
				wc.writeErr(utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "unknown message type", nil))
			}
		}
	}()

	// writer: Redis Pub/Sub -> WS
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// payload is already an events.Event JSON document
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
