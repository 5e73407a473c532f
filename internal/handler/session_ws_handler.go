package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepgrid/testprep-backend/internal/middleware"
	"github.com/prepgrid/testprep-backend/internal/model"
	"github.com/prepgrid/testprep-backend/internal/service"
	"github.com/prepgrid/testprep-backend/internal/session"
	ws "github.com/prepgrid/testprep-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// safeConn serializes writes from the tick goroutine and the read loop.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (sc *safeConn) write(v interface{}) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return ws.WriteTyped(sc.conn, v)
}

func (sc *safeConn) writeError(msg string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_ = ws.WriteError(sc.conn, msg)
}

// SessionWSHandler streams the attempt clock over WebSocket. The server
// drives the countdown: one tick per second, auto-submit at zero, graded
// event as the terminal message.
type SessionWSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewSessionWSHandler creates a new SessionWSHandler.
func NewSessionWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *SessionWSHandler {
	return &SessionWSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "session_ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream?token=...
// Upgrades to WebSocket and streams ticks while the attempt runs. Accepts
// ping, proctor, and submit actions from the client.
func (h *SessionWSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	sess, err := h.attemptService.LiveSession(attemptID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session for this attempt"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sc := &safeConn{conn: conn}

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	done := make(chan struct{})
	defer close(done)

	go h.runClock(done, sc, wsLog, attemptID, sess)

	for {
		data, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			sc.writeError("malformed message")
			continue
		}

		switch env.Action {
		case ws.ActionPing:
			_ = sc.write(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionProctor:
			h.handleProctor(sc, wsLog, attemptID, claims.UserID, data)
		case ws.ActionSubmit:
			if h.handleSubmit(sc, wsLog, attemptID, claims.UserID) {
				return
			}
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			sc.writeError("unknown action: " + string(env.Action))
		}
	}
}

// runClock decrements the session once per second and pushes a tick. When
// the countdown hits zero the session auto-submits inside the same
// critical section; this goroutine then grades it and pushes the terminal
// event.
func (h *SessionWSHandler) runClock(done <-chan struct{}, sc *safeConn, wsLog zerolog.Logger, attemptID uuid.UUID, sess *session.AttemptSession) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if sess.Status() != model.AttemptInProgress {
				continue
			}

			timedOut := sess.Tick()

			if err := sc.write(ws.TickResponse{
				Event:     ws.EventTick,
				Remaining: sess.RemainingSeconds(),
				Answered:  sess.TotalAnswered(),
				Marked:    sess.TotalMarkedForReview(),
			}); err != nil {
				return
			}

			if timedOut {
				result := h.attemptService.FinalizeExpired(context.Background(), attemptID, sess)
				wsLog.Info().Float64("score", result.TotalScore).Msg("Attempt auto-submitted on timeout")
				_ = sc.write(ws.GradedResponse{
					Event:    ws.EventGraded,
					Score:    result.TotalScore,
					MaxScore: result.MaxScore,
					TimedOut: true,
				})
				sc.conn.Close()
				return
			}
		}
	}
}

func (h *SessionWSHandler) handleProctor(sc *safeConn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int, data []byte) {
	var req ws.ProctorRequest
	if err := json.Unmarshal(data, &req); err != nil {
		sc.writeError("malformed proctor event")
		return
	}

	kind := model.ProctorEventKind(req.Kind)
	if kind != model.ProctorFocusLost && kind != model.ProctorFullscreenExit {
		sc.writeError("unknown proctor kind: " + req.Kind)
		return
	}

	if err := h.attemptService.RecordProctorEvent(context.Background(), attemptID, userID, kind); err != nil {
		wsLog.Warn().Err(err).Msg("Proctor event rejected")
		sc.writeError("proctor event rejected")
	}
}

// handleSubmit grades on explicit submit. Returns true when the stream
// should end.
func (h *SessionWSHandler) handleSubmit(sc *safeConn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int) bool {
	result, err := h.attemptService.Submit(context.Background(), attemptID, userID)
	if err != nil {
		if err == service.ErrAttemptSubmitted {
			// The clock goroutine won the race; it pushes the graded event.
			return true
		}
		sc.writeError("submit failed")
		return false
	}

	wsLog.Info().Float64("score", result.TotalScore).Msg("Attempt submitted over WebSocket")
	_ = sc.write(ws.GradedResponse{
		Event:    ws.EventGraded,
		Score:    result.TotalScore,
		MaxScore: result.MaxScore,
	})
	return true
}
