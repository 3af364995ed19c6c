package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/attempt"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
	ws "github.com/stemsi/eduassess-backend/internal/websocket"
	"golang.org/x/time/rate"
)

const (
	// streamInterval is the cadence of tick events.
	streamInterval = time.Second
	// Client actions per second, with a burst for quick answer changes.
	wsActionRate  = 10
	wsActionBurst = 20
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams a live attempt over WebSocket.
type WSHandler struct {
	delivery *service.DeliveryService
	log      zerolog.Logger
	upgrader websocket.Upgrader
	interval time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(delivery *service.DeliveryService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		delivery: delivery,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		interval: streamInterval,
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
// Pushes tick events while the attempt is active and one finalized event at
// the end. Accepts select, submit and ping actions.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	sess, err := h.delivery.Attempt(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", sess.ID()).
		Str("exam_id", sess.Exam().ID).
		Str("student_id", sess.Student().ID).
		Logger()
	wsLog.Info().Msg("Student connected")

	closed := make(chan struct{})
	go h.push(conn, sess, closed)

	limiter := rate.NewLimiter(rate.Limit(wsActionRate), wsActionBurst)
	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		if !limiter.Allow() {
			conn.WriteError(string(response.ErrRateLimitExceeded), response.GetMessage(response.ErrRateLimitExceeded))
			continue
		}

		switch msg.Action {
		case ws.ActionSelect:
			h.handleSelect(conn, sess.ID(), &msg)
		case ws.ActionSubmit:
			// the finalized event is written by push
			sess.Finalize(attempt.ReasonManual)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
	close(closed)
}

// push writes a tick every interval until the attempt finalizes, then the
// finalized event.
func (h *WSHandler) push(conn *ws.Conn, sess *attempt.Session, closed <-chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: sess.RemainingSeconds()}); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-sess.Done():
			conn.WriteTyped(ws.FinalizedResponse{Event: ws.EventFinalized, Result: sess.Result()})
			return
		case <-ticker.C:
			if err := conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: sess.RemainingSeconds()}); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleSelect(conn *ws.Conn, attemptID string, msg *ws.RequestPayload) {
	if msg.QuestionIndex == nil || msg.OptionIndex == nil {
		conn.WriteError(string(response.ErrInvalidPayload), "question_index and option_index are required")
		return
	}

	if err := h.delivery.SelectAnswer(attemptID, *msg.QuestionIndex, *msg.OptionIndex); err != nil {
		code := codeFor(err)
		if code == response.ErrInternal {
			h.log.Error().Err(err).Str("attempt_id", attemptID).Msg("Select failed")
		}
		conn.WriteError(string(code), response.GetMessage(code))
		return
	}

	conn.WriteTyped(ws.SelectedResponse{
		Event:         ws.EventSelected,
		QuestionIndex: *msg.QuestionIndex,
		OptionIndex:   *msg.OptionIndex,
	})
}
