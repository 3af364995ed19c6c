package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/service"
)

const keepAliveInterval = 30 * time.Second

// FeedHandler streams an exam's results to educators over SSE.
type FeedHandler struct {
	feed          *service.FeedService
	examService   *service.ExamService
	resultService *service.ResultService
	log           zerolog.Logger
}

func NewFeedHandler(
	feed *service.FeedService,
	examService *service.ExamService,
	resultService *service.ResultService,
	log zerolog.Logger,
) *FeedHandler {
	return &FeedHandler{
		feed:          feed,
		examService:   examService,
		resultService: resultService,
		log:           log.With().Str("component", "feed_handler").Logger(),
	}
}

// ResultsFeedSSE godoc
// GET /api/v1/teacher/exams/:id/feed
// Sends a snapshot of the archived submissions, then one event per new
// submission.
func (h *FeedHandler) ResultsFeedSSE(c *gin.Context) {
	reqCtx := c.Request.Context()
	examID := c.Param("id")

	exam, err := h.examService.GetByID(reqCtx, examID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	// Subscribe before reading the snapshot so nothing finalized in between
	// is lost; the client dedups on submission id.
	events, stop := h.feed.Subscribe(reqCtx, examID)
	defer stop()

	subs, err := h.resultService.ListSubmissions(reqCtx, examID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam": gin.H{
				"id":           exam.ID,
				"title":        exam.Title,
				"access_code":  exam.AccessCode,
				"total_points": exam.TotalPoints(),
			},
			"submissions": subs,
		},
	})
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	h.log.Info().Str("exam_id", examID).Msg("Educator attached to results feed")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID).Msg("Educator detached from results feed")
			return

		case raw, ok := <-events:
			if !ok {
				return
			}
			// forward the published JSON untouched
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(raw)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.Writer.Write([]byte("data: {\"type\":\"ping\"}\n\n"))
			c.Writer.Flush()
		}
	}
}
