package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
	"github.com/stemsi/eduassess-backend/internal/validator"
)

// submitTimeout bounds how long a submit request waits for the archive.
const submitTimeout = 15 * time.Second

// StudentPortalHandler handles the public, unauthenticated student flow:
// locate an exam, register, answer, submit.
type StudentPortalHandler struct {
	delivery *service.DeliveryService
	log      zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(delivery *service.DeliveryService, log zerolog.Logger) *StudentPortalHandler {
	return &StudentPortalHandler{
		delivery: delivery,
		log:      log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// LocateExam godoc
// GET /api/v1/student/exams/:code
// Resolves an exam ID or access code to the student-safe paper.
func (h *StudentPortalHandler) LocateExam(c *gin.Context) {
	exam, err := h.delivery.LocateExam(c.Request.Context(), c.Param("code"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.TagExam(c, exam.ID)
	response.Success(c, http.StatusOK, gin.H{"exam": exam.Paper()})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:code/attempts
// Registers the student and starts the countdown.
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.delivery.StartAttempt(c.Request.Context(), c.Param("code"), req.Identity())
	if err != nil {
		failService(c, h.log, err)
		return
	}

	exam := sess.Exam()
	response.TagExam(c, exam.ID)
	response.TagAttempt(c, sess.ID())
	response.Success(c, http.StatusCreated, gin.H{
		"attempt": sess.Snapshot(),
		"exam":    exam.Paper(),
	})
}

// GetAttempt godoc
// GET /api/v1/student/attempts/:attempt_id
// Covers page reloads: answers, remaining time and, once finalized, the score.
func (h *StudentPortalHandler) GetAttempt(c *gin.Context) {
	response.TagAttempt(c, c.Param("attempt_id"))
	snap, err := h.delivery.Snapshot(c.Param("attempt_id"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.TagExam(c, snap.ExamID)
	response.Success(c, http.StatusOK, gin.H{"attempt": snap})
}

// SelectAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers
func (h *StudentPortalHandler) SelectAnswer(c *gin.Context) {
	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	id := c.Param("attempt_id")
	response.TagAttempt(c, id)
	if err := h.delivery.SelectAnswer(id, *req.QuestionIndex, *req.OptionIndex); err != nil {
		failService(c, h.log, err)
		return
	}

	snap, err := h.delivery.Snapshot(id)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": snap})
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Finalizes the attempt and returns the graded submission. Submitting an
// attempt the clock already finalized returns that result.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	response.TagAttempt(c, c.Param("attempt_id"))
	res, err := h.delivery.Submit(ctx, c.Param("attempt_id"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": res})
}
