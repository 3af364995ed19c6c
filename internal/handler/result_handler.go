package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/export"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
)

// ResultHandler serves submissions, the dashboard and grade sheet exports.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// ListSubmissions godoc
// GET /api/v1/teacher/exams/:id/submissions
func (h *ResultHandler) ListSubmissions(c *gin.Context) {
	response.TagExam(c, c.Param("id"))
	subs, err := h.resultService.ListSubmissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"submissions": subs})
}

// Dashboard godoc
// GET /api/v1/teacher/dashboard
func (h *ResultHandler) Dashboard(c *gin.Context) {
	d, err := h.resultService.Dashboard(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// Export godoc
// GET /api/v1/teacher/exams/:id/export?format=pdf|xlsx|doc
// Streams the grade sheet as an attachment.
func (h *ResultHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatPDF)))
	if err != nil {
		failService(c, h.log, err)
		return
	}

	file, err := h.resultService.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
