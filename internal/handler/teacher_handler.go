package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduassess-backend/internal/model"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
	"github.com/stemsi/eduassess-backend/internal/validator"
)

// TeacherHandler serves the educator profile.
type TeacherHandler struct {
	teacherService *service.TeacherService
	log            zerolog.Logger
}

// NewTeacherHandler creates a new TeacherHandler.
func NewTeacherHandler(teacherService *service.TeacherService, log zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		teacherService: teacherService,
		log:            log.With().Str("component", "teacher_handler").Logger(),
	}
}

// GetProfile godoc
// GET /api/v1/teacher/profile
// Returns the saved profile, or null before the first save.
func (h *TeacherHandler) GetProfile(c *gin.Context) {
	teacher, err := h.teacherService.Get(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"teacher": teacher})
}

// SaveProfile godoc
// PUT /api/v1/teacher/profile
func (h *TeacherHandler) SaveProfile(c *gin.Context) {
	var req model.SaveTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, err := h.teacherService.Save(c.Request.Context(), req)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"teacher": teacher})
}
