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

// AuthHandler handles the educator login.
type AuthHandler struct {
	authService    *service.AuthService
	teacherService *service.TeacherService
	log            zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, teacherService *service.TeacherService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		teacherService: teacherService,
		log:            log.With().Str("component", "auth_handler").Logger(),
	}
}

// TeacherLogin godoc
// POST /api/v1/auth/teacher/login
// Exchanges the shared access phrase for an educator token.
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req model.TeacherLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.Login(req.AccessPhrase)
	if err != nil {
		h.log.Warn().Str("ip", c.ClientIP()).Msg("Rejected educator login")
		failService(c, h.log, err)
		return
	}

	teacher, err := h.teacherService.Get(c.Request.Context())
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, model.TeacherLoginResponse{Token: token, Teacher: teacher})
}
