package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/eduassess-backend/internal/config"
	"github.com/stemsi/eduassess-backend/internal/handler"
	"github.com/stemsi/eduassess-backend/internal/metrics"
	"github.com/stemsi/eduassess-backend/internal/middleware"
	"github.com/stemsi/eduassess-backend/internal/response"
	"github.com/stemsi/eduassess-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	Teacher       *handler.TeacherHandler
	Exam          *handler.ExamHandler
	StudentPortal *handler.StudentPortalHandler
	WS            *handler.WSHandler
	Result        *handler.ResultHandler
	Feed          *handler.FeedHandler
	System        *handler.SystemHandler
}

// Limiters are the per-IP rate limiters guarding public routes. The caller
// owns them and closes them on shutdown.
type Limiters struct {
	Auth    *middleware.RateLimiter
	Student *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiters Limiters,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.MetricsMiddleware())
	router.Use(middleware.Brotli())

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(limiters.Auth.Middleware())
	{
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)
	}

	// ─── 2. Student Group (Public, Rate Limited) ───────────────────────
	// Students are not authenticated; an attempt ID is the capability.
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(limiters.Student.Middleware(), middleware.NoStore())
	{
		studentAPI.GET("/exams/:code", handlers.StudentPortal.LocateExam)
		studentAPI.POST("/exams/:code/attempts", handlers.StudentPortal.StartAttempt)
		studentAPI.GET("/attempts/:attempt_id", handlers.StudentPortal.GetAttempt)
		studentAPI.PUT("/attempts/:attempt_id/answers", handlers.StudentPortal.SelectAnswer)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.StudentPortal.Submit)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(limiters.Student.Middleware())
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService), middleware.NoStore())
	{
		teacherAPI.GET("/profile", handlers.Teacher.GetProfile)
		teacherAPI.PUT("/profile", handlers.Teacher.SaveProfile)

		teacherAPI.GET("/dashboard", handlers.Result.Dashboard)
		teacherAPI.GET("/system", handlers.System.Status)

		teacherAPI.GET("/exams", handlers.Exam.ListExams)
		teacherAPI.POST("/exams", handlers.Exam.CreateExam)
		teacherAPI.GET("/exams/:id", handlers.Exam.GetExam)
		teacherAPI.GET("/exams/:id/submissions", handlers.Result.ListSubmissions)
		teacherAPI.GET("/exams/:id/export", handlers.Result.Export)
		teacherAPI.GET("/exams/:id/feed", handlers.Feed.ResultsFeedSSE)
	}

	return router
}
