package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skillup/examflow-backend/internal/config"
	"github.com/skillup/examflow-backend/internal/handler"
	"github.com/skillup/examflow-backend/internal/middleware"
	"github.com/skillup/examflow-backend/internal/response"
	"github.com/skillup/examflow-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam      *handler.ExamHandler
	Attempt   *handler.AttemptHandler
	Violation *handler.ViolationHandler
	Admin     *handler.AdminHandler
	Monitor   *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Answer saves and violation reports are the chatty endpoints; cap them
	// per IP so one runaway client cannot starve the pool.
	hotLimiter := middleware.NewRateLimiter(120, time.Minute)

	userAPI := router.Group("/api/v1")
	userAPI.Use(middleware.RequireUserJWT(authService))
	{
		userAPI.GET("/exams", handlers.Exam.GetLobby)
		userAPI.GET("/exams/:exam_id/eligibility", handlers.Exam.GetEligibility)
		userAPI.POST("/exams/:exam_id/register", handlers.Exam.Register)
		userAPI.POST("/exams/:exam_id/attempts", handlers.Exam.StartAttempt)

		userAPI.GET("/attempts/:attempt_id/state", handlers.Attempt.GetState)
		userAPI.PUT("/attempts/:attempt_id/answers/:question_id", hotLimiter.Middleware(), handlers.Attempt.RecordAnswer)
		userAPI.PUT("/attempts/:attempt_id/flags/:question_id", handlers.Attempt.FlagQuestion)
		userAPI.DELETE("/attempts/:attempt_id/flags/:question_id", handlers.Attempt.UnflagQuestion)
		userAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.Submit)
		userAPI.GET("/attempts/:attempt_id/result", handlers.Attempt.GetResult)
		userAPI.GET("/attempts/:attempt_id/certificate", handlers.Attempt.GetCertificate)

		userAPI.POST("/attempts/:attempt_id/violations", hotLimiter.Middleware(), handlers.Violation.Report)
	}

	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/exams/:exam_id/results", handlers.Admin.ListResults)
		adminAPI.GET("/exams/:exam_id/violations", handlers.Admin.ListExamViolations)
		adminAPI.GET("/attempts/:attempt_id/violations", handlers.Admin.ListAttemptViolations)
		adminAPI.POST("/attempts/:attempt_id/manual-grades", handlers.Admin.ApplyManualGrades)
		adminAPI.POST("/exams/:exam_id/registrations/:user_id", handlers.Admin.DecideRegistration)
	}

	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/exams/:exam_id/monitor", handlers.Monitor.MonitorExam)
	}

	return router
}
