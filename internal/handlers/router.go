package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/testprep-service/internal/config"
	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/services"
	"github.com/SAP-F-2025/testprep-service/internal/utils"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

type HandlerManager struct {
	testHandler     *TestHandler
	questionHandler *QuestionHandler
	attemptHandler  *AttemptHandler
	resultHandler   *ResultHandler
	userHandler     *UserHandler
	authMiddleware  *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		testHandler:     NewTestHandler(serviceManager.Test(), validator, logger),
		questionHandler: NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), validator, logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), serviceManager.Scoring(), validator, logger),
		resultHandler:   NewResultHandler(serviceManager.Ranking(), serviceManager.Performance(), serviceManager.ImportExport(), logger),
		userHandler:     NewUserHandler(userRepo, logger),
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Test routes
		tests := v1.Group("/tests")
		{
			// Create/modify tests - Instructors and Admins only
			tests.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.CreateTest)
			tests.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.UpdateTest)
			tests.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.DeleteTest)
			tests.POST("/:id/publish", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.PublishTest)
			tests.POST("/:id/unpublish", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.UnpublishTest)

			// View tests - all authenticated users (students see published only)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/details", hm.testHandler.GetTestWithQuestions)
			tests.GET("/course/:course_id", hm.testHandler.GetTestsByCourse)

			// Stats - Instructors and Admins only
			tests.GET("/:id/stats", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.GetTestStats)

			// Question membership - Instructors and Admins only
			tests.GET("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.GetTestQuestions)
			tests.POST("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.AddQuestionToTest)
			tests.DELETE("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.testHandler.RemoveQuestionFromTest)
		}

		// Question routes - Instructors and Admins only
		questions := v1.Group("/questions")
		questions.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin))
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/batch", hm.questionHandler.CreateQuestionsBatch)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)

			// Course question bank and Excel import/export
			questions.GET("/course/:course_id", hm.questionHandler.GetQuestionsByCourse)
			questions.POST("/course/:course_id/import", hm.questionHandler.ImportQuestions)
			questions.GET("/course/:course_id/export", hm.questionHandler.ExportQuestions)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/details", hm.attemptHandler.GetAttemptWithQuestions)
			attempts.POST("/:id/timeout", hm.attemptHandler.HandleTimeout)
			attempts.GET("/can-start/:test_id", hm.attemptHandler.CanStartAttempt)
			attempts.GET("/test/:test_id", hm.attemptHandler.GetMyAttemptsForTest)
		}

		// Result routes
		results := v1.Group("/results")
		{
			results.GET("/leaderboard/:test_id", hm.resultHandler.GetLeaderboard)
			results.GET("/leaderboard/:test_id/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin), hm.resultHandler.ExportLeaderboard)
			results.GET("/attempts/:attempt_id/analysis", hm.resultHandler.AnalyzeAttempt)
			results.GET("/course/:course_id/progress", hm.resultHandler.GetMyCourseProgress)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "testprep-service",
		})
	})
}
