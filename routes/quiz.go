package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-study-platform/internal/config"
	"pdf-study-platform/internal/logger"
	"pdf-study-platform/middleware"
	"pdf-study-platform/models"
	"pdf-study-platform/services"
	"pdf-study-platform/utils"
)

// SetupQuizRoutes registers quiz generation, submission and attempt export
// under an authenticated group.
func SetupQuizRoutes(router *gin.Engine, cfg *config.Config, quizService *services.QuizService, exportService *services.ExportService, authMiddleware *middleware.AuthMiddleware) {
	quizzes := router.Group("/quizzes")
	quizzes.Use(authMiddleware.RequireAuth())

	quizzes.POST("/generate", func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req models.QuizRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		quiz, err := quizService.GenerateQuiz(c.Request.Context(), req.DocumentID, userID, req.NumQuestions)
		if err != nil {
			respondProcessingError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.QuizResponse{
			QuizID:    quiz.ID,
			Questions: quiz.Questions,
		})
	})

	quizzes.POST("/submit", func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req models.QuizSubmission
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		attempt, err := quizService.SubmitQuiz(c.Request.Context(), req.QuizID, userID, req.Answers)
		if err != nil {
			if errors.Is(err, services.ErrQuizNotFound) {
				utils.RespondWithNotFound(c, "Quiz not found")
				return
			}
			logger.Error("Quiz submission failed", "quiz_id", req.QuizID, "error", err)
			utils.RespondWithInternalError(c, "Failed to grade submission", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"attempt_id":   attempt.ID,
			"quiz_id":      attempt.QuizID,
			"result":       attempt.Result,
			"submitted_at": attempt.SubmittedAt,
		})
	})

	quizzes.GET("/attempts", func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		data, err := exportService.BuildExport(c.Request.Context(), userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load attempts", nil)
			return
		}

		c.JSON(http.StatusOK, data)
	})

	quizzes.GET("/attempts/export", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		format := c.DefaultQuery("format", "json")
		if format != "json" && format != "excel" {
			utils.RespondWithBadRequest(c, "Format must be json or excel", nil)
			return
		}

		data, err := exportService.BuildExport(c.Request.Context(), userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", nil)
			return
		}

		if err := exportService.StreamExport(c, data, format); err != nil {
			logger.Error("Export failed", "user_id", userID, "format", format, "error", err)
			utils.RespondWithInternalError(c, "Failed to stream export", nil)
		}
	})
}
