package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/testprep-service/internal/services"
	"github.com/SAP-F-2025/testprep-service/internal/utils"
)

// ResultHandler serves post-submission views: leaderboards, per-attempt
// topic analysis, and course-level progress.
type ResultHandler struct {
	BaseHandler
	rankingService     services.RankingService
	performanceService services.PerformanceService
	importExport       services.ImportExportService
}

func NewResultHandler(
	rankingService services.RankingService,
	performanceService services.PerformanceService,
	importExport services.ImportExportService,
	logger utils.Logger,
) *ResultHandler {
	return &ResultHandler{
		BaseHandler:        NewBaseHandler(logger),
		rankingService:     rankingService,
		performanceService: performanceService,
		importExport:       importExport,
	}
}

// GetLeaderboard returns best-attempt-per-user standings for a test
// @Summary Get leaderboard
// @Tags results
// @Produce json
// @Param test_id path uint true "Test ID"
// @Param page query int false "Page number (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} services.LeaderboardResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /results/leaderboard/{test_id} [get]
func (h *ResultHandler) GetLeaderboard(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	leaderboard, err := h.rankingService.GetLeaderboard(c.Request.Context(), testID, page, size, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}

// ExportLeaderboard downloads the full standings as an Excel workbook
// @Summary Export leaderboard
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param test_id path uint true "Test ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /results/leaderboard/{test_id}/export [get]
func (h *ResultHandler) ExportLeaderboard(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	data, err := h.importExport.ExportLeaderboard(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// AnalyzeAttempt returns the per-topic breakdown of a scored attempt
// @Summary Analyze attempt performance
// @Tags results
// @Produce json
// @Param attempt_id path uint true "Attempt ID"
// @Success 200 {object} models.PerformanceSummary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /results/attempts/{attempt_id}/analysis [get]
func (h *ResultHandler) AnalyzeAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attempt_id")
	if attemptID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	summary, err := h.performanceService.AnalyzeAttempt(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetMyCourseProgress aggregates the caller's results across a course
// @Summary Get course progress
// @Tags results
// @Produce json
// @Param course_id path string true "Course ID"
// @Success 200 {object} models.CourseProgress
// @Router /results/course/{course_id}/progress [get]
func (h *ResultHandler) GetMyCourseProgress(c *gin.Context) {
	courseID := c.Param("course_id")
	if courseID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid course_id parameter",
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	progress, err := h.performanceService.GetCourseProgress(c.Request.Context(), courseID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
