package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/services"
	"github.com/SAP-F-2025/testprep-service/internal/utils"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	scoringService services.ScoringService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	scoringService services.ScoringService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		scoringService: scoringService,
		validator:      validator,
	}
}

// StartAttempt begins a new attempt on a test
// @Summary Start attempt
// @Description Runs the eligibility checks and returns the attempt with its question set
// @Tags attempts
// @Accept json
// @Produce json
// @Param request body services.StartAttemptRequest true "Test to start"
// @Success 201 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req services.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitAttempt submits answers and scores the attempt
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param request body services.SubmitAttemptRequest true "Submitted answers"
// @Success 200 {object} services.ScoreResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	result, err := h.scoringService.Submit(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAttempt retrieves an attempt by ID
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetAttemptWithQuestions retrieves an attempt with its question views
// @Summary Get attempt with questions
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/details [get]
func (h *AttemptHandler) GetAttemptWithQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByIDWithQuestions(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ListAttempts lists attempts with filters; students only see their own
// @Summary List attempts
// @Tags attempts
// @Produce json
// @Success 200 {object} services.AttemptListResponse
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := parseAttemptFilters(c)

	attempts, err := h.attemptService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// GetMyAttemptsForTest lists the caller's attempts on a test
// @Summary Get my attempts for a test
// @Tags attempts
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {array} services.AttemptResponse
// @Router /attempts/test/{test_id} [get]
func (h *AttemptHandler) GetMyAttemptsForTest(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.GetByUserAndTest(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// CanStartAttempt reports whether the caller may start the test now
// @Summary Check attempt eligibility
// @Tags attempts
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /attempts/can-start/{test_id} [get]
func (h *AttemptHandler) CanStartAttempt(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.attemptService.CanStart(c.Request.Context(), testID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt can be started",
	})
}

// HandleTimeout force-closes an expired attempt
// @Summary Handle attempt timeout
// @Tags attempts
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id}/timeout [post]
func (h *AttemptHandler) HandleTimeout(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.attemptService.HandleTimeout(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Attempt timeout handled",
	})
}

// parseAttemptFilters reads list filters from query parameters
func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_dir", "desc"),
	}

	if testIDStr := c.Query("test_id"); testIDStr != "" {
		if testID := parseUintQuery(testIDStr); testID > 0 {
			filters.TestID = &testID
		}
	}
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		filters.UserID = &userIDStr
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.AttemptStatus(statusStr)
		filters.Status = &status
	}

	filters.Limit, filters.Offset = parsePagination(c)
	return filters
}
