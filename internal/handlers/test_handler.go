package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/services"
	"github.com/SAP-F-2025/testprep-service/internal/utils"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
	validator   *validator.Validator
}

func NewTestHandler(
	testService services.TestService,
	validator *validator.Validator,
	logger utils.Logger,
) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
		validator:   validator,
	}
}

// CreateTest creates a new test
// @Summary Create test
// @Description Creates a new timed test definition
// @Tags tests
// @Accept json
// @Produce json
// @Param test body services.CreateTestRequest true "Test data"
// @Success 201 {object} services.TestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
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

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest retrieves a test by ID
// @Summary Get test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} services.TestResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting test", "test_id", id)

	test, err := h.testService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GetTestWithQuestions retrieves a test with its question set
// @Summary Get test with questions
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} services.TestResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/details [get]
func (h *TestHandler) GetTestWithQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Getting test with questions", "test_id", id)

	test, err := h.testService.GetByIDWithQuestions(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// UpdateTest updates a test's settings
// @Summary Update test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param test body services.UpdateTestRequest true "Fields to update"
// @Success 200 {object} services.TestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [put]
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestRequest
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

	test, err := h.testService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest removes a test
// @Summary Delete test
// @Tags tests
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test deleted successfully",
	})
}

// ListTests lists tests with filters and pagination
// @Summary List tests
// @Tags tests
// @Produce json
// @Success 200 {object} services.TestListResponse
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := parseTestFilters(c)

	tests, err := h.testService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tests)
}

// GetTestsByCourse lists a course's tests
// @Summary List tests by course
// @Tags tests
// @Produce json
// @Param course_id path string true "Course ID"
// @Success 200 {object} services.TestListResponse
// @Router /tests/course/{course_id} [get]
func (h *TestHandler) GetTestsByCourse(c *gin.Context) {
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

	filters := parseTestFilters(c)

	tests, err := h.testService.GetByCourse(c.Request.Context(), courseID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tests)
}

// PublishTest makes a test visible and startable
// @Summary Publish test
// @Tags tests
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id}/publish [post]
func (h *TestHandler) PublishTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Publish(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test published successfully",
	})
}

// UnpublishTest hides a test from students
// @Summary Unpublish test
// @Tags tests
// @Param id path uint true "Test ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id}/unpublish [post]
func (h *TestHandler) UnpublishTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.Unpublish(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Test unpublished successfully",
	})
}

// AddQuestionToTest attaches an existing question to a test
// @Summary Add question to test
// @Tags tests
// @Param id path uint true "Test ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tests/{id}/questions/{question_id} [post]
func (h *TestHandler) AddQuestionToTest(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.AddQuestion(c.Request.Context(), testID, questionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question added to test successfully",
	})
}

// RemoveQuestionFromTest detaches a question from a test
// @Summary Remove question from test
// @Tags tests
// @Param id path uint true "Test ID"
// @Param question_id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/questions/{question_id} [delete]
func (h *TestHandler) RemoveQuestionFromTest(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.testService.RemoveQuestion(c.Request.Context(), testID, questionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question removed from test successfully",
	})
}

// GetTestQuestions lists a test's questions in order
// @Summary Get test questions
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {array} services.QuestionResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/questions [get]
func (h *TestHandler) GetTestQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	questions, err := h.testService.GetQuestions(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// GetTestStats returns attempt statistics for a test
// @Summary Get test statistics
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} repositories.TestAttemptStats
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id}/stats [get]
func (h *TestHandler) GetTestStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	stats, err := h.testService.GetStats(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// parseTestFilters reads list filters from query parameters
func parseTestFilters(c *gin.Context) repositories.TestFilters {
	filters := repositories.TestFilters{
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_dir", "desc"),
	}

	if courseID := c.Query("course_id"); courseID != "" {
		filters.CourseID = &courseID
	}
	if publishedStr := c.Query("published"); publishedStr != "" {
		if published, err := strconv.ParseBool(publishedStr); err == nil {
			filters.Published = &published
		}
	}

	filters.Limit, filters.Offset = parsePagination(c)
	return filters
}
