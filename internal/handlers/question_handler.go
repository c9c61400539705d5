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

const maxImportSize = 10 << 20 // 10 MiB workbook cap

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	importExport    services.ImportExportService
	validator       *validator.Validator
}

func NewQuestionHandler(
	questionService services.QuestionService,
	importExport services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		importExport:    importExport,
		validator:       validator,
	}
}

// CreateQuestion creates a new question
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
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

	question, err := h.questionService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// CreateQuestionsBatch creates several questions at once
// @Summary Create questions in batch
// @Tags questions
// @Accept json
// @Produce json
// @Param questions body []services.CreateQuestionRequest true "Question list"
// @Success 201 {array} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Router /questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	var reqs []*services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "At least one question is required",
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	questions, err := h.questionService.CreateBatch(c.Request.Context(), reqs, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questions)
}

// GetQuestion retrieves a question by ID
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} services.QuestionResponse
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion updates a question
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Fields to update"
// @Success 200 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionRequest
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

	question, err := h.questionService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question not referenced by any test
// @Summary Delete question
// @Tags questions
// @Param id path uint true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question deleted successfully",
	})
}

// ListQuestions lists questions with filters and pagination
// @Summary List questions
// @Tags questions
// @Produce json
// @Success 200 {object} services.QuestionListResponse
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	filters := parseQuestionFilters(c)

	questions, err := h.questionService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// GetQuestionsByCourse lists a course's question bank
// @Summary List questions by course
// @Tags questions
// @Produce json
// @Param course_id path string true "Course ID"
// @Success 200 {object} services.QuestionListResponse
// @Router /questions/course/{course_id} [get]
func (h *QuestionHandler) GetQuestionsByCourse(c *gin.Context) {
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

	filters := parseQuestionFilters(c)

	questions, err := h.questionService.GetByCourse(c.Request.Context(), courseID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// ImportQuestions imports questions from an uploaded Excel workbook
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param course_id path string true "Course ID"
// @Param file formData file true "Workbook (.xlsx)"
// @Success 200 {object} models.ImportQuestionsResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /questions/course/{course_id}/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
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

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Workbook file is required",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	if header.Size > maxImportSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Workbook exceeds the 10MB size limit",
		})
		return
	}

	h.LogRequest(c, "Importing questions", "course_id", courseID, "filename", header.Filename)

	result, err := h.importExport.ImportQuestions(c.Request.Context(), courseID, file, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportQuestions downloads a course's questions as an Excel workbook
// @Summary Export questions
// @Tags questions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param course_id path string true "Course ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /questions/course/{course_id}/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
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

	data, err := h.importExport.ExportQuestions(c.Request.Context(), courseID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="questions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// parseQuestionFilters reads list filters from query parameters
func parseQuestionFilters(c *gin.Context) repositories.QuestionFilters {
	filters := repositories.QuestionFilters{
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_dir", "desc"),
	}

	if courseID := c.Query("course_id"); courseID != "" {
		filters.CourseID = &courseID
	}
	if topic := c.Query("topic"); topic != "" {
		filters.Topic = &topic
	}
	if typeStr := c.Query("type"); typeStr != "" {
		questionType := models.QuestionType(typeStr)
		filters.Type = &questionType
	}
	if difficultyStr := c.Query("difficulty"); difficultyStr != "" {
		difficulty := models.DifficultyLevel(difficultyStr)
		filters.Difficulty = &difficulty
	}

	filters.Limit, filters.Offset = parsePagination(c)
	return filters
}
