package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

const (
	questionSheetName    = "Questions"
	leaderboardSheetName = "Leaderboard"
)

var questionHeader = []interface{}{
	"type", "prompt", "options", "correct_answer", "marks", "difficulty", "topic",
}

// importExportService moves question banks and leaderboards through Excel
// workbooks. Import validates every row before writing anything.
type importExportService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	questions QuestionService
}

func NewImportExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, questions QuestionService) ImportExportService {
	return &importExportService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		questions: questions,
	}
}

// ===== IMPORT =====

// ImportQuestions reads the first sheet of the workbook. Row 1 is the
// header; each following row is one question. Options are pipe-separated,
// correct answers use 1-based option positions for choice types and the
// literal text otherwise.
func (s *importExportService) ImportQuestions(ctx context.Context, courseID string, reader io.Reader, creatorID string) (*models.ImportQuestionsResult, error) {
	s.logger.Info("Importing questions", "course_id", courseID, "creator_id", creatorID)

	if err := s.requireManageRole(ctx, creatorID); err != nil {
		return nil, err
	}

	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, NewBusinessRuleError("invalid_workbook", fmt.Sprintf("failed to open workbook: %v", err))
	}
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, NewBusinessRuleError("invalid_workbook", fmt.Sprintf("failed to read sheet %q: %v", sheet, err))
	}

	result := &models.ImportQuestionsResult{}
	if len(rows) <= 1 {
		return result, nil
	}

	var requests []*CreateQuestionRequest
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		result.TotalRows++

		req, rowErrs := parseQuestionRow(row, courseID)
		if len(rowErrs) == 0 {
			if err := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); err != nil {
				rowErrs = append(rowErrs, models.ImportValidationError{
					Row:     rowNum,
					Message: err.Error(),
				})
			}
		}

		if len(rowErrs) > 0 {
			for j := range rowErrs {
				rowErrs[j].Row = rowNum
			}
			result.Errors = append(result.Errors, rowErrs...)
			result.SkippedRows++
			continue
		}
		requests = append(requests, req)
	}

	// All-or-nothing for the valid rows; invalid rows are reported, not
	// imported.
	if len(requests) > 0 {
		if _, err := s.questions.CreateBatch(ctx, requests, creatorID); err != nil {
			return nil, fmt.Errorf("failed to import questions: %w", err)
		}
		result.ImportedRows = len(requests)
	}

	s.logger.Info("Import finished",
		"course_id", courseID,
		"total_rows", result.TotalRows,
		"imported", result.ImportedRows,
		"skipped", result.SkippedRows)
	return result, nil
}

// ===== EXPORT =====

func (s *importExportService) ExportQuestions(ctx context.Context, courseID string, userID string) ([]byte, error) {
	s.logger.Info("Exporting questions", "course_id", courseID, "user_id", userID)

	if err := s.requireManageRole(ctx, userID); err != nil {
		return nil, err
	}

	questions, _, err := s.repo.Question().GetByCourse(ctx, nil, courseID, repositories.QuestionFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load course questions: %w", err)
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	workbook.SetSheetName(workbook.GetSheetName(0), questionSheetName)
	if err := workbook.SetSheetRow(questionSheetName, "A1", &questionHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, question := range questions {
		row, err := formatQuestionRow(question)
		if err != nil {
			s.logger.Warn("Skipping unexportable question", "question_id", question.ID, "error", err)
			continue
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(questionSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *importExportService) ExportLeaderboard(ctx context.Context, testID uint, userID string) ([]byte, error) {
	s.logger.Info("Exporting leaderboard", "test_id", testID, "user_id", userID)

	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != models.RoleAdmin && !(user.Role == models.RoleInstructor && test.CreatedBy == userID) {
		return nil, NewPermissionError(userID, testID, "test", "export_leaderboard", "only the owner or an admin can export")
	}

	attempts, _, err := s.repo.Leaderboard().BestAttemptsByTest(ctx, nil, testID, -1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	userIDs := make([]string, len(attempts))
	for i, attempt := range attempts {
		userIDs[i] = attempt.UserID
	}
	namesByID := make(map[string]string)
	if len(userIDs) > 0 {
		users, err := s.repo.User().GetByIDs(ctx, userIDs)
		if err != nil {
			s.logger.Warn("Failed to resolve user names for export", "test_id", testID, "error", err)
		} else {
			for _, u := range users {
				namesByID[u.ID] = u.FullName
			}
		}
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	workbook.SetSheetName(workbook.GetSheetName(0), leaderboardSheetName)
	header := []interface{}{"position", "user", "obtained_marks", "percentage", "time_taken_seconds", "passed"}
	if err := workbook.SetSheetRow(leaderboardSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, attempt := range attempts {
		name := namesByID[attempt.UserID]
		if name == "" {
			name = attempt.UserID
		}
		row := []interface{}{
			i + 1,
			name,
			attempt.ObtainedMarks,
			attempt.Percentage,
			attempt.TimeTakenSeconds,
			attempt.Passed,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(leaderboardSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ===== HELPERS =====

func (s *importExportService) requireManageRole(ctx context.Context, userID string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != models.RoleInstructor && user.Role != models.RoleAdmin {
		return NewPermissionError(userID, 0, "question", "import_export", "instructor or admin role required")
	}
	return nil
}

func formatQuestionRow(question *models.Question) ([]interface{}, error) {
	options, err := question.ParseOptions()
	if err != nil {
		return nil, err
	}

	correct, err := formatCorrectAnswerCell(question)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		string(question.Type),
		question.Prompt,
		joinOptionTexts(options),
		correct,
		question.Marks,
		string(question.Difficulty),
		question.Topic,
	}, nil
}

func parseMarksCell(cell string) (float64, error) {
	if cell == "" {
		return 1, nil
	}
	marks, err := strconv.ParseFloat(cell, 64)
	if err != nil || marks < 0 {
		return 0, fmt.Errorf("marks must be a non-negative number")
	}
	return marks, nil
}
