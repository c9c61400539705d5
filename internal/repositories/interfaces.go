package repositories

import (
	"time"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TestFilters struct {
	CourseID  *string    `json:"course_id"`
	Published *bool      `json:"published"`
	CreatedBy *string    `json:"created_by"`
	Search    string     `json:"search"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "title"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	CourseID   *string                 `json:"course_id"`
	TestID     *uint                   `json:"test_id"`
	Type       *models.QuestionType    `json:"type"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Topic      *string                 `json:"topic"`
	CreatedBy  *string                 `json:"created_by"`
	Search     string                  `json:"search"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`
	SortOrder  string                  `json:"sort_order"`
}

type AttemptFilters struct {
	TestID    *uint                 `json:"test_id"`
	UserID    *string               `json:"user_id"`
	Status    *models.AttemptStatus `json:"status"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type TestAttemptStats struct {
	TotalAttempts   int                          `json:"total_attempts"`
	SubmittedCount  int                          `json:"submitted_count"`
	StatusBreakdown map[models.AttemptStatus]int `json:"status_breakdown"`
	AverageScore    float64                      `json:"average_score"`
	HighestScore    float64                      `json:"highest_score"`
	PassRate        float64                      `json:"pass_rate"`
}

// AnswerStatsDelta is one graded answer's contribution to a question's
// running statistics, applied with atomic increments.
type AnswerStatsDelta struct {
	QuestionID       uint
	Correct          bool
	Answered         bool
	TimeTakenSeconds int
}
