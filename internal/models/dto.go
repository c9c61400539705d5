package models

import (
	"encoding/json"
	"time"
)

type TestCreateRequest struct {
	CourseID               string     `json:"course_id" validate:"required"`
	LessonID               *string    `json:"lesson_id"`
	Title                  string     `json:"title" validate:"required,min=1,max=200"`
	Description            *string    `json:"description" validate:"omitempty,max=1000"`
	Duration               int        `json:"duration" validate:"required,min=5,max=300"`
	PassingMarks           int        `json:"passing_marks" validate:"min=0,max=100"`
	NegativeMarkingPercent *float64   `json:"negative_marking_percent" validate:"omitempty,min=0,max=100"`
	ShuffleQuestions       bool       `json:"shuffle_questions"`
	ShuffleOptions         bool       `json:"shuffle_options"`
	MaxAttempts            *int       `json:"max_attempts" validate:"omitempty,max_attempts"`
	CooldownHours          *int       `json:"cooldown_hours" validate:"omitempty,min=0"`
	StartDate              *time.Time `json:"start_date"`
	EndDate                *time.Time `json:"end_date"`
	IsAlwaysAvailable      *bool      `json:"is_always_available"`
}

// TestUpdateRequest carries the policy fields an instructor may change.
// NegativeMarkingEnabled is accepted for wire compatibility but any value
// is overridden back to true by the service.
type TestUpdateRequest struct {
	Title                  *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description            *string    `json:"description" validate:"omitempty,max=1000"`
	Duration               *int       `json:"duration" validate:"omitempty,min=5,max=300"`
	PassingMarks           *int       `json:"passing_marks" validate:"omitempty,min=0,max=100"`
	NegativeMarkingEnabled *bool      `json:"negative_marking_enabled"`
	NegativeMarkingPercent *float64   `json:"negative_marking_percent" validate:"omitempty,min=0,max=100"`
	ShuffleQuestions       *bool      `json:"shuffle_questions"`
	ShuffleOptions         *bool      `json:"shuffle_options"`
	MaxAttempts            *int       `json:"max_attempts" validate:"omitempty,max_attempts"`
	CooldownHours          *int       `json:"cooldown_hours" validate:"omitempty,min=0"`
	StartDate              *time.Time `json:"start_date"`
	EndDate                *time.Time `json:"end_date"`
	IsAlwaysAvailable      *bool      `json:"is_always_available"`
}

type QuestionCreateRequest struct {
	CourseID      string           `json:"course_id" validate:"required"`
	TestID        *uint            `json:"test_id"`
	Type          QuestionType     `json:"type" validate:"required,question_type"`
	Prompt        string           `json:"prompt" validate:"required"`
	Options       []QuestionOption `json:"options" validate:"omitempty,max=10,dive"`
	CorrectAnswer json.RawMessage  `json:"correct_answer" validate:"required"`
	Marks         float64          `json:"marks" validate:"min=0"`
	Difficulty    DifficultyLevel  `json:"difficulty" validate:"omitempty,difficulty_level"`
	Topic         string           `json:"topic" validate:"omitempty,max=100"`
}

type QuestionUpdateRequest struct {
	Prompt        *string          `json:"prompt" validate:"omitempty,min=1"`
	Options       []QuestionOption `json:"options" validate:"omitempty,max=10,dive"`
	CorrectAnswer json.RawMessage  `json:"correct_answer"`
	Marks         *float64         `json:"marks" validate:"omitempty,min=0"`
	Difficulty    *DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Topic         *string          `json:"topic" validate:"omitempty,max=100"`
}

type StartAttemptRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

type SubmittedAnswer struct {
	QuestionID       uint            `json:"question_id" validate:"required"`
	SelectedAnswer   json.RawMessage `json:"selected_answer"`
	TimeTakenSeconds int             `json:"time_taken_seconds" validate:"min=0"`
}

type SubmitAttemptRequest struct {
	Answers          []SubmittedAnswer `json:"answers" validate:"dive"`
	TimeTakenSeconds *int              `json:"time_taken_seconds" validate:"omitempty,min=0"`
}

// ===== PAGINATION & FILTERING =====

type ListTestsParams struct {
	Page      int     `json:"page" validate:"min=0"`
	Size      int     `json:"size" validate:"min=1,max=100"`
	CourseID  *string `json:"course_id"`
	Published *bool   `json:"published"`
	Search    string  `json:"search"`
	SortBy    string  `json:"sort_by"`
	SortDir   string  `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

type ListQuestionsParams struct {
	Page       int             `json:"page" validate:"min=0"`
	Size       int             `json:"size" validate:"min=1,max=100"`
	CourseID   *string         `json:"course_id"`
	TestID     *uint           `json:"test_id"`
	Type       QuestionType    `json:"type"`
	Difficulty DifficultyLevel `json:"difficulty"`
	Topic      *string         `json:"topic"`
	Search     string          `json:"search"`
	SortBy     string          `json:"sort_by"`
	SortDir    string          `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

type ListAttemptsParams struct {
	Page     int           `json:"page" validate:"min=0"`
	Size     int           `json:"size" validate:"min=1,max=100"`
	TestID   *uint         `json:"test_id"`
	UserID   *string       `json:"user_id"`
	Status   AttemptStatus `json:"status"`
	DateFrom *time.Time    `json:"date_from"`
	DateTo   *time.Time    `json:"date_to"`
	SortBy   string        `json:"sort_by"`
	SortDir  string        `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
}

type PaginatedResponse struct {
	Content       interface{} `json:"content"`
	TotalElements int64       `json:"total_elements"`
	TotalPages    int         `json:"total_pages"`
	Size          int         `json:"size"`
	Page          int         `json:"page"`
}

// ===== LEADERBOARD & PERFORMANCE DTOs =====

// LeaderboardEntry is one user's best attempt for a test. Position is the
// display position on the current page, not the frozen per-attempt rank.
type LeaderboardEntry struct {
	Position         int     `json:"position"`
	UserID           string  `json:"user_id"`
	UserName         string  `json:"user_name"`
	AttemptID        uint    `json:"attempt_id"`
	ObtainedMarks    float64 `json:"obtained_marks"`
	Percentage       int     `json:"percentage"`
	TimeTakenSeconds int     `json:"time_taken_seconds"`
	Passed           bool    `json:"passed"`
}

type PerformanceSummary struct {
	AttemptID     uint         `json:"attempt_id"`
	StrengthAreas []TopicScore `json:"strength_areas"`
	WeakAreas     []TopicScore `json:"weak_areas"`
	Topics        []TopicScore `json:"topics"`
}

type CourseProgress struct {
	UserID        string       `json:"user_id"`
	CourseID      string       `json:"course_id"`
	TestsTaken    int          `json:"tests_taken"`
	TestsPassed   int          `json:"tests_passed"`
	AverageScore  float64      `json:"average_score"`
	StrengthAreas []TopicScore `json:"strength_areas"`
	WeakAreas     []TopicScore `json:"weak_areas"`
}

// ===== IMPORT/EXPORT DTOs =====

type ImportQuestionsResult struct {
	TotalRows    int                     `json:"total_rows"`
	ImportedRows int                     `json:"imported_rows"`
	SkippedRows  int                     `json:"skipped_rows"`
	Errors       []ImportValidationError `json:"errors,omitempty"`
}

type ImportValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	Code      string      `json:"code"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
