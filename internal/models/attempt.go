package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

type Attempt struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	TestID       uint   `json:"test_id" gorm:"not null;index;uniqueIndex:idx_user_test_attempt"`
	UserID       string `json:"user_id" gorm:"not null;index;size:255;uniqueIndex:idx_user_test_attempt"`
	EnrollmentID string `json:"enrollment_id" gorm:"not null;size:255"`

	// Sequential per (user, test); the unique index doubles as the guard
	// against two concurrent starts reserving the same slot.
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_user_test_attempt"`
	Status        AttemptStatus `json:"status" gorm:"not null;default:in_progress;index"`

	// Timing
	StartedAt        time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	TimeTakenSeconds int        `json:"time_taken_seconds" gorm:"not null;default:0"`

	// Score block, written once by the scoring pass.
	TotalMarks      float64 `json:"total_marks" gorm:"not null;default:0"`
	ObtainedMarks   float64 `json:"obtained_marks" gorm:"not null;default:0"`
	Percentage      int     `json:"percentage" gorm:"not null;default:0"`
	CorrectCount    int     `json:"correct_count" gorm:"not null;default:0"`
	IncorrectCount  int     `json:"incorrect_count" gorm:"not null;default:0"`
	UnansweredCount int     `json:"unanswered_count" gorm:"not null;default:0"`
	NegativeMarks   float64 `json:"negative_marks" gorm:"not null;default:0"`
	Passed          bool    `json:"passed" gorm:"not null;default:false"`

	// Frozen at scoring time against the submissions that existed then;
	// never recomputed as later attempts arrive.
	Rank       *int `json:"rank"`
	Percentile *int `json:"percentile"`

	// Per-topic performance, []TopicScore.
	StrengthAreas datatypes.JSON `json:"strength_areas" gorm:"type:jsonb"`
	WeakAreas     datatypes.JSON `json:"weak_areas" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test    Test            `json:"-" gorm:"foreignKey:TestID"`
	Answers []AttemptAnswer `json:"answers" gorm:"foreignKey:AttemptID"`
}

// IsTerminal reports whether the attempt can no longer change.
func (a *Attempt) IsTerminal() bool {
	return a.Status != AttemptInProgress
}

type AttemptAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`

	// Selected answer in the same shape as Question.CorrectAnswer; SQL null
	// until the owner submits, and stays null for unanswered questions.
	SelectedAnswer datatypes.JSON `json:"selected_answer" gorm:"type:jsonb"`

	// Grading outcome; null until the attempt is scored.
	IsCorrect     *bool    `json:"is_correct"`
	MarksObtained *float64 `json:"marks_obtained"`

	TimeTakenSeconds int `json:"time_taken_seconds" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attempt  Attempt  `json:"-" gorm:"foreignKey:AttemptID"`
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

// TopicScore is one entry of an attempt's strength or weak areas.
type TopicScore struct {
	Topic   string `json:"topic"`
	Score   int    `json:"score"` // round(correct/total*100)
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
