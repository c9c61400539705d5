package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MCQ            QuestionType = "mcq"
	TrueFalse      QuestionType = "true_false"
	MultipleSelect QuestionType = "multiple_select"
	FillBlank      QuestionType = "fill_blank"
	ShortAnswer    QuestionType = "short_answer"
)

// IsChoiceBased reports whether the type carries an options list.
func (t QuestionType) IsChoiceBased() bool {
	switch t {
	case MCQ, TrueFalse, MultipleSelect:
		return true
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type Question struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	CourseID string       `json:"course_id" gorm:"not null;index;size:255" validate:"required"`
	TestID   *uint        `json:"test_id" gorm:"index"`
	Type     QuestionType `json:"type" gorm:"not null;index" validate:"required,oneof=mcq true_false multiple_select fill_blank short_answer"`
	Prompt   string       `json:"prompt" gorm:"type:text;not null" validate:"required"`

	// Options and correct answer stored as JSONB. Options is []QuestionOption
	// for choice-based types and null otherwise. CorrectAnswer shape depends
	// on type: option index, array of indices, or normalized text.
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb"`

	Marks      float64         `json:"marks" gorm:"not null;default:1" validate:"min=0"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"default:medium;index" validate:"omitempty,oneof=easy medium hard"`
	Topic      string          `json:"topic" gorm:"index;size:100"`

	// Answer statistics, updated best-effort after every graded answer.
	TimesAnswered      int     `json:"times_answered" gorm:"not null;default:0"`
	TimesCorrect       int     `json:"times_correct" gorm:"not null;default:0"`
	TimesIncorrect     int     `json:"times_incorrect" gorm:"not null;default:0"`
	AverageTimeSeconds float64 `json:"average_time_seconds" gorm:"not null;default:0"`

	// Metadata
	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuestionOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// ParseOptions decodes the stored options list. Returns nil for text-based
// questions that carry no options.
func (q *Question) ParseOptions() ([]QuestionOption, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var options []QuestionOption
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// TestQuestion keeps the ordered membership of a question in a test.
type TestQuestion struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	TestID     uint `json:"test_id" gorm:"not null;index;uniqueIndex:idx_test_question"`
	QuestionID uint `json:"question_id" gorm:"not null;index;uniqueIndex:idx_test_question"`
	Position   int  `json:"position" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Test     Test     `json:"-" gorm:"foreignKey:TestID"`
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

func (TestQuestion) TableName() string {
	return "test_questions"
}

// ===== CORRECT ANSWER SHAPES =====
// One shape per question type; stored in Question.CorrectAnswer and matched
// against AttemptAnswer.SelectedAnswer during scoring.

// SingleIndexAnswer covers mcq and true_false (true_false uses index 0 for
// the option marked correct, same as any two-option mcq).
type SingleIndexAnswer struct {
	Index int `json:"index"`
}

type MultiIndexAnswer struct {
	Indices []int `json:"indices"`
}

// TextAnswer covers fill_blank and short_answer. Matching is
// case-insensitive with surrounding whitespace trimmed.
type TextAnswer struct {
	Text string `json:"text"`
}
