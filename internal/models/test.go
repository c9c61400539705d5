package models

import (
	"time"

	"gorm.io/gorm"
)

type Test struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	CourseID    string  `json:"course_id" gorm:"not null;index;size:255" validate:"required"`
	LessonID    *string `json:"lesson_id" gorm:"index;size:255"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Duration    int     `json:"duration" gorm:"not null" validate:"required,min=5,max=300"` // minutes

	// Derived from the question set; recomputed whenever membership changes.
	TotalQuestions int     `json:"total_questions" gorm:"not null;default:0"`
	TotalMarks     float64 `json:"total_marks" gorm:"not null;default:0"`

	// Scoring policy. Negative marking is platform policy and stays enabled
	// on every update path.
	PassingMarks           int     `json:"passing_marks" gorm:"not null" validate:"required,min=0,max=100"` // percentage
	NegativeMarkingEnabled bool    `json:"negative_marking_enabled" gorm:"not null;default:true"`
	NegativeMarkingPercent float64 `json:"negative_marking_percent" gorm:"not null;default:25" validate:"min=0,max=100"`

	// Display randomization
	ShuffleQuestions bool `json:"shuffle_questions" gorm:"not null;default:false"`
	ShuffleOptions   bool `json:"shuffle_options" gorm:"not null;default:false"`

	// Attempt limits
	MaxAttempts   int `json:"max_attempts" gorm:"not null;default:-1" validate:"omitempty,max_attempts"` // -1 = unlimited
	CooldownHours int `json:"cooldown_hours" gorm:"not null;default:0" validate:"min=0"`

	// Availability window. Open-ended bounds are unbounded on that side.
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	IsAlwaysAvailable bool       `json:"is_always_available" gorm:"not null;default:true"`

	IsPublished bool `json:"is_published" gorm:"not null;default:false;index"`

	// Aggregate statistics, updated best-effort after each scored attempt.
	TotalAttempts int     `json:"total_attempts" gorm:"not null;default:0"`
	AverageScore  float64 `json:"average_score" gorm:"not null;default:0"`
	HighestScore  float64 `json:"highest_score" gorm:"not null;default:0"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []TestQuestion `json:"questions" gorm:"foreignKey:TestID"`
	Attempts  []Attempt      `json:"-" gorm:"foreignKey:TestID"`
}

// IsAvailable reports whether the test can be started at the given instant.
func (t *Test) IsAvailable(now time.Time) bool {
	if t.IsAlwaysAvailable {
		return true
	}
	if t.StartDate != nil && now.Before(*t.StartDate) {
		return false
	}
	if t.EndDate != nil && now.After(*t.EndDate) {
		return false
	}
	return true
}

func (Test) TableName() string {
	return "tests"
}
