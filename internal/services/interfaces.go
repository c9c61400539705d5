package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/testprep-service/internal/events"
	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

// ===== REQUEST/RESPONSE DTOs =====

// Request shapes live next to the models they bind to
type CreateTestRequest = models.TestCreateRequest
type UpdateTestRequest = models.TestUpdateRequest
type CreateQuestionRequest = models.QuestionCreateRequest
type UpdateQuestionRequest = models.QuestionUpdateRequest
type StartAttemptRequest = models.StartAttemptRequest
type SubmitAttemptRequest = models.SubmitAttemptRequest

type TestResponse struct {
	*models.Test
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type TestListResponse struct {
	Tests []*TestResponse `json:"tests"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type QuestionResponse struct {
	*models.Question
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type QuestionListResponse struct {
	Questions []*QuestionResponse `json:"questions"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

// ===== ATTEMPT RELATED DTOs =====

// QuestionForAttempt is the taker-facing view of a question. The correct
// answer never appears here. Options carry their original index so shuffled
// displays still submit canonical indices.
type QuestionForAttempt struct {
	QuestionID uint                   `json:"question_id"`
	Type       models.QuestionType    `json:"type"`
	Prompt     string                 `json:"prompt"`
	Options    []AttemptOptionView    `json:"options,omitempty"`
	Marks      float64                `json:"marks"`
	Topic      string                 `json:"topic,omitempty"`
	Difficulty models.DifficultyLevel `json:"difficulty,omitempty"`
}

type AttemptOptionView struct {
	Index int    `json:"index"` // canonical index in stored order
	Text  string `json:"text"`
}

type AttemptResponse struct {
	*models.Attempt
	TimeRemainingSeconds int                  `json:"time_remaining_seconds"`
	Questions            []QuestionForAttempt `json:"questions,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// ===== SCORING RELATED DTOs =====

// ScoreResult is the outcome of scoring one submitted attempt
type ScoreResult struct {
	AttemptID       uint                 `json:"attempt_id"`
	Status          models.AttemptStatus `json:"status"`
	TotalMarks      float64              `json:"total_marks"`
	ObtainedMarks   float64              `json:"obtained_marks"`
	NegativeMarks   float64              `json:"negative_marks"`
	Percentage      int                  `json:"percentage"`
	CorrectCount    int                  `json:"correct_count"`
	IncorrectCount  int                  `json:"incorrect_count"`
	UnansweredCount int                  `json:"unanswered_count"`
	Passed          bool                 `json:"passed"`
	Rank            *int                 `json:"rank"`
	Percentile      *int                 `json:"percentile"`
	SubmittedAt     time.Time            `json:"submitted_at"`
}

// ===== LEADERBOARD DTOs =====

type LeaderboardResponse struct {
	TestID  uint                       `json:"test_id"`
	Entries []*models.LeaderboardEntry `json:"entries"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	Size    int                        `json:"size"`
}

// ===== SERVICE INTERFACES =====

type TestService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateTestRequest, creatorID string) (*TestResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*TestResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*TestResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTestRequest, userID string) (*TestResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// List operations
	List(ctx context.Context, filters repositories.TestFilters, userID string) (*TestListResponse, error)
	GetByCourse(ctx context.Context, courseID string, filters repositories.TestFilters, userID string) (*TestListResponse, error)

	// Publication
	Publish(ctx context.Context, id uint, userID string) error
	Unpublish(ctx context.Context, id uint, userID string) error

	// Question membership
	AddQuestion(ctx context.Context, testID, questionID uint, userID string) error
	RemoveQuestion(ctx context.Context, testID, questionID uint, userID string) error
	GetQuestions(ctx context.Context, testID uint, userID string) ([]*QuestionResponse, error)

	// Statistics
	GetStats(ctx context.Context, id uint, userID string) (*repositories.TestAttemptStats, error)

	// Permission checks
	CanEdit(ctx context.Context, testID uint, userID string) (bool, error)
}

type QuestionService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*QuestionResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuestionResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*QuestionResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// Bulk operations
	CreateBatch(ctx context.Context, reqs []*CreateQuestionRequest, creatorID string) ([]*QuestionResponse, error)

	// List operations
	List(ctx context.Context, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error)
	GetByCourse(ctx context.Context, courseID string, filters repositories.QuestionFilters, userID string) (*QuestionListResponse, error)
}

type AttemptService interface {
	// Start runs the full eligibility chain and creates the attempt with one
	// null answer slot per question
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*AttemptResponse, error)

	// Get operations
	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*AttemptResponse, error)

	// List operations
	List(ctx context.Context, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)
	GetByUserAndTest(ctx context.Context, testID uint, userID string) ([]*AttemptResponse, error)

	// HandleTimeout force-closes an expired in-progress attempt, scoring
	// whatever answers were saved
	HandleTimeout(ctx context.Context, attemptID uint) error

	// Validation
	CanStart(ctx context.Context, testID uint, userID string) error
}

type ScoringService interface {
	// Submit grades the attempt against the question set and writes the
	// score block exactly once
	Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, userID string) (*ScoreResult, error)

	// SubmitTimedOut closes an expired attempt with its saved answers
	SubmitTimedOut(ctx context.Context, attemptID uint) (*ScoreResult, error)
}

type RankingService interface {
	// ComputeRank returns the 1-based standing among the submissions that
	// completed before the given attempt
	ComputeRank(ctx context.Context, testID, attemptID uint, obtainedMarks float64) (rank int, percentile int, err error)

	// GetLeaderboard returns best-attempt-per-user standings for a test
	GetLeaderboard(ctx context.Context, testID uint, page, size int, userID string) (*LeaderboardResponse, error)
}

type PerformanceService interface {
	// AnalyzeAttempt computes per-topic scores with strengths and weak areas
	AnalyzeAttempt(ctx context.Context, attemptID uint, userID string) (*models.PerformanceSummary, error)

	// GetCourseProgress aggregates a user's results across a course
	GetCourseProgress(ctx context.Context, courseID, userID string) (*models.CourseProgress, error)
}

type ImportExportService interface {
	// ImportQuestions reads questions from an Excel workbook
	ImportQuestions(ctx context.Context, courseID string, reader io.Reader, creatorID string) (*models.ImportQuestionsResult, error)

	// ExportQuestions writes a course's questions to an Excel workbook
	ExportQuestions(ctx context.Context, courseID string, userID string) ([]byte, error)

	// ExportLeaderboard writes a test's leaderboard to an Excel workbook
	ExportLeaderboard(ctx context.Context, testID uint, userID string) ([]byte, error)
}

type NotificationEventService interface {
	// Publish lifecycle events, best-effort
	PublishTestPublished(ctx context.Context, test *models.Test, actionedBy string) error
	PublishAttemptStarted(ctx context.Context, attempt *models.Attempt) error
	PublishAttemptSubmitted(ctx context.Context, attempt *models.Attempt, test *models.Test, timedOut bool) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Test() TestService
	Question() QuestionService
	Attempt() AttemptService
	Scoring() ScoringService
	Ranking() RankingService
	Performance() PerformanceService
	ImportExport() ImportExportService
	Notification() NotificationEventService

	// Event publisher shared by services
	EventPublisher() events.EventPublisher

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
