package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

// stubRepository wires configurable domain repositories for service tests;
// getters without a stub return nil and panic if a test path touches them.
type stubRepository struct {
	attempts   repositories.AttemptRepository
	enrollment repositories.EnrollmentRepository
}

func (r *stubRepository) Test() repositories.TestRepository                 { return nil }
func (r *stubRepository) TestQuestion() repositories.TestQuestionRepository { return nil }
func (r *stubRepository) Question() repositories.QuestionRepository         { return nil }
func (r *stubRepository) Attempt() repositories.AttemptRepository           { return r.attempts }
func (r *stubRepository) Answer() repositories.AnswerRepository             { return nil }
func (r *stubRepository) Leaderboard() repositories.LeaderboardRepository   { return nil }
func (r *stubRepository) User() repositories.UserRepository                 { return nil }
func (r *stubRepository) Enrollment() repositories.EnrollmentRepository     { return r.enrollment }
func (r *stubRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *stubRepository) Ping(ctx context.Context) error { return nil }
func (r *stubRepository) Close() error                   { return nil }

// stubAttemptRepo overrides the methods a test configures; everything else
// falls through to the embedded nil interface. The ranking counts come from
// the submitted slice when one is set, otherwise from the canned values.
type stubAttemptRepo struct {
	repositories.AttemptRepository
	count           int
	latest          *models.Attempt
	submitted       []*models.Attempt
	submittedByTest int
	submittedHigher int
}

func (r *stubAttemptRepo) CountByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) (int, error) {
	return r.count, nil
}

func (r *stubAttemptRepo) GetLatestByUserAndTest(ctx context.Context, tx *gorm.DB, userID string, testID uint) (*models.Attempt, error) {
	if r.latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.latest, nil
}

func (r *stubAttemptRepo) CountSubmittedByTest(ctx context.Context, tx *gorm.DB, testID, excludeAttemptID uint) (int, error) {
	if r.submitted != nil {
		count := 0
		for _, a := range r.submitted {
			if a.ID != excludeAttemptID {
				count++
			}
		}
		return count, nil
	}
	return r.submittedByTest, nil
}

func (r *stubAttemptRepo) CountSubmittedWithHigherMarks(ctx context.Context, tx *gorm.DB, testID, excludeAttemptID uint, obtainedMarks float64) (int, error) {
	if r.submitted != nil {
		count := 0
		for _, a := range r.submitted {
			if a.ID != excludeAttemptID && a.ObtainedMarks > obtainedMarks {
				count++
			}
		}
		return count, nil
	}
	return r.submittedHigher, nil
}

type stubEnrollmentRepo struct {
	enrolled bool
}

func (r *stubEnrollmentRepo) IsActivelyEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	return r.enrolled, nil
}

func (r *stubEnrollmentRepo) GetEnrollmentID(ctx context.Context, userID, courseID string) (string, error) {
	return "enrollment-1", nil
}

func TestNewAttemptService(t *testing.T) {
	type args struct {
		repo      repositories.Repository
		db        *gorm.DB
		logger    *slog.Logger
		validator *validator.Validator
	}
	tests := []struct {
		name string
		args args
		want AttemptService
	}{
		{name: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewAttemptService(tt.args.repo, tt.args.db, tt.args.logger, tt.args.validator, nil, nil)
		})
	}
}

func TestCheckEligibility(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	now := time.Now().UTC()
	past := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)

	baseTest := func() *models.Test {
		return &models.Test{
			ID:                1,
			CourseID:          "course-1",
			IsPublished:       true,
			IsAlwaysAvailable: true,
			MaxAttempts:       -1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*models.Test)
		repo    *stubRepository
		wantErr error
	}{
		{
			name:   "unpublished",
			mutate: func(tt *models.Test) { tt.IsPublished = false },
			repo: &stubRepository{
				attempts:   &stubAttemptRepo{},
				enrollment: &stubEnrollmentRepo{enrolled: true},
			},
			wantErr: ErrTestNotPublished,
		},
		{
			name: "window not open yet",
			mutate: func(tt *models.Test) {
				tt.IsAlwaysAvailable = false
				tt.StartDate = &future
			},
			repo: &stubRepository{
				attempts:   &stubAttemptRepo{},
				enrollment: &stubEnrollmentRepo{enrolled: true},
			},
			wantErr: ErrTestNotAvailable,
		},
		{
			name: "window already closed",
			mutate: func(tt *models.Test) {
				tt.IsAlwaysAvailable = false
				tt.EndDate = &past
			},
			repo: &stubRepository{
				attempts:   &stubAttemptRepo{},
				enrollment: &stubEnrollmentRepo{enrolled: true},
			},
			wantErr: ErrTestNotAvailable,
		},
		{
			name:   "not enrolled",
			mutate: func(tt *models.Test) {},
			repo: &stubRepository{
				attempts:   &stubAttemptRepo{},
				enrollment: &stubEnrollmentRepo{enrolled: false},
			},
			wantErr: ErrNotEnrolled,
		},
		{
			name:   "attempt limit reached",
			mutate: func(tt *models.Test) { tt.MaxAttempts = 3 },
			repo: &stubRepository{
				attempts:   &stubAttemptRepo{count: 3},
				enrollment: &stubEnrollmentRepo{enrolled: true},
			},
			wantErr: ErrAttemptLimitExceeded,
		},
		{
			name:   "unlimited attempts never hit the limit",
			mutate: func(tt *models.Test) {},
			repo: &stubRepository{
				attempts:   &stubAttemptRepo{count: 500},
				enrollment: &stubEnrollmentRepo{enrolled: true},
			},
			wantErr: nil,
		},
		{
			name:   "cooldown elapsed",
			mutate: func(tt *models.Test) { tt.CooldownHours = 1 },
			repo: &stubRepository{
				attempts: &stubAttemptRepo{
					count:  1,
					latest: &models.Attempt{SubmittedAt: &past},
				},
				enrollment: &stubEnrollmentRepo{enrolled: true},
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test := baseTest()
			tt.mutate(test)
			s := &attemptService{repo: tt.repo, logger: logger}

			err := s.checkEligibility(context.Background(), tt.repo, test, "user-1")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkEligibility() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("cooldown active reports remaining wait", func(t *testing.T) {
		submitted := now.Add(-1 * time.Hour)
		test := baseTest()
		test.CooldownHours = 24
		repo := &stubRepository{
			attempts: &stubAttemptRepo{
				count:  1,
				latest: &models.Attempt{SubmittedAt: &submitted},
			},
			enrollment: &stubEnrollmentRepo{enrolled: true},
		}
		s := &attemptService{repo: repo, logger: logger}

		err := s.checkEligibility(context.Background(), repo, test, "user-1")

		var cooldown *CooldownError
		if !errors.As(err, &cooldown) {
			t.Fatalf("checkEligibility() error = %v, want CooldownError", err)
		}
		if cooldown.RemainingTime < 22*time.Hour || cooldown.RemainingTime > 23*time.Hour {
			t.Errorf("RemainingTime = %v, want about 23h", cooldown.RemainingTime)
		}
	})

	t.Run("cooldown falls back to start time for unfinished attempts", func(t *testing.T) {
		test := baseTest()
		test.CooldownHours = 24
		repo := &stubRepository{
			attempts: &stubAttemptRepo{
				count:  1,
				latest: &models.Attempt{CreatedAt: now.Add(-30 * time.Minute)},
			},
			enrollment: &stubEnrollmentRepo{enrolled: true},
		}
		s := &attemptService{repo: repo, logger: logger}

		err := s.checkEligibility(context.Background(), repo, test, "user-1")

		var cooldown *CooldownError
		if !errors.As(err, &cooldown) {
			t.Fatalf("checkEligibility() error = %v, want CooldownError", err)
		}
	})
}

func TestAttemptDeadline(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	attempt := &models.Attempt{StartedAt: started}
	test := &models.Test{Duration: 45}

	deadline := attemptDeadline(attempt, test)

	want := started.Add(45 * time.Minute)
	if !deadline.Equal(want) {
		t.Errorf("attemptDeadline() = %v, want %v", deadline, want)
	}
}
