package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

// ===== ELIGIBILITY =====

// checkEligibility runs the start checks in fixed order: published,
// available, enrolled, attempt limit, cooldown.
func (s *attemptService) checkEligibility(ctx context.Context, repo repositories.Repository, test *models.Test, userID string) error {
	if !test.IsPublished {
		return ErrTestNotPublished
	}

	now := time.Now().UTC()
	if !test.IsAvailable(now) {
		return ErrTestNotAvailable
	}

	enrolled, err := repo.Enrollment().IsActivelyEnrolled(ctx, userID, test.CourseID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return ErrNotEnrolled
	}

	count, err := repo.Attempt().CountByUserAndTest(ctx, nil, userID, test.ID)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if test.MaxAttempts != -1 && count >= test.MaxAttempts {
		return ErrAttemptLimitExceeded
	}

	if test.CooldownHours > 0 && count > 0 {
		latest, err := repo.Attempt().GetLatestByUserAndTest(ctx, nil, userID, test.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get latest attempt: %w", err)
		}
		if latest != nil {
			reference := latest.CreatedAt
			if latest.SubmittedAt != nil {
				reference = *latest.SubmittedAt
			}
			readyAt := reference.Add(time.Duration(test.CooldownHours) * time.Hour)
			if now.Before(readyAt) {
				return NewCooldownError(test.ID, readyAt.Sub(now))
			}
		}
	}

	return nil
}

// ===== OWNERSHIP =====

func (s *attemptService) getUserRole(ctx context.Context, userID string) (models.UserRole, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role, nil
}

// getOwnedAttempt loads an attempt and enforces visibility: students see
// only their own attempts, instructors and admins see all.
func (s *attemptService) getOwnedAttempt(ctx context.Context, id uint, userID string) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		role, err := s.getUserRole(ctx, userID)
		if err != nil {
			return nil, err
		}
		if role != models.RoleInstructor && role != models.RoleAdmin {
			return nil, NewPermissionError(userID, attempt.ID, "attempt", "read", "attempt belongs to another user")
		}
	}

	return attempt, nil
}

// ===== TIMEOUT =====

// attemptDeadline is the instant the attempt's clock runs out.
func attemptDeadline(attempt *models.Attempt, test *models.Test) time.Time {
	return attempt.StartedAt.Add(time.Duration(test.Duration) * time.Minute)
}

// closeIfExpired lazily times out an in-progress attempt whose deadline has
// passed, then reloads it with the score block written.
func (s *attemptService) closeIfExpired(ctx context.Context, attempt *models.Attempt, test *models.Test) (*models.Attempt, error) {
	if attempt.IsTerminal() {
		return attempt, nil
	}
	if time.Now().UTC().Before(attemptDeadline(attempt, test)) {
		return attempt, nil
	}

	s.logger.Info("Attempt expired, closing", "attempt_id", attempt.ID)
	if _, err := s.scoring.SubmitTimedOut(ctx, attempt.ID); err != nil {
		return nil, err
	}

	closed, err := s.repo.Attempt().GetByIDWithAnswers(ctx, nil, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload attempt: %w", err)
	}
	return closed, nil
}

// ===== RESPONSE BUILDERS =====

func (s *attemptService) buildAttemptResponse(attempt *models.Attempt, test *models.Test) *AttemptResponse {
	remaining := 0
	if !attempt.IsTerminal() {
		if until := time.Until(attemptDeadline(attempt, test)); until > 0 {
			remaining = int(until.Seconds())
		}
	}

	return &AttemptResponse{
		Attempt:              attempt,
		TimeRemainingSeconds: remaining,
	}
}

// buildQuestionViews produces the taker-facing question list. Shuffling is
// display-only: nothing about the order is persisted, and options keep
// their canonical index so grading matches the stored answer shapes.
func (s *attemptService) buildQuestionViews(test *models.Test, questions []*models.Question) []QuestionForAttempt {
	views := make([]QuestionForAttempt, len(questions))
	for i, q := range questions {
		view := QuestionForAttempt{
			QuestionID: q.ID,
			Type:       q.Type,
			Prompt:     q.Prompt,
			Marks:      q.Marks,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
		}

		if q.Type.IsChoiceBased() {
			options, err := q.ParseOptions()
			if err != nil {
				s.logger.Warn("Failed to parse question options", "question_id", q.ID, "error", err)
			}
			view.Options = make([]AttemptOptionView, len(options))
			for j, opt := range options {
				view.Options[j] = AttemptOptionView{Index: j, Text: opt.Text}
			}
			if test.ShuffleOptions {
				rand.Shuffle(len(view.Options), func(a, b int) {
					view.Options[a], view.Options[b] = view.Options[b], view.Options[a]
				})
			}
		}

		views[i] = view
	}

	if test.ShuffleQuestions {
		rand.Shuffle(len(views), func(a, b int) {
			views[a], views[b] = views[b], views[a]
		})
	}

	return views
}
