package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/testprep-service/internal/events"
	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

// notificationEventService turns lifecycle transitions into broker events.
// Publishing is best-effort at every call site; this service never blocks a
// domain operation on broker availability.
type notificationEventService struct {
	repo           repositories.Repository
	eventPublisher events.EventPublisher
	logger         *slog.Logger
	validator      *validator.Validator
}

func NewNotificationEventService(repo repositories.Repository, eventPublisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) NotificationEventService {
	return &notificationEventService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         logger,
		validator:      validator,
	}
}

func (s *notificationEventService) PublishTestPublished(ctx context.Context, test *models.Test, actionedBy string) error {
	eventType := events.EventTestPublished
	if !test.IsPublished {
		eventType = events.EventTestUnpublished
	}

	event := events.NewEvent(eventType, events.TestPublishedEvent{
		TestID:     test.ID,
		CourseID:   test.CourseID,
		Title:      test.Title,
		Published:  test.IsPublished,
		ActionedBy: actionedBy,
	})

	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	s.logger.Info("Published test publication event", "event_type", eventType, "test_id", test.ID)
	return nil
}

func (s *notificationEventService) PublishAttemptStarted(ctx context.Context, attempt *models.Attempt) error {
	event := events.NewEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID:     attempt.ID,
		TestID:        attempt.TestID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
	})

	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish attempt started event: %w", err)
	}

	s.logger.Info("Published attempt started event", "attempt_id", attempt.ID)
	return nil
}

func (s *notificationEventService) PublishAttemptSubmitted(ctx context.Context, attempt *models.Attempt, test *models.Test, timedOut bool) error {
	eventType := events.EventAttemptSubmitted
	if timedOut {
		eventType = events.EventAttemptTimedOut
	}

	event := events.NewEvent(eventType, events.AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		TestID:        attempt.TestID,
		TestTitle:     test.Title,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		ObtainedMarks: attempt.ObtainedMarks,
		TotalMarks:    attempt.TotalMarks,
		Percentage:    attempt.Percentage,
		Passed:        attempt.Passed,
		TimedOut:      timedOut,
	})

	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	s.logger.Info("Published attempt submitted event", "event_type", eventType, "attempt_id", attempt.ID)
	return nil
}
