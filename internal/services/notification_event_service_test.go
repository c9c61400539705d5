package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/SAP-F-2025/testprep-service/internal/events"
	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

func TestNotificationEventService_PublishEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mockPublisher := events.NewMockEventPublisher(logger)
	v := validator.New()

	service := &notificationEventService{
		repo:           &stubRepository{},
		eventPublisher: mockPublisher,
		logger:         logger,
		validator:      v,
	}

	ctx := context.Background()

	t.Run("PublishTestPublished", func(t *testing.T) {
		mockPublisher.ClearEvents()

		test := &models.Test{ID: 7, CourseID: "course-1", Title: "Midterm", IsPublished: true}
		if err := service.PublishTestPublished(ctx, test, "instructor-1"); err != nil {
			t.Fatalf("PublishTestPublished() error = %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("got %d events, want 1", len(published))
		}
		event := published[0]
		if event.Type != events.EventTestPublished {
			t.Errorf("event type = %s, want %s", event.Type, events.EventTestPublished)
		}
		if event.Source != "testprep-service" {
			t.Errorf("event source = %s, want testprep-service", event.Source)
		}
		data, ok := event.Data.(events.TestPublishedEvent)
		if !ok {
			t.Fatalf("event data has type %T, want TestPublishedEvent", event.Data)
		}
		if data.TestID != 7 || data.ActionedBy != "instructor-1" || !data.Published {
			t.Errorf("unexpected payload: %+v", data)
		}
	})

	t.Run("PublishTestPublished_Unpublish", func(t *testing.T) {
		mockPublisher.ClearEvents()

		test := &models.Test{ID: 7, CourseID: "course-1", Title: "Midterm", IsPublished: false}
		if err := service.PublishTestPublished(ctx, test, "instructor-1"); err != nil {
			t.Fatalf("PublishTestPublished() error = %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("got %d events, want 1", len(published))
		}
		if published[0].Type != events.EventTestUnpublished {
			t.Errorf("event type = %s, want %s", published[0].Type, events.EventTestUnpublished)
		}
	})

	t.Run("PublishAttemptStarted", func(t *testing.T) {
		mockPublisher.ClearEvents()

		attempt := &models.Attempt{ID: 42, TestID: 7, UserID: "user-1", AttemptNumber: 2}
		if err := service.PublishAttemptStarted(ctx, attempt); err != nil {
			t.Fatalf("PublishAttemptStarted() error = %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("got %d events, want 1", len(published))
		}
		data, ok := published[0].Data.(events.AttemptStartedEvent)
		if !ok {
			t.Fatalf("event data has type %T, want AttemptStartedEvent", published[0].Data)
		}
		if data.AttemptID != 42 || data.AttemptNumber != 2 {
			t.Errorf("unexpected payload: %+v", data)
		}
	})

	t.Run("PublishAttemptSubmitted_TimedOut", func(t *testing.T) {
		mockPublisher.ClearEvents()

		attempt := &models.Attempt{
			ID:            42,
			TestID:        7,
			UserID:        "user-1",
			AttemptNumber: 2,
			ObtainedMarks: 12.5,
			TotalMarks:    20,
			Percentage:    63,
			Passed:        true,
		}
		test := &models.Test{ID: 7, Title: "Midterm"}
		if err := service.PublishAttemptSubmitted(ctx, attempt, test, true); err != nil {
			t.Fatalf("PublishAttemptSubmitted() error = %v", err)
		}

		published := mockPublisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("got %d events, want 1", len(published))
		}
		if published[0].Type != events.EventAttemptTimedOut {
			t.Errorf("event type = %s, want %s", published[0].Type, events.EventAttemptTimedOut)
		}
		data, ok := published[0].Data.(events.AttemptSubmittedEvent)
		if !ok {
			t.Fatalf("event data has type %T, want AttemptSubmittedEvent", published[0].Data)
		}
		if !data.TimedOut || data.ObtainedMarks != 12.5 || data.Percentage != 63 {
			t.Errorf("unexpected payload: %+v", data)
		}
		if data.TestTitle != "Midterm" {
			t.Errorf("test title = %q, want Midterm", data.TestTitle)
		}
	})
}
