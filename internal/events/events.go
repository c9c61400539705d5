package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope published to the message broker
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Event types
const (
	EventTestPublished    = "test.published"
	EventTestUnpublished  = "test.unpublished"
	EventAttemptStarted   = "attempt.started"
	EventAttemptSubmitted = "attempt.submitted"
	EventAttemptTimedOut  = "attempt.timed_out"
)

const (
	eventSource  = "testprep-service"
	eventVersion = "1.0"
)

// NewEvent builds an event envelope with a fresh ID and timestamp
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events to the message broker
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type TestPublishedEvent struct {
	TestID     uint   `json:"test_id"`
	CourseID   string `json:"course_id"`
	Title      string `json:"title"`
	Published  bool   `json:"published"`
	ActionedBy string `json:"actioned_by"`
}

type AttemptStartedEvent struct {
	AttemptID     uint   `json:"attempt_id"`
	TestID        uint   `json:"test_id"`
	UserID        string `json:"user_id"`
	AttemptNumber int    `json:"attempt_number"`
}

type AttemptSubmittedEvent struct {
	AttemptID     uint    `json:"attempt_id"`
	TestID        uint    `json:"test_id"`
	TestTitle     string  `json:"test_title"`
	UserID        string  `json:"user_id"`
	AttemptNumber int     `json:"attempt_number"`
	ObtainedMarks float64 `json:"obtained_marks"`
	TotalMarks    float64 `json:"total_marks"`
	Percentage    int     `json:"percentage"`
	Passed        bool    `json:"passed"`
	TimedOut      bool    `json:"timed_out"`
}
