package services

import (
	"errors"
	"fmt"
	"time"
)

// ===== SENTINEL ERRORS =====

var (
	// Not found
	ErrTestNotFound     = errors.New("test not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrUserNotFound     = errors.New("user not found")

	// Invalid state
	ErrTestNotPublished        = errors.New("test is not published")
	ErrTestAlreadyPublished    = errors.New("test is already published")
	ErrTestNotAvailable        = errors.New("test is not available at this time")
	ErrTestHasNoQuestions      = errors.New("test has no questions")
	ErrAttemptNotActive        = errors.New("attempt is not in progress")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrQuestionInUse           = errors.New("question is used in one or more tests")

	// Limits
	ErrAttemptLimitExceeded = errors.New("maximum attempts exceeded")

	// Enrollment
	ErrNotEnrolled = errors.New("user is not enrolled in the course")
)

// ===== TYPED ERRORS =====

// PermissionError carries who tried to do what to which resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// CooldownError is returned when a retake is attempted before the cooldown
// window has elapsed. RemainingTime is how long the user still has to wait.
type CooldownError struct {
	TestID        uint
	RemainingTime time.Duration
}

func NewCooldownError(testID uint, remaining time.Duration) *CooldownError {
	return &CooldownError{TestID: testID, RemainingTime: remaining}
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for test %d: retry in %s", e.TestID, e.RemainingTime.Round(time.Second))
}

// BusinessRuleError represents a violated domain rule
type BusinessRuleError struct {
	Rule    string
	Message string
}

func NewBusinessRuleError(rule, message string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// ===== CLASSIFIERS =====

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsCooldownError(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}

func IsInvalidStateError(err error) bool {
	return errors.Is(err, ErrTestNotPublished) ||
		errors.Is(err, ErrTestAlreadyPublished) ||
		errors.Is(err, ErrTestNotAvailable) ||
		errors.Is(err, ErrTestHasNoQuestions) ||
		errors.Is(err, ErrAttemptNotActive) ||
		errors.Is(err, ErrAttemptAlreadySubmitted) ||
		errors.Is(err, ErrQuestionInUse)
}
