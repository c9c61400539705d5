package casdoor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/testprep-service/internal/repositories"
)

// EnrollmentCasdoor resolves course enrollment from Casdoor group membership.
// A student enrolled in a course is a member of the group named
// "course-<courseID>" in the configured organization.
type EnrollmentCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
	config CasdoorConfig

	cachePrefix string
	cacheTTL    time.Duration
}

func NewEnrollmentCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.EnrollmentRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &EnrollmentCasdoor{
		client:      client,
		redis:       redisClient,
		config:      config,
		cachePrefix: "enrollment:",
		cacheTTL:    5 * time.Minute,
	}
}

// courseGroupName builds the Casdoor group name for a course
func (e *EnrollmentCasdoor) courseGroupName(courseID string) string {
	return fmt.Sprintf("course-%s", courseID)
}

func (e *EnrollmentCasdoor) getCacheKey(userID, courseID string) string {
	return fmt.Sprintf("%s%s:%s", e.cachePrefix, userID, courseID)
}

// IsActivelyEnrolled checks whether the user belongs to the course group
func (e *EnrollmentCasdoor) IsActivelyEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	// Check cache first
	cacheKey := e.getCacheKey(userID, courseID)
	if e.redis != nil {
		cached, err := e.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			return cached == "true", nil
		}
	}

	casdoorUser, err := e.client.GetUserByUserId(userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return false, nil
	}

	groupName := e.courseGroupName(courseID)
	enrolled := false
	for _, group := range casdoorUser.Groups {
		// Group names may be qualified with the organization prefix
		name := group
		if idx := strings.LastIndex(group, "/"); idx >= 0 {
			name = group[idx+1:]
		}
		if name == groupName {
			enrolled = true
			break
		}
	}

	// Cache the result
	if e.redis != nil {
		e.redis.Set(ctx, cacheKey, fmt.Sprintf("%t", enrolled), e.cacheTTL)
	}

	return enrolled, nil
}

// GetEnrollmentID returns the enrollment identifier for a user in a course.
// Enrollment records are owned by the course service; the identifier here is
// derived from the group membership and stable across calls.
func (e *EnrollmentCasdoor) GetEnrollmentID(ctx context.Context, userID, courseID string) (string, error) {
	enrolled, err := e.IsActivelyEnrolled(ctx, userID, courseID)
	if err != nil {
		return "", err
	}
	if !enrolled {
		return "", fmt.Errorf("user %s is not enrolled in course %s", userID, courseID)
	}

	return fmt.Sprintf("%s:%s", courseID, userID), nil
}
