package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateTestCache invalidates all test-related caches
func InvalidateTestCache(ctx context.Context, cm *CacheManager, testID uint, courseID string) {
	SafeDelete(ctx, cm.Test,
		fmt.Sprintf("id:%d", testID),
		fmt.Sprintf("details:%d", testID))

	SafeInvalidatePattern(ctx, cm.Test, fmt.Sprintf("course:%s:*", courseID))
	SafeInvalidatePattern(ctx, cm.Test, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("test:%d:*", testID))
}

// InvalidateQuestionCache invalidates all question-related caches
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint, courseID string) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("course:%s:*", courseID))
	SafeInvalidatePattern(ctx, cm.Question, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("question:%d:*", questionID))
}
