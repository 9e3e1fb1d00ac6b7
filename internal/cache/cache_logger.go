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

// InvalidateSubmissionCache invalidates all caches touched by a submission write
func InvalidateSubmissionCache(ctx context.Context, cm *CacheManager, submissionID uint, owner string) {
	SafeDelete(ctx, cm.Submission, fmt.Sprintf("id:%d", submissionID))
	SafeInvalidatePattern(ctx, cm.Submission, fmt.Sprintf("owner:%s:*", owner))
	SafeInvalidatePattern(ctx, cm.Submission, "list:*")
}

// InvalidateUserCache invalidates caches for one user plus any role listing
func InvalidateUserCache(ctx context.Context, cm *CacheManager, username string) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("username:%s", username))
	SafeInvalidatePattern(ctx, cm.User, "role:*")
}
