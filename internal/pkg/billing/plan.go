package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/AdMarket/app/models"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// periodEnd returns start plus one billing period of plan.
func periodEnd(plan *models.SubscriptionPlan, start time.Time) (time.Time, error) {
	days, ok := plan.Duration.Days()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: plan %d has duration %q", ErrInvalidPlanDuration, plan.ID, plan.Duration)
	}
	return start.Add(time.Duration(days) * 24 * time.Hour), nil
}

// pickString returns override unless it is blank.
func pickString(override, current string) string {
	if strings.TrimSpace(override) == "" {
		return current
	}
	return strings.TrimSpace(override)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

func pageCount(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func userLockKey(userID uint) string {
	return fmt.Sprintf("lock:subscription:user:%d", userID)
}
