package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheManager exposes domain-shaped cache operations so callers never
// build raw keys themselves.
type CacheManager struct {
	helper *CacheHelper
}

func NewCacheManager(client *redis.Client, logger *slog.Logger) *CacheManager {
	return &CacheManager{
		helper: NewCacheHelper(client, logger),
	}
}

func (m *CacheManager) Available() bool {
	return m.helper.Available()
}

func AssessmentKey(id uint) string {
	return fmt.Sprintf("%s%d", PrefixAssessment, id)
}

func RulesKey(assessmentID uint) string {
	return fmt.Sprintf("%s%d", PrefixRules, assessmentID)
}

func UserAnalyticsKey(userID string) string {
	return fmt.Sprintf("%suser:%s", PrefixAnalytics, userID)
}

func CampusAnalyticsKey(campusID string) string {
	return fmt.Sprintf("%scampus:%s", PrefixAnalytics, campusID)
}

func UserKey(id string) string {
	return fmt.Sprintf("%s%s", PrefixUser, id)
}

// GetOrLoadAssessment caches the full assessment (questions included)
// under its id.
func (m *CacheManager) GetOrLoadAssessment(ctx context.Context, id uint, dest interface{}, load func() (interface{}, error)) error {
	return m.helper.CacheOrExecute(ctx, AssessmentKey(id), TTLAssessment, dest, load)
}

func (m *CacheManager) GetOrLoadRules(ctx context.Context, assessmentID uint, dest interface{}, load func() (interface{}, error)) error {
	return m.helper.CacheOrExecute(ctx, RulesKey(assessmentID), TTLRules, dest, load)
}

func (m *CacheManager) GetOrLoadUserAnalytics(ctx context.Context, userID string, dest interface{}, load func() (interface{}, error)) error {
	return m.helper.CacheOrExecute(ctx, UserAnalyticsKey(userID), TTLAnalytics, dest, load)
}

func (m *CacheManager) GetOrLoadCampusAnalytics(ctx context.Context, campusID string, dest interface{}, load func() (interface{}, error)) error {
	return m.helper.CacheOrExecute(ctx, CampusAnalyticsKey(campusID), TTLAnalytics, dest, load)
}

func (m *CacheManager) GetOrLoadUser(ctx context.Context, id string, dest interface{}, load func() (interface{}, error)) error {
	return m.helper.CacheOrExecute(ctx, UserKey(id), TTLUser, dest, load)
}

// InvalidateAssessment drops the assessment and its rule set.
func (m *CacheManager) InvalidateAssessment(ctx context.Context, id uint) error {
	return m.helper.Delete(ctx, AssessmentKey(id), RulesKey(id))
}

// InvalidateRules drops every cached rule set. Rule changes affect
// resolution for all assessments the rule targets, so a broad sweep is
// simpler than tracking reverse indexes.
func (m *CacheManager) InvalidateRules(ctx context.Context) error {
	return m.helper.DeletePattern(ctx, PrefixRules+"*")
}

// InvalidateAnalytics drops the user's snapshot and their campus
// snapshot. Called after every submission.
func (m *CacheManager) InvalidateAnalytics(ctx context.Context, userID, campusID string) error {
	keys := []string{UserAnalyticsKey(userID)}
	if campusID != "" {
		keys = append(keys, CampusAnalyticsKey(campusID))
	}
	return m.helper.Delete(ctx, keys...)
}

// Ping verifies the redis connection with a short timeout.
func (m *CacheManager) Ping(ctx context.Context) error {
	if m.helper.client == nil {
		return ErrCacheUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.helper.client.Ping(ctx).Err()
}
