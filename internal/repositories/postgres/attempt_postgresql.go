package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) *AttemptPostgreSQL {
	return &AttemptPostgreSQL{db: db}
}

// CreateInProgress inserts a fresh in-progress attempt. The partial unique
// index on (assessment_id, user_id) WHERE status = 'in_progress' makes
// concurrent starts race safely: the loser gets a unique violation and
// re-reads the winner's row.
func (r *AttemptPostgreSQL) CreateInProgress(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	attempt.Status = models.AttemptInProgress
	err := getDB(r.db, tx).WithContext(ctx).Create(attempt).Error
	if err != nil {
		if isUniqueViolation(err) {
			return gorm.ErrDuplicatedKey
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

func (r *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := getDB(r.db, tx).WithContext(ctx).First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	if err := getDB(r.db, tx).WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	return nil
}

func (r *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.Attempt, error) {
	var attempt models.Attempt
	err := getDB(r.db, tx).WithContext(ctx).
		Where("user_id = ? AND assessment_id = ? AND status = ?",
			userID, assessmentID, models.AttemptInProgress).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// CountSubmitted counts only submitted attempts; an abandoned in-progress
// attempt never burns a slot of the attempt limit.
func (r *AttemptPostgreSQL) CountSubmitted(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (int, error) {
	var count int64
	err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Attempt{}).
		Where("user_id = ? AND assessment_id = ? AND status = ?",
			userID, assessmentID, models.AttemptSubmitted).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count submitted attempts: %w", err)
	}
	return int(count), nil
}

func (r *AttemptPostgreSQL) GetByUserAndAssessment(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := getDB(r.db, tx).WithContext(ctx).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("started_at ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("get attempts for user and assessment: %w", err)
	}
	return attempts, nil
}

func (r *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Attempt{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	query = applySorting(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"started_at":   true,
		"submitted_at": true,
		"score":        true,
	}, "started_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	var attempts []*models.Attempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, total, nil
}

// GetSubmittedByUsers loads every submitted attempt for the given users in
// one query, for the campus rollup.
func (r *AttemptPostgreSQL) GetSubmittedByUsers(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*models.Attempt, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var attempts []*models.Attempt
	err := getDB(r.db, tx).WithContext(ctx).
		Where("user_id IN ? AND status = ?", userIDs, models.AttemptSubmitted).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("get submitted attempts by users: %w", err)
	}
	return attempts, nil
}

// isUniqueViolation detects a postgres unique constraint error. GORM only
// translates ErrDuplicatedKey when the translator is enabled, so match the
// SQLSTATE as a fallback.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return err == gorm.ErrDuplicatedKey || strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
