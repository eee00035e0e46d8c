package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/cache"
	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

// AssessmentPostgreSQL is the read side of the assessment store. Full
// definitions (questions included) are hot on the attempt path, so they go
// through the cache manager when one is wired.
type AssessmentPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) *AssessmentPostgreSQL {
	return &AssessmentPostgreSQL{db: db, cache: cacheManager}
}

func (r *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	err := getDB(r.db, tx).WithContext(ctx).First(&assessment, id).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	// Inside a transaction we must not serve a cached copy.
	if tx == nil && r.cache != nil && r.cache.Available() {
		var assessment models.Assessment
		err := r.cache.GetOrLoadAssessment(ctx, id, &assessment, func() (interface{}, error) {
			return r.loadWithQuestions(ctx, nil, id)
		})
		if err != nil {
			return nil, err
		}
		return &assessment, nil
	}

	return r.loadWithQuestions(ctx, tx, id)
}

func (r *AssessmentPostgreSQL) loadWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	err := getDB(r.db, tx).WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&assessment, id).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *AssessmentPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Assessment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var assessments []*models.Assessment
	err := getDB(r.db, tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("get assessments by ids: %w", err)
	}
	return assessments, nil
}

func (r *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Assessment{})

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.IsTimed != nil {
		query = query.Where("is_timed = ?", *filters.IsTimed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}

	query = applySorting(query, filters.SortBy, filters.SortOrder, map[string]bool{
		"created_at": true,
		"title":      true,
		"type":       true,
	}, "created_at")
	query = applyPagination(query, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, total, nil
}

func (r *AssessmentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := getDB(r.db, tx).WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check assessment exists: %w", err)
	}
	return count > 0, nil
}
