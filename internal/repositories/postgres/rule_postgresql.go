package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/schoolpd/assessment-service/internal/models"
	"github.com/schoolpd/assessment-service/internal/repositories"
)

type RulePostgreSQL struct {
	db *gorm.DB
}

func NewRulePostgreSQL(db *gorm.DB) *RulePostgreSQL {
	return &RulePostgreSQL{db: db}
}

func (r *RulePostgreSQL) Create(ctx context.Context, tx *gorm.DB, rule *models.AssignmentRule) error {
	// The validator catches this at the API boundary; the store rejects
	// it again so no untargeted rule can be persisted.
	if !rule.HasTarget() {
		return repositories.ErrRuleWithoutTarget
	}
	if err := getDB(r.db, tx).WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("create assignment rule: %w", err)
	}
	return nil
}

func (r *RulePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssignmentRule, error) {
	var rule models.AssignmentRule
	err := getDB(r.db, tx).WithContext(ctx).First(&rule, id).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RulePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := getDB(r.db, tx).WithContext(ctx).Delete(&models.AssignmentRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete assignment rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RulePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.RuleFilters) ([]*models.AssignmentRule, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.AssignmentRule{})

	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.UserID != nil {
		query = query.Where("assigned_to_id = ?", *filters.UserID)
	}
	if filters.Role != nil {
		query = query.Where("assigned_to_role = ?", *filters.Role)
	}
	if filters.CampusID != nil {
		query = query.Where("assigned_to_campus_id = ?", *filters.CampusID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count assignment rules: %w", err)
	}

	query = query.Order("created_at DESC")
	query = applyPagination(query, filters.Limit, filters.Offset)

	var rules []*models.AssignmentRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, 0, fmt.Errorf("list assignment rules: %w", err)
	}
	return rules, total, nil
}

// GetAll returns every rule. The resolver evaluates the full rule set per
// user; the rule cache in front of this keeps it off the hot path.
func (r *RulePostgreSQL) GetAll(ctx context.Context, tx *gorm.DB) ([]*models.AssignmentRule, error) {
	var rules []*models.AssignmentRule
	err := getDB(r.db, tx).WithContext(ctx).
		Order("assessment_id ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("get all assignment rules: %w", err)
	}
	return rules, nil
}
